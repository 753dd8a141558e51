package scene

import "sort"

// The light table stores the triangle indices of all emissive primitives
// together with a cumulative table of their surface areas. Next event
// estimation picks a light proportional to area by drawing a uniform number
// and binary searching the cumulative table.
type LightTable struct {
	// Triangle indices of the emissive primitives, sorted by ascending area.
	Indices []int32

	// CumulativeArea[i] is the summed area of lights 0..i-1; the last entry
	// equals TotalArea. len(CumulativeArea) == len(Indices) + 1.
	CumulativeArea []float32

	TotalArea float32
}

// Scan the triangle list and build the light table from all triangles whose
// material is emissive. Zero-area triangles are skipped.
func BuildLightTable(triangles []Triangle, materials []Material) LightTable {
	type lightDesc struct {
		index int32
		area  float32
	}

	var lights []lightDesc
	for i := range triangles {
		matID := triangles[i].MaterialID
		if matID < 0 || int(matID) >= len(materials) || materials[matID].Type != MaterialLight {
			continue
		}
		area := triangles[i].Area()
		if area <= 0 {
			continue
		}
		lights = append(lights, lightDesc{index: int32(i), area: area})
	}

	sort.Slice(lights, func(i, j int) bool { return lights[i].area < lights[j].area })

	table := LightTable{
		Indices:        make([]int32, len(lights)),
		CumulativeArea: make([]float32, len(lights)+1),
	}

	var total float32
	for i, light := range lights {
		table.Indices[i] = light.index
		table.CumulativeArea[i] = total
		total += light.area
	}
	table.CumulativeArea[len(lights)] = total
	table.TotalArea = total

	return table
}

// True when the scene contains no emissive primitives.
func (lt *LightTable) Empty() bool {
	return len(lt.Indices) == 0
}

// Pick a light proportional to its area. r must be in [0, 1). Returns the
// triangle index of the chosen light.
func (lt *LightTable) Pick(r float32) int32 {
	target := r * lt.TotalArea

	// Find the first cumulative entry greater than the target; the light at
	// the preceding slot owns the [cum[i], cum[i+1]) span.
	n := len(lt.Indices)
	slot := sort.Search(n, func(i int) bool { return lt.CumulativeArea[i+1] > target })
	if slot >= n {
		slot = n - 1
	}
	return lt.Indices[slot]
}
