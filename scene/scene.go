package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// The optimized scene representation consumed by the tracer. The external
// asset pipeline emits the triangle, material and texture arrays together
// with the binary BVH produced by the builder; the triangle list follows the
// BVH leaf permutation. The 4-wide and compressed 8-wide node layouts are
// derived on demand.
type Scene struct {
	Triangles []Triangle
	Materials []Material
	Textures  []*Texture

	BvhNodes []BvhNode

	Lights LightTable

	Sky    *Sky
	Camera *Camera
}

// Report whether any material in the scene carries the given tag. The tracer
// skips shade kernels for material kinds that never occur.
func (sc *Scene) HasMaterial(mt MaterialType) bool {
	for i := range sc.Materials {
		if sc.Materials[i].Type == mt {
			return true
		}
	}
	return false
}

// Look up the material of a triangle.
func (sc *Scene) TriangleMaterial(triangleID int32) *Material {
	return &sc.Materials[sc.Triangles[triangleID].MaterialID]
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var texBytes int
	for _, tex := range sc.Textures {
		for _, mip := range tex.Mips {
			texBytes += len(mip) * 12
		}
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Size"})
	table.Append([]string{"Geometry", "---", fmtSize(sc.Triangles, sc.BvhNodes)})
	table.Append([]string{"", "Triangles", fmtSize(sc.Triangles)})
	table.Append([]string{"", "BVH nodes", fmtSize(sc.BvhNodes)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Materials", "---", fmtSize(sc.Materials)})
	table.Append([]string{"Lights", "---", fmtSize(sc.Lights.Indices, sc.Lights.CumulativeArea)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Textures", "---", fmtBytes(float32(texBytes))})
	if sc.Sky != nil {
		table.Append([]string{"Sky", "---", fmtSize(sc.Sky.Data)})
	}
	table.SetFooter([]string{"Triangles", " ", fmt.Sprintf("%d", len(sc.Triangles))})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}
	return fmtBytes(totalBytes)
}

func fmtBytes(totalBytes float32) string {
	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return strings.TrimLeft(fmt.Sprintf("%5.1f mb", totalBytes/1e6), " ")
}
