package wavefront

import (
	"math"

	"github.com/achilleasa/helios/scene"
)

// Texture LOD selection follows the ray cone formulation of Akenine-Moller
// et al. (2021): a cone (angle, width) rides along with each extension ray,
// the width grows with distance and the angle widens with surface curvature
// at every bounce.

// The cone spread angle of a primary ray for a given vertical field of view
// and frame height.
func primaryConeAngle(fov float32, height int32) float32 {
	return float32(math.Atan(2.0 * math.Tan(float64(fov)*0.5) / float64(height)))
}

// Advance the cone width to a hit at distance t.
func coneWidthAt(angle, width, t float32) float32 {
	return width + angle*t
}

// Approximate the surface spread induced by curvature from the variation of
// the shading normals across the triangle. Flat triangles contribute zero.
func triangleCurvature(tri *scene.Triangle) float32 {
	posLen := tri.PositionEdge1.Len() + tri.PositionEdge2.Len()
	if posLen <= 0 {
		return 0
	}
	normLen := tri.NormalEdge1.Len() + tri.NormalEdge2.Len()
	return normLen / posLen
}

// Texture level of detail for a cone of the given width hitting a triangle
// at the given incidence. The triangle LOD constant folds the UV density; the
// log2 texture area term rescales to texel units.
func textureLOD(tri *scene.Triangle, tex *scene.Texture, coneWidth, dirDotN float32) float32 {
	a := absf(dirDotN)
	if a < 1e-4 {
		a = 1e-4
	}
	w := absf(coneWidth)
	if w < 1e-8 {
		w = 1e-8
	}

	lod := tri.LODConstant()
	lod += float32(math.Log2(float64(w)))
	lod -= float32(math.Log2(float64(a)))
	lod += 0.5 * float32(math.Log2(float64(tex.Width)*float64(tex.Height)))
	return lod
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
