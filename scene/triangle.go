package scene

import (
	"math"

	"github.com/achilleasa/helios/types"
)

// The render-form triangle representation consumed by the trace and shade
// kernels. Positions, normals and texture coordinates are stored as an anchor
// vertex plus two edges so that attribute interpolation reduces to two
// multiply-adds with the hit barycentrics. Triangles are indexed in BVH leaf
// order (the post-builder permutation).
type Triangle struct {
	Position0     types.Vec3
	PositionEdge1 types.Vec3
	PositionEdge2 types.Vec3

	Normal0     types.Vec3
	NormalEdge1 types.Vec3
	NormalEdge2 types.Vec3

	TexCoord0     types.Vec2
	TexCoordEdge1 types.Vec2
	TexCoordEdge2 types.Vec2

	MaterialID int32
	MeshID     int32
}

// Build a render-form triangle from its three vertices.
func MakeTriangle(p0, p1, p2, n0, n1, n2 types.Vec3, uv0, uv1, uv2 types.Vec2, materialID, meshID int32) Triangle {
	return Triangle{
		Position0:     p0,
		PositionEdge1: p1.Sub(p0),
		PositionEdge2: p2.Sub(p0),
		Normal0:       n0,
		NormalEdge1:   n1.Sub(n0),
		NormalEdge2:   n2.Sub(n0),
		TexCoord0:     uv0,
		TexCoordEdge1: uv1.Sub(uv0),
		TexCoordEdge2: uv2.Sub(uv0),
		MaterialID:    materialID,
		MeshID:        meshID,
	}
}

// Interpolate the hit position for barycentric coordinates (u, v).
func (tr *Triangle) PositionAt(u, v float32) types.Vec3 {
	return tr.Position0.Add(tr.PositionEdge1.Mul(u)).Add(tr.PositionEdge2.Mul(v))
}

// Interpolate the shading normal for barycentric coordinates (u, v).
func (tr *Triangle) NormalAt(u, v float32) types.Vec3 {
	return tr.Normal0.Add(tr.NormalEdge1.Mul(u)).Add(tr.NormalEdge2.Mul(v)).Normalize()
}

// Interpolate the texture coordinates for barycentric coordinates (u, v).
func (tr *Triangle) TexCoordAt(u, v float32) types.Vec2 {
	return tr.TexCoord0.Add(tr.TexCoordEdge1.Mul(u)).Add(tr.TexCoordEdge2.Mul(v))
}

// The geometric (face) normal; not normalized when the triangle is degenerate.
func (tr *Triangle) GeometricNormal() types.Vec3 {
	return tr.PositionEdge1.Cross(tr.PositionEdge2).Normalize()
}

// World-space surface area.
func (tr *Triangle) Area() float32 {
	return 0.5 * tr.PositionEdge1.Cross(tr.PositionEdge2).Len()
}

// The per-triangle LOD constant used by the ray cone texture level
// calculation: 0.5 * log2(uv_area / position_area).
func (tr *Triangle) LODConstant() float32 {
	pa := tr.PositionEdge1.Cross(tr.PositionEdge2).Len()
	ta := absf(tr.TexCoordEdge1[0]*tr.TexCoordEdge2[1] - tr.TexCoordEdge1[1]*tr.TexCoordEdge2[0])
	if pa <= 0 || ta <= 0 {
		return 0
	}
	return 0.5 * float32(math.Log2(float64(ta/pa)))
}

// Axis aligned bounds of the triangle.
func (tr *Triangle) Bounds() AABB {
	p0 := tr.Position0
	p1 := tr.Position0.Add(tr.PositionEdge1)
	p2 := tr.Position0.Add(tr.PositionEdge2)
	return AABB{
		Min: types.MinVec3(p0, types.MinVec3(p1, p2)),
		Max: types.MaxVec3(p0, types.MaxVec3(p1, p2)),
	}
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
