package scene

import "github.com/achilleasa/helios/types"

// An axis aligned bounding box.
type AABB struct {
	Min types.Vec3
	Max types.Vec3
}

// Grow the box to include another box.
func (b *AABB) Expand(other AABB) {
	b.Min = types.MinVec3(b.Min, other.Min)
	b.Max = types.MaxVec3(b.Max, other.Max)
}

// Slab test against a ray given its origin, the reciprocal of its direction
// and a max distance. A ray that grazes the box at exactly tNear == tFar
// reports a miss.
func (b *AABB) Intersect(origin, dirInv types.Vec3, tMax float32) bool {
	tNear, tFar := intersectSlabs(b.Min, b.Max, origin, dirInv, tMax)
	return tNear < tFar
}

func intersectSlabs(bMin, bMax, origin, dirInv types.Vec3, tMax float32) (float32, float32) {
	tNear := float32(rayEpsilon)
	tFar := tMax

	for axis := 0; axis < 3; axis++ {
		t0 := (bMin[axis] - origin[axis]) * dirInv[axis]
		t1 := (bMax[axis] - origin[axis]) * dirInv[axis]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tNear {
			tNear = t0
		}
		if t1 < tFar {
			tFar = t1
		}
	}
	return tNear, tFar
}

// Distance epsilon used to reject self intersections at the ray origin and
// applied to the shadow ray max distance. Expressed in scene units.
const rayEpsilon = 1e-4

// Exported for traversal and shading code that needs the same offset.
const RayEpsilon = rayEpsilon

// A binary BVH node. Leaf nodes reference a contiguous triangle range
// {first, count}; internal nodes reference their left child, with the right
// child at left+1. Internal nodes also carry the builder's split axis, which
// traversal uses to visit the near child first based on the ray direction
// sign.
//
// The layout packs count and axis into one field: the low 30 bits hold the
// leaf triangle count (zero for internal nodes) and the top 2 bits hold the
// split axis.
type BvhNode struct {
	Min       types.Vec3
	LeftFirst int32

	Max       types.Vec3
	CountAxis uint32
}

// True when the node is a leaf.
func (n *BvhNode) IsLeaf() bool {
	return n.CountAxis&0x3fffffff != 0
}

// Leaf triangle range.
func (n *BvhNode) Primitives() (first, count int32) {
	return n.LeftFirst, int32(n.CountAxis & 0x3fffffff)
}

// Left child index; the right child is LeftFirst+1.
func (n *BvhNode) LeftChild() int32 {
	return n.LeftFirst
}

// The split axis recorded by the builder (0=x, 1=y, 2=z).
func (n *BvhNode) Axis() int {
	return int(n.CountAxis >> 30)
}

// Mark the node as a leaf over a triangle range.
func (n *BvhNode) SetLeaf(first, count int32) {
	n.LeftFirst = first
	n.CountAxis = uint32(count) & 0x3fffffff
}

// Mark the node as internal with the given left child and split axis.
func (n *BvhNode) SetChildren(left int32, axis int) {
	n.LeftFirst = left
	n.CountAxis = uint32(axis) << 30
}

// Bounds of the node.
func (n *BvhNode) Bounds() AABB {
	return AABB{Min: n.Min, Max: n.Max}
}
