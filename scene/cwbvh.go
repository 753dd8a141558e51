package scene

import (
	"fmt"
	"math"

	"github.com/achilleasa/helios/types"
)

// A compressed 8-wide BVH node. Child bounds are quantized to bytes relative
// to the node origin P with per-axis power-of-two scale 2^E. Internal
// children are packed first: bit i of Imask marks slot i internal, and its
// node index is BaseChild plus the number of internal slots before it. Leaf
// slots reference the triangle range {BaseTriangle + TriOffset, TriCount}.
// A slot with a clear Imask bit and zero TriCount is unused.
type CwbvhNode struct {
	P types.Vec3
	E [3]int8

	Imask        uint8
	BaseChild    int32
	BaseTriangle int32

	TriOffset [8]uint32
	TriCount  [8]uint8

	QloX, QloY, QloZ [8]uint8
	QhiX, QhiY, QhiZ [8]uint8
}

// Decode the bounds of a child slot.
func (n *CwbvhNode) ChildBounds(slot int) AABB {
	sx := float32(math.Ldexp(1, int(n.E[0])))
	sy := float32(math.Ldexp(1, int(n.E[1])))
	sz := float32(math.Ldexp(1, int(n.E[2])))
	return AABB{
		Min: types.Vec3{
			n.P[0] + sx*float32(n.QloX[slot]),
			n.P[1] + sy*float32(n.QloY[slot]),
			n.P[2] + sz*float32(n.QloZ[slot]),
		},
		Max: types.Vec3{
			n.P[0] + sx*float32(n.QhiX[slot]),
			n.P[1] + sy*float32(n.QhiY[slot]),
			n.P[2] + sz*float32(n.QhiZ[slot]),
		},
	}
}

// True when the slot holds an internal child.
func (n *CwbvhNode) IsInternal(slot int) bool {
	return n.Imask&(1<<uint(slot)) != 0
}

// Node index of an internal child slot.
func (n *CwbvhNode) ChildNode(slot int) int32 {
	rank := popcount8(n.Imask & ((1 << uint(slot)) - 1))
	return n.BaseChild + int32(rank)
}

// A compressed 8-wide BVH produced from a binary BVH.
type Cwbvh struct {
	Nodes []CwbvhNode
}

// Convert a binary BVH to its compressed 8-wide form. Each wide node adopts
// up to 8 descendants of a binary node by repeatedly expanding internal
// children. Leaf ranges are carried over unchanged, so a binary leaf holding
// more than 255 triangles cannot be encoded.
func CwbvhFromBvh(nodes []BvhNode) (*Cwbvh, error) {
	c := &Cwbvh{}
	if len(nodes) == 0 {
		return c, nil
	}

	c.Nodes = append(c.Nodes, CwbvhNode{})
	if err := c.convert(nodes, 0, 0); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cwbvh) convert(nodes []BvhNode, src, dst int32) error {
	slots := []int32{src}

	// Expand internal slots two at a time until the node is full.
	for len(slots) < 8 {
		expandAt := -1
		for i, slot := range slots {
			if !nodes[slot].IsLeaf() {
				expandAt = i
				break
			}
		}
		if expandAt < 0 {
			break
		}

		left := nodes[slots[expandAt]].LeftChild()
		slots = append(slots[:expandAt], append([]int32{left, left + 1}, slots[expandAt+1:]...)...)
	}

	// Internal children first so rank indexing stays contiguous.
	ordered := make([]int32, 0, len(slots))
	for _, slot := range slots {
		if !nodes[slot].IsLeaf() {
			ordered = append(ordered, slot)
		}
	}
	numInternal := len(ordered)
	for _, slot := range slots {
		if nodes[slot].IsLeaf() {
			ordered = append(ordered, slot)
		}
	}

	// Union bounds and quantization scale.
	bounds := nodes[ordered[0]].Bounds()
	for _, slot := range ordered[1:] {
		bounds.Expand(nodes[slot].Bounds())
	}

	node := CwbvhNode{P: bounds.Min}
	for axis := 0; axis < 3; axis++ {
		extent := bounds.Max[axis] - bounds.Min[axis]
		e := 0
		if extent > 0 {
			e = int(math.Ceil(math.Log2(float64(extent) / 255.0)))
		}
		node.E[axis] = int8(e)
	}

	// Base triangle offset over the leaf slots.
	baseTriangle := int32(math.MaxInt32)
	for _, slot := range ordered[numInternal:] {
		first, _ := nodes[slot].Primitives()
		if first < baseTriangle {
			baseTriangle = first
		}
	}
	if numInternal == len(ordered) {
		baseTriangle = 0
	}
	node.BaseTriangle = baseTriangle

	// Allocate internal children contiguously before recursing.
	node.BaseChild = int32(len(c.Nodes))
	for i := 0; i < numInternal; i++ {
		c.Nodes = append(c.Nodes, CwbvhNode{})
	}

	for i, slot := range ordered {
		child := &nodes[slot]

		if !child.IsLeaf() {
			node.Imask |= 1 << uint(i)
		} else {
			first, count := child.Primitives()
			if count > 255 {
				return fmt.Errorf("cwbvh: leaf with %d triangles exceeds the encodable range", count)
			}
			node.TriOffset[i] = uint32(first - baseTriangle)
			node.TriCount[i] = uint8(count)
		}

		for axis := 0; axis < 3; axis++ {
			scale := math.Ldexp(1, int(node.E[axis]))
			lo := math.Floor(float64(child.Min[axis]-node.P[axis]) / scale)
			hi := math.Ceil(float64(child.Max[axis]-node.P[axis]) / scale)
			qlo := uint8(clampf(float32(lo), 0, 255))
			qhi := uint8(clampf(float32(hi), 0, 255))
			switch axis {
			case 0:
				node.QloX[i], node.QhiX[i] = qlo, qhi
			case 1:
				node.QloY[i], node.QhiY[i] = qlo, qhi
			case 2:
				node.QloZ[i], node.QhiZ[i] = qlo, qhi
			}
		}
	}

	c.Nodes[dst] = node

	rank := 0
	for i, slot := range ordered {
		if node.Imask&(1<<uint(i)) != 0 {
			if err := c.convert(nodes, slot, node.BaseChild+int32(rank)); err != nil {
				return err
			}
			rank++
		}
	}
	return nil
}

func popcount8(v uint8) int {
	count := 0
	for v != 0 {
		v &= v - 1
		count++
	}
	return count
}
