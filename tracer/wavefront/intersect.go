package wavefront

import (
	"math"

	"github.com/achilleasa/helios/scene"
	"github.com/achilleasa/helios/types"
)

// The on-device BVH layout used by the trace kernels.
type BvhLayout uint8

const (
	LayoutBinary BvhLayout = iota
	LayoutQbvh
	LayoutCwbvh
)

func (l BvhLayout) String() string {
	switch l {
	case LayoutBinary:
		return "bvh2"
	case LayoutQbvh:
		return "qbvh"
	case LayoutCwbvh:
		return "cwbvh"
	}
	return "unknown"
}

type ray struct {
	origin       types.Vec3
	direction    types.Vec3
	directionInv types.Vec3
}

func makeRay(origin, direction types.Vec3) ray {
	return ray{
		origin:    origin,
		direction: direction,
		directionInv: types.Vec3{
			1.0 / direction[0],
			1.0 / direction[1],
			1.0 / direction[2],
		},
	}
}

type hit struct {
	t    float32
	u, v float32

	meshID     int32
	triangleID int32
}

func missHit() hit {
	return hit{t: float32(math.Inf(1)), meshID: InvalidID, triangleID: InvalidID}
}

// Moeller-Trumbore ray/triangle test. Intersections are accepted in
// (epsilon, tMax).
func intersectTriangle(tri *scene.Triangle, r ray, tMax float32) (t, u, v float32, ok bool) {
	h := r.direction.Cross(tri.PositionEdge2)
	a := tri.PositionEdge1.Dot(h)
	if a > -1e-8 && a < 1e-8 {
		// Ray parallel to the triangle plane (or degenerate triangle).
		return 0, 0, 0, false
	}

	f := 1.0 / a
	s := r.origin.Sub(tri.Position0)
	u = f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	q := s.Cross(tri.PositionEdge1)
	v = f * r.direction.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = f * tri.PositionEdge2.Dot(q)
	if t <= scene.RayEpsilon || t >= tMax {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

// The acceleration structure in the layout selected at init. The traversal
// contract is identical across layouts: closest-hit returns the minimum-t
// intersection in (epsilon, tMax), any-hit short-circuits on the first one.
type accel struct {
	layout    BvhLayout
	triangles []scene.Triangle

	nodes []scene.BvhNode
	qbvh  *scene.Qbvh
	cwbvh *scene.Cwbvh
}

func newAccel(layout BvhLayout, sc *scene.Scene) (*accel, error) {
	a := &accel{
		layout:    layout,
		triangles: sc.Triangles,
		nodes:     sc.BvhNodes,
	}

	switch layout {
	case LayoutQbvh:
		a.qbvh = scene.QbvhFromBvh(sc.BvhNodes)
	case LayoutCwbvh:
		var err error
		a.cwbvh, err = scene.CwbvhFromBvh(sc.BvhNodes)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Closest-hit query.
func (a *accel) trace(r ray, tMax float32) hit {
	switch a.layout {
	case LayoutQbvh:
		return a.traceQbvh(r, tMax)
	case LayoutCwbvh:
		return a.traceCwbvh(r, tMax)
	}
	return a.traceBvh(r, tMax)
}

// Any-hit query.
func (a *accel) occluded(r ray, tMax float32) bool {
	switch a.layout {
	case LayoutQbvh:
		return a.occludedQbvh(r, tMax)
	case LayoutCwbvh:
		return a.occludedCwbvh(r, tMax)
	}
	return a.occludedBvh(r, tMax)
}

func (a *accel) intersectLeaf(r ray, first, count int32, best *hit) {
	for i := first; i < first+count; i++ {
		if t, u, v, ok := intersectTriangle(&a.triangles[i], r, best.t); ok {
			best.t, best.u, best.v = t, u, v
			best.triangleID = i
			best.meshID = a.triangles[i].MeshID
		}
	}
}

func (a *accel) occludedLeaf(r ray, first, count int32, tMax float32) bool {
	for i := first; i < first+count; i++ {
		if _, _, _, ok := intersectTriangle(&a.triangles[i], r, tMax); ok {
			return true
		}
	}
	return false
}

const traversalStackSize = 64

func (a *accel) traceBvh(r ray, tMax float32) hit {
	best := missHit()
	best.t = tMax
	if len(a.nodes) == 0 {
		return finishHit(best, tMax)
	}

	var stack [traversalStackSize]int32
	stackPtr := 0
	stack[stackPtr] = 0
	stackPtr++

	for stackPtr > 0 {
		stackPtr--
		node := &a.nodes[stack[stackPtr]]

		bounds := node.Bounds()
		if !bounds.Intersect(r.origin, r.directionInv, best.t) {
			continue
		}

		if node.IsLeaf() {
			first, count := node.Primitives()
			a.intersectLeaf(r, first, count, &best)
			continue
		}

		// Visit the near child first so the far child benefits from the
		// tightened distance bound.
		near, far := node.LeftChild(), node.LeftChild()+1
		if r.direction[node.Axis()] < 0 {
			near, far = far, near
		}
		stack[stackPtr] = far
		stack[stackPtr+1] = near
		stackPtr += 2
	}

	return finishHit(best, tMax)
}

func (a *accel) occludedBvh(r ray, tMax float32) bool {
	if len(a.nodes) == 0 {
		return false
	}

	var stack [traversalStackSize]int32
	stackPtr := 0
	stack[stackPtr] = 0
	stackPtr++

	for stackPtr > 0 {
		stackPtr--
		node := &a.nodes[stack[stackPtr]]

		bounds := node.Bounds()
		if !bounds.Intersect(r.origin, r.directionInv, tMax) {
			continue
		}

		if node.IsLeaf() {
			first, count := node.Primitives()
			if a.occludedLeaf(r, first, count, tMax) {
				return true
			}
			continue
		}

		left := node.LeftChild()
		stack[stackPtr] = left
		stack[stackPtr+1] = left + 1
		stackPtr += 2
	}

	return false
}

func (a *accel) traceQbvh(r ray, tMax float32) hit {
	best := missHit()
	best.t = tMax
	if len(a.qbvh.Nodes) == 0 {
		return finishHit(best, tMax)
	}

	var stack [traversalStackSize]int32
	stackPtr := 0
	stack[stackPtr] = 0
	stackPtr++

	for stackPtr > 0 {
		stackPtr--
		node := &a.qbvh.Nodes[stack[stackPtr]]

		for lane := 0; lane < 4; lane++ {
			if node.Count[lane] < 0 {
				continue
			}
			box := scene.AABB{
				Min: types.Vec3{node.MinX[lane], node.MinY[lane], node.MinZ[lane]},
				Max: types.Vec3{node.MaxX[lane], node.MaxY[lane], node.MaxZ[lane]},
			}
			if !box.Intersect(r.origin, r.directionInv, best.t) {
				continue
			}

			if node.Count[lane] > 0 {
				a.intersectLeaf(r, node.Index[lane], node.Count[lane], &best)
			} else {
				stack[stackPtr] = node.Index[lane]
				stackPtr++
			}
		}
	}

	return finishHit(best, tMax)
}

func (a *accel) occludedQbvh(r ray, tMax float32) bool {
	if len(a.qbvh.Nodes) == 0 {
		return false
	}

	var stack [traversalStackSize]int32
	stackPtr := 0
	stack[stackPtr] = 0
	stackPtr++

	for stackPtr > 0 {
		stackPtr--
		node := &a.qbvh.Nodes[stack[stackPtr]]

		for lane := 0; lane < 4; lane++ {
			if node.Count[lane] < 0 {
				continue
			}
			box := scene.AABB{
				Min: types.Vec3{node.MinX[lane], node.MinY[lane], node.MinZ[lane]},
				Max: types.Vec3{node.MaxX[lane], node.MaxY[lane], node.MaxZ[lane]},
			}
			if !box.Intersect(r.origin, r.directionInv, tMax) {
				continue
			}

			if node.Count[lane] > 0 {
				if a.occludedLeaf(r, node.Index[lane], node.Count[lane], tMax) {
					return true
				}
			} else {
				stack[stackPtr] = node.Index[lane]
				stackPtr++
			}
		}
	}

	return false
}

func (a *accel) traceCwbvh(r ray, tMax float32) hit {
	best := missHit()
	best.t = tMax
	if len(a.cwbvh.Nodes) == 0 {
		return finishHit(best, tMax)
	}

	var stack [traversalStackSize]int32
	stackPtr := 0
	stack[stackPtr] = 0
	stackPtr++

	for stackPtr > 0 {
		stackPtr--
		node := &a.cwbvh.Nodes[stack[stackPtr]]

		for slot := 0; slot < 8; slot++ {
			internal := node.IsInternal(slot)
			if !internal && node.TriCount[slot] == 0 {
				continue
			}

			box := node.ChildBounds(slot)
			if !box.Intersect(r.origin, r.directionInv, best.t) {
				continue
			}

			if internal {
				stack[stackPtr] = node.ChildNode(slot)
				stackPtr++
			} else {
				first := node.BaseTriangle + int32(node.TriOffset[slot])
				a.intersectLeaf(r, first, int32(node.TriCount[slot]), &best)
			}
		}
	}

	return finishHit(best, tMax)
}

func (a *accel) occludedCwbvh(r ray, tMax float32) bool {
	if len(a.cwbvh.Nodes) == 0 {
		return false
	}

	var stack [traversalStackSize]int32
	stackPtr := 0
	stack[stackPtr] = 0
	stackPtr++

	for stackPtr > 0 {
		stackPtr--
		node := &a.cwbvh.Nodes[stack[stackPtr]]

		for slot := 0; slot < 8; slot++ {
			internal := node.IsInternal(slot)
			if !internal && node.TriCount[slot] == 0 {
				continue
			}

			box := node.ChildBounds(slot)
			if !box.Intersect(r.origin, r.directionInv, tMax) {
				continue
			}

			if internal {
				stack[stackPtr] = node.ChildNode(slot)
				stackPtr++
			} else {
				first := node.BaseTriangle + int32(node.TriOffset[slot])
				if a.occludedLeaf(r, first, int32(node.TriCount[slot]), tMax) {
					return true
				}
			}
		}
	}

	return false
}

// Restore the miss sentinel when no triangle tightened the bound.
func finishHit(best hit, tMax float32) hit {
	if best.triangleID == InvalidID {
		best.t = float32(math.Inf(1))
	}
	return best
}
