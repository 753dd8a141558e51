package wavefront

import (
	"math"
	"math/rand"
	"testing"

	"github.com/achilleasa/helios/scene"
	"github.com/achilleasa/helios/types"
)

func bruteForce(tris []scene.Triangle, r ray, tMax float32) hit {
	best := missHit()
	best.t = tMax
	for i := range tris {
		if t, u, v, ok := intersectTriangle(&tris[i], r, best.t); ok {
			best.t, best.u, best.v = t, u, v
			best.triangleID = int32(i)
			best.meshID = tris[i].MeshID
		}
	}
	return finishHit(best, tMax)
}

func randomRay(rng *rand.Rand) ray {
	origin := types.Vec3{rng.Float32()*12 - 6, rng.Float32()*12 - 6, rng.Float32()*12 - 6}
	dir := types.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}.Normalize()
	for dir.Len() == 0 {
		dir = types.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}.Normalize()
	}
	return makeRay(origin, dir)
}

// Every layout must return the same closest hit as a brute force scan over
// all triangles.
func TestTraversalMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1234))
	tris := randomSoup(rng, 200)
	nodes, tris := buildTestBvh(tris)

	sc := &scene.Scene{Triangles: tris, BvhNodes: nodes}

	layouts := []BvhLayout{LayoutBinary, LayoutQbvh, LayoutCwbvh}
	accels := make([]*accel, len(layouts))
	for i, layout := range layouts {
		var err error
		if accels[i], err = newAccel(layout, sc); err != nil {
			t.Fatal(err)
		}
	}

	inf := float32(math.Inf(1))
	for trial := 0; trial < 500; trial++ {
		r := randomRay(rng)
		want := bruteForce(tris, r, inf)

		for i, acc := range accels {
			got := acc.trace(r, inf)
			if got.triangleID != want.triangleID {
				// Two coplanar triangles at nearly identical t may swap;
				// accept only if the distances agree tightly.
				if absf(got.t-want.t) > 1e-4 {
					t.Fatalf("[%s ray %d] expected triangle %d at t=%f; got %d at t=%f",
						layouts[i], trial, want.triangleID, want.t, got.triangleID, got.t)
				}
				continue
			}
			if want.triangleID != InvalidID && absf(got.t-want.t) > 1e-4 {
				t.Fatalf("[%s ray %d] expected t=%f; got %f", layouts[i], trial, want.t, got.t)
			}
		}
	}
}

// Any-hit agrees with closest-hit occupancy for each layout.
func TestOccludedMatchesTrace(t *testing.T) {
	rng := rand.New(rand.NewSource(77))
	tris := randomSoup(rng, 100)
	nodes, tris := buildTestBvh(tris)

	sc := &scene.Scene{Triangles: tris, BvhNodes: nodes}

	for _, layout := range []BvhLayout{LayoutBinary, LayoutQbvh, LayoutCwbvh} {
		acc, err := newAccel(layout, sc)
		if err != nil {
			t.Fatal(err)
		}

		for trial := 0; trial < 300; trial++ {
			r := randomRay(rng)
			tMax := rng.Float32() * 20

			hasHit := acc.trace(r, tMax).triangleID != InvalidID
			if occluded := acc.occluded(r, tMax); occluded != hasHit {
				t.Fatalf("[%s ray %d] occluded=%t but closest-hit=%t", layout, trial, occluded, hasHit)
			}
		}
	}
}

// Hits at or beyond tMax are rejected; hits within an epsilon of the origin
// are rejected as self intersections.
func TestTraceDistanceBounds(t *testing.T) {
	tris := quadAt(-2, 10, 0)
	nodes, tris := buildTestBvh(tris)
	sc := &scene.Scene{Triangles: tris, BvhNodes: nodes}

	acc, err := newAccel(LayoutBinary, sc)
	if err != nil {
		t.Fatal(err)
	}

	r := makeRay(types.Vec3{0, 0, 0}, types.Vec3{0, 0, -1})

	if h := acc.trace(r, 100); h.triangleID == InvalidID || absf(h.t-2) > 1e-5 {
		t.Fatalf("expected a hit at t=2; got id=%d t=%f", h.triangleID, h.t)
	}
	if h := acc.trace(r, 1.5); h.triangleID != InvalidID {
		t.Fatal("expected the tMax bound to reject the hit")
	}

	// A ray starting on the surface must not hit it again.
	onSurface := makeRay(types.Vec3{0, 0, -2}, types.Vec3{0, 0, -1})
	if h := acc.trace(onSurface, 1e-5); h.triangleID != InvalidID {
		t.Fatal("expected the origin epsilon to reject the self intersection")
	}
}

func TestMissReturnsSentinel(t *testing.T) {
	tris := quadAt(-2, 1, 0)
	nodes, tris := buildTestBvh(tris)
	sc := &scene.Scene{Triangles: tris, BvhNodes: nodes}

	acc, err := newAccel(LayoutBinary, sc)
	if err != nil {
		t.Fatal(err)
	}

	r := makeRay(types.Vec3{0, 0, 0}, types.Vec3{0, 0, 1})
	h := acc.trace(r, float32(math.Inf(1)))
	if h.triangleID != InvalidID || h.meshID != InvalidID {
		t.Fatalf("expected the miss sentinel; got id=%d", h.triangleID)
	}
	if !math.IsInf(float64(h.t), 1) {
		t.Fatalf("expected t=+inf on miss; got %f", h.t)
	}
}

func TestDegenerateTriangleSkipped(t *testing.T) {
	// A zero-area triangle never reports an intersection.
	p := types.Vec3{0, 0, -1}
	tri := scene.MakeTriangle(p, p, p, types.Vec3{0, 0, 1}, types.Vec3{0, 0, 1}, types.Vec3{0, 0, 1},
		types.Vec2{}, types.Vec2{}, types.Vec2{}, 0, 0)

	r := makeRay(types.Vec3{0, 0, 0}, types.Vec3{0, 0, -1})
	if _, _, _, ok := intersectTriangle(&tri, r, 100); ok {
		t.Fatal("expected the degenerate triangle to be skipped")
	}
}
