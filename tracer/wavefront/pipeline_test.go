package wavefront

import (
	"testing"

	"github.com/achilleasa/helios/scene"
	"github.com/achilleasa/helios/tracer"
	"github.com/achilleasa/helios/types"
)

// An empty scene under a uniform gray sky: every primary ray misses and the
// output equals the sky radiance exactly.
func TestEmptySceneGraySky(t *testing.T) {
	sc := newTestScene(nil, nil, scene.UniformSky(types.Vec3{0.5, 0.5, 0.5}))
	tr := newTestTracer(t, sc, 8, 8, Options{})

	renderFrame(t, tr, tracer.DefaultSettings(), 1)

	for y := int32(0); y < 8; y++ {
		for x := int32(0); x < 8; x++ {
			if got := accumPixel(tr, x, y); got != (types.Vec3{0.5, 0.5, 0.5}) {
				t.Fatalf("pixel (%d,%d) = %v; expected gray sky", x, y, got)
			}
		}
	}
}

// A white emissive quad filling the view: pixels that see the light directly
// report exactly its emission.
func TestEmissiveQuadSeenDirectly(t *testing.T) {
	materials := []scene.Material{scene.LightMaterial(types.Vec3{2, 3, 4})}
	sc := newTestScene(quadAt(-2, 100, 0), materials, scene.UniformSky(types.Vec3{}))
	tr := newTestTracer(t, sc, 8, 8, Options{})

	settings := tracer.DefaultSettings()
	settings.NumBounces = 1
	settings.EnableNextEventEstimation = false
	settings.EnableMultipleImportanceSampling = false
	renderFrame(t, tr, settings, 1)

	for y := int32(0); y < 8; y++ {
		for x := int32(0); x < 8; x++ {
			if got := accumPixel(tr, x, y); got != (types.Vec3{2, 3, 4}) {
				t.Fatalf("pixel (%d,%d) = %v; expected the light emission", x, y, got)
			}
		}
	}
}

// A diffuse wall with no reachable light, NEE and MIS off, one bounce: no
// radiance reaches the film.
func TestDiffuseWallNoLight(t *testing.T) {
	materials := []scene.Material{
		scene.DiffuseMaterial(types.Vec3{0.7, 0.7, 0.7}, -1),
		scene.LightMaterial(types.Vec3{10, 10, 10}),
	}
	// The light sits behind the camera and is never hit.
	tris := append(quadAt(-2, 100, 0), quadAt(50, 1, 1)...)
	sc := newTestScene(tris, materials, scene.UniformSky(types.Vec3{}))
	tr := newTestTracer(t, sc, 8, 8, Options{})

	settings := tracer.DefaultSettings()
	settings.NumBounces = 1
	settings.EnableNextEventEstimation = false
	settings.EnableMultipleImportanceSampling = false
	renderFrame(t, tr, settings, 1)

	for y := int32(0); y < 8; y++ {
		for x := int32(0); x < 8; x++ {
			if got := accumPixel(tr, x, y); got != (types.Vec3{}) {
				t.Fatalf("pixel (%d,%d) = %v; expected black", x, y, got)
			}
		}
	}
}

// Static camera, SVGF off: the accumulator carries the online mean, which
// for identical frames stays fixed at the frame value.
func TestAccumulateStaysFixedForStaticScene(t *testing.T) {
	sc := newTestScene(nil, nil, scene.UniformSky(types.Vec3{0.25, 0.5, 0.75}))
	tr := newTestTracer(t, sc, 8, 8, Options{})

	settings := tracer.DefaultSettings()
	for frame := uint32(0); frame < 16; frame++ {
		renderFrame(t, tr, settings, frame)
		if tr.framesSinceCameraMoved != frame {
			t.Fatalf("after frame %d expected sample index %d; got %d", frame, frame, tr.framesSinceCameraMoved)
		}
	}

	if got := accumPixel(tr, 3, 3); !types.ApproxEqual(got, types.Vec3{0.25, 0.5, 0.75}, 1e-5) {
		t.Fatalf("expected the accumulator to hold the frame value; got %v", got)
	}
}

// The online mean semantics of the accumulate kernel.
func TestAccumulateOnlineMean(t *testing.T) {
	sc := newTestScene(nil, nil, scene.UniformSky(types.Vec3{}))
	tr := newTestTracer(t, sc, 8, 8, Options{})
	tr.settings.EnableAlbedo = false

	put := func(v float32, n uint32) {
		tr.frame.direct[0] = types.Vec4{v, v, v, 0}
		tr.frame.indirect[0] = types.Vec4{}
		tr.framesSinceCameraMoved = n
		tr.accumulateBody(0, 0)
	}

	put(2, 0)
	put(4, 1)
	put(9, 2)

	// mean(2, 4, 9) = 5
	if got := tr.frame.accumulator[0].Vec3(); !types.ApproxEqual(got, types.Vec3{5, 5, 5}, 1e-5) {
		t.Fatalf("expected the online mean to be 5; got %v", got)
	}
}

// Camera movement restarts the progressive average.
func TestCameraMoveResetsAccumulation(t *testing.T) {
	sc := newTestScene(nil, nil, scene.UniformSky(types.Vec3{0.5, 0.5, 0.5}))
	tr := newTestTracer(t, sc, 8, 8, Options{})

	settings := tracer.DefaultSettings()
	renderFrame(t, tr, settings, 1)
	renderFrame(t, tr, settings, 2)
	if tr.framesSinceCameraMoved != 1 {
		t.Fatalf("expected sample index 1; got %d", tr.framesSinceCameraMoved)
	}

	sc.Camera.Move(scene.Forward, 1)
	renderFrame(t, tr, settings, 3)
	if tr.framesSinceCameraMoved != 0 {
		t.Fatalf("expected the camera move to reset the sample index; got %d", tr.framesSinceCameraMoved)
	}
}

// Per-bounce routing never exceeds the number of traced rays, and the shared
// specular buffer occupancy invariant holds for every bounce.
func TestQueueConservation(t *testing.T) {
	materials := []scene.Material{
		scene.DiffuseMaterial(types.Vec3{0.8, 0.8, 0.8}, -1),
		scene.DielectricMaterial(1.5, types.Vec3{}),
		scene.GlossyMaterial(types.Vec3{0.9, 0.9, 0.9}, -1, 1.5, 0.4),
		scene.LightMaterial(types.Vec3{6, 6, 6}),
	}
	tris := quadAt(-4, 100, 0)                  // diffuse backdrop
	tris = append(tris, quadAt(-2, 1, 1)...)    // glass pane
	tris = append(tris, quadAt(-3, 1.5, 2)...)  // glossy pane
	tris = append(tris, quadAt(-3.5, 40, 3)...) // large light behind the panes

	sc := newTestScene(tris, materials, scene.UniformSky(types.Vec3{0.1, 0.1, 0.1}))
	tr := newTestTracer(t, sc, 16, 16, Options{})

	settings := tracer.DefaultSettings()
	settings.NumBounces = 3
	renderFrame(t, tr, settings, 42)

	for bounce := 0; bounce < settings.NumBounces; bounce++ {
		traced := tr.rays.sizes.trace[bounce].Load()
		routed := tr.rays.sizes.diffuse[bounce].Load() +
			tr.rays.sizes.dielectric[bounce].Load() +
			tr.rays.sizes.glossy[bounce].Load()

		if routed > traced {
			t.Fatalf("bounce %d routed %d rays out of %d traced", bounce, routed, traced)
		}
		if occupancy := tr.rays.sizes.dielectric[bounce].Load() + tr.rays.sizes.glossy[bounce].Load(); occupancy > tr.batchSize {
			t.Fatalf("bounce %d shared buffer occupancy %d exceeds capacity", bounce, occupancy)
		}
	}

	// No pixel may carry negative or NaN radiance.
	for i, px := range tr.frame.accumulator {
		v := px.Vec3()
		if types.IsBadVec3(v) || v[0] < 0 || v[1] < 0 || v[2] < 0 {
			t.Fatalf("pixel %d carries invalid radiance %v", i, v)
		}
	}
}

// Zero bounce paths cannot happen: the bounce count clamps to at least one.
func TestBounceClamping(t *testing.T) {
	sc := newTestScene(nil, nil, scene.UniformSky(types.Vec3{1, 1, 1}))
	tr := newTestTracer(t, sc, 4, 4, Options{})

	settings := tracer.DefaultSettings()
	settings.NumBounces = 0
	renderFrame(t, tr, settings, 1)

	if got := accumPixel(tr, 0, 0); got != (types.Vec3{1, 1, 1}) {
		t.Fatalf("expected one bounce of sky; got %v", got)
	}

	settings.NumBounces = 99
	renderFrame(t, tr, settings, 2)
	if tr.settings.NumBounces != MaxBounces {
		t.Fatalf("expected the bounce count to clamp to %d; got %d", MaxBounces, tr.settings.NumBounces)
	}
}
