package wavefront

import (
	"math"
	"testing"

	"github.com/achilleasa/helios/scene"
	"github.com/achilleasa/helios/tracer"
	"github.com/achilleasa/helios/types"
)

func expVec(a types.Vec3, t float32) types.Vec3 {
	return types.Vec3{expf(-a[0] * t), expf(-a[1] * t), expf(-a[2] * t)}
}

// Total internal reflection with Lambert-Beer absorption: the grazing exit
// ray reflects back into the medium and the throughput must stay finite.
func TestDielectricTotalInternalReflection(t *testing.T) {
	absorption := types.Vec3{0.5, 1.0, 2.0}
	materials := []scene.Material{scene.DielectricMaterial(float32(math.Sqrt2), absorption)}
	sc := newTestScene(quadAt(-1, 10, 0), materials, scene.UniformSky(types.Vec3{}))
	tr := newTestTracer(t, sc, 4, 4, Options{})

	tr.rays.sizes.resetFrame(4)
	tr.launch.bounce = 0
	tr.launch.seed = 7

	// Leaving the medium at a steep angle: the facing test flips the frame
	// and k goes negative.
	dir := types.Vec3{2, 0, 1}.Normalize()
	mb := &tr.rays.specular
	mb.direction[0] = dir
	mb.triangleID[0] = 0
	mb.hitU[0], mb.hitV[0] = 0.25, 0.25
	mb.hitT[0] = 3
	mb.pixelAndFlags[0] = packPixelIndex(0, false)
	mb.throughput[0] = types.Vec3{1, 1, 1}

	tr.shadeDielectricBody(0, 0)

	out := tr.rays.traceOut(0)
	if tr.rays.sizes.trace[1].Load() != 1 {
		t.Fatal("expected one extension ray")
	}

	wantThroughput := expVec(absorption, 3)
	if !types.ApproxEqual(out.throughput[0], wantThroughput, 1e-5) {
		t.Fatalf("expected Beer attenuation %v; got %v", wantThroughput, out.throughput[0])
	}
	if types.IsBadVec3(out.direction[0]) || types.IsBadVec3(out.throughput[0]) {
		t.Fatal("TIR produced NaN components")
	}

	// Reflection flips the normal component of the direction.
	if out.direction[0][2] >= 0 {
		t.Fatalf("expected the ray to reflect back into the medium; got %v", out.direction[0])
	}

	// Delta interaction: the next surface's emission counts fully.
	if _, mis := unpackPixelIndex(out.pixelAndFlags[0]); mis {
		t.Fatal("expected the MIS flag to be cleared")
	}
}

// The grazing transmission boundary (k == 0) must not divide by zero.
func TestDielectricGrazingTransmitNoNaN(t *testing.T) {
	materials := []scene.Material{scene.DielectricMaterial(float32(math.Sqrt2), types.Vec3{})}
	sc := newTestScene(quadAt(-1, 10, 0), materials, scene.UniformSky(types.Vec3{}))
	tr := newTestTracer(t, sc, 4, 4, Options{})

	tr.rays.sizes.resetFrame(4)
	tr.launch.bounce = 0

	// Exactly 45 degrees from the inside of an ior sqrt(2) medium sits on
	// the k == 0 boundary.
	dir := types.Vec3{1, 0, 1}.Normalize()
	mb := &tr.rays.specular
	mb.direction[0] = dir
	mb.triangleID[0] = 0
	mb.hitU[0], mb.hitV[0] = 0.25, 0.25
	mb.hitT[0] = 1
	mb.pixelAndFlags[0] = packPixelIndex(0, false)
	mb.throughput[0] = types.Vec3{1, 1, 1}

	tr.shadeDielectricBody(0, 0)

	out := tr.rays.traceOut(0)
	if types.IsBadVec3(out.direction[0]) || types.IsBadVec3(out.throughput[0]) {
		t.Fatalf("grazing transmit produced NaN: dir=%v throughput=%v", out.direction[0], out.throughput[0])
	}
}

// Straight-on refraction passes through undeflected.
func TestDielectricStraightThrough(t *testing.T) {
	materials := []scene.Material{scene.DielectricMaterial(1.5, types.Vec3{})}
	sc := newTestScene(quadAt(-1, 10, 0), materials, scene.UniformSky(types.Vec3{}))
	tr := newTestTracer(t, sc, 4, 4, Options{})

	tr.rays.sizes.resetFrame(4)
	tr.launch.bounce = 0
	tr.launch.seed = 3

	mb := &tr.rays.specular
	mb.direction[0] = types.Vec3{0, 0, -1}
	mb.triangleID[0] = 0
	mb.hitU[0], mb.hitV[0] = 0.25, 0.25
	mb.hitT[0] = 1
	mb.pixelAndFlags[0] = packPixelIndex(0, false)
	mb.throughput[0] = types.Vec3{1, 1, 1}

	tr.shadeDielectricBody(0, 0)

	out := tr.rays.traceOut(0)
	// Either the Fresnel draw reflected (+Z) or refracted (-Z); both stay
	// on the surface normal axis.
	if absf(absf(out.direction[0][2])-1) > 1e-5 {
		t.Fatalf("expected the ray to stay on the normal axis; got %v", out.direction[0])
	}
	if out.throughput[0] != (types.Vec3{1, 1, 1}) {
		t.Fatalf("expected unit throughput on entry; got %v", out.throughput[0])
	}
}

// Russian roulette kills zero-throughput paths before they occupy a queue
// slot and rescales the survivors.
func TestRussianRoulette(t *testing.T) {
	materials := []scene.Material{scene.DiffuseMaterial(types.Vec3{1, 1, 1}, -1)}
	sc := newTestScene(quadAt(-2, 10, 0), materials, scene.UniformSky(types.Vec3{}))
	tr := newTestTracer(t, sc, 4, 4, Options{})

	tr.rays.sizes.resetFrame(4)
	tr.launch.bounce = 1
	tr.launch.seed = 11

	buf := tr.rays.traceIn(1)
	fill := func(index int32, throughput types.Vec3) {
		buf.direction[index] = types.Vec3{0, 0, -1}
		buf.origin[index] = types.Vec3{}
		buf.triangleID[index] = 0
		buf.hitT[index] = 2
		buf.hitU[index], buf.hitV[index] = 0.25, 0.25
		buf.pixelAndFlags[index] = packPixelIndex(index, false)
		buf.throughput[index] = throughput
	}

	fill(0, types.Vec3{})        // dead path, survival probability 0
	fill(1, types.Vec3{1, 1, 1}) // survival probability 1

	tr.sortBody(0, 0)
	if got := tr.rays.sizes.diffuse[1].Load(); got != 0 {
		t.Fatalf("expected the zero-throughput path to die; diffuse queue holds %d", got)
	}

	tr.sortBody(1, 0)
	if got := tr.rays.sizes.diffuse[1].Load(); got != 1 {
		t.Fatalf("expected the unit-throughput path to survive; diffuse queue holds %d", got)
	}
	if tr.rays.diffuse.throughput[0] != (types.Vec3{1, 1, 1}) {
		t.Fatalf("expected unchanged throughput at survival probability 1; got %v", tr.rays.diffuse.throughput[0])
	}
}

// Emissive pickup at a MIS-eligible vertex is weighted against the light
// sampling strategy; without NEE it counts in full.
func TestSortLightHitMISWeight(t *testing.T) {
	materials := []scene.Material{scene.LightMaterial(types.Vec3{10, 10, 10})}
	sc := newTestScene(quadAt(-2, 1, 0), materials, scene.UniformSky(types.Vec3{}))
	tr := newTestTracer(t, sc, 4, 4, Options{})

	fill := func() {
		tr.rays.sizes.resetFrame(4)
		tr.launch.bounce = 1
		buf := tr.rays.traceIn(1)
		buf.direction[0] = types.Vec3{0, 0, -1}
		buf.triangleID[0] = 0
		buf.hitT[0] = 2
		buf.hitU[0], buf.hitV[0] = 0.25, 0.25
		buf.pixelAndFlags[0] = packPixelIndex(0, true)
		buf.throughput[0] = types.Vec3{1, 1, 1}
		buf.lastPDF[0] = 1
		tr.frame.direct[0] = types.Vec4{}
	}

	// NEE+MIS on: weight = brdfPdf / (brdfPdf + lightPdf) with
	// lightPdf = d^2 / (cosL * totalArea) = 4/4 = 1, so half the emission.
	tr.settings = tracer.DefaultSettings()
	tr.settings.EnableNextEventEstimation = true
	tr.settings.EnableMultipleImportanceSampling = true
	fill()
	tr.sortBody(0, 0)
	if got := tr.frame.direct[0].Vec3(); !types.ApproxEqual(got, types.Vec3{5, 5, 5}, 1e-4) {
		t.Fatalf("expected MIS-weighted emission (5,5,5); got %v", got)
	}

	// NEE off: the full emission is counted at the hit.
	tr.settings.EnableNextEventEstimation = false
	fill()
	tr.sortBody(0, 0)
	if got := tr.frame.direct[0].Vec3(); !types.ApproxEqual(got, types.Vec3{10, 10, 10}, 1e-4) {
		t.Fatalf("expected full emission (10,10,10); got %v", got)
	}

	// NEE on, MIS off, MIS-eligible vertex: the NEE path owns the sample
	// and the hit contributes nothing.
	tr.settings.EnableNextEventEstimation = true
	tr.settings.EnableMultipleImportanceSampling = false
	fill()
	tr.sortBody(0, 0)
	if got := tr.frame.direct[0].Vec3(); got != (types.Vec3{}) {
		t.Fatalf("expected the emissive hit to be dropped; got %v", got)
	}
}

// Shadow rays are staged with the epsilon-shortened max distance.
func TestShadowRayStagedDistance(t *testing.T) {
	materials := []scene.Material{scene.DiffuseMaterial(types.Vec3{1, 1, 1}, -1)}
	sc := newTestScene(quadAt(-2, 10, 0), materials, scene.UniformSky(types.Vec3{}))
	tr := newTestTracer(t, sc, 4, 4, Options{})

	tr.rays.sizes.resetFrame(4)
	tr.stageShadowRay(0, types.Vec3{}, types.Vec3{0, 0, -1}, 5, 3, types.Vec3{1, 2, 3})

	if tr.rays.sizes.shadow[0].Load() != 1 {
		t.Fatal("expected one staged shadow ray")
	}
	if got := tr.rays.shadow.maxDistance[0]; got >= 5 {
		t.Fatalf("expected the max distance to be shortened below 5; got %f", got)
	}
	if tr.rays.shadow.pixelIndex[0] != 3 {
		t.Fatalf("expected target pixel 3; got %d", tr.rays.shadow.pixelIndex[0])
	}
}

// The glossy importance sample must propagate a finite, non-negative weight.
func TestGlossySampleWeightFinite(t *testing.T) {
	materials := []scene.Material{scene.GlossyMaterial(types.Vec3{0.9, 0.9, 0.9}, -1, 1.5, 0.5)}
	sc := newTestScene(quadAt(-2, 10, 0), materials, scene.UniformSky(types.Vec3{}))
	tr := newTestTracer(t, sc, 4, 4, Options{})

	for seed := uint32(0); seed < 32; seed++ {
		tr.rays.sizes.resetFrame(4)
		tr.launch.bounce = 1
		tr.launch.seed = seed

		slot := tr.rays.allocGlossy(1)
		mb := &tr.rays.specular
		mb.direction[slot] = types.Vec3{0.3, -0.2, -1}.Normalize()
		mb.triangleID[slot] = 0
		mb.hitU[slot], mb.hitV[slot] = 0.25, 0.25
		mb.hitT[slot] = 2
		mb.pixelAndFlags[slot] = packPixelIndex(0, false)
		mb.throughput[slot] = types.Vec3{1, 1, 1}

		tr.shadeGlossyBody(0, 0)

		n := tr.rays.sizes.trace[2].Load()
		if n == 0 {
			// Sampled under the horizon; path absorbed.
			continue
		}
		out := tr.rays.traceOut(1)
		if types.IsBadVec3(out.throughput[0]) {
			t.Fatalf("seed %d produced NaN throughput", seed)
		}
		for _, c := range out.throughput[0] {
			if c < 0 {
				t.Fatalf("seed %d produced negative throughput %v", seed, out.throughput[0])
			}
		}
	}
}
