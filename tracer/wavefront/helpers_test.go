package wavefront

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/achilleasa/helios/scene"
	"github.com/achilleasa/helios/tracer"
	"github.com/achilleasa/helios/tracer/device"
	"github.com/achilleasa/helios/types"
)

// Two triangles forming an axis-aligned quad in the XY plane at the given Z,
// facing +Z.
func quadAt(z float32, half float32, materialID int32) []scene.Triangle {
	p0 := types.Vec3{-half, -half, z}
	p1 := types.Vec3{half, -half, z}
	p2 := types.Vec3{half, half, z}
	p3 := types.Vec3{-half, half, z}
	n := types.Vec3{0, 0, 1}
	uv := types.Vec2{}

	return []scene.Triangle{
		scene.MakeTriangle(p0, p1, p2, n, n, n, uv, types.Vec2{1, 0}, types.Vec2{1, 1}, materialID, 0),
		scene.MakeTriangle(p0, p2, p3, n, n, n, uv, types.Vec2{1, 1}, types.Vec2{0, 1}, materialID, 0),
	}
}

// A reference median-split builder; the external builder is out of scope so
// tests construct the node arrays themselves.
type testBuilder struct {
	nodes []scene.BvhNode
	tris  []scene.Triangle
}

func buildTestBvh(tris []scene.Triangle) ([]scene.BvhNode, []scene.Triangle) {
	if len(tris) == 0 {
		return nil, tris
	}
	b := &testBuilder{tris: tris}
	b.nodes = append(b.nodes, scene.BvhNode{})
	b.build(0, 0, int32(len(tris)))
	return b.nodes, b.tris
}

func (b *testBuilder) build(nodeIdx, first, count int32) {
	bounds := b.tris[first].Bounds()
	for i := first + 1; i < first+count; i++ {
		triBounds := b.tris[i].Bounds()
		bounds.Expand(triBounds)
	}
	// Pad the node box so flat leaves (axis-aligned quads) keep a non-zero
	// extent: the slab test misses a box that a ray meets at a single t.
	pad := types.Vec3{scene.RayEpsilon, scene.RayEpsilon, scene.RayEpsilon}
	b.nodes[nodeIdx].Min = bounds.Min.Sub(pad)
	b.nodes[nodeIdx].Max = bounds.Max.Add(pad)

	if count <= 2 {
		b.nodes[nodeIdx].SetLeaf(first, count)
		return
	}

	extent := bounds.Max.Sub(bounds.Min)
	axis := 0
	if extent[1] > extent[axis] {
		axis = 1
	}
	if extent[2] > extent[axis] {
		axis = 2
	}

	span := b.tris[first : first+count]
	sort.Slice(span, func(i, j int) bool {
		return span[i].Position0[axis] < span[j].Position0[axis]
	})

	mid := count / 2
	left := int32(len(b.nodes))
	b.nodes = append(b.nodes, scene.BvhNode{}, scene.BvhNode{})
	b.nodes[nodeIdx].SetChildren(left, axis)

	b.build(left, first, mid)
	b.build(left+1, first+mid, count-mid)
}

// Assemble a scene from triangles and materials, building the BVH and light
// table the external pipeline would normally emit.
func newTestScene(tris []scene.Triangle, materials []scene.Material, sky *scene.Sky) *scene.Scene {
	nodes, tris := buildTestBvh(tris)
	return &scene.Scene{
		Triangles: tris,
		Materials: materials,
		BvhNodes:  nodes,
		Lights:    scene.BuildLightTable(tris, materials),
		Sky:       sky,
		Camera:    scene.NewCamera(90),
	}
}

func newTestTracer(t *testing.T, sc *scene.Scene, frameW, frameH uint32, opts Options) *wfTracer {
	t.Helper()

	tr, err := New("test", device.New("test", 4), sc, opts)
	if err != nil {
		t.Fatal(err)
	}
	if err = tr.Init(frameW, frameH); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(tr.Close)

	return tr.(*wfTracer)
}

// Render a single frame synchronously.
func renderFrame(t *testing.T, tr *wfTracer, settings tracer.Settings, seed uint32) {
	t.Helper()
	if err := tr.renderFrame(&tracer.FrameRequest{Settings: settings, Seed: seed}); err != nil {
		t.Fatal(err)
	}
}

// Fetch an output pixel.
func accumPixel(tr *wfTracer, x, y int32) types.Vec3 {
	return tr.frame.accumulator[x+y*tr.frame.pitch].Vec3()
}

func randomSoup(rng *rand.Rand, count int) []scene.Triangle {
	tris := make([]scene.Triangle, 0, count)
	for i := 0; i < count; i++ {
		anchor := types.Vec3{rng.Float32()*8 - 4, rng.Float32()*8 - 4, rng.Float32()*8 - 4}
		p1 := anchor.Add(types.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1})
		p2 := anchor.Add(types.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1})
		n := p1.Sub(anchor).Cross(p2.Sub(anchor)).Normalize()
		tris = append(tris, scene.MakeTriangle(anchor, p1, p2, n, n, n,
			types.Vec2{}, types.Vec2{1, 0}, types.Vec2{0, 1}, 0, 0))
	}
	return tris
}

// A synthetic G-buffer describing a static fronto-parallel surface; good
// enough to exercise the SVGF reprojection path.
func staticGBuffer(width, height int32) *GBuffer {
	n := width * height
	gb := &GBuffer{
		Width:              width,
		Height:             height,
		NormalAndDepth:     make([]types.Vec4, n),
		UV:                 make([]types.Vec2, n),
		UVGradient:         make([]types.Vec4, n),
		TriangleID:         make([]int32, n),
		ScreenPositionPrev: make([]types.Vec2, n),
		DepthGradient:      make([]types.Vec2, n),
	}
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			i := x + y*width
			gb.NormalAndDepth[i] = types.Vec4{0, 0, 1, 1}
			gb.TriangleID[i] = InvalidID
			gb.ScreenPositionPrev[i] = types.Vec2{float32(x) + 0.5, float32(y) + 0.5}
		}
	}
	return gb
}
