package io

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/helios/scene"
	"github.com/achilleasa/helios/types"
)

func testTriangles() []scene.Triangle {
	n := types.Vec3{0, 0, 1}
	uv := types.Vec2{}
	return []scene.Triangle{
		scene.MakeTriangle(
			types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{0, 1, 0},
			n, n, n, uv, uv, uv, 0, 0,
		),
		scene.MakeTriangle(
			types.Vec3{2, 0, 0}, types.Vec3{3, 0, 0}, types.Vec3{2, 1, 0},
			n, n, n, uv, uv, uv, 1, 0,
		),
	}
}

func testNodes(tris []scene.Triangle) []scene.BvhNode {
	var node scene.BvhNode
	bounds := tris[0].Bounds()
	for i := 1; i < len(tris); i++ {
		triBounds := tris[i].Bounds()
		bounds.Expand(triBounds)
	}
	node.Min, node.Max = bounds.Min, bounds.Max
	node.SetLeaf(0, int32(len(tris)))
	return []scene.BvhNode{node}
}

func TestCacheRoundTrip(t *testing.T) {
	scenePath := filepath.Join(t.TempDir(), "scene.obj")

	tris := testTriangles()
	in := &Cache{
		Nodes:     testNodes(tris),
		Indices:   []int32{1, 0},
		Triangles: tris,
	}

	if err := Write(scenePath, in); err != nil {
		t.Fatal(err)
	}

	out, err := Read(scenePath)
	if err != nil {
		t.Fatal(err)
	}

	if len(out.Nodes) != len(in.Nodes) || len(out.Indices) != len(in.Indices) || len(out.Triangles) != len(in.Triangles) {
		t.Fatalf("cache round trip changed section lengths")
	}
	if out.Triangles[1].Position0 != in.Triangles[1].Position0 {
		t.Fatal("cache round trip corrupted triangle data")
	}
	if out.Indices[0] != 1 {
		t.Fatal("cache round trip corrupted the index permutation")
	}
	first, count := out.Nodes[0].Primitives()
	if first != 0 || count != 2 {
		t.Fatalf("cache round trip corrupted bvh nodes; got (%d, %d)", first, count)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	scenePath := filepath.Join(t.TempDir(), "scene.obj")
	if err := os.WriteFile(CachePath(scenePath), []byte("not a zip archive"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Read(scenePath); err == nil {
		t.Fatal("expected an error for a corrupt cache file")
	}
}

func TestLoadOrBuildInvokesBuilder(t *testing.T) {
	scenePath := filepath.Join(t.TempDir(), "scene.obj")

	builds := 0
	build := func() (*Cache, error) {
		builds++
		tris := testTriangles()
		return &Cache{Nodes: testNodes(tris), Indices: []int32{0, 1}, Triangles: tris}, nil
	}

	if _, err := LoadOrBuild(scenePath, build); err != nil {
		t.Fatal(err)
	}
	if builds != 1 {
		t.Fatalf("expected one build; got %d", builds)
	}

	// A second load hits the persisted cache.
	if _, err := LoadOrBuild(scenePath, build); err != nil {
		t.Fatal(err)
	}
	if builds != 1 {
		t.Fatalf("expected the cache to be reused; builder ran %d times", builds)
	}
}

func TestSceneArchiveRoundTrip(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "scene.zip")

	tris := testTriangles()
	camera := scene.NewCamera(90)
	camera.Position = types.Vec3{1, 2, 3}

	in := &scene.Scene{
		Triangles: tris,
		Materials: []scene.Material{
			scene.DiffuseMaterial(types.Vec3{0.7, 0.7, 0.7}, -1),
			scene.LightMaterial(types.Vec3{5, 5, 5}),
		},
		BvhNodes: testNodes(tris),
		Sky:      scene.UniformSky(types.Vec3{0.5, 0.5, 0.5}),
		Camera:   camera,
	}

	if err := WriteScene(archivePath, in); err != nil {
		t.Fatal(err)
	}

	out, err := ReadScene(archivePath)
	if err != nil {
		t.Fatal(err)
	}

	if len(out.Triangles) != 2 || len(out.Materials) != 2 {
		t.Fatal("scene archive round trip changed asset counts")
	}
	if out.Camera.Position != camera.Position {
		t.Fatalf("expected camera position %v; got %v", camera.Position, out.Camera.Position)
	}
	if out.Sky.Sample(types.Vec3{0, 1, 0}) != (types.Vec3{0.5, 0.5, 0.5}) {
		t.Fatal("scene archive round trip corrupted the sky")
	}

	// The light table is rebuilt on load: triangle 1 uses the light material.
	if out.Lights.Empty() {
		t.Fatal("expected the rebuilt light table to contain the emissive triangle")
	}
}
