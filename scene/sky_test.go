package scene

import (
	"math/rand"
	"testing"

	"github.com/achilleasa/helios/types"
)

func TestUniformSky(t *testing.T) {
	sky := UniformSky(types.Vec3{0.5, 0.5, 0.5})

	dirs := []types.Vec3{
		{0, 1, 0},
		{0, -1, 0},
		{1, 0, 0},
		{0.3, -0.4, 0.6},
	}
	for _, dir := range dirs {
		if got := sky.Sample(dir.Normalize()); got != (types.Vec3{0.5, 0.5, 0.5}) {
			t.Fatalf("expected uniform radiance for %v; got %v", dir, got)
		}
	}
}

// Sky sampling is a pure function of the direction.
func TestSkySamplePure(t *testing.T) {
	const size = 8
	data := make([]types.Vec3, size*size)
	rng := rand.New(rand.NewSource(3))
	for i := range data {
		data[i] = types.Vec3{rng.Float32(), rng.Float32(), rng.Float32()}
	}
	sky := &Sky{Size: size, Data: data}

	for trial := 0; trial < 100; trial++ {
		dir := types.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}.Normalize()
		if dir.Len() == 0 {
			continue
		}
		first := sky.Sample(dir)
		second := sky.Sample(dir)
		if first != second {
			t.Fatalf("sample(%v) is not stable: %v != %v", dir, first, second)
		}
	}
}

func TestSkyPoleLookupInRange(t *testing.T) {
	const size = 4
	sky := &Sky{Size: size, Data: make([]types.Vec3, size*size)}

	// Exact poles must clamp instead of indexing out of range.
	sky.Sample(types.Vec3{0, 1, 0})
	sky.Sample(types.Vec3{0, -1, 0})
}

func TestNilSky(t *testing.T) {
	var sky *Sky
	if got := sky.Sample(types.Vec3{0, 1, 0}); got != (types.Vec3{}) {
		t.Fatalf("expected black radiance from a nil sky; got %v", got)
	}
}
