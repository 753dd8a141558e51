package scene

import (
	"testing"

	"github.com/achilleasa/helios/types"
)

func checkerTexture(size int32) *Texture {
	data := make([]types.Vec3, size*size)
	for y := int32(0); y < size; y++ {
		for x := int32(0); x < size; x++ {
			if (x+y)%2 == 0 {
				data[y*size+x] = types.Vec3{1, 1, 1}
			}
		}
	}
	return BuildTexture(size, size, data)
}

func TestBuildTextureMipChain(t *testing.T) {
	tex := checkerTexture(8)

	// 8x8 -> 4x4 -> 2x2 -> 1x1
	if tex.Levels() != 4 {
		t.Fatalf("expected 4 mip levels; got %d", tex.Levels())
	}
	if len(tex.Mips[3]) != 1 {
		t.Fatalf("expected the last level to hold a single texel")
	}

	// Box filtering a checkerboard converges to 50% gray.
	top := tex.Mips[3][0]
	if !types.ApproxEqual(top, types.Vec3{0.5, 0.5, 0.5}, 1e-5) {
		t.Fatalf("expected the top mip to be mid-gray; got %v", top)
	}
}

func TestSampleTrilinearClampsLOD(t *testing.T) {
	tex := checkerTexture(8)

	// Far past the last level the lookup clamps rather than indexing
	// out of range.
	got := tex.SampleTrilinear(0.5, 0.5, 42)
	if !types.ApproxEqual(got, types.Vec3{0.5, 0.5, 0.5}, 1e-5) {
		t.Fatalf("expected clamped lookup to return the top mip; got %v", got)
	}

	// Negative lod reads the base level.
	tex.SampleTrilinear(0.1, 0.1, -3)
}

func TestSampleAnisotropicDegenerateFootprint(t *testing.T) {
	tex := checkerTexture(8)

	// Zero gradients fall back to a base level lookup without dividing
	// by zero.
	got := tex.SampleAnisotropic(0.25, 0.25, types.Vec2{}, types.Vec2{})
	if types.IsBadVec3(got) {
		t.Fatalf("expected a finite color; got %v", got)
	}
}
