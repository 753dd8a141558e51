package scene

import (
	"math"

	"github.com/achilleasa/helios/types"
)

// An equirectangular sky image. The probe is square; Data holds Size*Size
// texels in scanline order. Missed rays sample the sky by direction.
type Sky struct {
	Size int32
	Data []types.Vec3
}

// Create a sky that radiates a constant color in every direction.
func UniformSky(c types.Vec3) *Sky {
	return &Sky{
		Size: 1,
		Data: []types.Vec3{c},
	}
}

// Sample the sky radiance along a unit direction. The lookup is a pure
// function of the direction.
func (s *Sky) Sample(dir types.Vec3) types.Vec3 {
	if s == nil || s.Size == 0 {
		return types.Vec3{}
	}
	if s.Size == 1 {
		return s.Data[0]
	}

	u := float32(math.Atan2(float64(dir[0]), float64(-dir[2])))*(0.5/math.Pi) + 0.5
	v := float32(math.Acos(float64(clampf(dir[1], -1, 1)))) * (1.0 / math.Pi)

	x := int32(u * float32(s.Size))
	y := int32(v * float32(s.Size))
	if x < 0 {
		x = 0
	} else if x >= s.Size {
		x = s.Size - 1
	}
	if y < 0 {
		y = 0
	} else if y >= s.Size {
		y = s.Size - 1
	}

	return s.Data[y*s.Size+x]
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
