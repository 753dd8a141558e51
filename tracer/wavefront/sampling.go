package wavefront

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
)

// Static tables for the blue-noise sampler (rank-1 scrambled Sobol after
// Heitz et al.). The tables are supplied at init; when absent the sampler
// falls back to a hash based RNG.
type BlueNoise struct {
	// 256 dimensions of a 256 sample Sobol sequence.
	Sobol []int32

	// 128x128 tiles of 8-dimension scrambling and ranking keys.
	ScramblingTile []int32
	RankingTile    []int32
}

// Load the three blue-noise tables from a gob encoded file.
func LoadBlueNoise(path string) (*BlueNoise, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavefront: %s", err)
	}
	defer f.Close()

	bn := &BlueNoise{}
	if err = gob.NewDecoder(f).Decode(bn); err != nil {
		return nil, fmt.Errorf("wavefront: failed to decode blue noise tables: %s", err)
	}
	if len(bn.Sobol) != 256*256 || len(bn.ScramblingTile) != 128*128*8 || len(bn.RankingTile) != 128*128*8 {
		return nil, fmt.Errorf("wavefront: blue noise tables have unexpected dimensions")
	}
	return bn, nil
}

func wangHash(seed uint32) uint32 {
	seed = (seed ^ 61) ^ (seed >> 16)
	seed *= 9
	seed = seed ^ (seed >> 4)
	seed *= 0x27d4eb2d
	seed = seed ^ (seed >> 15)
	return seed
}

func xorshift(state *uint32) uint32 {
	x := *state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	*state = x
	return x
}

func randFloat(state *uint32) float32 {
	// Keep 24 bits so the result stays strictly below 1.
	return float32(xorshift(state)>>8) * (1.0 / 16777216.0)
}

// A per-record sampler. Dimensions index into the blue-noise tables when
// they are available; the sample index decorrelates consecutive frames.
type pixelSampler struct {
	bn          *BlueNoise
	x, y        int32
	sampleIndex uint32
	state       uint32
}

func newPixelSampler(bn *BlueNoise, pixelIndex int32, pitch int32, sampleIndex, seed uint32) pixelSampler {
	x := pixelIndex % pitch
	y := pixelIndex / pitch
	return pixelSampler{
		bn:          bn,
		x:           x,
		y:           y,
		sampleIndex: sampleIndex & 255,
		state:       wangHash(uint32(pixelIndex)*0x9e3779b9 ^ seed ^ sampleIndex*0x85ebca6b),
	}
}

// Draw a sample for the given dimension.
func (s *pixelSampler) sample(dimension uint32) float32 {
	if s.bn == nil {
		return randFloat(&s.state)
	}

	x := s.x & 127
	y := s.y & 127
	dim := dimension & 255

	ranked := s.sampleIndex ^ uint32(s.bn.RankingTile[(dim&7)+uint32(x+y*128)*8])
	value := uint32(s.bn.Sobol[dim+ranked*256])
	value ^= uint32(s.bn.ScramblingTile[(dim&7)+uint32(x+y*128)*8])

	return (float32(value&255) + 0.5) * (1.0 / 256.0)
}

// Map two uniform samples to a unit disc offset inside a regular n-gon
// aperture blade arrangement.
func sampleApertureNGon(blades int, r1, r2 float32) (float32, float32) {
	if blades < 3 {
		// Circular aperture via polar disc mapping.
		theta := 2 * math.Pi * float64(r1)
		r := math.Sqrt(float64(r2))
		return float32(r * math.Cos(theta)), float32(r * math.Sin(theta))
	}

	// Pick a blade triangle and sample it uniformly.
	side := int(r1 * float32(blades))
	if side >= blades {
		side = blades - 1
	}
	r1 = r1*float32(blades) - float32(side)

	angle0 := 2 * math.Pi * float64(side) / float64(blades)
	angle1 := 2 * math.Pi * float64(side+1) / float64(blades)

	v0x, v0y := float32(math.Cos(angle0)), float32(math.Sin(angle0))
	v1x, v1y := float32(math.Cos(angle1)), float32(math.Sin(angle1))

	u, v := r1, r2
	if u+v > 1 {
		u, v = 1-u, 1-v
	}
	return u*v0x + v*v1x, u*v0y + v*v1y
}

// Map a uniform sample pair to a Gaussian distributed jitter via Box-Muller
// around the pixel center, with the radius truncated at 1.5 pixels.
func sampleGaussianJitter(r1, r2 float32) (float32, float32) {
	if r1 < 1e-6 {
		r1 = 1e-6
	}
	radius := 0.5 * float32(math.Sqrt(-2.0*math.Log(float64(r1))))
	if radius > 1.5 {
		radius = 1.5
	}
	theta := 2 * math.Pi * float64(r2)
	return 0.5 + radius*float32(math.Cos(theta)), 0.5 + radius*float32(math.Sin(theta))
}
