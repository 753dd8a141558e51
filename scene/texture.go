package scene

import (
	"math"

	"github.com/achilleasa/helios/types"
)

// A texture with a full mip chain. The external asset loader supplies decoded
// base-level texels; BuildTexture derives the remaining levels by box
// filtering. Albedo lookups select levels using the ray cone LOD.
type Texture struct {
	Width  int32
	Height int32

	// Mips[0] is the base level; each successive level halves both
	// dimensions (clamped to 1).
	Mips [][]types.Vec3
}

// Build a texture and its mip chain from base level texels.
func BuildTexture(width, height int32, data []types.Vec3) *Texture {
	tex := &Texture{
		Width:  width,
		Height: height,
		Mips:   [][]types.Vec3{data},
	}

	w, h := width, height
	level := data
	for w > 1 || h > 1 {
		nw, nh := maxi32(w/2, 1), maxi32(h/2, 1)
		next := make([]types.Vec3, nw*nh)
		for y := int32(0); y < nh; y++ {
			for x := int32(0); x < nw; x++ {
				x0, y0 := x*2, y*2
				x1, y1 := mini32(x0+1, w-1), mini32(y0+1, h-1)
				sum := level[y0*w+x0].
					Add(level[y0*w+x1]).
					Add(level[y1*w+x0]).
					Add(level[y1*w+x1])
				next[y*nw+x] = sum.Mul(0.25)
			}
		}
		tex.Mips = append(tex.Mips, next)
		level, w, h = next, nw, nh
	}

	return tex
}

// Number of mip levels.
func (t *Texture) Levels() int {
	return len(t.Mips)
}

func (t *Texture) levelDims(level int) (int32, int32) {
	w, h := t.Width, t.Height
	for i := 0; i < level; i++ {
		w, h = maxi32(w/2, 1), maxi32(h/2, 1)
	}
	return w, h
}

// Fetch a single texel with wrap addressing.
func (t *Texture) fetch(level int, x, y int32) types.Vec3 {
	w, h := t.levelDims(level)
	x = ((x % w) + w) % w
	y = ((y % h) + h) % h
	return t.Mips[level][y*w+x]
}

// Bilinear lookup at a single mip level with wrap addressing.
func (t *Texture) SampleBilinear(level int, u, v float32) types.Vec3 {
	if level < 0 {
		level = 0
	} else if level >= len(t.Mips) {
		level = len(t.Mips) - 1
	}

	w, h := t.levelDims(level)
	fx := u*float32(w) - 0.5
	fy := v*float32(h) - 0.5
	x := int32(math.Floor(float64(fx)))
	y := int32(math.Floor(float64(fy)))
	tx := fx - float32(x)
	ty := fy - float32(y)

	c00 := t.fetch(level, x, y)
	c10 := t.fetch(level, x+1, y)
	c01 := t.fetch(level, x, y+1)
	c11 := t.fetch(level, x+1, y+1)

	top := types.LerpVec3(c00, c10, tx)
	bottom := types.LerpVec3(c01, c11, tx)
	return types.LerpVec3(top, bottom, ty)
}

// Trilinear lookup blending the two mip levels bracketing lod.
func (t *Texture) SampleTrilinear(u, v, lod float32) types.Vec3 {
	if lod <= 0 {
		return t.SampleBilinear(0, u, v)
	}
	maxLevel := float32(len(t.Mips) - 1)
	if lod >= maxLevel {
		return t.SampleBilinear(len(t.Mips)-1, u, v)
	}

	level := int(lod)
	frac := lod - float32(level)
	return types.LerpVec3(
		t.SampleBilinear(level, u, v),
		t.SampleBilinear(level+1, u, v),
		frac,
	)
}

// Anisotropic lookup along the major axis of the footprint ellipse described
// by the two UV gradients. Taps are trilinear samples distributed along the
// major axis with the level chosen from the minor axis.
func (t *Texture) SampleAnisotropic(u, v float32, dUVdx, dUVdy types.Vec2) types.Vec3 {
	texDims := types.Vec2{float32(t.Width), float32(t.Height)}
	ax := types.Vec2{dUVdx[0] * texDims[0], dUVdx[1] * texDims[1]}
	ay := types.Vec2{dUVdy[0] * texDims[0], dUVdy[1] * texDims[1]}

	lenX := ax.Len()
	lenY := ay.Len()
	major, minor := ax, lenY
	if lenY > lenX {
		major, minor = ay, lenX
	} else {
		minor = lenY
	}

	if minor <= 0 {
		return t.SampleBilinear(0, u, v)
	}

	majorLen := major.Len()
	ratio := majorLen / minor
	if ratio > 8 {
		ratio = 8
	}
	taps := int(ratio)
	if taps < 1 {
		taps = 1
	}

	lod := float32(math.Log2(float64(minor)))
	du := types.Vec2{major[0] / texDims[0], major[1] / texDims[1]}

	var sum types.Vec3
	for i := 0; i < taps; i++ {
		s := (float32(i)+0.5)/float32(taps) - 0.5
		sum = sum.Add(t.SampleTrilinear(u+du[0]*s, v+du[1]*s, lod))
	}
	return sum.Mul(1.0 / float32(taps))
}

func maxi32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func mini32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
