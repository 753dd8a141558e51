package wavefront

import (
	"math"

	"github.com/achilleasa/helios/types"
)

// Rows are padded to a multiple of this pitch.
const pitchAlignment = 32

// The image-space buffer set. All buffers are pitch*height and are allocated
// at init/resize and released together; the history mirrors persist across
// frames for the lifetime of the current resolution.
type frameBuffers struct {
	width  int32
	height int32
	pitch  int32

	albedo   []types.Vec4
	direct   []types.Vec4
	indirect []types.Vec4
	moment   []types.Vec4

	historyLength         []int32
	historyDirect         []types.Vec4
	historyIndirect       []types.Vec4
	historyMoment         []types.Vec4
	historyNormalAndDepth []types.Vec4

	// Ping-pong targets for the a-trous iterations.
	directAlt   []types.Vec4
	indirectAlt []types.Vec4

	taaPrev []types.Vec4
	taaCurr []types.Vec4

	// The externally visible output surface.
	accumulator []types.Vec4
}

func newFrameBuffers(width, height int32) *frameBuffers {
	pitch := (width + pitchAlignment - 1) / pitchAlignment * pitchAlignment
	n := pitch * height

	return &frameBuffers{
		width:  width,
		height: height,
		pitch:  pitch,

		albedo:   make([]types.Vec4, n),
		direct:   make([]types.Vec4, n),
		indirect: make([]types.Vec4, n),
		moment:   make([]types.Vec4, n),

		historyLength:         make([]int32, n),
		historyDirect:         make([]types.Vec4, n),
		historyIndirect:       make([]types.Vec4, n),
		historyMoment:         make([]types.Vec4, n),
		historyNormalAndDepth: make([]types.Vec4, n),

		directAlt:   make([]types.Vec4, n),
		indirectAlt: make([]types.Vec4, n),

		taaPrev: make([]types.Vec4, n),
		taaCurr: make([]types.Vec4, n),

		accumulator: make([]types.Vec4, n),
	}
}

// Replace NaN/Inf radiance with black and clamp negative components to zero
// so a single bad sample cannot contaminate the temporal history.
func sanitizeRadiance(v types.Vec3) types.Vec3 {
	for i := 0; i < 3; i++ {
		if math.IsNaN(float64(v[i])) || math.IsInf(float64(v[i]), 0) || v[i] < 0 {
			v[i] = 0
		}
	}
	return v
}

// Overwrite the direct lighting at a pixel (bounce 0 contribution).
func (fb *frameBuffers) storeDirect(pixel int32, v types.Vec3) {
	v = sanitizeRadiance(v)
	fb.direct[pixel] = v.Vec4(fb.direct[pixel][3])
}

// Add direct lighting at a pixel (bounce 1 contribution).
func (fb *frameBuffers) addDirect(pixel int32, v types.Vec3) {
	v = sanitizeRadiance(v)
	cur := fb.direct[pixel]
	fb.direct[pixel] = cur.Vec3().Add(v).Vec4(cur[3])
}

// Add indirect lighting at a pixel (bounce >= 2 contribution).
func (fb *frameBuffers) addIndirect(pixel int32, v types.Vec3) {
	v = sanitizeRadiance(v)
	cur := fb.indirect[pixel]
	fb.indirect[pixel] = cur.Vec3().Add(v).Vec4(cur[3])
}

// Route an emissive or sky contribution based on the bounce that produced
// it: bounce 0 replaces direct, bounce 1 adds to direct, deeper bounces add
// to indirect. This split is what SVGF later denoises separately.
func (fb *frameBuffers) deposit(bounce int, pixel int32, v types.Vec3) {
	switch {
	case bounce == 0:
		fb.storeDirect(pixel, v)
	case bounce == 1:
		fb.addDirect(pixel, v)
	default:
		fb.addIndirect(pixel, v)
	}
}

// Clear the per-frame lighting buffers. History buffers are left intact.
func (fb *frameBuffers) clearFrame() {
	for i := range fb.direct {
		fb.direct[i] = types.Vec4{}
		fb.indirect[i] = types.Vec4{}
		fb.moment[i] = types.Vec4{}
	}
}

// Reset the temporal history; used after resize so the first frame carries
// no ghosting.
func (fb *frameBuffers) clearHistory() {
	for i := range fb.historyLength {
		fb.historyLength[i] = 0
		fb.historyDirect[i] = types.Vec4{}
		fb.historyIndirect[i] = types.Vec4{}
		fb.historyMoment[i] = types.Vec4{}
		fb.historyNormalAndDepth[i] = types.Vec4{}
		fb.taaPrev[i] = types.Vec4{}
	}
}

// The G-buffers produced by the external rasterizer and consumed read-only
// by the primary and SVGF kernels. UV holds the rasterized barycentric
// coordinates; TriangleID is -1 for background pixels.
type GBuffer struct {
	Width  int32
	Height int32

	NormalAndDepth     []types.Vec4
	UV                 []types.Vec2
	UVGradient         []types.Vec4
	TriangleID         []int32
	ScreenPositionPrev []types.Vec2
	DepthGradient      []types.Vec2
}
