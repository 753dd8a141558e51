package tracer

import (
	"time"

	"github.com/achilleasa/helios/types"
)

type UpdateType uint8

// Supported update types for Tracer.Update calls. Per-frame settings travel
// inside the FrameRequest instead.
const (
	UpdateCamera UpdateType = iota
	UpdateGBuffer
)

// A unit of work that is processed by a tracer: render one frame into the
// accumulator using the supplied per-frame settings.
type FrameRequest struct {
	// The per-frame render settings.
	Settings Settings

	// A random seed value for the tracer's sample decorrelation.
	Seed uint32

	// A channel to signal on frame completion.
	DoneChan chan<- struct{}

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Time spent in a single pipeline stage. Stage timings are recorded per
// launch and queried at frame boundaries.
type StageTime struct {
	// Timing group, e.g. "Primary", "Bounce 2", "SVGF", "Post".
	Category string

	// The stage name within the group.
	Name string

	Elapsed time.Duration
}

// Tracer statistics for the last rendered frame.
type Stats struct {
	// Time spent applying queued updates.
	UpdateTime time.Duration

	// Total render time for the frame.
	RenderTime time.Duration

	// Per-stage timing breakdown.
	Stages []StageTime
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Allocate all frame-sized device state. Must be called before the
	// first frame and again (via Resize) when the frame dimensions change.
	Init(frameW, frameH uint32) error

	// Release frame-sized state and reallocate it for the new dimensions.
	// All temporal history is discarded.
	Resize(frameW, frameH uint32) error

	// Shutdown and cleanup tracer.
	Close()

	// Enqueue frame request.
	Enqueue(FrameRequest)

	// Append a change to the tracer's update buffer. Updates are applied
	// at the start of the next frame.
	Update(UpdateType, interface{})

	// The output surface: RGBA float pixels, Pitch()*height entries,
	// shared with the display layer.
	Accumulator() []types.Vec4

	// Row pitch of the output surface in pixels.
	Pitch() uint32

	// Retrieve last frame statistics.
	Stats() *Stats
}
