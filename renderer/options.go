package renderer

import "github.com/achilleasa/helios/tracer"

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Number of frames to accumulate. For 0 the interactive renderer keeps
	// rendering until its window closes and the headless renderer renders one
	// frame.
	SamplesPerPixel uint32

	// Exposure for tonemapping.
	Exposure float32

	// The per-frame render settings forwarded to the tracer.
	Settings tracer.Settings
}
