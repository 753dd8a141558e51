package renderer

import (
	"image"
	"image/png"
	"math"
	"math/rand"
	"os"

	"github.com/achilleasa/helios/log"
	"github.com/achilleasa/helios/tracer"
)

// The default renderer drives a single tracer over the frame request channel
// and accumulates a fixed number of samples before exporting the output
// surface as a PNG.
type defaultRenderer struct {
	logger log.Logger

	tracer  tracer.Tracer
	options Options

	doneChan chan struct{}
	errChan  chan error

	stats FrameStats
}

// Create a new headless renderer attached to an initialized tracer.
func NewDefault(tr tracer.Tracer, opts Options) (Renderer, error) {
	if tr == nil {
		return nil, ErrNoTracer
	}
	if opts.Exposure == 0 {
		opts.Exposure = 1.0
	}

	r := &defaultRenderer{
		logger:   log.New("renderer"),
		tracer:   tr,
		options:  opts,
		doneChan: make(chan struct{}),
		errChan:  make(chan error),
	}

	return r, r.tracer.Init(opts.FrameW, opts.FrameH)
}

func (r *defaultRenderer) Close() {
	if r.tracer != nil {
		r.tracer.Close()
		r.tracer = nil
	}
}

func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}

// Render SamplesPerPixel frames, accumulating progressively.
func (r *defaultRenderer) Render() error {
	samples := r.options.SamplesPerPixel
	if samples == 0 {
		samples = 1
	}

	var sample uint32
	for sample = 0; sample < samples; sample++ {
		if err := r.renderFrame(); err != nil {
			return err
		}
	}
	return nil
}

// Render a single frame and refresh the frame statistics.
func (r *defaultRenderer) renderFrame() error {
	r.tracer.Enqueue(tracer.FrameRequest{
		Settings: r.options.Settings,
		Seed:     rand.Uint32(),
		DoneChan: r.doneChan,
		ErrChan:  r.errChan,
	})

	select {
	case err := <-r.errChan:
		return err
	case <-r.doneChan:
	}

	trStats := r.tracer.Stats()
	r.stats = FrameStats{
		Stages:     append([]tracer.StageTime(nil), trStats.Stages...),
		RenderTime: trStats.RenderTime,
	}
	return nil
}

// Tonemap the accumulator surface and export it as a PNG file.
func (r *defaultRenderer) SaveFrame(imgFile string) error {
	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, r.Snapshot())
}

// Convert the accumulator surface to an 8-bit RGBA image using simple
// Reinhard tonemapping and gamma correction.
func (r *defaultRenderer) Snapshot() *image.RGBA {
	frameW, frameH := int(r.options.FrameW), int(r.options.FrameH)
	pitch := int(r.tracer.Pitch())
	accum := r.tracer.Accumulator()

	im := image.NewRGBA(image.Rect(0, 0, frameW, frameH))
	for y := 0; y < frameH; y++ {
		for x := 0; x < frameW; x++ {
			c := accum[x+y*pitch].Vec3()
			offset := im.PixOffset(x, y)
			im.Pix[offset] = tonemapChannel(c[0], r.options.Exposure)
			im.Pix[offset+1] = tonemapChannel(c[1], r.options.Exposure)
			im.Pix[offset+2] = tonemapChannel(c[2], r.options.Exposure)
			im.Pix[offset+3] = 255
		}
	}
	return im
}

func tonemapChannel(v, exposure float32) uint8 {
	v *= exposure
	v = v / (1 + v)
	v = float32(math.Pow(float64(v), 1.0/2.2))
	if v > 1 {
		v = 1
	} else if v < 0 {
		v = 0
	}
	return uint8(v*255 + 0.5)
}
