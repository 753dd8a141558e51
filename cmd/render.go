package cmd

import (
	"errors"
	"fmt"

	"github.com/achilleasa/helios/renderer"
	"github.com/achilleasa/helios/scene"
	sceneio "github.com/achilleasa/helios/scene/io"
	"github.com/achilleasa/helios/tracer"
	"github.com/achilleasa/helios/tracer/device"
	"github.com/achilleasa/helios/tracer/wavefront"
	"github.com/urfave/cli"
)

// Assemble the per-frame settings from cli flags.
func settingsFromFlags(ctx *cli.Context) tracer.Settings {
	settings := tracer.DefaultSettings()
	settings.NumBounces = ctx.Int("num-bounces")
	settings.EnableNextEventEstimation = !ctx.Bool("no-nee")
	settings.EnableMultipleImportanceSampling = !ctx.Bool("no-mis")
	settings.EnableSVGF = ctx.Bool("svgf")
	settings.EnableSpatialVariance = ctx.Bool("svgf")
	settings.EnableTAA = ctx.Bool("taa")
	settings.CameraAperture = float32(ctx.Float64("aperture"))
	settings.CameraFocalDistance = float32(ctx.Float64("focal-distance"))
	if ctx.String("filter") == "gaussian" {
		settings.ReconstructionFilter = tracer.FilterGaussian
	}
	return settings
}

func layoutFromFlags(ctx *cli.Context) (wavefront.BvhLayout, error) {
	switch ctx.String("bvh-layout") {
	case "", "bvh2":
		return wavefront.LayoutBinary, nil
	case "qbvh":
		return wavefront.LayoutQbvh, nil
	case "cwbvh":
		return wavefront.LayoutCwbvh, nil
	}
	return 0, fmt.Errorf("unsupported bvh layout %q", ctx.String("bvh-layout"))
}

// Load the compiled scene and attach a wavefront tracer to it.
func setupTracer(ctx *cli.Context) (tracer.Tracer, *scene.Scene, error) {
	if ctx.NArg() != 1 {
		return nil, nil, errors.New("missing scene file argument")
	}
	scenePath := ctx.Args().First()

	sc, err := sceneio.ReadScene(scenePath)
	if err != nil {
		return nil, nil, err
	}
	logger.Noticef("scene statistics\n%s", sc.Stats())

	layout, err := layoutFromFlags(ctx)
	if err != nil {
		return nil, nil, err
	}

	var bn *wavefront.BlueNoise
	if bnPath := ctx.String("blue-noise"); bnPath != "" {
		if bn, err = wavefront.LoadBlueNoise(bnPath); err != nil {
			return nil, nil, err
		}
	}

	tr, err := wavefront.New("wavefront-0", device.Default(), sc, wavefront.Options{
		Layout:    layout,
		BlueNoise: bn,
	})
	if err != nil {
		return nil, nil, err
	}
	return tr, sc, nil
}

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	tr, _, err := setupTracer(ctx)
	if err != nil {
		return err
	}

	opts := renderer.Options{
		FrameW:          uint32(ctx.Int("width")),
		FrameH:          uint32(ctx.Int("height")),
		SamplesPerPixel: uint32(ctx.Int("spp")),
		Exposure:        float32(ctx.Float64("exposure")),
		Settings:        settingsFromFlags(ctx),
	}

	r, err := renderer.NewDefault(tr, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	if err = r.Render(); err != nil {
		return err
	}

	logger.Noticef("frame statistics\n%s", r.Stats().Table())

	type frameSaver interface {
		SaveFrame(string) error
	}
	return r.(frameSaver).SaveFrame(ctx.String("out"))
}

// Render an interactive view of the scene.
func RenderInteractive(ctx *cli.Context) error {
	setupLogging(ctx)

	tr, sc, err := setupTracer(ctx)
	if err != nil {
		return err
	}

	opts := renderer.Options{
		FrameW:   uint32(ctx.Int("width")),
		FrameH:   uint32(ctx.Int("height")),
		Exposure: float32(ctx.Float64("exposure")),
		Settings: settingsFromFlags(ctx),
	}

	r, err := renderer.NewInteractive(tr, sc.Camera, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	return r.Render()
}
