package main

import (
	"os"

	"github.com/achilleasa/helios/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	sharedRenderFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 512,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 512,
			Usage: "frame height",
		},
		cli.IntFlag{
			Name:  "num-bounces",
			Value: 4,
			Usage: "number of path bounces",
		},
		cli.Float64Flag{
			Name:  "exposure",
			Value: 1.0,
			Usage: "camera exposure for tone-mapping",
		},
		cli.Float64Flag{
			Name:  "aperture",
			Value: 0.0,
			Usage: "camera aperture radius (0 disables depth of field)",
		},
		cli.Float64Flag{
			Name:  "focal-distance",
			Value: 1.0,
			Usage: "camera focal distance",
		},
		cli.StringFlag{
			Name:  "bvh-layout",
			Value: "bvh2",
			Usage: "on-device bvh layout: bvh2, qbvh or cwbvh",
		},
		cli.StringFlag{
			Name:  "filter",
			Value: "box",
			Usage: "reconstruction filter: box or gaussian",
		},
		cli.StringFlag{
			Name:  "blue-noise",
			Usage: "path to the blue noise sampler tables",
		},
		cli.BoolFlag{
			Name:  "svgf",
			Usage: "enable svgf denoising",
		},
		cli.BoolFlag{
			Name:  "taa",
			Usage: "enable temporal anti-aliasing",
		},
		cli.BoolFlag{
			Name:  "no-nee",
			Usage: "disable next event estimation",
		},
		cli.BoolFlag{
			Name:  "no-mis",
			Usage: "disable multiple importance sampling",
		},
	}

	app := cli.NewApp()
	app.Name = "helios"
	app.Usage = "render scenes using wavefront path tracing"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "info",
			Usage: "print compute device and compiled scene statistics",
			Description: `
Print the available compute resources and, when a compiled scene archive is
supplied as an argument, a breakdown of its assets.`,
			ArgsUsage: "[scene_file.zip]",
			Action:    cmd.Info,
		},
		{
			Name:   "render",
			Usage:  "render scene",
			Action: nil,
			Subcommands: []cli.Command{
				{
					Name:        "frame",
					Usage:       "render single frame",
					Description: `Accumulate a fixed number of samples and export the frame as a PNG file.`,
					ArgsUsage:   "scene_file.zip",
					Flags: append([]cli.Flag{
						cli.IntFlag{
							Name:  "spp",
							Value: 16,
							Usage: "samples per pixel",
						},
						cli.StringFlag{
							Name:  "out, o",
							Value: "frame.png",
							Usage: "image filename for the rendered frame",
						},
					}, sharedRenderFlags...),
					Action: cmd.RenderFrame,
				},
				{
					Name:        "interactive",
					Usage:       "render interactive view of the scene",
					Description: `Open a window and refine the image progressively while the camera is still.`,
					ArgsUsage:   "scene_file.zip",
					Flags:       sharedRenderFlags,
					Action:      cmd.RenderInteractive,
				},
			},
		},
	}

	app.Run(os.Args)
}
