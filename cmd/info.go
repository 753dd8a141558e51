package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"

	sceneio "github.com/achilleasa/helios/scene/io"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Print statistics for a compiled scene and the available compute resources.
func Info(ctx *cli.Context) error {
	setupLogging(ctx)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Device", "Workers", "Arch"})
	table.Append([]string{"cpu", fmt.Sprintf("%d", runtime.NumCPU()), runtime.GOARCH})
	table.Render()
	logger.Noticef("compute devices\n%s", buf.String())

	if ctx.NArg() == 0 {
		return nil
	}

	sc, err := sceneio.ReadScene(ctx.Args().First())
	if err != nil {
		return err
	}
	logger.Noticef("scene statistics\n%s", sc.Stats())

	if len(sc.Triangles) == 0 {
		return errors.New("scene carries no geometry")
	}
	return nil
}
