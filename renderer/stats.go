package renderer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/achilleasa/helios/tracer"
	"github.com/olekukonko/tablewriter"
)

type FrameStats struct {
	// Per-stage timing breakdown for the last frame.
	Stages []tracer.StageTime

	// Total render time for entire frame.
	RenderTime time.Duration
}

// Build a tabular representation of the per-stage timings.
func (st FrameStats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Stage", "Kernel", "Time"})
	for _, stage := range st.Stages {
		table.Append([]string{
			stage.Category,
			stage.Name,
			fmt.Sprintf("%s", stage.Elapsed),
		})
	}
	table.SetFooter([]string{"", "TOTAL", fmt.Sprintf("%s", st.RenderTime)})

	table.Render()
	return buf.String()
}
