// Package chart renders schedule diagnostics as standalone HTML pages.
package chart

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/rcpsp/core/decode"
	"github.com/kilianp07/rcpsp/core/model"
)

// RenderProfile writes one chart per resource showing usage per timestamp
// as bars against the capacity as a line.
func RenderProfile(w io.Writer, b *model.Bounded, starts map[int]int) error {
	usage := decode.ResourceProfile(b, starts)
	xAxis := make([]string, b.Horizon+1)
	for ts := range xAxis {
		xAxis[ts] = strconv.Itoa(ts)
	}

	page := components.NewPage()
	for r, row := range usage {
		bars := make([]opts.BarData, len(row))
		capLine := make([]opts.LineData, len(row))
		for ts, used := range row {
			bars[ts] = opts.BarData{Value: used}
			capLine[ts] = opts.LineData{Value: b.ResourceCaps[r]}
		}

		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{
				Title:    fmt.Sprintf("%s resource %d", b.Name, r),
				Subtitle: fmt.Sprintf("capacity %d, horizon %d", b.ResourceCaps[r], b.Horizon),
			}),
			charts.WithXAxisOpts(opts.XAxis{Name: "timestamp"}),
			charts.WithYAxisOpts(opts.YAxis{Name: "usage"}),
		)
		bar.SetXAxis(xAxis).AddSeries("usage", bars)

		line := charts.NewLine()
		line.SetXAxis(xAxis).AddSeries("capacity", capLine)
		bar.Overlap(line)

		page.AddCharts(bar)
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render profile: %w", err)
	}
	return nil
}
