package web

import (
	"bytes"
	"fmt"
	"html/template"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	chartWidth  = 560
	chartHeight = 300
	tickCount   = 4
	maxLabels   = 12

	plotMargin  = 80
	barSpacing  = 4
	minBarWidth = 4
	maxBarWidth = 36
)

var (
	colorTotal    = drawing.ColorFromHex("8884d8")
	colorQuantity = drawing.ColorFromHex("82ca9d")
	colorAxis     = drawing.ColorFromHex("757575")
)

// Chart is a rendered SVG bar chart. Empty charts carry no SVG. Class
// names the legend swatch.
type Chart struct {
	Title string
	Class string
	SVG   template.HTML
	Empty bool
}

// renderBarChart draws one bar per label with a zero-based value axis.
// Negative values are drawn as zero. When there are more labels than
// maxLabels only every n-th one is printed.
func renderBarChart(title string, labels []string, values []float64, color drawing.Color) (Chart, error) {
	c := Chart{Title: title}
	if len(labels) == 0 {
		// go-chart refuses to render a bar chart without bars.
		c.Empty = true
		return c, nil
	}

	step := (len(labels) + maxLabels - 1) / maxLabels
	peak := 0.0
	bars := make([]chart.Value, len(labels))
	for i, label := range labels {
		v := 0.0
		if i < len(values) {
			v = math.Max(values[i], 0)
		}
		peak = math.Max(peak, v)
		if i%step != 0 {
			label = ""
		}
		bars[i] = chart.Value{
			Label: label,
			Value: v,
			Style: chart.Style{FillColor: color, StrokeColor: color, StrokeWidth: 1},
		}
	}

	top := niceCeil(peak)
	ticks := make([]chart.Tick, 0, tickCount+1)
	for i := 0; i <= tickCount; i++ {
		v := top * float64(i) / tickCount
		ticks = append(ticks, chart.Tick{Value: v, Label: formatTick(v)})
	}

	graph := chart.BarChart{
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   barWidth(len(bars)),
		BarSpacing: barSpacing,
		Background: chart.Style{
			Padding: chart.Box{Top: 16, Left: 8, Right: 8, Bottom: 8},
		},
		XAxis: chart.Style{FontSize: 8, FontColor: colorAxis, StrokeColor: colorAxis},
		YAxis: chart.YAxis{
			Style: chart.Style{FontSize: 8, FontColor: colorAxis},
			Range: &chart.ContinuousRange{Min: 0, Max: top},
			Ticks: ticks,
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return c, fmt.Errorf("render %s chart: %w", title, err)
	}
	c.SVG = template.HTML(buf.String())
	return c, nil
}

// barWidth shrinks bars so n of them fit the plot area.
func barWidth(n int) int {
	w := (chartWidth-plotMargin)/n - barSpacing
	return max(minBarWidth, min(maxBarWidth, w))
}

// niceCeil rounds v up to 1, 2 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*exp >= v {
			return m * exp
		}
	}
	return 10 * exp
}

func formatTick(v float64) string {
	if v == math.Trunc(v) {
		return trimFloat(v, 0)
	}
	return trimFloat(v, 2)
}
