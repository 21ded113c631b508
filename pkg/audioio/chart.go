package audioio

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// DefaultChartPoints is the resolution WriteChart uses when points <= 0
const DefaultChartPoints = 2000

// Series is one named line of a chart
type Series struct {
	Name string
	Data []float32
}

// Downsample reduces data to at most points values. Each output value is
// the sample with the largest magnitude in its bucket so transients survive.
func Downsample(data []float32, points int) []float64 {
	if points <= 0 || len(data) <= points {
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out
	}

	out := make([]float64, points)
	for b := 0; b < points; b++ {
		start := b * len(data) / points
		end := (b + 1) * len(data) / points
		peak := 0.0
		for _, v := range data[start:end] {
			if math.Abs(float64(v)) > math.Abs(peak) {
				peak = float64(v)
			}
		}
		out[b] = peak
	}
	return out
}

// WriteChart renders the series as an HTML line chart with a time axis in
// milliseconds. All series share the first series' length.
func WriteChart(w io.Writer, title string, sampleRate float64, points int, series ...Series) error {
	if len(series) == 0 {
		return fmt.Errorf("audioio: chart %q has no series", title)
	}
	if !(sampleRate > 0) {
		return fmt.Errorf("audioio: invalid chart sample rate %v", sampleRate)
	}
	if points <= 0 {
		points = DefaultChartPoints
	}

	length := len(series[0].Data)
	buckets := min(points, length)
	xLabels := make([]string, buckets)
	for i := range xLabels {
		frame := i * length / max(buckets, 1)
		xLabels[i] = fmt.Sprintf("%.1f", float64(frame)*1000/sampleRate)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d frames at %.0f Hz", length, sampleRate),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "ms"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
	)
	line.SetXAxis(xLabels)

	for _, s := range series {
		values := Downsample(s.Data[:min(len(s.Data), length)], buckets)
		items := make([]opts.LineData, len(values))
		for i, v := range values {
			items[i] = opts.LineData{Value: v}
		}
		line.AddSeries(s.Name, items)
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("audioio: rendering chart: %w", err)
	}
	return nil
}
