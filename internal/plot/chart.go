package plot

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/magtrack/internal/geo"
	"github.com/banshee-data/magtrack/internal/track"
)

// missing is how echarts marks a gap in a line series.
const missing = "-"

func distanceSeries(t track.Track) []opts.LineData {
	cum := geo.Cumulative(t)
	data := make([]opts.LineData, len(cum))
	for i, d := range cum {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			data[i] = opts.LineData{Value: missing}
			continue
		}
		data[i] = opts.LineData{Value: math.Round(d*100) / 100}
	}
	return data
}

// DistanceChart builds a line chart of cumulative distance against sample
// index for both tracks.
func DistanceChart(raw, corrected track.Track) *charts.Line {
	n := max(len(raw), len(corrected))
	xs := make([]string, n)
	for i := range xs {
		xs[i] = strconv.Itoa(i)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "magtrack distance", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Cumulative distance",
			Subtitle: fmt.Sprintf("raw=%.2f m corrected=%.2f m", geo.PathDistance(raw), geo.PathDistance(corrected)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Sample", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Distance (m)", NameLocation: "middle", NameGap: 50}),
	)
	line.SetXAxis(xs).
		AddSeries("raw", distanceSeries(raw)).
		AddSeries("corrected", distanceSeries(corrected))
	return line
}

// WriteDistanceChart renders DistanceChart as a standalone HTML page.
func WriteDistanceChart(w io.Writer, raw, corrected track.Track) error {
	if err := DistanceChart(raw, corrected).Render(w); err != nil {
		return fmt.Errorf("failed to render distance chart: %w", err)
	}
	return nil
}
