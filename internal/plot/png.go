// Package plot renders a raw and a corrected track for visual comparison:
// a static PNG of both paths, and an HTML chart of distance travelled.
package plot

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/magtrack/internal/track"
)

var (
	rawColor       = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	correctedColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// pathXYs returns the lon/lat pairs of t that are finite.
func pathXYs(t track.Track) plotter.XYs {
	pts := make(plotter.XYs, 0, len(t))
	for _, s := range t {
		if math.IsNaN(s.Lat) || math.IsNaN(s.Lon) || math.IsInf(s.Lat, 0) || math.IsInf(s.Lon, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: s.Lon, Y: s.Lat})
	}
	return pts
}

// TrackPlot builds the lon/lat plot of both tracks. Samples without a
// position are skipped; a track with no plottable samples gets no line.
func TrackPlot(raw, corrected track.Track) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Track (%d samples)", len(raw))
	p.X.Label.Text = "Longitude (deg)"
	p.Y.Label.Text = "Latitude (deg)"
	p.Add(plotter.NewGrid())

	series := []struct {
		name string
		t    track.Track
		c    color.Color
	}{
		{"raw", raw, rawColor},
		{"corrected", corrected, correctedColor},
	}
	for _, s := range series {
		pts := pathXYs(s.t)
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s line: %w", s.name, err)
		}
		line.Color = s.c
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// TrackPNG draws both tracks and writes the PNG to w.
func TrackPNG(w io.Writer, raw, corrected track.Track, width, height vg.Length) error {
	p, err := TrackPlot(raw, corrected)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to render track plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write track plot: %w", err)
	}
	return nil
}
