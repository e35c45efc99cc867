package gpx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/magtrack/internal/fsutil"
	"github.com/banshee-data/magtrack/internal/monitoring"
	"github.com/banshee-data/magtrack/internal/timeutil"
	"github.com/banshee-data/magtrack/internal/track"
	"github.com/banshee-data/magtrack/internal/version"
)

type gpxDoc struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr,omitempty"`
	Xmlns   string   `xml:"xmlns,attr"`
	Track   gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Segment gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat  string `xml:"lat,attr"`
	Lon  string `xml:"lon,attr"`
	Time string `xml:"time"`
}

// Creator is written into the creator attribute of every document.
func Creator() string {
	return "magtrack " + version.Version
}

// Write encodes t as a GPX 1.0 document with one track and one segment.
// Coordinates use the shortest decimal form that parses back to the same
// float64; times are RFC 3339 in UTC. Encoder failures are *track.IOError.
func Write(w io.Writer, t track.Track) error {
	doc := gpxDoc{
		Version: "1.0",
		Creator: Creator(),
		Xmlns:   Namespace10,
	}
	doc.Track.Segment.Points = make([]gpxPoint, len(t))
	for i, s := range t {
		doc.Track.Segment.Points[i] = gpxPoint{
			Lat:  formatCoord(s.Lat),
			Lon:  formatCoord(s.Lon),
			Time: timeutil.FormatInstant(s.Time),
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return &track.IOError{Op: "write", Err: err}
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return &track.IOError{Op: "write", Err: err}
	}
	if err := enc.Close(); err != nil {
		return &track.IOError{Op: "write", Err: err}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return &track.IOError{Op: "write", Err: err}
	}
	return nil
}

// WriteFile renders t in memory and then stores it at path, so an encoding
// failure never leaves a partial file behind.
func WriteFile(fsys fsutil.FileSystem, path string, t track.Track) error {
	var buf bytes.Buffer
	if err := Write(&buf, t); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return &track.IOError{Op: "write", Path: path, Err: err}
	}
	monitoring.Stagef("gpx", "wrote %d track points to %s", len(t), path)
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
