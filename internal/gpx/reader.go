// Package gpx reads and writes the GPX track documents consumed and produced
// by the correction pipeline.
//
// Only the parts of GPX the pipeline uses are modelled: gpx > trk > trkseg >
// trkpt with lat/lon attributes and a time child. Waypoints, routes,
// elevation and extensions are skipped on read and never written.
package gpx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/magtrack/internal/fsutil"
	"github.com/banshee-data/magtrack/internal/monitoring"
	"github.com/banshee-data/magtrack/internal/timeutil"
	"github.com/banshee-data/magtrack/internal/track"
)

// Namespaces understood by Load. The empty namespace covers documents
// written without an xmlns declaration.
const (
	Namespace10 = "http://www.topografix.com/GPX/1/0"
	Namespace11 = "http://www.topografix.com/GPX/1/1"
)

func knownNamespace(space string) bool {
	return space == Namespace10 || space == Namespace11 || space == ""
}

// trkptPath is the element path, below the root, that holds track points.
var trkptPath = []string{"gpx", "trk", "trkseg", "trkpt"}

// pointState accumulates one trkpt while its children are decoded.
type pointState struct {
	line     int
	lat, lon float64
	ts       time.Time
	hasTime  bool
}

// Load parses a GPX document into a track. Every trkpt found at
// gpx/trk/trkseg/trkpt, across all tracks and segments, becomes one sample in
// document order. Timestamps are normalised to UTC.
//
// Malformed XML, a non-gpx root, or a trkpt without lat, lon or time yields a
// *track.ParseError.
func Load(r io.Reader) (track.Track, error) {
	dec := xml.NewDecoder(r)

	var (
		stack   []string // local names of open known-namespace elements
		foreign int      // depth inside elements from other namespaces
		cur     *pointState
		out     track.Track
		sawGPX  bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			line, _ := dec.InputPos()
			return nil, &track.ParseError{Source: "gpx", Line: line, Err: fmt.Errorf("XML decode: %w", err)}
		}

		switch el := tok.(type) {
		case xml.StartElement:
			line, _ := dec.InputPos()
			if foreign > 0 || !knownNamespace(el.Name.Space) {
				if len(stack) == 0 {
					return nil, &track.ParseError{Source: "gpx", Line: line, Err: fmt.Errorf("unexpected root element %s %q", el.Name.Space, el.Name.Local)}
				}
				foreign++
				continue
			}
			if len(stack) == 0 {
				if el.Name.Local != "gpx" {
					return nil, &track.ParseError{Source: "gpx", Line: line, Err: fmt.Errorf("root element is %q, want \"gpx\"", el.Name.Local)}
				}
				sawGPX = true
			}

			if cur != nil && el.Name.Local == "time" && len(stack) == len(trkptPath) {
				var ts string
				if err := dec.DecodeElement(&ts, &el); err != nil {
					return nil, &track.ParseError{Source: "gpx", Line: line, Field: "time", Err: err}
				}
				if cur.hasTime {
					continue
				}
				t, err := timeutil.ParseInstant(ts)
				if err != nil {
					return nil, &track.ParseError{Source: "gpx", Line: line, Field: "time", Err: err}
				}
				cur.ts = t
				cur.hasTime = true
				continue
			}

			stack = append(stack, el.Name.Local)
			if el.Name.Local == "trkpt" && pathIs(stack, trkptPath) {
				p, err := startPoint(el, line)
				if err != nil {
					return nil, err
				}
				cur = p
			}

		case xml.EndElement:
			if foreign > 0 {
				foreign--
				continue
			}
			if len(stack) == 0 {
				continue
			}
			if cur != nil && len(stack) == len(trkptPath) && el.Name.Local == "trkpt" {
				if !cur.hasTime {
					return nil, &track.ParseError{Source: "gpx", Line: cur.line, Field: "time", Err: errors.New("trkpt has no time element")}
				}
				out = append(out, track.NewSample(cur.ts, cur.lat, cur.lon))
				cur = nil
			}
			stack = stack[:len(stack)-1]
		}
	}

	if !sawGPX {
		return nil, &track.ParseError{Source: "gpx", Err: errors.New("document has no gpx root element")}
	}
	monitoring.Stagef("gpx", "loaded %d track points", len(out))
	return out, nil
}

// LoadFile opens path through fsys and parses it with Load.
func LoadFile(fsys fsutil.FileSystem, path string) (track.Track, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, &track.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

func startPoint(el xml.StartElement, line int) (*pointState, error) {
	p := &pointState{line: line}
	var hasLat, hasLon bool
	for _, a := range el.Attr {
		if a.Name.Space != "" {
			continue
		}
		switch a.Name.Local {
		case "lat":
			v, err := parseCoord(a.Value)
			if err != nil {
				return nil, &track.ParseError{Source: "gpx", Line: line, Field: "lat", Err: err}
			}
			p.lat, hasLat = v, true
		case "lon":
			v, err := parseCoord(a.Value)
			if err != nil {
				return nil, &track.ParseError{Source: "gpx", Line: line, Field: "lon", Err: err}
			}
			p.lon, hasLon = v, true
		}
	}
	if !hasLat {
		return nil, &track.ParseError{Source: "gpx", Line: line, Field: "lat", Err: errors.New("missing attribute")}
	}
	if !hasLon {
		return nil, &track.ParseError{Source: "gpx", Line: line, Field: "lon", Err: errors.New("missing attribute")}
	}
	return p, nil
}

func parseCoord(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func pathIs(stack, want []string) bool {
	if len(stack) != len(want) {
		return false
	}
	for i := range want {
		if stack[i] != want[i] {
			return false
		}
	}
	return true
}
