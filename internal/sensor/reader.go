// Package sensor loads magnetometer logs and joins their readings onto GPS
// track samples.
package sensor

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/magtrack/internal/fsutil"
	"github.com/banshee-data/magtrack/internal/monitoring"
	"github.com/banshee-data/magtrack/internal/timeutil"
	"github.com/banshee-data/magtrack/internal/track"
)

// Required CSV columns. Names are matched exactly after trimming whitespace.
const (
	ColumnTime = "datetime"
	ColumnBx   = "Bx"
	ColumnBy   = "By"
)

// Reading is one row of the sensor log.
type Reading struct {
	Time time.Time // UTC
	Bx   float64
	By   float64
}

// Load parses a sensor CSV. The header must name the datetime, Bx and By
// columns; any other columns are ignored. Empty or "NaN" Bx/By cells are read
// as NaN. A malformed row yields a *track.ParseError naming its line.
func Load(r io.Reader) ([]Reading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &track.ParseError{Source: "csv", Line: 1, Err: errors.New("missing header row")}
	}
	if err != nil {
		return nil, &track.ParseError{Source: "csv", Line: 1, Err: err}
	}

	idx := map[string]int{ColumnTime: -1, ColumnBx: -1, ColumnBy: -1}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if j, ok := idx[name]; ok && j == -1 {
			idx[name] = i
		}
	}
	for _, col := range []string{ColumnTime, ColumnBx, ColumnBy} {
		if idx[col] < 0 {
			return nil, &track.ParseError{Source: "csv", Line: 1, Field: col, Err: errors.New("missing column")}
		}
	}

	var out []Reading
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var line int
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			return nil, &track.ParseError{Source: "csv", Line: line, Err: err}
		}
		line, _ := cr.FieldPos(0)

		rd, err := parseRow(rec, idx, line)
		if err != nil {
			return nil, err
		}
		out = append(out, rd)
	}

	monitoring.Stagef("csv", "loaded %d sensor readings", len(out))
	return out, nil
}

// LoadFile opens path through fsys and parses it with Load.
func LoadFile(fsys fsutil.FileSystem, path string) ([]Reading, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, &track.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	rs, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return rs, nil
}

func parseRow(rec []string, idx map[string]int, line int) (Reading, error) {
	cell := func(col string) (string, error) {
		i := idx[col]
		if i >= len(rec) {
			return "", &track.ParseError{Source: "csv", Line: line, Field: col, Err: errors.New("row too short")}
		}
		return strings.TrimSpace(rec[i]), nil
	}

	var rd Reading
	ts, err := cell(ColumnTime)
	if err != nil {
		return rd, err
	}
	if rd.Time, err = timeutil.ParseInstant(ts); err != nil {
		return rd, &track.ParseError{Source: "csv", Line: line, Field: ColumnTime, Err: err}
	}

	for _, f := range []struct {
		col string
		dst *float64
	}{{ColumnBx, &rd.Bx}, {ColumnBy, &rd.By}} {
		s, err := cell(f.col)
		if err != nil {
			return rd, err
		}
		v, err := parseReading(s)
		if err != nil {
			return rd, &track.ParseError{Source: "csv", Line: line, Field: f.col, Err: err}
		}
		*f.dst = v
	}
	return rd, nil
}

func parseReading(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
