// Package track holds the in-memory model shared by every pipeline stage:
// timestamped GPS samples with the magnetometer readings joined onto them.
package track

import (
	"math"
	"time"
)

// Sample is one track point. Bx and By are NaN until sensor data has been
// merged onto the sample.
type Sample struct {
	Time time.Time
	Lat  float64 // degrees
	Lon  float64 // degrees
	Bx   float64
	By   float64
}

// NewSample returns an unmerged sample with its time normalised to UTC.
func NewSample(t time.Time, lat, lon float64) Sample {
	return Sample{
		Time: t.UTC(),
		Lat:  lat,
		Lon:  lon,
		Bx:   math.NaN(),
		By:   math.NaN(),
	}
}

// Merged reports whether both sensor readings are present.
func (s Sample) Merged() bool {
	return !math.IsNaN(s.Bx) && !math.IsNaN(s.By)
}

// Track is an ordered sequence of samples in acquisition order. Distance is
// computed over consecutive pairs, so order matters.
type Track []Sample

// Clone returns a copy that can be modified without touching t.
func (t Track) Clone() Track {
	if t == nil {
		return nil
	}
	out := make(Track, len(t))
	copy(out, t)
	return out
}

// MergedCount returns how many samples carry both sensor readings.
func (t Track) MergedCount() int {
	n := 0
	for _, s := range t {
		if s.Merged() {
			n++
		}
	}
	return n
}
