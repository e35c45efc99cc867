// Package correction shifts GPS samples using the magnetometer readings
// joined onto them.
//
// The legacy tool called this step a "Kalman filter". It is not one: there is
// no state, no covariance and no feedback between samples. Each sample is
// moved by a fixed linear function of its own (Bx, By) pair. The
// coefficients are reproduced exactly for compatibility with existing
// outputs. Note that the latitude gain of 35 degrees per unit of Bx moves
// points by tens of degrees for typical readings; it looks like a units
// defect in the original calibration and is kept unscaled on purpose.
package correction

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/magtrack/internal/monitoring"
	"github.com/banshee-data/magtrack/internal/track"
)

// Model is a 2x2 linear map from (Bx, By) to a (dLat, dLon) offset in degrees.
type Model struct {
	gain *mat.Dense
}

// NewModel builds a model from its coefficients:
//
//	dLat = latBx*Bx + latBy*By
//	dLon = lonBx*Bx + lonBy*By
func NewModel(latBx, latBy, lonBx, lonBy float64) *Model {
	return &Model{gain: mat.NewDense(2, 2, []float64{
		latBx, latBy,
		lonBx, lonBy,
	})}
}

// Legacy returns the calibration shipped with the original magnetometer rig.
// The products are evaluated in float64 the same way that tool did
// (34 * 10^-7 rather than the literal 3.4e-6), so corrected coordinates
// match its output.
func Legacy() *Model {
	e7 := math.Pow(10, -7)
	return NewModel(
		5*7, 34*e7,
		-49*e7, 9*e7,
	)
}

// Coefficients returns the matrix entries in row-major order.
func (m *Model) Coefficients() [4]float64 {
	return [4]float64{m.gain.At(0, 0), m.gain.At(0, 1), m.gain.At(1, 0), m.gain.At(1, 1)}
}

// Offset returns the position shift, in degrees, for one pair of readings.
// NaN readings yield NaN offsets.
func (m *Model) Offset(bx, by float64) (dLat, dLon float64) {
	var d mat.VecDense
	d.MulVec(m.gain, mat.NewVecDense(2, []float64{bx, by}))
	return d.AtVec(0), d.AtVec(1)
}

// ApplySample returns s shifted by the model. Following the legacy output
// format, both sensor fields of the result carry the By reading.
func (m *Model) ApplySample(s track.Sample) track.Sample {
	dLat, dLon := m.Offset(s.Bx, s.By)
	s.Lat += dLat
	s.Lon += dLon
	s.Bx = s.By
	return s
}

// Apply corrects every sample of t independently and returns a new track;
// t is left unchanged.
func (m *Model) Apply(t track.Track) track.Track {
	if t == nil {
		return nil
	}
	out := make(track.Track, len(t))
	for i, s := range t {
		out[i] = m.ApplySample(s)
	}
	monitoring.Stagef("correct", "applied linear correction to %d samples (%d without sensor data)",
		len(out), len(out)-t.MergedCount())
	return out
}
