// Package geo computes great-circle distances along a track.
package geo

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/magtrack/internal/track"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Haversine returns the great-circle distance in meters between two points
// given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := radians(lat1), radians(lat2)
	dPhi := phi2 - phi1
	dLambda := radians(lon2) - radians(lon1)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Legs returns the distance in meters between each consecutive pair of
// samples: element i-1 is the leg ending at sample i. Tracks with fewer than
// two samples have no legs.
func Legs(t track.Track) []float64 {
	if len(t) < 2 {
		return nil
	}
	legs := make([]float64, len(t)-1)
	for i := 1; i < len(t); i++ {
		legs[i-1] = Haversine(t[i-1].Lat, t[i-1].Lon, t[i].Lat, t[i].Lon)
	}
	return legs
}

// PathDistance returns the total length of t in meters. A NaN coordinate
// anywhere on the path makes the total NaN.
func PathDistance(t track.Track) float64 {
	legs := Legs(t)
	if len(legs) == 0 {
		return 0
	}
	return floats.Sum(legs)
}

// Cumulative returns the running distance at every sample, starting at 0.
func Cumulative(t track.Track) []float64 {
	if len(t) == 0 {
		return nil
	}
	out := make([]float64, len(t))
	if legs := Legs(t); len(legs) > 0 {
		floats.CumSum(out[1:], legs)
	}
	return out
}
