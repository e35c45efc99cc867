// Package testutil provides shared test utilities and fixtures.
//
// The fixtures build small GPX and sensor CSV documents in memory so package
// tests do not depend on files under testdata.
package testutil

import (
	"fmt"
	"strings"
	"time"
)

// Point is one fixture track point.
type Point struct {
	Lat, Lon float64
	Time     time.Time
}

// Reading is one fixture sensor row.
type Reading struct {
	Time   time.Time
	Bx, By float64
}

// BaseTime is the timestamp of the first fixture point.
var BaseTime = time.Date(2023, 6, 14, 9, 30, 0, 0, time.UTC)

// Points returns n points one second apart, starting at (lat, lon) and moving
// stepDeg degrees east each second.
func Points(n int, lat, lon, stepDeg float64) []Point {
	out := make([]Point, n)
	for i := range out {
		out[i] = Point{
			Lat:  lat,
			Lon:  lon + float64(i)*stepDeg,
			Time: BaseTime.Add(time.Duration(i) * time.Second),
		}
	}
	return out
}

// Readings returns n sensor rows aligned with Points(n, ...).
func Readings(n int, bx, by float64) []Reading {
	out := make([]Reading, n)
	for i := range out {
		out[i] = Reading{Time: BaseTime.Add(time.Duration(i) * time.Second), Bx: bx, By: by}
	}
	return out
}

// GPX10 renders pts as a GPX 1.0 document with a default namespace.
func GPX10(pts []Point) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<gpx version="1.0" creator="fixture" xmlns="http://www.topografix.com/GPX/1/0">` + "\n")
	b.WriteString("  <trk>\n    <name>fixture</name>\n    <trkseg>\n")
	for _, p := range pts {
		fmt.Fprintf(&b, "      <trkpt lat=\"%v\" lon=\"%v\">\n", p.Lat, p.Lon)
		b.WriteString("        <ele>12.5</ele>\n")
		fmt.Fprintf(&b, "        <time>%s</time>\n", p.Time.UTC().Format(time.RFC3339Nano))
		b.WriteString("      </trkpt>\n")
	}
	b.WriteString("    </trkseg>\n  </trk>\n</gpx>\n")
	return b.String()
}

// SensorCSV renders rows with the datetime,Bx,By header plus an unused Bz
// column, as exported by the magnetometer logger.
func SensorCSV(rows []Reading) string {
	var b strings.Builder
	b.WriteString("datetime,Bx,By,Bz\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s,%v,%v,0\n", r.Time.UTC().Format(time.RFC3339), r.Bx, r.By)
	}
	return b.String()
}
