package gpx

import (
	"bytes"
	"errors"
	"io/fs"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/magtrack/internal/fsutil"
	"github.com/banshee-data/magtrack/internal/testutil"
	"github.com/banshee-data/magtrack/internal/track"
)

func TestLoad_GPX10(t *testing.T) {
	pts := testutil.Points(3, 47.25, 8.5, 0.001)
	got, err := Load(strings.NewReader(testutil.GPX10(pts)))
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i, s := range got {
		assert.Equal(t, pts[i].Lat, s.Lat)
		assert.InDelta(t, pts[i].Lon, s.Lon, 1e-12)
		assert.True(t, s.Time.Equal(pts[i].Time))
		assert.Equal(t, time.UTC, s.Time.Location())
		assert.False(t, s.Merged(), "loader must not invent sensor values")
	}
}

func TestLoad_NamespaceVariants(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "gpx 1.1 default namespace",
			doc: `<gpx version="1.1" xmlns="http://www.topografix.com/GPX/1/1"><trk><trkseg>
<trkpt lat="1" lon="2"><time>2024-05-01T12:00:00Z</time></trkpt></trkseg></trk></gpx>`,
		},
		{
			name: "prefixed gpx 1.0",
			doc: `<g:gpx xmlns:g="http://www.topografix.com/GPX/1/0"><g:trk><g:trkseg>
<g:trkpt lat="1" lon="2"><g:time>2024-05-01T12:00:00Z</g:time></g:trkpt></g:trkseg></g:trk></g:gpx>`,
		},
		{
			name: "no namespace",
			doc:  `<gpx version="1.0"><trk><trkseg><trkpt lat="1" lon="2"><time>2024-05-01 12:00:00+00:00</time></trkpt></trkseg></trk></gpx>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(strings.NewReader(tt.doc))
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, 1.0, got[0].Lat)
			assert.Equal(t, 2.0, got[0].Lon)
			assert.True(t, got[0].Time.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
		})
	}
}

func TestLoad_MultipleSegmentsAndTracks(t *testing.T) {
	doc := `<gpx xmlns="http://www.topografix.com/GPX/1/0">
<wpt lat="9" lon="9"><time>2024-05-01T11:00:00Z</time></wpt>
<trk><trkseg>
  <trkpt lat="1" lon="1"><time>2024-05-01T12:00:00Z</time></trkpt>
</trkseg><trkseg>
  <trkpt lat="2" lon="2"><time>2024-05-01T12:00:01Z</time></trkpt>
</trkseg></trk>
<trk><trkseg>
  <trkpt lat="3" lon="3"><time>2024-05-01T12:00:02Z</time></trkpt>
</trkseg></trk>
</gpx>`
	got, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{1, 2, 3}, []float64{got[0].Lat, got[1].Lat, got[2].Lat})
}

func TestLoad_IgnoresForeignExtensions(t *testing.T) {
	doc := `<gpx xmlns="http://www.topografix.com/GPX/1/0" xmlns:x="urn:example">
<trk><trkseg><trkpt lat="1" lon="2">
  <x:meta><x:time>not a time</x:time><trkpt lat="bogus"/></x:meta>
  <time>2024-05-01T12:00:00Z</time>
</trkpt></trkseg></trk></gpx>`
	got, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].Lon)
}

func TestLoad_Empty(t *testing.T) {
	got, err := Load(strings.NewReader(`<gpx version="1.0"><trk><trkseg/></trk></gpx>`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"malformed xml", `<gpx><trk>`, ""},
		{"empty document", ``, ""},
		{"wrong root", `<kml><trk/></kml>`, ""},
		{"foreign root", `<gpx xmlns="urn:other"/>`, ""},
		{"missing lat", `<gpx><trk><trkseg><trkpt lon="1"><time>2024-05-01T12:00:00Z</time></trkpt></trkseg></trk></gpx>`, "lat"},
		{"missing lon", `<gpx><trk><trkseg><trkpt lat="1"><time>2024-05-01T12:00:00Z</time></trkpt></trkseg></trk></gpx>`, "lon"},
		{"bad lat", `<gpx><trk><trkseg><trkpt lat="north" lon="1"><time>2024-05-01T12:00:00Z</time></trkpt></trkseg></trk></gpx>`, "lat"},
		{"missing time", `<gpx><trk><trkseg><trkpt lat="1" lon="1"></trkpt></trkseg></trk></gpx>`, "time"},
		{"bad time", `<gpx><trk><trkseg><trkpt lat="1" lon="1"><time>noon</time></trkpt></trkseg></trk></gpx>`, "time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, track.ErrParse), "got %v", err)

			var pe *track.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "gpx", pe.Source)
			assert.Equal(t, tt.field, pe.Field)
		})
	}
}

func TestWrite_Structure(t *testing.T) {
	tr := track.Track{
		track.NewSample(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), 45.0000034, 19.999996),
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tr))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `version="1.0"`)
	assert.Contains(t, out, `xmlns="http://www.topografix.com/GPX/1/0"`)
	assert.Contains(t, out, `<trkpt lat="45.0000034" lon="19.999996">`)
	assert.Contains(t, out, `<time>2024-05-01T12:00:00Z</time>`)
	assert.Equal(t, 1, strings.Count(out, "<trk>"))
	assert.Equal(t, 1, strings.Count(out, "<trkseg>"))
}

func TestWriteLoad_RoundTrip(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	in := track.Track{
		track.NewSample(time.Date(2024, 5, 1, 14, 0, 0, 0, loc), 47.376887, 8.541694),
		track.NewSample(time.Date(2024, 5, 1, 14, 0, 1, 250_000_000, loc), 47.3769, 8.5418),
		track.NewSample(time.Date(2024, 5, 1, 14, 0, 2, 0, loc), -33.8688197, 151.2092955),
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))
	out, err := Load(&buf)
	require.NoError(t, err)

	opts := cmp.Options{
		cmpopts.EquateApprox(0, 1e-12),
		cmpopts.EquateNaNs(),
		cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) }),
	}
	if diff := cmp.Diff(in, out, opts); diff != "" {
		t.Errorf("round trip mismatch (-in +out):\n%s", diff)
	}
}

func TestWrite_NaNCoordinates(t *testing.T) {
	in := track.Track{track.NewSample(testutil.BaseTime, math.NaN(), 1)}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))
	out, err := Load(&buf)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, math.IsNaN(out[0].Lat))
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_IOError(t *testing.T) {
	err := Write(failWriter{}, track.Track{track.NewSample(testutil.BaseTime, 1, 2)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, track.ErrIO))
}

func TestLoadFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("in.gpx", []byte(testutil.GPX10(testutil.Points(2, 0, 0, 1))), 0644))

	got, err := LoadFile(mfs, "in.gpx")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = LoadFile(mfs, "missing.gpx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, track.ErrIO))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	require.NoError(t, mfs.WriteFile("bad.gpx", []byte("<gpx>"), 0644))
	_, err = LoadFile(mfs, "bad.gpx")
	assert.True(t, errors.Is(err, track.ErrParse))
	assert.Contains(t, err.Error(), "bad.gpx")
}

func TestWriteFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	tr := track.Track{track.NewSample(testutil.BaseTime, 1, 2)}

	require.NoError(t, WriteFile(mfs, "out.gpx", tr))
	back, err := LoadFile(mfs, "out.gpx")
	require.NoError(t, err)
	assert.Len(t, back, 1)

	mfs.SetReadOnly("locked.gpx")
	err = WriteFile(mfs, "locked.gpx", tr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, track.ErrIO))
	assert.True(t, errors.Is(err, fs.ErrPermission))
}

func TestCreator(t *testing.T) {
	assert.True(t, strings.HasPrefix(Creator(), "magtrack "))
}
