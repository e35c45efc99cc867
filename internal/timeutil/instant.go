package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted by ParseInstant, tried in order. Zoned layouts come first;
// the naive ones are read as UTC.
var instantLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02 15:04:05.999999999Z07:00", true},
	{"2006-01-02T15:04:05.999999999", false},
	{"2006-01-02 15:04:05.999999999", false},
}

// ParseInstant parses an ISO-8601 style timestamp and returns it in UTC.
// It accepts RFC 3339, the space-separated form written by older versions of
// the track writer ("2024-05-01 12:00:00+00:00"), and zone-less timestamps,
// which are taken to be UTC.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, l := range instantLayouts {
		var (
			t   time.Time
			err error
		)
		if l.zoned {
			t, err = time.Parse(l.layout, s)
		} else {
			t, err = time.ParseInLocation(l.layout, s, time.UTC)
		}
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// FormatInstant renders t in UTC as RFC 3339 with the minimum number of
// fractional digits.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
