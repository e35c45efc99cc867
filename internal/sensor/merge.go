package sensor

import (
	"fmt"
	"math"

	"github.com/banshee-data/magtrack/internal/monitoring"
	"github.com/banshee-data/magtrack/internal/track"
)

// JoinMode selects how readings are paired with track samples.
type JoinMode int

const (
	// JoinIndex pairs reading i with sample i and ignores timestamps. This is
	// how the magnetometer logger and GPS recorder have always been combined:
	// both are started together and sample at the same rate.
	JoinIndex JoinMode = iota
	// JoinTime pairs a reading with the sample whose timestamp is identical.
	JoinTime
)

func (m JoinMode) String() string {
	switch m {
	case JoinIndex:
		return "index"
	case JoinTime:
		return "time"
	default:
		return fmt.Sprintf("JoinMode(%d)", int(m))
	}
}

// ParseJoinMode converts "index" or "time" into a JoinMode. The empty string
// selects JoinIndex.
func ParseJoinMode(s string) (JoinMode, error) {
	switch s {
	case "", "index":
		return JoinIndex, nil
	case "time":
		return JoinTime, nil
	default:
		return JoinIndex, fmt.Errorf("invalid join mode %q (want index or time)", s)
	}
}

// MergeStats describes how well the two inputs lined up.
type MergeStats struct {
	Samples   int // track length
	Readings  int // sensor rows supplied
	Matched   int // samples that received a reading
	Unmatched int // samples left with NaN Bx/By
	Ignored   int // readings not used by any sample
}

// Aligned reports whether every sample got a reading and every reading was used.
func (s MergeStats) Aligned() bool {
	return s.Unmatched == 0 && s.Ignored == 0
}

// Merge returns a copy of t with Bx and By taken from rs. It never fails:
// with JoinIndex surplus readings are dropped and samples beyond the end of
// rs keep NaN readings; with JoinTime unmatched samples keep NaN and, when
// several readings share a timestamp, the first one wins. Any misalignment is
// logged and reported in the returned stats.
func Merge(t track.Track, rs []Reading, mode JoinMode) (track.Track, MergeStats) {
	out := t.Clone()
	for i := range out {
		out[i].Bx, out[i].By = math.NaN(), math.NaN()
	}

	stats := MergeStats{Samples: len(t), Readings: len(rs)}
	switch mode {
	case JoinTime:
		byTime := make(map[int64]int, len(rs))
		for i, r := range rs {
			key := r.Time.UnixNano()
			if _, dup := byTime[key]; !dup {
				byTime[key] = i
			}
		}
		used := make(map[int]bool, len(rs))
		for i := range out {
			j, ok := byTime[out[i].Time.UnixNano()]
			if !ok {
				continue
			}
			out[i].Bx, out[i].By = rs[j].Bx, rs[j].By
			used[j] = true
			stats.Matched++
		}
		stats.Ignored = len(rs) - len(used)
	default:
		n := min(len(out), len(rs))
		for i := 0; i < n; i++ {
			out[i].Bx, out[i].By = rs[i].Bx, rs[i].By
		}
		stats.Matched = n
		stats.Ignored = len(rs) - n
	}
	stats.Unmatched = len(out) - stats.Matched

	if !stats.Aligned() {
		monitoring.Stagef("merge", "WARNING: %s join left %d of %d samples without readings and ignored %d of %d readings",
			mode, stats.Unmatched, stats.Samples, stats.Ignored, stats.Readings)
	} else {
		monitoring.Stagef("merge", "%s join matched all %d samples", mode, stats.Matched)
	}
	return out, stats
}
