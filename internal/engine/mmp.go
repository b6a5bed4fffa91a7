package engine

import (
	"time"

	"veloform/internal/store"
)

// MMPRecord is a mean-maximal-power record: the best average power
// sustained for a target duration within the lookback window. Records
// are derived from session history on demand and never persisted.
type MMPRecord struct {
	DurationSeconds int
	Power           float64 // watts
	Date            time.Time
	Effort          int  // reported RPE of the source session
	Maximal         bool // effort at or above the maximal threshold
}

// BestEfforts extracts the best mean-maximal-power record for each
// target duration from the sessions inside the lookback window ending
// at now. When a session has a high-resolution trace the record comes
// from a sliding-window maximum over the trace; otherwise the plain
// session average stands in, but only when the session is at least as
// long as the target, which makes it a necessarily conservative
// substitute.
func BestEfforts(sessions []store.Session, samples map[int64][]store.Sample, now time.Time, tn Tuning) []MMPRecord {
	cutoff := now.AddDate(0, 0, -tn.LookbackDays)

	var records []MMPRecord
	for _, target := range TargetDurations {
		var best *MMPRecord
		for i := range sessions {
			s := &sessions[i]
			if s.Date.Before(cutoff) || s.Date.After(now) {
				continue
			}

			var power float64
			if trace := samples[s.ID]; len(trace) >= minTracePoints {
				power = windowMaxPower(trace, target)
			} else if s.DurationSeconds >= target {
				power = s.AvgPower
			}
			if power <= 0 {
				continue
			}

			if best == nil || power > best.Power {
				best = &MMPRecord{
					DurationSeconds: target,
					Power:           power,
					Date:            s.Date,
					Effort:          s.Effort,
					Maximal:         s.Effort >= tn.MaximalEffort,
				}
			}
		}
		if best != nil {
			records = append(records, *best)
		}
	}

	return records
}

// windowMaxPower finds the best average power over any contiguous
// window of at least target seconds in an evenly sampled trace.
// Runs in O(n) using a running window sum.
func windowMaxPower(trace []store.Sample, target int) float64 {
	if len(trace) < 2 {
		return 0
	}

	interval := trace[1].TimeOffset - trace[0].TimeOffset
	if interval <= 0 {
		return 0
	}

	window := target / interval
	if target%interval != 0 {
		window++
	}
	if window < 1 {
		window = 1
	}
	if window > len(trace) {
		return 0
	}

	var sum float64
	for i := 0; i < window; i++ {
		sum += trace[i].Power
	}
	best := sum

	for i := window; i < len(trace); i++ {
		sum += trace[i].Power - trace[i-window].Power
		if sum > best {
			best = sum
		}
	}

	return best / float64(window)
}
