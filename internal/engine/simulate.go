package engine

import (
	"math/rand"
	"sort"
)

// PlannedWeek is one week of a prescribed training program: the target
// power and duration of each training day that week, plus the session
// style the cost fallback should assume.
type PlannedWeek struct {
	Power           float64 // watts
	DurationSeconds int
	Style           string
	WorkRest        string
}

// Band holds the percentile spread of a metric across trials.
type Band struct {
	Min    float64
	P25    float64
	Median float64
	P75    float64
	Max    float64
}

// WeekOutcome aggregates one simulated week across all trials.
type WeekOutcome struct {
	Week         int // 1-based
	PlannedPower float64
	PlannedWork  float64 // kilojoules per planned training day
	Fatigue      Band    // combined weighted reservoir load, 0-100
	Readiness    Band    // 0-100
}

// SimulationResult is the full projection of a program.
type SimulationResult struct {
	Weeks  []WeekOutcome
	Trials int
}

// minSimTrials keeps the percentile bands statistically meaningful.
const minSimTrials = 10000

// Simulate runs randomized playthroughs of a prescribed program through
// the cost estimator and chronic state model and aggregates the
// end-of-week fatigue and readiness distributions into percentile
// bands. Each trial independently draws its training days per week,
// perturbs planned power, and randomizes daily recovery efficiency, so
// the bands reflect plausible execution noise rather than a single
// deterministic path.
//
// The caller owns the random source, which makes runs reproducible
// under a fixed seed. Trials below the minimum are raised to it. The
// starting state is copied per trial; the live state is never touched.
func Simulate(plan []PlannedWeek, start ChronicFatigueState, est CriticalPowerEstimate, trials int, rng *rand.Rand, tn Tuning) SimulationResult {
	if len(plan) == 0 {
		return SimulationResult{}
	}
	if trials < minSimTrials {
		trials = minSimTrials
	}

	weeks := len(plan)
	fatigue := make([][]float64, weeks)
	readiness := make([][]float64, weeks)
	for w := range plan {
		fatigue[w] = make([]float64, trials)
		readiness[w] = make([]float64, trials)
	}

	daysSpan := tn.MaxTrialDays - tn.MinTrialDays + 1
	phiSpan := tn.RecoveryJitterH - tn.RecoveryJitterL

	var trainingDays [7]bool
	for t := 0; t < trials; t++ {
		st := start
		for w, week := range plan {
			// Pick 2-4 distinct training days for the week.
			n := tn.MinTrialDays + rng.Intn(daysSpan)
			for d := range trainingDays {
				trainingDays[d] = false
			}
			for picked := 0; picked < n; {
				d := rng.Intn(7)
				if !trainingDays[d] {
					trainingDays[d] = true
					picked++
				}
			}

			for d := 0; d < 7; d++ {
				var cost float64
				if trainingDays[d] {
					jitter := 1 + tn.PowerJitter*(2*rng.Float64()-1)
					power := week.Power * jitter
					cost = FallbackCost(power, week.DurationSeconds, week.Style, week.WorkRest, est, tn)
				}
				phi := tn.RecoveryJitterL + phiSpan*rng.Float64()
				st = Advance(st, cost, phi, st.UpdatedAt.AddDate(0, 0, 1), tn)
			}

			fatigue[w][t] = FatigueLoad(st, tn)
			readiness[w][t] = float64(Readiness(st, tn))
		}
	}

	result := SimulationResult{Trials: trials}
	for w, week := range plan {
		result.Weeks = append(result.Weeks, WeekOutcome{
			Week:         w + 1,
			PlannedPower: week.Power,
			PlannedWork:  week.Power * float64(week.DurationSeconds) / 1000,
			Fatigue:      percentileBand(fatigue[w]),
			Readiness:    percentileBand(readiness[w]),
		})
	}
	return result
}

// percentileBand sorts trial outcomes and extracts the band. The
// ordering min <= p25 <= median <= p75 <= max holds by construction.
func percentileBand(values []float64) Band {
	if len(values) == 0 {
		return Band{}
	}
	sort.Float64s(values)
	return Band{
		Min:    values[0],
		P25:    quantile(values, 0.25),
		Median: quantile(values, 0.5),
		P75:    quantile(values, 0.75),
		Max:    values[len(values)-1],
	}
}

// quantile reads the q-th quantile from sorted values by nearest rank.
func quantile(sorted []float64, q float64) float64 {
	idx := int(q * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
