package engine

import (
	"math"
	"strconv"
	"strings"

	"veloform/internal/store"
)

// minTracePoints is the fewest samples worth running the deficit model on;
// below this the fallback path is more trustworthy than the trace.
const minTracePoints = 6

// SessionCost converts a session into a dimensionless daily cost,
// normalized to roughly a 0-100 range for a heavy session. When a
// high-resolution power trace is available the cost is integrated
// through an anaerobic-capacity balance model; otherwise the estimate
// falls back to the average-power heuristics in FallbackCost.
//
// Zero or negative power and duration produce zero cost, not an error.
// The caller must supply a valid estimate (CP > 0, W' > 0).
func SessionCost(s store.Session, samples []store.Sample, est CriticalPowerEstimate, tn Tuning) float64 {
	if len(samples) >= minTracePoints {
		return TraceCost(samples, est, tn)
	}
	return FallbackCost(s.AvgPower, s.DurationSeconds, s.Style, s.WorkRest, est, tn)
}

// TraceCost integrates instantaneous cost over a power trace.
//
// An acute deficit is tracked exactly like a W' balance: above CP it
// accumulates at (power - CP) per second, capped at W'; below CP it
// recovers in proportion to how depleted the capacity currently is.
// Instantaneous cost is power * (1 + gain * deficit/W'), so work done
// while depleted counts more than the same watts done fresh.
func TraceCost(samples []store.Sample, est CriticalPowerEstimate, tn Tuning) float64 {
	if len(samples) < 2 || est.CP <= 0 || est.WPrime <= 0 {
		return 0
	}

	var deficit, total float64
	for i := 1; i < len(samples); i++ {
		dt := float64(samples[i].TimeOffset - samples[i-1].TimeOffset)
		if dt <= 0 {
			continue
		}
		power := samples[i].Power
		if power < 0 {
			power = 0
		}

		if power > est.CP {
			deficit += (power - est.CP) * dt
			if deficit > est.WPrime {
				deficit = est.WPrime
			}
		} else if deficit > 0 {
			deficit -= (est.CP - power) * dt * (deficit / est.WPrime)
			if deficit < 0 {
				deficit = 0
			}
		}

		instant := power * (1 + tn.DeficitGain*deficit/est.WPrime)
		total += instant * dt
	}

	if total <= 0 {
		return 0
	}
	return total / tn.CostScale
}

// FallbackCost estimates daily cost from average power alone, used when
// no trace exists and for every simulated day. At equal average power,
// variable-intensity work costs more than steady work because of
// repeated capacity depletion, which the style multipliers approximate.
func FallbackCost(avgPower float64, durationSeconds int, style, workRest string, est CriticalPowerEstimate, tn Tuning) float64 {
	if avgPower <= 0 || durationSeconds <= 0 {
		return 0
	}

	base := avgPower * float64(durationSeconds)

	var factor float64
	switch style {
	case store.StyleInterval:
		factor = intervalFactor(workRest, tn)
	case store.StyleSteady, "":
		factor = steadyFactor(avgPower, est.CP, tn)
	default:
		// Custom and unclassified block sessions get a flat moderate
		// multiplier; block composition is not inferred.
		factor = tn.CustomFactor
	}

	return base * factor / tn.CostScale
}

// steadyFactor applies a mild intensity boost once average power climbs
// past the boost floor. The factor never drops below 1 so near-threshold
// riding is never cheaper than the raw work product.
func steadyFactor(avgPower, cp float64, tn Tuning) float64 {
	if cp <= 0 || avgPower <= tn.SteadyBoostFloor*cp {
		return 1
	}
	f := math.Pow(avgPower/cp, tn.SteadyBoostExp)
	if f < 1 {
		return 1
	}
	return f
}

// intervalFactor maps a declared work:rest ratio onto a variability
// multiplier. Denser work relative to rest means deeper repeated
// depletion, so the factor grows from IntervalMin toward IntervalMax.
// An unparseable or missing ratio uses the midpoint.
func intervalFactor(workRest string, tn Tuning) float64 {
	ratio, ok := ParseWorkRest(workRest)
	if !ok {
		return (tn.IntervalMin + tn.IntervalMax) / 2
	}

	// Ratios at or below 1:2 sit at the floor, 3:1 and beyond at the
	// ceiling, linear in between.
	const loRatio, hiRatio = 0.5, 3.0
	t := (ratio - loRatio) / (hiRatio - loRatio)
	return tn.IntervalMin + (tn.IntervalMax-tn.IntervalMin)*clamp(t, 0, 1)
}

// ParseWorkRest parses a "work:rest" ratio string such as "4:1" or
// "30:90" into a single work/rest quotient.
func ParseWorkRest(s string) (float64, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	work, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	rest, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || work <= 0 || rest <= 0 {
		return 0, false
	}
	return work / rest, true
}
