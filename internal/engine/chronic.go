package engine

import (
	"math"
	"time"

	"veloform/internal/store"
)

// ChronicFatigueState holds the two decaying fatigue reservoirs. The
// fast compartment tracks metabolic fatigue on a ~2 day timescale, the
// slow compartment structural fatigue on a ~15 day timescale. Both are
// bounded by their capacities. Values are snapshots: Advance and the
// correction functions return new states rather than mutating.
type ChronicFatigueState struct {
	Fast      float64
	Slow      float64
	UpdatedAt time.Time
}

// Advance applies one calendar day's state transition: each reservoir
// decays exponentially on its own time constant, then the day's cost is
// injected. The recovery efficiency phi speeds or slows the fast
// compartment's decay (a well-slept day clears metabolic fatigue
// faster); pass 1.0 when no subjective data exists for the day.
func Advance(st ChronicFatigueState, cost, phi float64, day time.Time, tn Tuning) ChronicFatigueState {
	phi = clamp(phi, 0.5, 1.5)
	if cost < 0 {
		cost = 0
	}

	fast := st.Fast*math.Exp(-1/(tn.TauFast*phi)) + cost
	slow := st.Slow*math.Exp(-1/tn.TauSlow) + cost*tn.StructuralWeight

	return ChronicFatigueState{
		Fast:      clamp(fast, 0, tn.CapFast),
		Slow:      clamp(slow, 0, tn.CapSlow),
		UpdatedAt: day,
	}
}

// FatigueLoad is the combined weighted reservoir load on a 0-100 scale,
// the quantity readiness is the complement of.
func FatigueLoad(st ChronicFatigueState, tn Tuning) float64 {
	load := 100 * (tn.FastWeight*st.Fast/tn.CapFast + tn.SlowWeight*st.Slow/tn.CapSlow)
	return math.Min(100, load)
}

// Readiness converts reservoir state into a 0-100 training-preparedness
// score. Empty reservoirs score 100, full ones 0.
func Readiness(st ChronicFatigueState, tn Tuning) int {
	r := int(math.Round(100 - FatigueLoad(st, tn)))
	if r < 0 {
		r = 0
	}
	if r > 100 {
		r = 100
	}
	return r
}

// Interpretation pairs a readiness zone with a training recommendation.
type Interpretation struct {
	Zone           string
	Recommendation string
}

// Interpret classifies the current state with a fixed decision table
// over readiness and the two reservoir ratios.
func Interpret(st ChronicFatigueState, tn Tuning) Interpretation {
	fastRatio := st.Fast / tn.CapFast
	slowRatio := st.Slow / tn.CapSlow

	fastLow := fastRatio < tn.LowRatio
	slowLow := slowRatio < tn.LowRatio
	fastHigh := fastRatio > tn.HighRatio
	slowHigh := slowRatio > tn.HighRatio

	switch {
	case fastLow && slowLow:
		return Interpretation{
			Zone:           "green light",
			Recommendation: "Fully recovered - high intensity work will land well today.",
		}
	case fastHigh && slowHigh:
		return Interpretation{
			Zone:           "rest",
			Recommendation: "Both systems are loaded - take a rest day.",
		}
	case fastHigh && slowLow:
		return Interpretation{
			Zone:           "metabolic fatigue",
			Recommendation: "Acute load is high but the body is structurally fresh - easy endurance only.",
		}
	case slowHigh && fastLow:
		return Interpretation{
			Zone:           "structural fatigue",
			Recommendation: "Accumulated load needs absorbing - active recovery, keep intensity out.",
		}
	default:
		return Interpretation{
			Zone:           "recovering",
			Recommendation: "Moderate training is fine - hold off on peak efforts.",
		}
	}
}

// RecoveryEfficiency derives the day's recovery multiplier phi from the
// questionnaire: sleep, nutrition and stress are averaged on their 1-5
// scales (stress inverted, since high stress impairs recovery) and the
// mean is mapped linearly onto [0.5, 1.5]. Unanswered fields are
// skipped; with nothing answered the multiplier is neutral.
func RecoveryEfficiency(q store.QuestionnaireResponse) float64 {
	var sum float64
	var n int
	if q.Sleep > 0 {
		sum += float64(q.Sleep)
		n++
	}
	if q.Nutrition > 0 {
		sum += float64(q.Nutrition)
		n++
	}
	if q.Stress > 0 {
		sum += float64(6 - q.Stress)
		n++
	}
	if n == 0 {
		return 1.0
	}

	mean := sum / float64(n) // 1..5
	return clamp(0.5+(mean-1)/4, 0.5, 1.5)
}

// ApplyCorrection nudges the reservoirs toward the athlete's subjective
// report when the model clearly disagrees with the body. Extreme
// soreness while the slow reservoir reads nearly empty injects the slow
// compartment toward half capacity; extreme exhaustion against a calm
// fast compartment pushes the fast reservoir up by 30% of capacity.
// Returns the (possibly unchanged) state and whether a correction was
// applied; the caller enforces the at-most-once-per-day rate limit.
func ApplyCorrection(st ChronicFatigueState, q store.QuestionnaireResponse, tn Tuning) (ChronicFatigueState, bool) {
	applied := false

	// Bottom two of the 5-point scale reads as extreme on the
	// higher-is-worse axes, so soreness >= 4; energy is
	// higher-is-better, so exhaustion is energy 1 or 2.
	if q.Soreness >= 4 && st.Slow < 0.2*tn.CapSlow {
		st.Slow = 0.5 * tn.CapSlow
		applied = true
	}
	if q.Energy > 0 && q.Energy <= 2 && st.Fast < tn.LowRatio*tn.CapFast {
		st.Fast = clamp(st.Fast+0.3*tn.CapFast, 0, tn.CapFast)
		applied = true
	}

	return st, applied
}

// DetrainingMultiplier computes the readiness damping applied after a
// training gap, so a long layoff cannot snap straight back to an
// optimal score. Each of the most recent sessions contributes a
// Gaussian recency multiplier exp(-(days/tau)^2) with harmonically
// decaying relevance (1, 1/2, 1/3, ...); the result is the weighted
// average. sessionDates must be ordered most recent first. With no
// history the multiplier is 1.
func DetrainingMultiplier(sessionDates []time.Time, now time.Time, tn Tuning) float64 {
	if len(sessionDates) == 0 {
		return 1
	}

	limit := tn.DetrainingMemory
	if limit <= 0 {
		limit = 5
	}
	if len(sessionDates) < limit {
		limit = len(sessionDates)
	}

	var weighted, weights float64
	for i := 0; i < limit; i++ {
		days := now.Sub(sessionDates[i]).Hours() / 24
		if days < 0 {
			days = 0
		}
		w := 1 / float64(i+1)
		weighted += w * math.Exp(-(days/tn.DetrainingTau)*(days/tn.DetrainingTau))
		weights += w
	}

	return weighted / weights
}

// AdjustedReadiness scales a readiness score by the detraining
// multiplier, clamped back to the documented range.
func AdjustedReadiness(readiness int, multiplier float64) int {
	r := int(math.Round(float64(readiness) * clamp(multiplier, 0, 1)))
	if r < 0 {
		r = 0
	}
	if r > 100 {
		r = 100
	}
	return r
}
