package engine

import (
	"math"
	"time"

	"veloform/internal/store"
)

// CriticalPowerEstimate is the fitted power-duration model: CP is the
// power sustainable indefinitely without continuous fatigue
// accumulation, WPrime the finite anaerobic work capacity (joules)
// depleted above CP and replenished below it.
type CriticalPowerEstimate struct {
	CP         float64 // watts
	WPrime     float64 // joules
	Confidence float64 // 0-1
	ComputedAt time.Time
	DataPoints int
	Decayed    bool
}

// Valid reports whether the estimate satisfies the model invariants.
func (e CriticalPowerEstimate) Valid() bool {
	return e.CP > 0 && e.WPrime > 0
}

// traceSteadinessCV is the maximum coefficient of variation of a power
// trace for a session to count as steady for anchoring purposes.
const traceSteadinessCV = 0.08

// EstimateCriticalPower produces a critical-power estimate from session
// history. It extracts best-effort records over the lookback window,
// fits power = CP + W'/duration by linear regression, raises CP with
// submaximal anchors, substitutes a population-scaled W' when the model
// degenerates, and decays CP when no recent maximal effort supports it.
//
// referencePower seeds the fallback when no fit is possible; pass 0 to
// use the tuning default. The function never fails: insufficient or
// degenerate data yields the fallback estimate with zero regression
// confidence, still subject to anchor improvement.
func EstimateCriticalPower(sessions []store.Session, samples map[int64][]store.Sample, now time.Time, referencePower float64, tn Tuning) CriticalPowerEstimate {
	records := BestEfforts(sessions, samples, now, tn)

	est := CriticalPowerEstimate{ComputedAt: now, DataPoints: len(records)}

	cp, wprime, r2, usedMaximal, ok := fitPowerDuration(records, tn)
	if ok {
		est.CP = cp
		est.WPrime = wprime
		est.Confidence = fitConfidence(r2, len(records), usedMaximal)
	} else {
		ref := referencePower
		if ref <= 0 {
			ref = tn.ReferencePower
		}
		est.CP = tn.FallbackCPFactor * ref
		est.WPrime = 0
		est.Confidence = 0
	}

	est = applyAnchors(est, sessions, samples, now, tn)
	est = substituteWPrime(est, tn)
	est = applyDecay(est, sessions, samples, now, tn)

	return est
}

// fitPowerDuration fits the two-parameter model power = CP + W'*(1/t)
// by least squares against inverse duration. Maximal-effort records are
// preferred when at least MinFitPoints of them exist; otherwise all
// records are used. The fit is rejected on too few points, a singular
// system, or non-positive parameters.
func fitPowerDuration(records []MMPRecord, tn Tuning) (cp, wprime, r2 float64, usedMaximal, ok bool) {
	var maximal []MMPRecord
	for _, r := range records {
		if r.Maximal {
			maximal = append(maximal, r)
		}
	}

	fitSet := records
	if len(maximal) >= tn.MinFitPoints {
		fitSet = maximal
		usedMaximal = true
	}

	n := len(fitSet)
	if n < tn.MinFitPoints {
		return 0, 0, 0, false, false
	}

	var sumX, sumY, sumXX, sumXY float64
	for _, r := range fitSet {
		x := 1 / float64(r.DurationSeconds)
		sumX += x
		sumY += r.Power
		sumXX += x * x
		sumXY += x * r.Power
	}

	denom := float64(n)*sumXX - sumX*sumX
	if math.Abs(denom) < 1e-12 {
		return 0, 0, 0, usedMaximal, false
	}

	wprime = (float64(n)*sumXY - sumX*sumY) / denom
	cp = (sumY - wprime*sumX) / float64(n)
	if cp <= 0 || wprime <= 0 {
		return 0, 0, 0, usedMaximal, false
	}

	// Coefficient of determination.
	meanY := sumY / float64(n)
	var ssRes, ssTot float64
	for _, r := range fitSet {
		pred := cp + wprime/float64(r.DurationSeconds)
		ssRes += (r.Power - pred) * (r.Power - pred)
		ssTot += (r.Power - meanY) * (r.Power - meanY)
	}
	switch {
	case ssTot < 1e-12:
		r2 = 1
	default:
		r2 = clamp(1-ssRes/ssTot, 0, 1)
	}

	return cp, wprime, r2, usedMaximal, true
}

// fitConfidence scales the fit's R-squared down for data scarcity and
// for reliance on non-maximal records.
func fitConfidence(r2 float64, points int, usedMaximal bool) float64 {
	conf := r2
	switch {
	case points <= 3:
		conf *= 0.7
	case points == 4:
		conf *= 0.85
	}
	if !usedMaximal {
		conf *= 0.75
	}
	return clamp(conf, 0, 1)
}

// applyAnchors raises CP using submaximal steady sessions. A sustained
// effort at moderate RPE implies the power was some distance below CP:
// the lower the reported effort, the further below. Each qualifying
// session therefore implies a CP floor of power * proximity(effort).
// Floors are weighted by session duration (longer steady evidence is
// stronger) and the best weighted floor pulls CP up when it exceeds the
// regression result.
func applyAnchors(est CriticalPowerEstimate, sessions []store.Session, samples map[int64][]store.Sample, now time.Time, tn Tuning) CriticalPowerEstimate {
	cutoff := now.AddDate(0, 0, -tn.LookbackDays)

	best := est.CP
	for i := range sessions {
		s := &sessions[i]
		if s.Date.Before(cutoff) || s.Date.After(now) {
			continue
		}
		if s.DurationSeconds < tn.AnchorMinSeconds || s.AvgPower <= 0 {
			continue
		}
		if s.Effort < tn.AnchorMinEffort || s.Effort > tn.AnchorMaxEffort {
			continue
		}
		if !isSteadyEffort(s, samples[s.ID]) {
			continue
		}

		floor := s.AvgPower * proximityFactor(s.Effort, tn)
		if floor <= est.CP {
			continue
		}

		// Weight toward the floor by evidence strength: an hour of
		// steady riding anchors harder than the 15-minute minimum.
		weight := clamp(float64(s.DurationSeconds)/3600, 0.5, 1.0)
		candidate := est.CP + (floor-est.CP)*weight
		if candidate > best {
			best = candidate
		}
	}

	est.CP = best
	return est
}

// proximityFactor interpolates the CP/power proximity multiplier
// linearly across the anchor effort range: sustained power at the low
// end of the range sits well below CP, at the high end essentially at it.
func proximityFactor(effort int, tn Tuning) float64 {
	lo, hi := tn.AnchorMinEffort, tn.AnchorMaxEffort
	if hi <= lo {
		return tn.ProximityAtMax
	}
	t := clamp(float64(effort-lo)/float64(hi-lo), 0, 1)
	return tn.ProximityAtMin + (tn.ProximityAtMax-tn.ProximityAtMin)*t
}

// isSteadyEffort reports whether a session's output was even enough to
// anchor on: a low-variance power trace when one exists, or a declared
// steady style when it does not.
func isSteadyEffort(s *store.Session, trace []store.Sample) bool {
	if len(trace) >= minTracePoints {
		return powerCV(trace) <= traceSteadinessCV
	}
	return s.Style == store.StyleSteady
}

// powerCV computes the coefficient of variation of trace power.
func powerCV(trace []store.Sample) float64 {
	var sum float64
	for _, p := range trace {
		sum += p.Power
	}
	mean := sum / float64(len(trace))
	if mean <= 0 {
		return math.Inf(1)
	}

	var ss float64
	for _, p := range trace {
		d := p.Power - mean
		ss += d * d
	}
	return math.Sqrt(ss/float64(len(trace))) / mean
}

// substituteWPrime replaces an unset or implausibly small W' with a
// population-scaled value. All-steady training histories leave the
// regression nothing to estimate anaerobic capacity from, so the model
// degenerates toward zero; the substitution keeps the estimate usable
// at the price of a confidence penalty.
func substituteWPrime(est CriticalPowerEstimate, tn Tuning) CriticalPowerEstimate {
	if est.CP <= 0 {
		return est
	}

	// Plausibility floor: a fifth of the population ratio.
	minPlausible := est.CP * tn.WPrimeCPRatio * 0.2
	if est.WPrime >= minPlausible {
		return est
	}

	hadFit := est.WPrime > 0
	est.WPrime = est.CP * tn.WPrimeCPRatio
	if hadFit {
		est.Confidence = clamp(est.Confidence*0.85, 0, 1)
	}
	return est
}

// applyDecay shrinks CP when no maximal effort has confirmed it
// recently. Past the grace period CP loses DecayPerWeek per week and
// the confidence multiplier is halved once. With history but no
// qualifying maximal effort at all, the oldest session marks the start
// of the drought; with no history there is nothing to decay from.
func applyDecay(est CriticalPowerEstimate, sessions []store.Session, samples map[int64][]store.Sample, now time.Time, tn Tuning) CriticalPowerEstimate {
	if len(sessions) == 0 || est.CP <= 0 {
		return est
	}

	var lastMaximal, oldest time.Time
	for i := range sessions {
		s := &sessions[i]
		if oldest.IsZero() || s.Date.Before(oldest) {
			oldest = s.Date
		}
		if s.Effort < tn.MaximalEffort {
			continue
		}
		if !reachedNearCP(s, samples[s.ID], est.CP) {
			continue
		}
		if s.Date.After(lastMaximal) {
			lastMaximal = s.Date
		}
	}

	since := lastMaximal
	if since.IsZero() {
		since = oldest
	}

	days := now.Sub(since).Hours() / 24
	if days <= float64(tn.DecayGraceDays) {
		return est
	}

	weeksOver := (days - float64(tn.DecayGraceDays)) / 7
	est.CP *= math.Pow(1-tn.DecayPerWeek, weeksOver)
	est.Confidence = clamp(est.Confidence*0.5, 0, 1)
	est.Decayed = true
	return est
}

// reachedNearCP reports whether the session touched at least 90% of the
// current CP: best three-minute window power when a trace exists,
// session average otherwise.
func reachedNearCP(s *store.Session, trace []store.Sample, cp float64) bool {
	threshold := 0.9 * cp
	if len(trace) >= minTracePoints {
		return windowMaxPower(trace, 180) >= threshold
	}
	return s.AvgPower >= threshold
}
