package engine

import "math"

// PredictedEffort models the RPE the athlete should have reported for a
// session of the given average power and duration under the current
// estimate. Above CP the prediction is driven by how much of the
// anaerobic capacity the session drained; below CP it follows the
// relative intensity with a small duration drift, since even sub-CP
// riding feels harder as it stretches out.
func PredictedEffort(avgPower float64, durationSeconds int, est CriticalPowerEstimate, tn Tuning) float64 {
	if avgPower <= 0 || durationSeconds <= 0 || est.CP <= 0 {
		return 1
	}

	var rpe float64
	if avgPower > est.CP && est.WPrime > 0 {
		depletion := (avgPower - est.CP) * float64(durationSeconds) / est.WPrime
		rpe = 7 + 3*math.Min(1, depletion)
	} else {
		intensity := avgPower / est.CP
		durDrift := 0.85 + 0.15*math.Min(1, float64(durationSeconds)/3600)
		rpe = 10 * math.Pow(intensity, 1.5) * durDrift
	}

	return clamp(rpe, 1, 10)
}

// CorrectionOutcome is the self-correction verdict for one completed
// session.
type CorrectionOutcome struct {
	Gap          float64 // reported minus predicted effort
	Mismatch     bool    // gap magnitude beyond the threshold
	PenaltyLoad  float64 // temporary fast-reservoir load, cleared by the next day's decay
	DowngradeCP  bool    // a consistent mismatch run confirmed; CP should drop
	DowngradedCP float64 // the new CP when DowngradeCP is set
}

// EvaluateSession compares the reported effort for a completed session
// against the model's prediction. A gap beyond the threshold earns a
// temporary fast-reservoir penalty proportional to the gap. When the
// current gap and the most recent prior gaps form a run of
// MismatchRun consistent-direction mismatches, the estimate's CP is
// downgraded by DowngradeFraction - the model's reference was too
// optimistic (or pessimistic) and must be forced conservative until new
// maximal-effort data justifies otherwise.
//
// priorGaps must be ordered most recent first and should be cleared by
// the caller after a downgrade fires, which rate-limits the adjustment
// to once per run.
func EvaluateSession(reportedEffort int, predicted float64, priorGaps []float64, est CriticalPowerEstimate, tn Tuning) CorrectionOutcome {
	gap := float64(reportedEffort) - predicted
	out := CorrectionOutcome{Gap: gap}

	if math.Abs(gap) <= tn.MismatchThreshold {
		return out
	}

	out.Mismatch = true
	out.PenaltyLoad = math.Abs(gap) * tn.PenaltyPerPoint

	if consistentRun(gap, priorGaps, tn) {
		out.DowngradeCP = true
		out.DowngradedCP = est.CP * (1 - tn.DowngradeFraction)
	}

	return out
}

// consistentRun reports whether the current gap plus the immediately
// preceding gaps form MismatchRun same-direction mismatches.
func consistentRun(gap float64, priorGaps []float64, tn Tuning) bool {
	needed := tn.MismatchRun - 1
	if len(priorGaps) < needed {
		return false
	}

	for i := 0; i < needed; i++ {
		prior := priorGaps[i]
		if math.Abs(prior) <= tn.MismatchThreshold {
			return false
		}
		if (prior > 0) != (gap > 0) {
			return false
		}
	}
	return true
}
