// Package engine implements the physiological state-estimation and
// projection core: critical-power fitting, daily cost estimation, the
// two-reservoir chronic fatigue model, perceived-effort self-correction
// and Monte Carlo program projection.
//
// Every function takes explicit state snapshots and returns new values;
// the package holds no shared mutable state, which is what lets the
// simulation engine run many independent trials over the same code path
// the live computation uses.
package engine

// Tuning collects the model's empirical constants. They are asserted
// defaults rather than derived truths, so callers can recalibrate any
// of them through configuration instead of recompiling.
type Tuning struct {
	// Cost estimation
	DeficitGain      float64 // cost amplification at full anaerobic depletion
	CostScale        float64 // joule-equivalents per cost point
	SteadyBoostFloor float64 // fraction of CP above which steady cost gets an intensity factor
	SteadyBoostExp   float64 // exponent of the steady intensity factor
	CustomFactor     float64 // flat multiplier for unclassified variable sessions
	IntervalMin      float64 // variability factor at very light work:rest ratios
	IntervalMax      float64 // variability factor at very dense work:rest ratios

	// Critical-power estimation
	LookbackDays     int     // session history window for best-effort extraction
	MinFitPoints     int     // minimum records for a regression fit
	MaximalEffort    int     // RPE at or above which an effort counts as maximal
	AnchorMinSeconds int     // minimum duration for a submaximal anchor session
	AnchorMinEffort  int     // lower RPE bound for anchor sessions
	AnchorMaxEffort  int     // upper RPE bound for anchor sessions
	ProximityAtMin   float64 // CP/power proximity factor at AnchorMinEffort
	ProximityAtMax   float64 // CP/power proximity factor at AnchorMaxEffort
	WPrimeCPRatio    float64 // population W'/CP ratio (seconds) for substitution
	DecayGraceDays   int     // days without a maximal effort before CP decays
	DecayPerWeek     float64 // fractional CP shrink per week past the grace period
	FallbackCPFactor float64 // CP as a fraction of reference power when no history exists
	ReferencePower   float64 // default reference power when the caller supplies none

	// Chronic state
	TauFast          float64 // fast (metabolic) reservoir time constant, days
	TauSlow          float64 // slow (structural) reservoir time constant, days
	StructuralWeight float64 // fraction of daily cost routed into the slow reservoir
	CapFast          float64 // fast reservoir capacity
	CapSlow          float64 // slow reservoir capacity
	FastWeight       float64 // fast share of the readiness combination
	SlowWeight       float64 // slow share of the readiness combination
	LowRatio         float64 // reservoir ratio below which a compartment reads "low"
	HighRatio        float64 // reservoir ratio above which a compartment reads "high"
	DetrainingTau    float64 // Gaussian recency scale for the detraining penalty, days
	DetrainingMemory int     // number of recent sessions the penalty considers

	// Self-correction
	MismatchThreshold float64 // RPE gap beyond which a session counts as a mismatch
	MismatchRun       int     // consecutive same-direction mismatches that force a downgrade
	DowngradeFraction float64 // CP reduction applied on a confirmed run
	PenaltyPerPoint   float64 // fast-reservoir load injected per RPE point of gap

	// Simulation
	MinTrialDays    int     // fewest training days a simulated week can draw
	MaxTrialDays    int     // most training days a simulated week can draw
	PowerJitter     float64 // planned-power perturbation half-range (fraction)
	RecoveryJitterL float64 // lower bound of the per-day randomized recovery efficiency
	RecoveryJitterH float64 // upper bound of the per-day randomized recovery efficiency
}

// DefaultTuning returns the model defaults.
func DefaultTuning() Tuning {
	return Tuning{
		DeficitGain:      1.5,
		CostScale:        30000,
		SteadyBoostFloor: 0.90,
		SteadyBoostExp:   0.3,
		CustomFactor:     1.25,
		IntervalMin:      1.2,
		IntervalMax:      1.45,

		LookbackDays:     60,
		MinFitPoints:     3,
		MaximalEffort:    9,
		AnchorMinSeconds: 900,
		AnchorMinEffort:  4,
		AnchorMaxEffort:  8,
		ProximityAtMin:   1.15,
		ProximityAtMax:   1.0,
		WPrimeCPRatio:    90,
		DecayGraceDays:   28,
		DecayPerWeek:     0.005,
		FallbackCPFactor: 0.9,
		ReferencePower:   200,

		TauFast:          2,
		TauSlow:          15,
		StructuralWeight: 1.0,
		CapFast:          100,
		CapSlow:          100,
		FastWeight:       0.6,
		SlowWeight:       0.4,
		LowRatio:         0.3,
		HighRatio:        0.6,
		DetrainingTau:    42,
		DetrainingMemory: 5,

		MismatchThreshold: 2,
		MismatchRun:       3,
		DowngradeFraction: 0.02,
		PenaltyPerPoint:   5,

		MinTrialDays:    2,
		MaxTrialDays:    4,
		PowerJitter:     0.05,
		RecoveryJitterL: 0.7,
		RecoveryJitterH: 1.3,
	}
}

// TargetDurations are the best-effort durations (seconds) the
// critical-power fit is built from: 3, 5, 12, 20 and 40 minutes.
var TargetDurations = []int{180, 300, 720, 1200, 2400}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
