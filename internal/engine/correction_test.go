package engine

import (
	"math"
	"testing"
)

func TestPredictedEffort(t *testing.T) {
	tn := DefaultTuning()
	est := testEstimate(250, 20000)

	tests := []struct {
		name     string
		power    float64
		duration int
		checkFn  func(t *testing.T, rpe float64)
	}{
		{
			name:     "easy spin predicts low effort",
			power:    125,
			duration: 3600,
			checkFn: func(t *testing.T, rpe float64) {
				if rpe > 5 {
					t.Errorf("rpe = %v, want <= 5 for half of CP", rpe)
				}
			},
		},
		{
			name:     "an hour at CP predicts near-maximal effort",
			power:    250,
			duration: 3600,
			checkFn: func(t *testing.T, rpe float64) {
				if rpe < 8 {
					t.Errorf("rpe = %v, want >= 8 at CP for an hour", rpe)
				}
			},
		},
		{
			name:     "draining the full anaerobic capacity predicts 10",
			power:    350, // 100W over CP; W' empties in 200s
			duration: 220,
			checkFn: func(t *testing.T, rpe float64) {
				if rpe != 10 {
					t.Errorf("rpe = %v, want 10 when W' is fully drained", rpe)
				}
			},
		},
		{
			name:     "short supra-CP surge predicts less than exhaustion",
			power:    300,
			duration: 120,
			checkFn: func(t *testing.T, rpe float64) {
				// 6000 J of a 20000 J capacity: depletion 0.3.
				want := 7 + 3*0.3
				if math.Abs(rpe-want) > 0.001 {
					t.Errorf("rpe = %v, want %v", rpe, want)
				}
			},
		},
		{
			name:     "invalid inputs predict the floor",
			power:    0,
			duration: 3600,
			checkFn: func(t *testing.T, rpe float64) {
				if rpe != 1 {
					t.Errorf("rpe = %v, want 1", rpe)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpe := PredictedEffort(tt.power, tt.duration, est, tn)
			if rpe < 1 || rpe > 10 {
				t.Fatalf("rpe = %v, out of the 1-10 range", rpe)
			}
			tt.checkFn(t, rpe)
		})
	}
}

func TestPredictedEffortMonotonicInPower(t *testing.T) {
	tn := DefaultTuning()
	est := testEstimate(250, 20000)

	prev := 0.0
	for power := 100.0; power <= 300; power += 25 {
		rpe := PredictedEffort(power, 1800, est, tn)
		if rpe < prev {
			t.Errorf("rpe at %vW = %v, fell below rpe at %vW = %v", power, rpe, power-25, prev)
		}
		prev = rpe
	}
}

func TestEvaluateSession(t *testing.T) {
	tn := DefaultTuning()
	est := testEstimate(250, 20000)

	tests := []struct {
		name      string
		reported  int
		predicted float64
		priorGaps []float64
		checkFn   func(t *testing.T, out CorrectionOutcome)
	}{
		{
			name:      "small gap is no mismatch",
			reported:  7,
			predicted: 6,
			checkFn: func(t *testing.T, out CorrectionOutcome) {
				if out.Mismatch {
					t.Error("gap of 1 must not be a mismatch")
				}
				if out.PenaltyLoad != 0 {
					t.Errorf("PenaltyLoad = %v, want 0", out.PenaltyLoad)
				}
			},
		},
		{
			name:      "gap of exactly two is tolerated",
			reported:  8,
			predicted: 6,
			checkFn: func(t *testing.T, out CorrectionOutcome) {
				if out.Mismatch {
					t.Error("gap of exactly the threshold must not be a mismatch")
				}
			},
		},
		{
			name:      "large gap earns a proportional penalty",
			reported:  9,
			predicted: 6,
			checkFn: func(t *testing.T, out CorrectionOutcome) {
				if !out.Mismatch {
					t.Fatal("gap of 3 must be a mismatch")
				}
				if math.Abs(out.PenaltyLoad-15) > 0.001 {
					t.Errorf("PenaltyLoad = %v, want 3 * 5", out.PenaltyLoad)
				}
				if out.DowngradeCP {
					t.Error("a first mismatch must not downgrade CP")
				}
			},
		},
		{
			name:      "second consistent mismatch still holds fire",
			reported:  9,
			predicted: 6,
			priorGaps: []float64{3},
			checkFn: func(t *testing.T, out CorrectionOutcome) {
				if out.DowngradeCP {
					t.Error("two mismatches must not downgrade CP")
				}
			},
		},
		{
			name:      "third consistent mismatch triggers the downgrade",
			reported:  9,
			predicted: 6,
			priorGaps: []float64{3, 3},
			checkFn: func(t *testing.T, out CorrectionOutcome) {
				if !out.DowngradeCP {
					t.Fatal("three consistent mismatches must downgrade CP")
				}
				want := 250 * 0.98
				if math.Abs(out.DowngradedCP-want) > 0.001 {
					t.Errorf("DowngradedCP = %v, want exactly %v", out.DowngradedCP, want)
				}
			},
		},
		{
			name:      "mixed directions break the run",
			reported:  9,
			predicted: 6,
			priorGaps: []float64{-3, 3},
			checkFn: func(t *testing.T, out CorrectionOutcome) {
				if out.DowngradeCP {
					t.Error("opposing gaps must not downgrade CP")
				}
			},
		},
		{
			name:      "a tolerated gap in between breaks the run",
			reported:  9,
			predicted: 6,
			priorGaps: []float64{1, 3},
			checkFn: func(t *testing.T, out CorrectionOutcome) {
				if out.DowngradeCP {
					t.Error("an in-threshold gap must reset the run")
				}
			},
		},
		{
			name:      "downward mismatches also accumulate",
			reported:  3,
			predicted: 7,
			priorGaps: []float64{-4, -3},
			checkFn: func(t *testing.T, out CorrectionOutcome) {
				if !out.DowngradeCP {
					t.Error("consistent overprediction must also downgrade CP")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := EvaluateSession(tt.reported, tt.predicted, tt.priorGaps, est, tn)
			tt.checkFn(t, out)
		})
	}
}
