package engine

import (
	"math"
	"testing"

	"veloform/internal/store"
)

func testEstimate(cp, wprime float64) CriticalPowerEstimate {
	return CriticalPowerEstimate{CP: cp, WPrime: wprime, Confidence: 0.9}
}

// makeTrace builds an evenly sampled power trace. Each entry of powers
// fills one interval.
func makeTrace(intervalSeconds int, powers ...float64) []store.Sample {
	trace := make([]store.Sample, len(powers))
	for i, p := range powers {
		trace[i] = store.Sample{TimeOffset: i * intervalSeconds, Power: p}
	}
	return trace
}

// steadyTrace builds a constant-power trace of the given duration.
func steadyTrace(power float64, durationSeconds, intervalSeconds int) []store.Sample {
	n := durationSeconds/intervalSeconds + 1
	trace := make([]store.Sample, n)
	for i := range trace {
		trace[i] = store.Sample{TimeOffset: i * intervalSeconds, Power: power}
	}
	return trace
}

func TestFallbackCost(t *testing.T) {
	tn := DefaultTuning()

	tests := []struct {
		name     string
		power    float64
		duration int
		style    string
		workRest string
		est      CriticalPowerEstimate
		expected float64
		delta    float64
	}{
		{
			name:     "steady near threshold stays at raw work product",
			power:    200,
			duration: 1200,
			style:    store.StyleSteady,
			est:      testEstimate(220, 15000),
			// 200 * 1200 / 30000
			expected: 8.0,
			delta:    0.0001,
		},
		{
			name:     "steady above CP gets intensity boost",
			power:    250,
			duration: 1200,
			style:    store.StyleSteady,
			est:      testEstimate(220, 15000),
			// factor = (250/220)^0.3 = 1.039
			expected: 250 * 1200 / 30000.0 * math.Pow(250.0/220.0, 0.3),
			delta:    0.01,
		},
		{
			name:     "boost never reduces cost below raw product",
			power:    205,
			duration: 1200,
			style:    store.StyleSteady,
			est:      testEstimate(220, 15000),
			// 205 > 0.9*220 but (205/220)^0.3 < 1, so factor clamps to 1
			expected: 8.2,
			delta:    0.0001,
		},
		{
			name:     "interval with dense work:rest",
			power:    200,
			duration: 1200,
			style:    store.StyleInterval,
			workRest: "4:1",
			est:      testEstimate(220, 15000),
			// ratio 4.0 clamps at the ceiling factor 1.45
			expected: 8.0 * 1.45,
			delta:    0.001,
		},
		{
			name:     "interval with sparse work:rest",
			power:    200,
			duration: 1200,
			style:    store.StyleInterval,
			workRest: "1:2",
			est:      testEstimate(220, 15000),
			// ratio 0.5 sits at the floor factor 1.2
			expected: 8.0 * 1.2,
			delta:    0.001,
		},
		{
			name:     "interval with unparseable ratio uses midpoint",
			power:    200,
			duration: 1200,
			style:    store.StyleInterval,
			workRest: "hard",
			est:      testEstimate(220, 15000),
			expected: 8.0 * 1.325,
			delta:    0.001,
		},
		{
			name:     "custom style uses flat multiplier",
			power:    200,
			duration: 1200,
			style:    store.StyleCustom,
			est:      testEstimate(220, 15000),
			expected: 8.0 * 1.25,
			delta:    0.001,
		},
		{
			name:     "zero power is free",
			power:    0,
			duration: 1200,
			style:    store.StyleSteady,
			est:      testEstimate(220, 15000),
			expected: 0,
		},
		{
			name:     "negative duration is free",
			power:    200,
			duration: -5,
			style:    store.StyleSteady,
			est:      testEstimate(220, 15000),
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FallbackCost(tt.power, tt.duration, tt.style, tt.workRest, tt.est, tn)
			if math.Abs(got-tt.expected) > tt.delta {
				t.Errorf("FallbackCost() = %v, want %v (±%v)", got, tt.expected, tt.delta)
			}
		})
	}
}

func TestFallbackCostIntervalCostsMoreThanSteady(t *testing.T) {
	tn := DefaultTuning()
	est := testEstimate(250, 20000)

	steady := FallbackCost(180, 3600, store.StyleSteady, "", est, tn)
	interval := FallbackCost(180, 3600, store.StyleInterval, "2:1", est, tn)

	if steady <= 0 {
		t.Fatalf("steady cost = %v, want > 0", steady)
	}
	if interval <= steady {
		t.Errorf("interval cost %v should exceed steady cost %v at equal average power", interval, steady)
	}
}

func TestTraceCost(t *testing.T) {
	tn := DefaultTuning()

	tests := []struct {
		name    string
		trace   []store.Sample
		est     CriticalPowerEstimate
		checkFn func(t *testing.T, cost float64)
	}{
		{
			name:  "steady sub-CP trace matches raw work integral",
			trace: steadyTrace(200, 3600, 5),
			est:   testEstimate(250, 20000),
			checkFn: func(t *testing.T, cost float64) {
				// No deficit ever accumulates, so cost is power*time/scale.
				want := 200.0 * 3600 / 30000
				if math.Abs(cost-want) > 0.1 {
					t.Errorf("cost = %v, want ~%v", cost, want)
				}
			},
		},
		{
			name: "supra-CP surges amplify cost",
			trace: func() []store.Sample {
				// Alternate 30s at 350W / 30s at 150W for 30 minutes.
				powers := make([]float64, 360)
				for i := range powers {
					if (i/6)%2 == 0 {
						powers[i] = 350
					} else {
						powers[i] = 150
					}
				}
				return makeTrace(5, powers...)
			}(),
			est: testEstimate(250, 20000),
			checkFn: func(t *testing.T, cost float64) {
				// Average power is 250; a steady 250W of the same length
				// costs 250*1795/30000 ≈ 15. The surging version must
				// cost more because work done deep in deficit is
				// amplified.
				steady := TraceCost(steadyTrace(250, 1795, 5), testEstimate(250, 20000), DefaultTuning())
				if cost <= steady {
					t.Errorf("surging cost %v should exceed steady cost %v", cost, steady)
				}
			},
		},
		{
			name:  "deficit caps at W'",
			trace: steadyTrace(500, 1800, 5),
			est:   testEstimate(250, 10000),
			checkFn: func(t *testing.T, cost float64) {
				// Half an hour at double CP: deficit saturates, so the
				// amplification factor tops out at 1+gain.
				maxPossible := 500.0 * (1 + 1.5) * 1800 / 30000
				if cost > maxPossible+0.1 {
					t.Errorf("cost = %v, exceeds saturated bound %v", cost, maxPossible)
				}
				if cost <= 500.0*1800/30000 {
					t.Errorf("cost = %v, should exceed unamplified work product", cost)
				}
			},
		},
		{
			name:  "single sample returns zero",
			trace: makeTrace(5, 200),
			est:   testEstimate(250, 20000),
			checkFn: func(t *testing.T, cost float64) {
				if cost != 0 {
					t.Errorf("cost = %v, want 0 for a single sample", cost)
				}
			},
		},
		{
			name:  "invalid estimate returns zero",
			trace: steadyTrace(200, 600, 5),
			est:   CriticalPowerEstimate{},
			checkFn: func(t *testing.T, cost float64) {
				if cost != 0 {
					t.Errorf("cost = %v, want 0 for invalid estimate", cost)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cost := TraceCost(tt.trace, tt.est, tn)
			if cost < 0 {
				t.Fatalf("TraceCost() = %v, must be non-negative", cost)
			}
			tt.checkFn(t, cost)
		})
	}
}

func TestSessionCostPrefersTrace(t *testing.T) {
	tn := DefaultTuning()
	est := testEstimate(250, 20000)

	s := store.Session{AvgPower: 200, DurationSeconds: 3600, Style: store.StyleSteady}
	trace := steadyTrace(200, 3600, 5)

	withTrace := SessionCost(s, trace, est, tn)
	without := SessionCost(s, nil, est, tn)

	// Both paths should land near the raw work product for a steady
	// sub-CP hour; the trace path integrates it sample by sample.
	if math.Abs(withTrace-without) > 0.2 {
		t.Errorf("trace cost %v and fallback cost %v diverge for the same steady session", withTrace, without)
	}
}

func TestParseWorkRest(t *testing.T) {
	tests := []struct {
		in    string
		ratio float64
		ok    bool
	}{
		{"4:1", 4, true},
		{"30:90", 1.0 / 3.0, true},
		{" 2 : 1 ", 2, true},
		{"1:0", 0, false},
		{"", 0, false},
		{"hard", 0, false},
		{"-1:2", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ratio, ok := ParseWorkRest(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseWorkRest(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && math.Abs(ratio-tt.ratio) > 0.0001 {
				t.Errorf("ParseWorkRest(%q) = %v, want %v", tt.in, ratio, tt.ratio)
			}
		})
	}
}
