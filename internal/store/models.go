package store

import "time"

// Declared session styles.
const (
	StyleSteady   = "steady"
	StyleInterval = "interval"
	StyleCustom   = "custom"
)

// Session represents one completed or manually logged workout.
// Immutable once stored except for corrective edits.
type Session struct {
	ID              int64     `db:"id"`
	Date            time.Time `db:"date"`
	AvgPower        float64   `db:"avg_power"`        // watts
	DurationSeconds int       `db:"duration_seconds"` // seconds
	Effort          int       `db:"effort"`           // reported RPE, 1-10
	Style           string    `db:"style"`            // "steady", "interval", "custom" or ""
	WorkRest        string    `db:"work_rest"`        // declared work:rest ratio, e.g. "4:1"
	HasSamples      bool      `db:"has_samples"`
	Notes           string    `db:"notes"`
}

// Sample represents a single point of a session's power trace.
// Traces are evenly sampled (typically every 5 seconds).
type Sample struct {
	SessionID  int64   `db:"session_id"`
	TimeOffset int     `db:"time_offset"` // seconds from session start
	Power      float64 `db:"power"`       // watts
}

// QuestionnaireResponse holds the day's subjective wellness inputs.
// Each field is on a 1-5 ordinal scale; zero means not answered.
// Sleep, nutrition and energy read higher-is-better; stress and
// soreness read higher-is-worse.
type QuestionnaireResponse struct {
	Date      time.Time `db:"date"`
	Sleep     int       `db:"sleep"`
	Nutrition int       `db:"nutrition"`
	Stress    int       `db:"stress"`
	Soreness  int       `db:"soreness"`
	Energy    int       `db:"energy"`
}

// EstimateRecord is a persisted critical-power estimate.
type EstimateRecord struct {
	ID         int64     `db:"id"`
	CP         float64   `db:"cp"`      // watts
	WPrime     float64   `db:"w_prime"` // joules
	Confidence float64   `db:"confidence"`
	DataPoints int       `db:"data_points"`
	Decayed    bool      `db:"decayed"`
	ComputedAt time.Time `db:"computed_at"`
}

// StateRecord is the persisted chronic fatigue state (singleton row).
type StateRecord struct {
	Fast           float64    `db:"fast"`
	Slow           float64    `db:"slow"`
	UpdatedAt      time.Time  `db:"updated_at"`
	LastCorrection *time.Time `db:"last_correction"` // nil if never corrected
}

// MismatchRecord logs one predicted-vs-reported effort disagreement.
// The self-correction loop reads the most recent rows to decide whether
// a critical-power downgrade is warranted.
type MismatchRecord struct {
	ID   int64     `db:"id"`
	Date time.Time `db:"date"`
	Gap  float64   `db:"gap"` // reported minus predicted, signed
}

// SimulationRun is the header row of one persisted simulation.
type SimulationRun struct {
	ID        string    `db:"id"` // uuid
	Template  string    `db:"template"`
	BasePower float64   `db:"base_power"`
	Weeks     int       `db:"weeks"`
	Trials    int       `db:"trials"`
	CreatedAt time.Time `db:"created_at"`
}

// SimulationWeek holds the aggregated percentile bands for one simulated week.
type SimulationWeek struct {
	RunID        string  `db:"run_id"`
	Week         int     `db:"week"`
	PlannedPower float64 `db:"planned_power"` // watts
	PlannedWork  float64 `db:"planned_work"`  // kilojoules per training day

	FatigueMin    float64 `db:"fatigue_min"`
	FatigueP25    float64 `db:"fatigue_p25"`
	FatigueMedian float64 `db:"fatigue_median"`
	FatigueP75    float64 `db:"fatigue_p75"`
	FatigueMax    float64 `db:"fatigue_max"`

	ReadinessMin    float64 `db:"readiness_min"`
	ReadinessP25    float64 `db:"readiness_p25"`
	ReadinessMedian float64 `db:"readiness_median"`
	ReadinessP75    float64 `db:"readiness_p75"`
	ReadinessMax    float64 `db:"readiness_max"`
}
