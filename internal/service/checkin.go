package service

import (
	"fmt"
	"time"

	"veloform/internal/engine"
	"veloform/internal/store"
)

// CheckinResult reports what the daily check-in changed.
type CheckinResult struct {
	RecoveryEfficiency float64
	CorrectionApplied  bool
	Readiness          int
}

// DailyCheckin stores the day's wellness answers and, at most once per
// day, lets strong subjective signals override the model state (severe
// soreness loads the slow reservoir, reported exhaustion the fast one).
func (s *TrainingService) DailyCheckin(q *store.QuestionnaireResponse) (*CheckinResult, error) {
	if err := validateQuestionnaire(q); err != nil {
		return nil, err
	}

	if err := s.store.SaveQuestionnaire(q); err != nil {
		return nil, fmt.Errorf("storing check-in: %w", err)
	}

	st, lastCorrection, err := s.currentState(q.Date)
	if err != nil {
		return nil, err
	}
	st, err = s.advanceState(st, q.Date, 0)
	if err != nil {
		return nil, err
	}

	applied := false
	if correctionAllowed(lastCorrection, q.Date) {
		var corrected engine.ChronicFatigueState
		corrected, applied = engine.ApplyCorrection(st, *q, s.tuning)
		if applied {
			st = corrected
			when := q.Date
			lastCorrection = &when
			s.logger.Info("subjective correction applied",
				"fast", st.Fast, "slow", st.Slow)
		}
	}

	if err := s.saveState(st, lastCorrection); err != nil {
		return nil, err
	}

	return &CheckinResult{
		RecoveryEfficiency: engine.RecoveryEfficiency(*q),
		CorrectionApplied:  applied,
		Readiness:          engine.Readiness(st, s.tuning),
	}, nil
}

// correctionAllowed limits subjective overrides to one per calendar day.
func correctionAllowed(lastCorrection *time.Time, now time.Time) bool {
	if lastCorrection == nil {
		return true
	}
	return startOfDay(*lastCorrection).Before(startOfDay(now))
}

func validateQuestionnaire(q *store.QuestionnaireResponse) error {
	if q.Date.IsZero() {
		return fmt.Errorf("check-in date is required")
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"sleep", q.Sleep},
		{"nutrition", q.Nutrition},
		{"stress", q.Stress},
		{"soreness", q.Soreness},
		{"energy", q.Energy},
	} {
		if f.value < 0 || f.value > 5 {
			return fmt.Errorf("%s must be between 1 and 5 (or 0 when skipped), got %d", f.name, f.value)
		}
	}
	return nil
}
