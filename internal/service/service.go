// Package service wires the storage layer to the estimation engine. It
// owns the pipelines that run when a session is logged, when the daily
// check-in arrives, and when a program projection is requested.
package service

import (
	"errors"
	"log/slog"
	"time"

	"veloform/internal/engine"
	"veloform/internal/store"
)

// TrainingService coordinates persistence and model updates.
type TrainingService struct {
	store          *store.DB
	logger         *slog.Logger
	tuning         engine.Tuning
	referencePower float64
}

// NewTrainingService creates a training service running under the given
// model tuning. tn.ReferencePower seeds the critical-power fallback
// before any estimate exists.
func NewTrainingService(db *store.DB, logger *slog.Logger, tn engine.Tuning) *TrainingService {
	if logger == nil {
		logger = slog.Default()
	}
	if tn.ReferencePower <= 0 {
		tn.ReferencePower = engine.DefaultTuning().ReferencePower
	}
	return &TrainingService{
		store:          db,
		logger:         logger,
		tuning:         tn,
		referencePower: tn.ReferencePower,
	}
}

// Tuning exposes the engine constants in use.
func (s *TrainingService) Tuning() engine.Tuning {
	return s.tuning
}

// currentEstimate returns the latest stored estimate, or the
// reference-power fallback when none exists yet.
func (s *TrainingService) currentEstimate() (engine.CriticalPowerEstimate, error) {
	rec, err := s.store.GetLatestEstimate()
	if errors.Is(err, store.ErrNoEstimate) {
		return engine.CriticalPowerEstimate{
			CP:     s.tuning.FallbackCPFactor * s.referencePower,
			WPrime: s.tuning.FallbackCPFactor * s.referencePower * s.tuning.WPrimeCPRatio,
		}, nil
	}
	if err != nil {
		return engine.CriticalPowerEstimate{}, err
	}
	return engine.CriticalPowerEstimate{
		CP:         rec.CP,
		WPrime:     rec.WPrime,
		Confidence: rec.Confidence,
		ComputedAt: rec.ComputedAt,
		DataPoints: rec.DataPoints,
		Decayed:    rec.Decayed,
	}, nil
}

// currentState returns the persisted chronic state, or a rested zero
// state for a brand-new athlete.
func (s *TrainingService) currentState(now time.Time) (engine.ChronicFatigueState, *time.Time, error) {
	rec, err := s.store.GetState()
	if errors.Is(err, store.ErrNoState) {
		return engine.ChronicFatigueState{UpdatedAt: now}, nil, nil
	}
	if err != nil {
		return engine.ChronicFatigueState{}, nil, err
	}
	return engine.ChronicFatigueState{
		Fast:      rec.Fast,
		Slow:      rec.Slow,
		UpdatedAt: rec.UpdatedAt,
	}, rec.LastCorrection, nil
}

func (s *TrainingService) saveState(st engine.ChronicFatigueState, lastCorrection *time.Time) error {
	return s.store.SaveState(&store.StateRecord{
		Fast:           st.Fast,
		Slow:           st.Slow,
		UpdatedAt:      st.UpdatedAt,
		LastCorrection: lastCorrection,
	})
}

// startOfDay truncates to midnight UTC.
func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// advanceState rolls the chronic state forward day by day to the target
// time. Intervening rest days decay the reservoirs with the recovery
// efficiency read from that day's check-in; cost lands on the final day.
func (s *TrainingService) advanceState(st engine.ChronicFatigueState, target time.Time, cost float64) (engine.ChronicFatigueState, error) {
	from := startOfDay(st.UpdatedAt)
	to := startOfDay(target)
	if !to.After(from) {
		// Same day: apply the cost without another day of decay.
		if cost > 0 {
			st.Fast += cost
			st.Slow += cost * s.tuning.StructuralWeight
			if st.Fast > s.tuning.CapFast {
				st.Fast = s.tuning.CapFast
			}
			if st.Slow > s.tuning.CapSlow {
				st.Slow = s.tuning.CapSlow
			}
		}
		st.UpdatedAt = target
		return st, nil
	}

	checkins, err := s.store.QuestionnairesSince(from)
	if err != nil {
		return st, err
	}

	for day := from.AddDate(0, 0, 1); !day.After(to); day = day.AddDate(0, 0, 1) {
		phi := 1.0
		if q, ok := checkins[day.Format("2006-01-02")]; ok {
			phi = engine.RecoveryEfficiency(q)
		}
		dayCost := 0.0
		if day.Equal(to) {
			dayCost = cost
		}
		st = engine.Advance(st, dayCost, phi, day, s.tuning)
	}
	st.UpdatedAt = target
	return st, nil
}
