package service

import (
	"fmt"
	"time"

	"veloform/internal/engine"
	"veloform/internal/store"
)

// LogResult summarizes everything that happened when a session was
// logged: the cost charged against the reservoirs, the effort the model
// expected, the self-correction verdict and the refreshed estimate.
type LogResult struct {
	SessionID       int64
	Cost            float64
	PredictedEffort float64
	Correction      engine.CorrectionOutcome
	Estimate        engine.CriticalPowerEstimate
	Readiness       int
}

// LogSession persists a session and runs the full update pipeline:
// store the session and its trace, refresh the critical-power estimate,
// charge the session's cost to the chronic state, and run the
// perceived-effort self-correction loop.
func (s *TrainingService) LogSession(session *store.Session, samples []store.Sample) (*LogResult, error) {
	if err := validateSession(session); err != nil {
		return nil, err
	}
	session.HasSamples = len(samples) > 0

	id, err := s.store.InsertSession(session)
	if err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	if len(samples) > 0 {
		for i := range samples {
			samples[i].SessionID = id
		}
		if err := s.store.InsertSamples(id, samples); err != nil {
			return nil, fmt.Errorf("storing power trace: %w", err)
		}
	}

	est, err := s.refreshEstimate(session.Date)
	if err != nil {
		return nil, err
	}

	cost := engine.SessionCost(*session, samples, est, s.tuning)

	st, lastCorrection, err := s.currentState(session.Date)
	if err != nil {
		return nil, err
	}
	st, err = s.advanceState(st, session.Date, cost)
	if err != nil {
		return nil, err
	}

	// Self-correction: compare the reported effort with what the model
	// expected for this power and duration.
	predicted := engine.PredictedEffort(session.AvgPower, session.DurationSeconds, est, s.tuning)
	priorGaps, err := s.store.RecentMismatchGaps(s.tuning.MismatchRun - 1)
	if err != nil {
		return nil, err
	}
	outcome := engine.EvaluateSession(session.Effort, predicted, priorGaps, est, s.tuning)

	if outcome.Mismatch {
		_, err := s.store.InsertMismatch(&store.MismatchRecord{Date: session.Date, Gap: outcome.Gap})
		if err != nil {
			return nil, err
		}
		st.Fast += outcome.PenaltyLoad
		if st.Fast > s.tuning.CapFast {
			st.Fast = s.tuning.CapFast
		}
		s.logger.Info("effort mismatch",
			"reported", session.Effort,
			"predicted", predicted,
			"gap", outcome.Gap,
			"penalty", outcome.PenaltyLoad)
	} else if len(priorGaps) > 0 {
		// An in-tolerance session breaks any pending run.
		if err := s.store.ClearMismatches(); err != nil {
			return nil, err
		}
	}

	if outcome.DowngradeCP {
		est.CP = outcome.DowngradedCP
		est.ComputedAt = session.Date
		if _, err := s.insertEstimate(est); err != nil {
			return nil, err
		}
		if err := s.store.ClearMismatches(); err != nil {
			return nil, err
		}
		s.logger.Warn("critical power downgraded after consistent mismatches", "cp", est.CP)
	}

	if err := s.saveState(st, lastCorrection); err != nil {
		return nil, err
	}

	s.logger.Info("session logged",
		"session_id", id,
		"cost", cost,
		"cp", est.CP,
		"readiness", engine.Readiness(st, s.tuning))

	return &LogResult{
		SessionID:       id,
		Cost:            cost,
		PredictedEffort: predicted,
		Correction:      outcome,
		Estimate:        est,
		Readiness:       engine.Readiness(st, s.tuning),
	}, nil
}

// refreshEstimate recomputes the critical-power estimate from the
// lookback window ending at now and persists it.
func (s *TrainingService) refreshEstimate(now time.Time) (engine.CriticalPowerEstimate, error) {
	cutoff := now.AddDate(0, 0, -s.tuning.LookbackDays)
	sessions, err := s.store.ListSessionsSince(cutoff)
	if err != nil {
		return engine.CriticalPowerEstimate{}, fmt.Errorf("loading session history: %w", err)
	}
	samples, err := s.store.SamplesBySession(sessions)
	if err != nil {
		return engine.CriticalPowerEstimate{}, fmt.Errorf("loading power traces: %w", err)
	}

	est := engine.EstimateCriticalPower(sessions, samples, now, s.referencePower, s.tuning)
	if _, err := s.insertEstimate(est); err != nil {
		return engine.CriticalPowerEstimate{}, err
	}
	return est, nil
}

func (s *TrainingService) insertEstimate(est engine.CriticalPowerEstimate) (int64, error) {
	return s.store.InsertEstimate(&store.EstimateRecord{
		CP:         est.CP,
		WPrime:     est.WPrime,
		Confidence: est.Confidence,
		DataPoints: est.DataPoints,
		Decayed:    est.Decayed,
		ComputedAt: est.ComputedAt,
	})
}

func validateSession(session *store.Session) error {
	if session.AvgPower < 0 {
		return fmt.Errorf("average power must not be negative, got %v", session.AvgPower)
	}
	if session.DurationSeconds <= 0 {
		return fmt.Errorf("duration must be positive, got %d seconds", session.DurationSeconds)
	}
	if session.Effort < 1 || session.Effort > 10 {
		return fmt.Errorf("effort must be between 1 and 10, got %d", session.Effort)
	}
	switch session.Style {
	case "", store.StyleSteady, store.StyleInterval, store.StyleCustom:
	default:
		return fmt.Errorf("unknown session style %q", session.Style)
	}
	if session.Date.IsZero() {
		return fmt.Errorf("session date is required")
	}
	return nil
}
