package service

import (
	"fmt"
	"time"

	"veloform/internal/engine"
)

// Status is the athlete's current model snapshot.
type Status struct {
	Estimate          engine.CriticalPowerEstimate
	State             engine.ChronicFatigueState
	Readiness         int
	AdjustedReadiness int
	Detraining        float64
	Interpretation    engine.Interpretation
	SessionCount      int
}

// CurrentStatus rolls the chronic state forward to now (without
// persisting the decay) and reports readiness, the detraining-adjusted
// readiness and the zone interpretation.
func (s *TrainingService) CurrentStatus(now time.Time) (*Status, error) {
	est, err := s.currentEstimate()
	if err != nil {
		return nil, err
	}

	st, _, err := s.currentState(now)
	if err != nil {
		return nil, err
	}
	st, err = s.advanceState(st, now, 0)
	if err != nil {
		return nil, err
	}

	dates, err := s.store.RecentSessionDates(s.tuning.DetrainingMemory)
	if err != nil {
		return nil, fmt.Errorf("loading recent session dates: %w", err)
	}
	multiplier := engine.DetrainingMultiplier(dates, now, s.tuning)

	count, err := s.store.CountSessions()
	if err != nil {
		return nil, err
	}

	readiness := engine.Readiness(st, s.tuning)
	return &Status{
		Estimate:          est,
		State:             st,
		Readiness:         readiness,
		AdjustedReadiness: engine.AdjustedReadiness(readiness, multiplier),
		Detraining:        multiplier,
		Interpretation:    engine.Interpret(st, s.tuning),
		SessionCount:      count,
	}, nil
}

// TrendPoint is one day of the readiness trend.
type TrendPoint struct {
	Day       time.Time
	Readiness int
}

// ReadinessTrend replays recent history day by day and returns one
// readiness point per day for the last `days` days. The replay starts
// from a rested state one lookback window before the trend so the
// reservoirs are warmed up by real sessions before the first reported
// point.
func (s *TrainingService) ReadinessTrend(now time.Time, days int) ([]TrendPoint, error) {
	if days <= 0 {
		return nil, nil
	}

	trendStart := startOfDay(now).AddDate(0, 0, -(days - 1))
	warmupStart := trendStart.AddDate(0, 0, -s.tuning.LookbackDays)

	sessions, err := s.store.ListSessionsSince(warmupStart)
	if err != nil {
		return nil, err
	}
	samples, err := s.store.SamplesBySession(sessions)
	if err != nil {
		return nil, err
	}
	checkins, err := s.store.QuestionnairesSince(warmupStart)
	if err != nil {
		return nil, err
	}
	est, err := s.currentEstimate()
	if err != nil {
		return nil, err
	}

	// Costs bucketed by day.
	costs := make(map[string]float64)
	for i := range sessions {
		cost := engine.SessionCost(sessions[i], samples[sessions[i].ID], est, s.tuning)
		costs[startOfDay(sessions[i].Date).Format("2006-01-02")] += cost
	}

	var st engine.ChronicFatigueState
	var trend []TrendPoint
	end := startOfDay(now)
	for day := warmupStart; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		phi := 1.0
		if q, ok := checkins[key]; ok {
			phi = engine.RecoveryEfficiency(q)
		}
		st = engine.Advance(st, costs[key], phi, day, s.tuning)
		if !day.Before(trendStart) {
			trend = append(trend, TrendPoint{Day: day, Readiness: engine.Readiness(st, s.tuning)})
		}
	}
	return trend, nil
}
