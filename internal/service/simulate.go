package service

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"veloform/internal/engine"
	"veloform/internal/program"
	"veloform/internal/store"
)

// SimulationReport pairs a persisted run header with its weekly bands.
type SimulationReport struct {
	Run    store.SimulationRun
	Result engine.SimulationResult
}

// RunSimulation projects a program template forward from the current
// model state with a Monte Carlo ensemble, persists the aggregated
// bands under a fresh run ID and returns them.
func (s *TrainingService) RunSimulation(templateName string, weeks, trials int, now time.Time) (*SimulationReport, error) {
	tpl, err := program.Get(templateName)
	if err != nil {
		return nil, err
	}

	est, err := s.currentEstimate()
	if err != nil {
		return nil, err
	}
	basePower := est.CP
	if basePower <= 0 {
		basePower = s.referencePower
	}

	plan, err := tpl.Plan(basePower, weeks)
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

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	result := engine.Simulate(plan, st, est, trials, rng, s.tuning)

	run := store.SimulationRun{
		ID:        uuid.NewString(),
		Template:  templateName,
		BasePower: basePower,
		Weeks:     len(result.Weeks),
		Trials:    result.Trials,
		CreatedAt: now,
	}
	if err := s.store.SaveSimulation(&run, simulationWeeks(run.ID, result)); err != nil {
		return nil, fmt.Errorf("storing simulation: %w", err)
	}

	s.logger.Info("simulation complete",
		"run_id", run.ID,
		"template", templateName,
		"weeks", run.Weeks,
		"trials", run.Trials)

	return &SimulationReport{Run: run, Result: result}, nil
}

// GetSimulation loads a persisted run by ID.
func (s *TrainingService) GetSimulation(id string) (*SimulationReport, error) {
	run, weeks, err := s.store.GetSimulation(id)
	if err != nil {
		return nil, err
	}

	result := engine.SimulationResult{Trials: run.Trials}
	for _, w := range weeks {
		result.Weeks = append(result.Weeks, engine.WeekOutcome{
			Week:         w.Week,
			PlannedPower: w.PlannedPower,
			PlannedWork:  w.PlannedWork,
			Fatigue: engine.Band{
				Min: w.FatigueMin, P25: w.FatigueP25, Median: w.FatigueMedian,
				P75: w.FatigueP75, Max: w.FatigueMax,
			},
			Readiness: engine.Band{
				Min: w.ReadinessMin, P25: w.ReadinessP25, Median: w.ReadinessMedian,
				P75: w.ReadinessP75, Max: w.ReadinessMax,
			},
		})
	}
	return &SimulationReport{Run: *run, Result: result}, nil
}

// ListSimulations returns persisted run headers, newest first.
func (s *TrainingService) ListSimulations(limit int) ([]store.SimulationRun, error) {
	return s.store.ListSimulations(limit)
}

func simulationWeeks(runID string, result engine.SimulationResult) []store.SimulationWeek {
	weeks := make([]store.SimulationWeek, 0, len(result.Weeks))
	for _, w := range result.Weeks {
		weeks = append(weeks, store.SimulationWeek{
			RunID:        runID,
			Week:         w.Week,
			PlannedPower: w.PlannedPower,
			PlannedWork:  w.PlannedWork,

			FatigueMin:    w.Fatigue.Min,
			FatigueP25:    w.Fatigue.P25,
			FatigueMedian: w.Fatigue.Median,
			FatigueP75:    w.Fatigue.P75,
			FatigueMax:    w.Fatigue.Max,

			ReadinessMin:    w.Readiness.Min,
			ReadinessP25:    w.Readiness.P25,
			ReadinessMedian: w.Readiness.Median,
			ReadinessP75:    w.Readiness.P75,
			ReadinessMax:    w.Readiness.Max,
		})
	}
	return weeks
}
