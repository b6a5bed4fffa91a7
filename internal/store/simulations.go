package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveSimulation stores a run header and its weekly bands in one
// transaction.
func (db *DB) SaveSimulation(run *SimulationRun, weeks []SimulationWeek) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO simulation_runs (id, template, base_power, weeks, trials, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Template, run.BasePower, run.Weeks, run.Trials,
		run.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO simulation_weeks (
			run_id, week, planned_power, planned_work,
			fatigue_min, fatigue_p25, fatigue_median, fatigue_p75, fatigue_max,
			readiness_min, readiness_p25, readiness_median, readiness_p75, readiness_max
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, w := range weeks {
		_, err := stmt.Exec(
			run.ID, w.Week, w.PlannedPower, w.PlannedWork,
			w.FatigueMin, w.FatigueP25, w.FatigueMedian, w.FatigueP75, w.FatigueMax,
			w.ReadinessMin, w.ReadinessP25, w.ReadinessMedian, w.ReadinessP75, w.ReadinessMax,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetSimulation retrieves a run and its weekly bands by ID.
func (db *DB) GetSimulation(id string) (*SimulationRun, []SimulationWeek, error) {
	row := db.QueryRow(`
		SELECT id, template, base_power, weeks, trials, created_at
		FROM simulation_runs
		WHERE id = ?
	`, id)

	var run SimulationRun
	var createdAt string
	err := row.Scan(&run.ID, &run.Template, &run.BasePower, &run.Weeks, &run.Trials, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrRunNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	run.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing run timestamp %q: %w", createdAt, err)
	}

	rows, err := db.Query(`
		SELECT run_id, week, planned_power, planned_work,
			fatigue_min, fatigue_p25, fatigue_median, fatigue_p75, fatigue_max,
			readiness_min, readiness_p25, readiness_median, readiness_p75, readiness_max
		FROM simulation_weeks
		WHERE run_id = ?
		ORDER BY week ASC
	`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var weeks []SimulationWeek
	for rows.Next() {
		var w SimulationWeek
		err := rows.Scan(&w.RunID, &w.Week, &w.PlannedPower, &w.PlannedWork,
			&w.FatigueMin, &w.FatigueP25, &w.FatigueMedian, &w.FatigueP75, &w.FatigueMax,
			&w.ReadinessMin, &w.ReadinessP25, &w.ReadinessMedian, &w.ReadinessP75, &w.ReadinessMax)
		if err != nil {
			return nil, nil, err
		}
		weeks = append(weeks, w)
	}
	return &run, weeks, rows.Err()
}

// ListSimulations returns run headers, newest first.
func (db *DB) ListSimulations(limit int) ([]SimulationRun, error) {
	rows, err := db.Query(`
		SELECT id, template, base_power, weeks, trials, created_at
		FROM simulation_runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []SimulationRun
	for rows.Next() {
		var run SimulationRun
		var createdAt string
		if err := rows.Scan(&run.ID, &run.Template, &run.BasePower, &run.Weeks, &run.Trials, &createdAt); err != nil {
			return nil, err
		}
		run.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing run timestamp %q: %w", createdAt, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
