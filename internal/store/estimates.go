package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertEstimate appends a critical-power estimate to the history.
func (db *DB) InsertEstimate(e *EstimateRecord) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO estimates (cp, w_prime, confidence, data_points, decayed, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.CP, e.WPrime, e.Confidence, e.DataPoints, boolToInt(e.Decayed),
		e.ComputedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	e.ID = id
	return id, nil
}

// GetLatestEstimate returns the most recent estimate, or ErrNoEstimate
// when none has been computed yet.
func (db *DB) GetLatestEstimate() (*EstimateRecord, error) {
	row := db.QueryRow(`
		SELECT id, cp, w_prime, confidence, data_points, decayed, computed_at
		FROM estimates
		ORDER BY computed_at DESC, id DESC
		LIMIT 1
	`)
	e, err := scanEstimate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoEstimate
	}
	return e, err
}

// ListEstimates returns the estimate history, newest first.
func (db *DB) ListEstimates(limit int) ([]EstimateRecord, error) {
	rows, err := db.Query(`
		SELECT id, cp, w_prime, confidence, data_points, decayed, computed_at
		FROM estimates
		ORDER BY computed_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var estimates []EstimateRecord
	for rows.Next() {
		var e EstimateRecord
		var computedAt string
		var decayed int
		if err := rows.Scan(&e.ID, &e.CP, &e.WPrime, &e.Confidence, &e.DataPoints, &decayed, &computedAt); err != nil {
			return nil, err
		}
		e.ComputedAt, err = time.Parse(time.RFC3339, computedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing estimate timestamp %q: %w", computedAt, err)
		}
		e.Decayed = decayed == 1
		estimates = append(estimates, e)
	}
	return estimates, rows.Err()
}

func scanEstimate(row *sql.Row) (*EstimateRecord, error) {
	var e EstimateRecord
	var computedAt string
	var decayed int

	err := row.Scan(&e.ID, &e.CP, &e.WPrime, &e.Confidence, &e.DataPoints, &decayed, &computedAt)
	if err != nil {
		return nil, err
	}

	e.ComputedAt, err = time.Parse(time.RFC3339, computedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing estimate timestamp %q: %w", computedAt, err)
	}
	e.Decayed = decayed == 1
	return &e, nil
}
