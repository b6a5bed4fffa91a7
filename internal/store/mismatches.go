package store

import (
	"fmt"
	"time"
)

// InsertMismatch logs one predicted-vs-reported effort disagreement.
func (db *DB) InsertMismatch(m *MismatchRecord) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO mismatches (date, gap) VALUES (?, ?)
	`, m.Date.UTC().Format(time.RFC3339), m.Gap)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

// RecentMismatchGaps returns the most recent mismatch gaps, newest first.
func (db *DB) RecentMismatchGaps(limit int) ([]float64, error) {
	rows, err := db.Query(`
		SELECT gap FROM mismatches ORDER BY date DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gaps []float64
	for rows.Next() {
		var g float64
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		gaps = append(gaps, g)
	}
	return gaps, rows.Err()
}

// ListMismatches returns the mismatch log, newest first.
func (db *DB) ListMismatches(limit int) ([]MismatchRecord, error) {
	rows, err := db.Query(`
		SELECT id, date, gap FROM mismatches ORDER BY date DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []MismatchRecord
	for rows.Next() {
		var m MismatchRecord
		var date string
		if err := rows.Scan(&m.ID, &date, &m.Gap); err != nil {
			return nil, err
		}
		m.Date, err = time.Parse(time.RFC3339, date)
		if err != nil {
			return nil, fmt.Errorf("parsing mismatch date %q: %w", date, err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// ClearMismatches empties the mismatch log. Called after a downgrade so
// the same run cannot trigger twice, and after an in-tolerance session
// breaks a run.
func (db *DB) ClearMismatches() error {
	_, err := db.Exec("DELETE FROM mismatches")
	return err
}
