package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertSession stores a new session and returns its assigned ID.
func (db *DB) InsertSession(s *Session) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO sessions (date, avg_power, duration_seconds, effort, style, work_rest, has_samples, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.Date.UTC().Format(time.RFC3339), s.AvgPower, s.DurationSeconds, s.Effort,
		s.Style, s.WorkRest, boolToInt(s.HasSamples), s.Notes,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.ID = id
	return id, nil
}

// UpdateSession applies a corrective edit to a stored session.
func (db *DB) UpdateSession(s *Session) error {
	res, err := db.Exec(`
		UPDATE sessions
		SET date = ?, avg_power = ?, duration_seconds = ?, effort = ?,
			style = ?, work_rest = ?, has_samples = ?, notes = ?
		WHERE id = ?
	`,
		s.Date.UTC().Format(time.RFC3339), s.AvgPower, s.DurationSeconds, s.Effort,
		s.Style, s.WorkRest, boolToInt(s.HasSamples), s.Notes, s.ID,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// GetSession retrieves a session by ID
func (db *DB) GetSession(id int64) (*Session, error) {
	row := db.QueryRow(`
		SELECT id, date, avg_power, duration_seconds, effort, style, work_rest, has_samples, notes
		FROM sessions
		WHERE id = ?
	`, id)
	return scanSession(row)
}

// ListSessions returns sessions ordered by date descending
func (db *DB) ListSessions(limit int) ([]Session, error) {
	rows, err := db.Query(`
		SELECT id, date, avg_power, duration_seconds, effort, style, work_rest, has_samples, notes
		FROM sessions
		ORDER BY date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

// ListSessionsSince returns sessions on or after the cutoff, ordered by
// date ascending.
func (db *DB) ListSessionsSince(cutoff time.Time) ([]Session, error) {
	rows, err := db.Query(`
		SELECT id, date, avg_power, duration_seconds, effort, style, work_rest, has_samples, notes
		FROM sessions
		WHERE date >= ?
		ORDER BY date ASC
	`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

// RecentSessionDates returns the dates of the most recent sessions,
// newest first.
func (db *DB) RecentSessionDates(limit int) ([]time.Time, error) {
	rows, err := db.Query(`
		SELECT date FROM sessions ORDER BY date DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("parsing session date %q: %w", raw, err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// CountSessions returns the total number of sessions
func (db *DB) CountSessions() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
	return count, err
}

// InsertSamples stores a session's power trace in one transaction.
func (db *DB) InsertSamples(sessionID int64, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO samples (session_id, time_offset, power)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range samples {
		if _, err := stmt.Exec(sessionID, p.TimeOffset, p.Power); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetSamples retrieves a session's power trace ordered by time offset.
func (db *DB) GetSamples(sessionID int64) ([]Sample, error) {
	rows, err := db.Query(`
		SELECT session_id, time_offset, power
		FROM samples
		WHERE session_id = ?
		ORDER BY time_offset ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var p Sample
		if err := rows.Scan(&p.SessionID, &p.TimeOffset, &p.Power); err != nil {
			return nil, err
		}
		samples = append(samples, p)
	}
	return samples, rows.Err()
}

// SamplesBySession loads the traces for every session in the list.
// Sessions without a trace are absent from the map.
func (db *DB) SamplesBySession(sessions []Session) (map[int64][]Sample, error) {
	result := make(map[int64][]Sample)
	for i := range sessions {
		if !sessions[i].HasSamples {
			continue
		}
		trace, err := db.GetSamples(sessions[i].ID)
		if err != nil {
			return nil, err
		}
		if len(trace) > 0 {
			result[sessions[i].ID] = trace
		}
	}
	return result, nil
}

// scanSession scans a single session from a row
func scanSession(row *sql.Row) (*Session, error) {
	var s Session
	var date string
	var hasSamples int

	err := row.Scan(&s.ID, &date, &s.AvgPower, &s.DurationSeconds, &s.Effort,
		&s.Style, &s.WorkRest, &hasSamples, &s.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	s.Date, err = time.Parse(time.RFC3339, date)
	if err != nil {
		return nil, fmt.Errorf("parsing session date %q: %w", date, err)
	}
	s.HasSamples = hasSamples == 1
	return &s, nil
}

// scanSessions scans multiple sessions from rows
func scanSessions(rows *sql.Rows) ([]Session, error) {
	var sessions []Session
	for rows.Next() {
		var s Session
		var date string
		var hasSamples int

		err := rows.Scan(&s.ID, &date, &s.AvgPower, &s.DurationSeconds, &s.Effort,
			&s.Style, &s.WorkRest, &hasSamples, &s.Notes)
		if err != nil {
			return nil, err
		}

		s.Date, err = time.Parse(time.RFC3339, date)
		if err != nil {
			return nil, fmt.Errorf("parsing session date %q: %w", date, err)
		}
		s.HasSamples = hasSamples == 1
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
