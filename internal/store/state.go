package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetState returns the persisted chronic fatigue state, or ErrNoState
// when the athlete has never logged a session.
func (db *DB) GetState() (*StateRecord, error) {
	row := db.QueryRow(`
		SELECT fast, slow, updated_at, last_correction
		FROM chronic_state
		WHERE id = 1
	`)

	var st StateRecord
	var updatedAt string
	var lastCorrection sql.NullString

	err := row.Scan(&st.Fast, &st.Slow, &updatedAt, &lastCorrection)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, err
	}

	st.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing state timestamp %q: %w", updatedAt, err)
	}
	if lastCorrection.Valid {
		t, err := time.Parse(time.RFC3339, lastCorrection.String)
		if err != nil {
			return nil, fmt.Errorf("parsing correction timestamp %q: %w", lastCorrection.String, err)
		}
		st.LastCorrection = &t
	}
	return &st, nil
}

// SaveState upserts the singleton chronic fatigue row.
func (db *DB) SaveState(st *StateRecord) error {
	var lastCorrection any
	if st.LastCorrection != nil {
		lastCorrection = st.LastCorrection.UTC().Format(time.RFC3339)
	}

	_, err := db.Exec(`
		INSERT INTO chronic_state (id, fast, slow, updated_at, last_correction)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fast = excluded.fast,
			slow = excluded.slow,
			updated_at = excluded.updated_at,
			last_correction = excluded.last_correction
	`, st.Fast, st.Slow, st.UpdatedAt.UTC().Format(time.RFC3339), lastCorrection)
	return err
}
