package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// dayKey truncates a timestamp to its calendar day in UTC. Questionnaire
// responses are keyed by day so a second check-in replaces the first.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// SaveQuestionnaire upserts the day's check-in response.
func (db *DB) SaveQuestionnaire(q *QuestionnaireResponse) error {
	_, err := db.Exec(`
		INSERT INTO questionnaires (date, sleep, nutrition, stress, soreness, energy)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			sleep = excluded.sleep,
			nutrition = excluded.nutrition,
			stress = excluded.stress,
			soreness = excluded.soreness,
			energy = excluded.energy
	`, dayKey(q.Date), q.Sleep, q.Nutrition, q.Stress, q.Soreness, q.Energy)
	return err
}

// GetQuestionnaire returns the check-in for the given day, or nil when
// the athlete skipped it.
func (db *DB) GetQuestionnaire(day time.Time) (*QuestionnaireResponse, error) {
	row := db.QueryRow(`
		SELECT date, sleep, nutrition, stress, soreness, energy
		FROM questionnaires
		WHERE date = ?
	`, dayKey(day))

	var q QuestionnaireResponse
	var date string
	err := row.Scan(&date, &q.Sleep, &q.Nutrition, &q.Stress, &q.Soreness, &q.Energy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	q.Date, err = time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("parsing questionnaire date %q: %w", date, err)
	}
	return &q, nil
}

// QuestionnairesSince returns check-ins on or after the cutoff keyed by
// calendar day.
func (db *DB) QuestionnairesSince(cutoff time.Time) (map[string]QuestionnaireResponse, error) {
	rows, err := db.Query(`
		SELECT date, sleep, nutrition, stress, soreness, energy
		FROM questionnaires
		WHERE date >= ?
	`, dayKey(cutoff))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]QuestionnaireResponse)
	for rows.Next() {
		var q QuestionnaireResponse
		var date string
		if err := rows.Scan(&date, &q.Sleep, &q.Nutrition, &q.Stress, &q.Soreness, &q.Energy); err != nil {
			return nil, err
		}
		q.Date, err = time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("parsing questionnaire date %q: %w", date, err)
		}
		result[date] = q
	}
	return result, rows.Err()
}
