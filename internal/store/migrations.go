package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Sessions (completed or manually logged workouts)
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			avg_power REAL NOT NULL,
			duration_seconds INTEGER NOT NULL,
			effort INTEGER NOT NULL,
			style TEXT NOT NULL DEFAULT '',
			work_rest TEXT NOT NULL DEFAULT '',
			has_samples INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions(date)`,

		// Power traces (evenly sampled per session)
		`CREATE TABLE IF NOT EXISTS samples (
			session_id INTEGER NOT NULL,
			time_offset INTEGER NOT NULL,
			power REAL NOT NULL,
			PRIMARY KEY (session_id, time_offset),
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		)`,

		// Daily subjective wellness answers (one row per day)
		`CREATE TABLE IF NOT EXISTS questionnaires (
			date TEXT PRIMARY KEY,
			sleep INTEGER NOT NULL DEFAULT 0,
			nutrition INTEGER NOT NULL DEFAULT 0,
			stress INTEGER NOT NULL DEFAULT 0,
			soreness INTEGER NOT NULL DEFAULT 0,
			energy INTEGER NOT NULL DEFAULT 0
		)`,

		// Critical-power estimate history
		`CREATE TABLE IF NOT EXISTS estimates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cp REAL NOT NULL,
			w_prime REAL NOT NULL,
			confidence REAL NOT NULL,
			data_points INTEGER NOT NULL,
			decayed INTEGER NOT NULL DEFAULT 0,
			computed_at TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_estimates_computed_at ON estimates(computed_at)`,

		// Chronic fatigue state (singleton row)
		`CREATE TABLE IF NOT EXISTS chronic_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			fast REAL NOT NULL,
			slow REAL NOT NULL,
			updated_at TEXT NOT NULL,
			last_correction TEXT
		)`,

		// Predicted-vs-reported effort mismatch log
		`CREATE TABLE IF NOT EXISTS mismatches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			gap REAL NOT NULL
		)`,

		// Simulation run headers
		`CREATE TABLE IF NOT EXISTS simulation_runs (
			id TEXT PRIMARY KEY,
			template TEXT NOT NULL,
			base_power REAL NOT NULL,
			weeks INTEGER NOT NULL,
			trials INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,

		// Per-week percentile bands
		`CREATE TABLE IF NOT EXISTS simulation_weeks (
			run_id TEXT NOT NULL,
			week INTEGER NOT NULL,
			planned_power REAL NOT NULL,
			planned_work REAL NOT NULL,
			fatigue_min REAL NOT NULL,
			fatigue_p25 REAL NOT NULL,
			fatigue_median REAL NOT NULL,
			fatigue_p75 REAL NOT NULL,
			fatigue_max REAL NOT NULL,
			readiness_min REAL NOT NULL,
			readiness_p25 REAL NOT NULL,
			readiness_median REAL NOT NULL,
			readiness_p75 REAL NOT NULL,
			readiness_max REAL NOT NULL,
			PRIMARY KEY (run_id, week),
			FOREIGN KEY (run_id) REFERENCES simulation_runs(id) ON DELETE CASCADE
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
