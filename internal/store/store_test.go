package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory database for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Enable foreign keys
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDB.Close()
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	db := &DB{sqlDB}

	// Run migrations
	if err := migrate(sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

func insertTestSession(t *testing.T, db *DB, date time.Time, power float64, duration, effort int) int64 {
	t.Helper()
	id, err := db.InsertSession(&Session{
		Date:            date,
		AvgPower:        power,
		DurationSeconds: duration,
		Effort:          effort,
		Style:           StyleSteady,
	})
	if err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}
	return id
}

func TestInsertAndGetSession(t *testing.T) {
	db := setupTestDB(t)

	date := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	id, err := db.InsertSession(&Session{
		Date:            date,
		AvgPower:        230,
		DurationSeconds: 1800,
		Effort:          7,
		Style:           StyleInterval,
		WorkRest:        "4:1",
		HasSamples:      true,
		Notes:           "over-unders",
	})
	if err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}
	if id == 0 {
		t.Error("Expected non-zero ID")
	}

	got, err := db.GetSession(id)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if !got.Date.Equal(date) {
		t.Errorf("Expected date %v, got %v", date, got.Date)
	}
	if got.AvgPower != 230 {
		t.Errorf("Expected avg power 230, got %v", got.AvgPower)
	}
	if got.Style != StyleInterval {
		t.Errorf("Expected style %q, got %q", StyleInterval, got.Style)
	}
	if got.WorkRest != "4:1" {
		t.Errorf("Expected work:rest 4:1, got %q", got.WorkRest)
	}
	if !got.HasSamples {
		t.Error("Expected has_samples to round-trip true")
	}
}

func TestGetSessionNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetSession(99)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestUpdateSession(t *testing.T) {
	db := setupTestDB(t)

	date := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	id := insertTestSession(t, db, date, 200, 3600, 5)

	err := db.UpdateSession(&Session{
		ID:              id,
		Date:            date,
		AvgPower:        210,
		DurationSeconds: 3600,
		Effort:          6,
		Style:           StyleSteady,
	})
	if err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	got, err := db.GetSession(id)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.AvgPower != 210 || got.Effort != 6 {
		t.Errorf("Expected updated power 210 and effort 6, got %v and %v", got.AvgPower, got.Effort)
	}

	err = db.UpdateSession(&Session{ID: 99, Date: date})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound for missing row, got %v", err)
	}
}

func TestListSessionsSince(t *testing.T) {
	db := setupTestDB(t)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	insertTestSession(t, db, now.AddDate(0, 0, -90), 180, 3600, 4)
	insertTestSession(t, db, now.AddDate(0, 0, -10), 220, 1800, 7)
	insertTestSession(t, db, now.AddDate(0, 0, -2), 240, 1200, 8)

	sessions, err := db.ListSessionsSince(now.AddDate(0, 0, -60))
	if err != nil {
		t.Fatalf("ListSessionsSince failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions inside cutoff, got %d", len(sessions))
	}
	if !sessions[0].Date.Before(sessions[1].Date) {
		t.Error("Expected ascending date order")
	}
}

func TestRecentSessionDates(t *testing.T) {
	db := setupTestDB(t)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	for _, daysAgo := range []int{30, 3, 14} {
		insertTestSession(t, db, now.AddDate(0, 0, -daysAgo), 200, 3600, 5)
	}

	dates, err := db.RecentSessionDates(2)
	if err != nil {
		t.Fatalf("RecentSessionDates failed: %v", err)
	}
	if len(dates) != 2 {
		t.Fatalf("Expected 2 dates, got %d", len(dates))
	}
	if !dates[0].After(dates[1]) {
		t.Error("Expected newest date first")
	}
	if !dates[0].Equal(now.AddDate(0, 0, -3)) {
		t.Errorf("Expected most recent session 3 days ago, got %v", dates[0])
	}
}

func TestSamplesRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	date := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	id := insertTestSession(t, db, date, 250, 600, 9)

	samples := []Sample{
		{SessionID: id, TimeOffset: 0, Power: 240},
		{SessionID: id, TimeOffset: 5, Power: 255},
		{SessionID: id, TimeOffset: 10, Power: 260},
	}
	if err := db.InsertSamples(id, samples); err != nil {
		t.Fatalf("InsertSamples failed: %v", err)
	}

	got, err := db.GetSamples(id)
	if err != nil {
		t.Fatalf("GetSamples failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(got))
	}
	if got[1].TimeOffset != 5 || got[1].Power != 255 {
		t.Errorf("Expected sample (5, 255), got (%d, %v)", got[1].TimeOffset, got[1].Power)
	}
}

func TestSamplesBySessionSkipsTracelessSessions(t *testing.T) {
	db := setupTestDB(t)

	date := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	withTrace, err := db.InsertSession(&Session{
		Date: date, AvgPower: 250, DurationSeconds: 600, Effort: 9, HasSamples: true,
	})
	if err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}
	if err := db.InsertSamples(withTrace, []Sample{
		{SessionID: withTrace, TimeOffset: 0, Power: 250},
		{SessionID: withTrace, TimeOffset: 5, Power: 250},
	}); err != nil {
		t.Fatalf("InsertSamples failed: %v", err)
	}
	insertTestSession(t, db, date.AddDate(0, 0, 1), 200, 3600, 5)

	sessions, err := db.ListSessionsSince(date.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("ListSessionsSince failed: %v", err)
	}
	traces, err := db.SamplesBySession(sessions)
	if err != nil {
		t.Fatalf("SamplesBySession failed: %v", err)
	}
	if len(traces) != 1 {
		t.Fatalf("Expected 1 traced session, got %d", len(traces))
	}
	if len(traces[withTrace]) != 2 {
		t.Errorf("Expected 2 samples for session %d, got %d", withTrace, len(traces[withTrace]))
	}
}

func TestQuestionnaireUpsert(t *testing.T) {
	db := setupTestDB(t)

	day := time.Date(2025, 6, 1, 7, 30, 0, 0, time.UTC)
	err := db.SaveQuestionnaire(&QuestionnaireResponse{
		Date: day, Sleep: 4, Nutrition: 3, Stress: 2, Soreness: 1, Energy: 4,
	})
	if err != nil {
		t.Fatalf("SaveQuestionnaire failed: %v", err)
	}

	// A second check-in on the same day replaces the first.
	err = db.SaveQuestionnaire(&QuestionnaireResponse{
		Date: day.Add(6 * time.Hour), Sleep: 4, Nutrition: 3, Stress: 4, Soreness: 4, Energy: 2,
	})
	if err != nil {
		t.Fatalf("SaveQuestionnaire upsert failed: %v", err)
	}

	got, err := db.GetQuestionnaire(day)
	if err != nil {
		t.Fatalf("GetQuestionnaire failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected a questionnaire response")
	}
	if got.Soreness != 4 || got.Energy != 2 {
		t.Errorf("Expected replaced values soreness=4 energy=2, got %d and %d", got.Soreness, got.Energy)
	}
}

func TestGetQuestionnaireMissingDay(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetQuestionnaire(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetQuestionnaire failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for unanswered day, got %+v", got)
	}
}

func TestEstimateHistory(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetLatestEstimate()
	if !errors.Is(err, ErrNoEstimate) {
		t.Fatalf("Expected ErrNoEstimate on empty history, got %v", err)
	}

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	_, err = db.InsertEstimate(&EstimateRecord{
		CP: 240, WPrime: 21000, Confidence: 0.8, DataPoints: 4, ComputedAt: now.AddDate(0, 0, -7),
	})
	if err != nil {
		t.Fatalf("InsertEstimate failed: %v", err)
	}
	_, err = db.InsertEstimate(&EstimateRecord{
		CP: 245, WPrime: 20500, Confidence: 0.9, DataPoints: 5, Decayed: true, ComputedAt: now,
	})
	if err != nil {
		t.Fatalf("InsertEstimate failed: %v", err)
	}

	latest, err := db.GetLatestEstimate()
	if err != nil {
		t.Fatalf("GetLatestEstimate failed: %v", err)
	}
	if latest.CP != 245 {
		t.Errorf("Expected latest CP 245, got %v", latest.CP)
	}
	if !latest.Decayed {
		t.Error("Expected decayed flag to round-trip true")
	}

	history, err := db.ListEstimates(10)
	if err != nil {
		t.Fatalf("ListEstimates failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 estimates, got %d", len(history))
	}
	if history[0].CP != 245 || history[1].CP != 240 {
		t.Error("Expected newest-first ordering")
	}
}

func TestStateSingleton(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetState()
	if !errors.Is(err, ErrNoState) {
		t.Fatalf("Expected ErrNoState before first save, got %v", err)
	}

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	err = db.SaveState(&StateRecord{Fast: 30, Slow: 12, UpdatedAt: now})
	if err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	got, err := db.GetState()
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if got.Fast != 30 || got.Slow != 12 {
		t.Errorf("Expected state (30, 12), got (%v, %v)", got.Fast, got.Slow)
	}
	if got.LastCorrection != nil {
		t.Error("Expected nil last correction before any correction")
	}

	corrected := now.Add(2 * time.Hour)
	err = db.SaveState(&StateRecord{Fast: 45, Slow: 50, UpdatedAt: corrected, LastCorrection: &corrected})
	if err != nil {
		t.Fatalf("SaveState upsert failed: %v", err)
	}

	got, err = db.GetState()
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if got.Fast != 45 {
		t.Errorf("Expected upserted fast 45, got %v", got.Fast)
	}
	if got.LastCorrection == nil || !got.LastCorrection.Equal(corrected) {
		t.Errorf("Expected last correction %v, got %v", corrected, got.LastCorrection)
	}
}

func TestMismatchLog(t *testing.T) {
	db := setupTestDB(t)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	for i, gap := range []float64{2.5, 3.0, -2.8} {
		_, err := db.InsertMismatch(&MismatchRecord{Date: now.AddDate(0, 0, i), Gap: gap})
		if err != nil {
			t.Fatalf("InsertMismatch failed: %v", err)
		}
	}

	gaps, err := db.RecentMismatchGaps(2)
	if err != nil {
		t.Fatalf("RecentMismatchGaps failed: %v", err)
	}
	if len(gaps) != 2 {
		t.Fatalf("Expected 2 gaps, got %d", len(gaps))
	}
	if gaps[0] != -2.8 || gaps[1] != 3.0 {
		t.Errorf("Expected newest-first gaps [-2.8, 3.0], got %v", gaps)
	}

	if err := db.ClearMismatches(); err != nil {
		t.Fatalf("ClearMismatches failed: %v", err)
	}
	gaps, err = db.RecentMismatchGaps(10)
	if err != nil {
		t.Fatalf("RecentMismatchGaps failed: %v", err)
	}
	if len(gaps) != 0 {
		t.Errorf("Expected empty log after clear, got %d gaps", len(gaps))
	}
}

func TestSimulationRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	run := &SimulationRun{
		ID:        "0b9f6d9e-3f44-4a3d-bdc5-0c8b2f8b7c01",
		Template:  "sweet-spot-build",
		BasePower: 240,
		Weeks:     2,
		Trials:    10000,
		CreatedAt: now,
	}
	weeks := []SimulationWeek{
		{
			RunID: run.ID, Week: 1, PlannedPower: 216, PlannedWork: 777.6,
			FatigueMin: 10, FatigueP25: 15, FatigueMedian: 20, FatigueP75: 25, FatigueMax: 32,
			ReadinessMin: 68, ReadinessP25: 75, ReadinessMedian: 80, ReadinessP75: 85, ReadinessMax: 90,
		},
		{
			RunID: run.ID, Week: 2, PlannedPower: 228, PlannedWork: 820.8,
			FatigueMin: 14, FatigueP25: 20, FatigueMedian: 26, FatigueP75: 33, FatigueMax: 41,
			ReadinessMin: 59, ReadinessP25: 67, ReadinessMedian: 74, ReadinessP75: 80, ReadinessMax: 86,
		},
	}
	if err := db.SaveSimulation(run, weeks); err != nil {
		t.Fatalf("SaveSimulation failed: %v", err)
	}

	gotRun, gotWeeks, err := db.GetSimulation(run.ID)
	if err != nil {
		t.Fatalf("GetSimulation failed: %v", err)
	}
	if gotRun.Template != "sweet-spot-build" || gotRun.Trials != 10000 {
		t.Errorf("Unexpected run header: %+v", gotRun)
	}
	if len(gotWeeks) != 2 {
		t.Fatalf("Expected 2 weeks, got %d", len(gotWeeks))
	}
	if gotWeeks[0].Week != 1 || gotWeeks[1].Week != 2 {
		t.Error("Expected weeks ordered ascending")
	}
	if gotWeeks[1].FatigueMedian != 26 {
		t.Errorf("Expected week 2 fatigue median 26, got %v", gotWeeks[1].FatigueMedian)
	}

	runs, err := db.ListSimulations(10)
	if err != nil {
		t.Fatalf("ListSimulations failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}

	_, _, err = db.GetSimulation("missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}
