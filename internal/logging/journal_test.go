package logging

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := EnsureSchema(db); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-decision-tests
func TestLogDecision_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := DecisionEntry{
		RunID:       "run-1",
		LevelID:     "D1_Q1",
		LevelIndex:  0,
		Action:      ActionAccept,
		Outcome:     OutcomePass,
		Subject:     "comply",
		DeltaJSON:   `{"obedience":1,"humanity":0,"awareness":0}`,
		ErrorsAfter: 0,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM decision_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var action, outcome string
	db.QueryRow("SELECT action, outcome FROM decision_log").Scan(&action, &outcome)
	if action != "accept" || outcome != "pass" {
		t.Errorf("unexpected row %q/%q", action, outcome)
	}
}

func TestLogDecision_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	if err := LogDecision(db, DecisionEntry{RunID: "r", Action: ActionReset, Outcome: OutcomePass}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM decision_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogDecision_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	if err := LogDecision(db, DecisionEntry{RunID: "r", Action: ActionReport, Outcome: OutcomeUnresolved}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var levelID, reason sql.NullString
	db.QueryRow("SELECT level_id, reason FROM decision_log").Scan(&levelID, &reason)
	if levelID.Valid {
		t.Error("expected NULL level_id")
	}
	if reason.Valid {
		t.Error("expected NULL reason")
	}
}

// #endregion log-decision-tests

// #region query-tests
func TestRecent_FiltersByRunNewestFirst(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	for i, run := range []string{"a", "b", "a"} {
		err := LogDecision(db, DecisionEntry{RunID: run, LevelIndex: i, Action: ActionReject, Outcome: OutcomeFail, ErrorsAfter: i + 1})
		if err != nil {
			t.Fatalf("log %d: %v", i, err)
		}
	}

	got, err := Recent(db, "a", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows for run a, got %d", len(got))
	}
	if got[0].LevelIndex != 2 || got[1].LevelIndex != 0 {
		t.Errorf("expected newest first, got %d then %d", got[0].LevelIndex, got[1].LevelIndex)
	}

	all, err := Recent(db, "", 2)
	if err != nil {
		t.Fatalf("recent all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected limit 2, got %d", len(all))
	}
}

func TestNewRunID_Unique(t *testing.T) {
	if NewRunID() == NewRunID() {
		t.Fatal("run ids should differ")
	}
}

// #endregion query-tests
