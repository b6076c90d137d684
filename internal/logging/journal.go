package logging

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	level_id     TEXT,
	level_index  INTEGER NOT NULL,
	action       TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	subject      TEXT,
	reason       TEXT,
	delta_json   TEXT,
	errors_after INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decision_log_run ON decision_log(run_id);
`

// #region schema
// EnsureSchema creates the decision_log table on db if needed.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create decision_log: %w", err)
	}
	return nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// #endregion schema

// #region log-decision
// LogDecision appends entry to decision_log.
func LogDecision(db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (run_id, level_id, level_index, action, outcome, subject, reason, delta_json, errors_after, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		nullIfEmpty(entry.LevelID),
		entry.LevelIndex,
		entry.Action,
		entry.Outcome,
		nullIfEmpty(entry.Subject),
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.DeltaJSON),
		entry.ErrorsAfter,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region query
// Recent returns up to limit entries, newest first. An empty runID matches
// every run.
func Recent(db *sql.DB, runID string, limit int) ([]DecisionEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(
		`SELECT id, run_id, level_id, level_index, action, outcome, subject, reason, delta_json, errors_after, created_at
		 FROM decision_log
		 WHERE ? = '' OR run_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		runID, runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query decision_log: %w", err)
	}
	defer rows.Close()

	var out []DecisionEntry
	for rows.Next() {
		var (
			e                                   DecisionEntry
			levelID, subject, reason, deltaJSON sql.NullString
			createdAt                           string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &levelID, &e.LevelIndex, &e.Action, &e.Outcome,
			&subject, &reason, &deltaJSON, &e.ErrorsAfter, &createdAt); err != nil {
			return nil, fmt.Errorf("scan decision_log: %w", err)
		}
		e.LevelID = levelID.String
		e.Subject = subject.String
		e.Reason = reason.String
		e.DeltaJSON = deltaJSON.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion query

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
