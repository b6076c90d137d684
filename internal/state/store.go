package state

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key         TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	value       TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store is the persisted key/value layer shared by the run controller,
// progression tracker and anomaly store. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region lookup
// Lookup reads a single entry.
func (s *Store) Lookup(key string) (Entry, error) {
	var e Entry
	var kind, updated string
	err := s.db.QueryRow(
		`SELECT key, kind, value, updated_at FROM kv WHERE key = ?`, key,
	).Scan(&e.Key, &kind, &e.Value, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("lookup %s: %w", key, err)
	}
	e.Kind = Kind(kind)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return e, nil
}

// Has reports whether key currently holds a value.
func (s *Store) Has(key string) bool {
	_, err := s.Lookup(key)
	return err == nil
}

// #endregion lookup

// #region typed-getters
// GetInt returns the int stored under key, or fallback when missing or of another kind.
func (s *Store) GetInt(key string, fallback int) int {
	e, err := s.Lookup(key)
	if err != nil || e.Kind != KindInt {
		return fallback
	}
	v, err := strconv.Atoi(e.Value)
	if err != nil {
		return fallback
	}
	return v
}

// GetFloat returns the float stored under key, or fallback.
func (s *Store) GetFloat(key string, fallback float64) float64 {
	e, err := s.Lookup(key)
	if err != nil || e.Kind != KindFloat {
		return fallback
	}
	v, err := strconv.ParseFloat(e.Value, 64)
	if err != nil {
		return fallback
	}
	return v
}

// GetString returns the string stored under key, or fallback.
func (s *Store) GetString(key, fallback string) string {
	e, err := s.Lookup(key)
	if err != nil || e.Kind != KindString {
		return fallback
	}
	return e.Value
}

// GetBool reads an int-encoded boolean (1 = true).
func (s *Store) GetBool(key string, fallback bool) bool {
	def := 0
	if fallback {
		def = 1
	}
	return s.GetInt(key, def) == 1
}

// #endregion typed-getters

// #region typed-setters
// SetInt writes an int value.
func (s *Store) SetInt(key string, v int) error {
	return s.put(key, KindInt, strconv.Itoa(v))
}

// SetFloat writes a float value.
func (s *Store) SetFloat(key string, v float64) error {
	return s.put(key, KindFloat, strconv.FormatFloat(v, 'g', -1, 64))
}

// SetString writes a string value.
func (s *Store) SetString(key, v string) error {
	return s.put(key, KindString, v)
}

// SetBool writes a boolean as 1/0.
func (s *Store) SetBool(key string, v bool) error {
	if v {
		return s.SetInt(key, 1)
	}
	return s.SetInt(key, 0)
}

func (s *Store) put(key string, kind Kind, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, kind, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET kind = excluded.kind, value = excluded.value, updated_at = excluded.updated_at`,
		key, string(kind), value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// #endregion typed-setters

// #region batch
// Batch writes several values atomically. Used for run-state snapshots so a
// crash never leaves the index and the counters out of step.
func (s *Store) Batch(fn func(w *Writer) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	w := &Writer{tx: tx, now: time.Now().UTC().Format(time.RFC3339Nano)}
	if err := fn(w); err != nil {
		return err
	}
	if w.err != nil {
		return w.err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Writer stages writes inside a Batch. The first failure sticks and is
// returned by Batch.
type Writer struct {
	tx  *sql.Tx
	now string
	err error
}

func (w *Writer) SetInt(key string, v int) { w.put(key, KindInt, strconv.Itoa(v)) }

func (w *Writer) SetString(key, v string) { w.put(key, KindString, v) }

func (w *Writer) SetFloat(key string, v float64) {
	w.put(key, KindFloat, strconv.FormatFloat(v, 'g', -1, 64))
}

func (w *Writer) Delete(key string) { w.exec(`DELETE FROM kv WHERE key = ?`, key) }

func (w *Writer) SetBool(key string, v bool) {
	if v {
		w.SetInt(key, 1)
		return
	}
	w.SetInt(key, 0)
}

func (w *Writer) put(key string, kind Kind, value string) {
	w.exec(
		`INSERT INTO kv (key, kind, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET kind = excluded.kind, value = excluded.value, updated_at = excluded.updated_at`,
		key, string(kind), value, w.now,
	)
}

func (w *Writer) exec(query string, args ...any) {
	if w.err != nil {
		return
	}
	if _, err := w.tx.Exec(query, args...); err != nil {
		w.err = fmt.Errorf("batch write: %w", err)
	}
}

// #endregion batch

// #region delete
// Delete removes keys. Missing keys are not an error.
func (s *Store) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.Batch(func(w *Writer) error {
		for _, k := range keys {
			w.Delete(k)
		}
		return nil
	})
}

// #endregion delete

// #region list
// List returns every entry whose key starts with prefix, ordered by key.
func (s *Store) List(prefix string) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT key, kind, value, updated_at FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind, updated string
		if err := rows.Scan(&e.Key, &kind, &e.Value, &updated); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Kind = Kind(kind)
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list

// JoinKey builds a namespaced key such as PERSIST_ACTIVE_DISPLAY_GLITCH.
func JoinKey(parts ...string) string {
	return strings.Join(parts, "_")
}
