// Package anomaly holds the persisted anomaly entries and the polling drivers
// that render them. Any number of drivers may read the same entry; whoever
// clears it wins, and every driver reacts on its next poll.
package anomaly

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/formdesk/internal/state"
)

func keyActive(id string) string   { return "PERSIST_ACTIVE_" + id }
func keyPosX(id string) string     { return "PERSIST_POSX_" + id }
func keyPosY(id string) string     { return "PERSIST_POSY_" + id }
func keySeverity(id string) string { return "PERSIST_SEVERITY_" + id }

// #region store
// Store reads and writes per-id anomaly entries in the shared state store.
type Store struct {
	kv *state.Store
}

// NewStore wraps kv.
func NewStore(kv *state.Store) *Store {
	return &Store{kv: kv}
}

// IsActive reports whether id is currently active.
func (s *Store) IsActive(id string) bool {
	return s.kv.GetBool(keyActive(id), false)
}

// SetActive flips the active flag for id.
func (s *Store) SetActive(id string, on bool) error {
	return s.kv.SetBool(keyActive(id), on)
}

// Pos returns the stored position of id, or fallback, clamped to [0,1].
func (s *Store) Pos(id string, fallback Vec2) Vec2 {
	return Vec2{
		X: s.kv.GetFloat(keyPosX(id), fallback.X),
		Y: s.kv.GetFloat(keyPosY(id), fallback.Y),
	}.Clamp01()
}

// SetPos stores a clamped position for id.
func (s *Store) SetPos(id string, p Vec2) error {
	p = p.Clamp01()
	return s.kv.Batch(func(w *state.Writer) error {
		w.SetFloat(keyPosX(id), p.X)
		w.SetFloat(keyPosY(id), p.Y)
		return nil
	})
}

// Severity returns the stored severity of id, or fallback.
func (s *Store) Severity(id string, fallback float64) float64 {
	return s.kv.GetFloat(keySeverity(id), fallback)
}

// SetSeverity stores a clamped severity for id.
func (s *Store) SetSeverity(id string, v float64) error {
	return s.kv.SetFloat(keySeverity(id), clamp01(v))
}

// Activate replaces whatever was stored for id with a fresh active entry, so
// a stale severity from an earlier activation is never picked up.
func (s *Store) Activate(id string, pos Vec2, severity float64) error {
	pos = pos.Clamp01()
	return s.kv.Batch(func(w *state.Writer) error {
		w.SetFloat(keyPosX(id), pos.X)
		w.SetFloat(keyPosY(id), pos.Y)
		w.SetFloat(keySeverity(id), clamp01(severity))
		w.SetBool(keyActive(id), true)
		return nil
	})
}

// Clear removes all four values for id.
func (s *Store) Clear(id string) error {
	if err := s.kv.Delete(keyActive(id), keyPosX(id), keyPosY(id), keySeverity(id)); err != nil {
		return fmt.Errorf("clear anomaly %s: %w", id, err)
	}
	return nil
}

// Get returns the full entry for id.
func (s *Store) Get(id string) Entry {
	return Entry{
		ID:       id,
		Active:   s.IsActive(id),
		Pos:      s.Pos(id, Vec2{X: 0.5, Y: 0.5}),
		Severity: s.Severity(id, 0),
	}
}

// ActiveIDs lists every id whose active flag is set, catalog or not.
func (s *Store) ActiveIDs() ([]string, error) {
	entries, err := s.kv.List("PERSIST_ACTIVE_")
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.Kind == state.KindInt && e.Value == "1" {
			ids = append(ids, strings.TrimPrefix(e.Key, "PERSIST_ACTIVE_"))
		}
	}
	return ids, nil
}

// #endregion store
