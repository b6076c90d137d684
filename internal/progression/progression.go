// Package progression tracks which security details the player has unlocked
// and whether the tamper-flag mechanic has been introduced.
package progression

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/danielpatrickdp/formdesk/internal/state"
)

const (
	keyUnlocks = "SECURITY_UNLOCKS"
	keyFlag    = "SECURITY_FLAG_UNLOCKED"
)

// #region tracker
// Tracker is the persisted progression state. It only grows until Reset.
type Tracker struct {
	store *state.Store

	mu       sync.RWMutex
	unlocked map[string]struct{}
	flag     bool
}

// NewTracker loads progression from store.
func NewTracker(store *state.Store) *Tracker {
	t := &Tracker{store: store, unlocked: make(map[string]struct{})}
	t.Load()
	return t
}

// Load replaces in-memory progression with what the store holds.
func (t *Tracker) Load() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.unlocked = make(map[string]struct{})
	t.flag = t.store.GetBool(keyFlag, false)

	raw := t.store.GetString(keyUnlocks, "")
	for _, part := range strings.Split(raw, ";") {
		if id := strings.TrimSpace(part); id != "" {
			t.unlocked[id] = struct{}{}
		}
	}
}

// #endregion tracker

// #region details
// IsUnlocked reports whether a detail id has been unlocked.
func (t *Tracker) IsUnlocked(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.unlocked[id]
	return ok
}

// UnlockedIDs returns unlocked ids in sorted order.
func (t *Tracker) UnlockedIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sortedLocked()
}

// UnlockMany adds ids, trimming blanks. The store is only written when the set grows.
func (t *Tracker) UnlockMany(ids []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := false
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := t.unlocked[id]; !ok {
			t.unlocked[id] = struct{}{}
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := t.store.SetString(keyUnlocks, strings.Join(t.sortedLocked(), ";")); err != nil {
		return fmt.Errorf("save unlocks: %w", err)
	}
	return nil
}

func (t *Tracker) sortedLocked() []string {
	ids := make([]string, 0, len(t.unlocked))
	for id := range t.unlocked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// #endregion details

// #region flag
// FlagUnlocked reports whether the tamper flag mechanic is available.
func (t *Tracker) FlagUnlocked() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.flag
}

// UnlockFlag enables the flag mechanic permanently.
func (t *Tracker) UnlockFlag() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.flag {
		return nil
	}
	t.flag = true
	return t.store.SetBool(keyFlag, true)
}

// #endregion flag

// Reset clears every unlock, in memory and in the store.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unlocked = make(map[string]struct{})
	t.flag = false
	return t.store.Delete(keyUnlocks, keyFlag)
}

// LabelFor returns the display label of a security detail id.
func LabelFor(id string) string {
	switch id {
	case "GLYPH_SWAP":
		return "GLYPH SWAP (▲/□/•)"
	case "ISSUED_BY_AI":
		return "ISSUED BY AI"
	case "FONT_GLITCH":
		return "FONT GLITCH"
	case "MORSE":
		return "MORSE / DOTS"
	case "UNCANNY_IMAGE":
		return "UNCANNY IMAGE"
	case "SCRIBBLES":
		return "CROSSED OUT / SCRIBBLES"
	default:
		return id
	}
}
