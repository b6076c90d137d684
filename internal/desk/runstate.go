package desk

import (
	"github.com/danielpatrickdp/formdesk/internal/state"
)

// Persisted run keys.
const (
	keyLevelIndex = "FORMGAME_LEVEL_INDEX"
	keyErrors     = "FORMGAME_ERRORS"
	keyObedience  = "FORMGAME_OBEDIENCE"
	keyHumanity   = "FORMGAME_HUMANITY"
	keyAwareness  = "FORMGAME_AWARENESS"
	keyRunID      = "FORMGAME_RUN_ID"
)

// RunKeys lists every key the controller persists.
var RunKeys = []string{keyLevelIndex, keyErrors, keyObedience, keyHumanity, keyAwareness, keyRunID}

// #region load-save
// LoadRunState reads the saved run. Counters are floored at zero and the
// index is clamped to [0, total-1]. HardFailed is derived from threshold.
func LoadRunState(kv *state.Store, total, threshold int) RunState {
	rs := RunState{
		Index:     clampIndex(kv.GetInt(keyLevelIndex, 0), total),
		Errors:    max(0, kv.GetInt(keyErrors, 0)),
		Obedience: max(0, kv.GetInt(keyObedience, 0)),
		Humanity:  max(0, kv.GetInt(keyHumanity, 0)),
		Awareness: max(0, kv.GetInt(keyAwareness, 0)),
	}
	rs.HardFailed = threshold > 0 && rs.Errors >= threshold
	return rs
}

// SaveRunState writes rs in one transaction.
func SaveRunState(kv *state.Store, rs RunState) error {
	return kv.Batch(func(w *state.Writer) error {
		w.SetInt(keyLevelIndex, rs.Index)
		w.SetInt(keyErrors, rs.Errors)
		w.SetInt(keyObedience, rs.Obedience)
		w.SetInt(keyHumanity, rs.Humanity)
		w.SetInt(keyAwareness, rs.Awareness)
		return nil
	})
}

// LoadRunID returns the saved run id, or "" before the first run.
func LoadRunID(kv *state.Store) string {
	return kv.GetString(keyRunID, "")
}

// #endregion load-save

func clampIndex(i, total int) int {
	if i < 0 || total <= 0 {
		return 0
	}
	if i >= total {
		return total - 1
	}
	return i
}

// nextIndex is the level after i: clamped at the last level, or wrapped to
// the first when loop is set.
func nextIndex(i, total int, loop bool) int {
	next := i + 1
	if next >= total {
		if loop {
			return 0
		}
		return max(0, total-1)
	}
	return next
}
