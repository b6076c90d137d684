package state

import (
	"errors"
	"time"
)

// #region kind
// Kind tags the type a value was written with. Reads with a different kind
// fall back to the caller's default, the same way a prefs lookup would.
type Kind string

const (
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindString Kind = "string"
)

// #endregion kind

// #region entry
// Entry is one persisted key/value row.
type Entry struct {
	Key       string
	Kind      Kind
	Value     string
	UpdatedAt time.Time
}

// #endregion entry

// ErrNotFound is returned by Lookup when the key has never been written or was deleted.
var ErrNotFound = errors.New("state: key not found")
