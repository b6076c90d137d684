package report

import (
	"errors"
	"time"
)

// Phase is the state of the report flow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseChecking
	PhaseResolved
	PhaseUnresolved
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseChecking:
		return "checking"
	case PhaseResolved:
		return "resolved"
	case PhaseUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// Status lines shown by the report panel.
const (
	FixingText     = "FIXING REPORTED ISSUE"
	ResolvedText   = "DONE"
	UnresolvedText = "ERRORS NOT FOUND"
)

var (
	ErrBusy           = errors.New("report already in progress")
	ErrNoSelection    = errors.New("no anomaly selected")
	ErrUnknownAnomaly = errors.New("anomaly not in report catalog")
)

// #region config
// Config holds the report timings. Delays are wall time and always run to
// completion.
type Config struct {
	FixDuration  time.Duration
	DotInterval  time.Duration
	HoldDuration time.Duration
	// WrongPenalty is added to the error count for a report that finds
	// nothing active.
	WrongPenalty int
}

// DefaultConfig returns the timings used in play.
func DefaultConfig() Config {
	return Config{
		FixDuration:  1500 * time.Millisecond,
		DotInterval:  180 * time.Millisecond,
		HoldDuration: 750 * time.Millisecond,
		WrongPenalty: 1,
	}
}

// #endregion config
