package logging

import "time"

// Actions recorded in the journal.
const (
	ActionAccept = "accept"
	ActionReject = "reject"
	ActionReport = "report"
	ActionReset  = "reset"
)

// Outcomes recorded in the journal.
const (
	OutcomePass       = "pass"
	OutcomeFail       = "fail"
	OutcomeResolved   = "resolved"
	OutcomeUnresolved = "unresolved"
	OutcomeHardFailed = "hard_failed"
)

// DecisionEntry is one row of decision_log.
type DecisionEntry struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	LevelID     string    `json:"level_id,omitempty"`
	LevelIndex  int       `json:"level_index"`
	Action      string    `json:"action"`
	Outcome     string    `json:"outcome"`
	Subject     string    `json:"subject,omitempty"` // route id or reported anomaly id
	Reason      string    `json:"reason,omitempty"`
	DeltaJSON   string    `json:"delta,omitempty"`
	ErrorsAfter int       `json:"errors_after"`
	CreatedAt   time.Time `json:"created_at"`
}
