package eval

import "github.com/danielpatrickdp/formdesk/internal/leveldata"

// #region selection
// Selection is the read-back side of the form view: what the player ticked.
// Evaluation consumes only ids and booleans, never rendered text.
type Selection interface {
	SelectedOptionCount() int
	SelectedOptionIDs() []string
	FirstSelectedOptionID() string
	SelectedSecurityDetailIDs() []string
	// ComplianceBox reports the compliance checkbox state; present is false
	// when the view has no such checkbox.
	ComplianceBox() (on, present bool)
	// TamperFlag reports the tamper-flag checkbox state; present is false
	// when the view has no such checkbox.
	TamperFlag() (on, present bool)
}

// Selections is a plain snapshot implementing Selection. Nil Compliance or
// Flag means the checkbox is absent.
type Selections struct {
	Options    []string `json:"options,omitempty"`
	Details    []string `json:"details,omitempty"`
	Compliance *bool    `json:"compliance,omitempty"`
	Flag       *bool    `json:"flag,omitempty"`
}

func (s Selections) SelectedOptionCount() int            { return len(s.Options) }
func (s Selections) SelectedOptionIDs() []string         { return s.Options }
func (s Selections) SelectedSecurityDetailIDs() []string { return s.Details }

func (s Selections) FirstSelectedOptionID() string {
	if len(s.Options) == 0 {
		return ""
	}
	return s.Options[0]
}

func (s Selections) ComplianceBox() (bool, bool) {
	if s.Compliance == nil {
		return false, false
	}
	return *s.Compliance, true
}

func (s Selections) TamperFlag() (bool, bool) {
	if s.Flag == nil {
		return false, false
	}
	return *s.Flag, true
}

// Bool returns a pointer to b, for building Selections literals.
func Bool(b bool) *bool { return &b }

// #endregion selection

// #region result
// Check is one evaluated predicate, kept for logging and replay output.
type Check struct {
	Name   string
	Pass   bool
	Detail string
}

// Result is the outcome of evaluating one committed stamp.
type Result struct {
	Passed  bool
	RouteID string
	// Delta is the matched route's score delta clamped per axis at zero.
	// Always zero for legacy levels and failed evaluations.
	Delta  leveldata.ScoreDelta
	Checks []Check
	Reason string
}

// #endregion result
