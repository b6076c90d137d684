package desk

import (
	"time"

	"github.com/danielpatrickdp/formdesk/internal/eval"
	"github.com/danielpatrickdp/formdesk/internal/leveldata"
	"github.com/danielpatrickdp/formdesk/internal/report"
)

// #region stage
// Stage is the controller's position in the per-level pipeline.
type Stage int

const (
	StageIdle Stage = iota // constructed, not started
	StageLoading
	StageReady
	StageCommitting
	StageFolding
	StageAdvancing
	StageReporting
	StageHardFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageLoading:
		return "loading"
	case StageReady:
		return "ready"
	case StageCommitting:
		return "committing"
	case StageFolding:
		return "folding"
	case StageAdvancing:
		return "advancing"
	case StageReporting:
		return "reporting"
	case StageHardFailed:
		return "hard_failed"
	default:
		return "unknown"
	}
}

// #endregion stage

// #region outcome
// Status says whether an operation did anything.
type Status string

const (
	StatusApplied    Status = "applied"
	StatusIgnored    Status = "ignored"
	StatusHardFailed Status = "hard_failed"
)

// Outcome is the result of Commit, Report or Reset. Wrong answers and
// wrong reports are outcomes, not errors.
type Outcome struct {
	Status  Status
	LevelID string
	Index   int
	Passed  bool
	RouteID string
	// AnomalyID is the reported id, for Report outcomes.
	AnomalyID string
	Delta     leveldata.ScoreDelta
	// Penalty is the number of errors this operation added.
	Penalty    int
	HardFailed bool
	Reason     string
}

// #endregion outcome

// #region run-state
// RunState is the persisted session state.
type RunState struct {
	Index      int  `json:"index"`
	Errors     int  `json:"errors"`
	Obedience  int  `json:"obedience"`
	Humanity   int  `json:"humanity"`
	Awareness  int  `json:"awareness"`
	HardFailed bool `json:"hard_failed"`
}

// Snapshot is a read-only view of the controller for HUDs and tooling.
type Snapshot struct {
	RunID        string   `json:"run_id"`
	Stage        string   `json:"stage"`
	Schema       string   `json:"schema"`
	Day          int      `json:"day"`
	Total        int      `json:"total"`
	LevelID      string   `json:"level_id"`
	Run          RunState `json:"run"`
	Resolved     []string `json:"resolved,omitempty"`
	Unlocked     []string `json:"unlocked,omitempty"`
	FlagUnlocked bool     `json:"flag_unlocked"`
	Report       string   `json:"report"`
	HUD          string   `json:"hud"`
	PendingData  bool     `json:"pending_data"`
	Threshold    int      `json:"threshold"`
}

// #endregion run-state

// #region collaborators
// View is the form renderer. It also serves the player's selections back
// to the evaluator.
type View interface {
	eval.Selection

	RenderQuestion(q *leveldata.QuestionRecord, unlockedDetails []string)
	// RenderLevel shows a legacy level. details are the security detail ids
	// offered; security reports whether the security block is visible even
	// when the level itself cannot be tampered.
	RenderLevel(lv *leveldata.LevelRecord, details []string, security bool)
	SetLocked(locked bool)

	ClearOverwritten()
	MarkHeaderOverwritten(on bool)
	MarkBodyOverwritten(on bool)
	MarkOptionOverwritten(id string, on bool)
}

// Effects are the presentation beats around the pipeline. Each call returns
// when its beat is done.
type Effects interface {
	PlayStamp(accept bool)
	TurnPage()
	ShowReportStatus(text string)
	ClearReportStatus()
	ShowHUD(text string)
}

// Clock sleeps in wall time. Report delays are never scaled or cancelled.
type Clock interface {
	Sleep(d time.Duration)
}

// RealClock sleeps with time.Sleep.
type RealClock struct{}

func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

type nopEffects struct{}

func (nopEffects) PlayStamp(bool)          {}
func (nopEffects) TurnPage()               {}
func (nopEffects) ShowReportStatus(string) {}
func (nopEffects) ClearReportStatus()      {}
func (nopEffects) ShowHUD(string)          {}

// #endregion collaborators

// #region config
// Config tunes the controller.
type Config struct {
	// HardFailThreshold freezes the run once errors reach it. 0 disables.
	HardFailThreshold int
	LoopOnEnd         bool
	PersistProgress   bool
	// DebugStartLevel is 1-based; 0 resumes from the saved index.
	DebugStartLevel   int
	DebugResetOnStart bool
	Report            report.Config
	// Journal enables the decision_log table.
	Journal bool
}

// DefaultConfig returns the settings used in play.
func DefaultConfig() Config {
	return Config{
		HardFailThreshold: 50,
		PersistProgress:   true,
		DebugResetOnStart: true,
		Report:            report.DefaultConfig(),
		Journal:           true,
	}
}

// #endregion config
