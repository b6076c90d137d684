package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/formdesk/internal/desk"
	"github.com/danielpatrickdp/formdesk/internal/eval"
	"github.com/danielpatrickdp/formdesk/internal/leveldata"
)

// #region fixture-types

// Fixture is a scripted play session: level data plus the player's actions
// and what each action should produce.
type Fixture struct {
	Description string         `json:"description"`
	DataPath    string         `json:"data_path,omitempty"`
	Config      FixtureConfig  `json:"config"`
	StartRun    *desk.RunState `json:"start_run,omitempty"`
	Steps       []FixtureStep  `json:"steps"`
}

// FixtureConfig overrides controller settings for the run.
type FixtureConfig struct {
	HardFailThreshold  *int `json:"hard_fail_threshold,omitempty"`
	LoopOnEnd          bool `json:"loop_on_end"`
	ReportWrongPenalty *int `json:"report_wrong_penalty,omitempty"`
}

// FixtureStep is one player action.
type FixtureStep struct {
	StepID string `json:"step_id"`
	// Action is accept, reject, report, reset or activate.
	Action string `json:"action"`

	Options    []string `json:"options,omitempty"`
	Details    []string `json:"details,omitempty"`
	Flag       *bool    `json:"flag,omitempty"`
	Compliance *bool    `json:"compliance,omitempty"`

	// Anomaly is the id to report or activate.
	Anomaly string `json:"anomaly,omitempty"`

	Expect *FixtureExpect `json:"expect,omitempty"`
}

// FixtureExpect lists the checks for a step. Nil fields are not checked.
type FixtureExpect struct {
	Status     string `json:"status,omitempty"`
	Passed     *bool  `json:"passed,omitempty"`
	RouteID    string `json:"route_id,omitempty"`
	Errors     *int   `json:"errors,omitempty"`
	Obedience  *int   `json:"obedience,omitempty"`
	Humanity   *int   `json:"humanity,omitempty"`
	Awareness  *int   `json:"awareness,omitempty"`
	HardFailed *bool  `json:"hard_failed,omitempty"`
	// NextLevel is the level id on the desk after the step.
	NextLevel string `json:"next_level,omitempty"`
	// Marked is whether any field is flagged as overwritten after the step.
	Marked *bool `json:"marked,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// LoadSession reads a fixture and the level file it names. A relative
// data_path is resolved against the fixture's directory.
func LoadSession(path string) (*Fixture, *leveldata.Data, error) {
	f, err := LoadFixture(path)
	if err != nil {
		return nil, nil, err
	}
	if f.DataPath == "" {
		return nil, nil, fmt.Errorf("fixture %s: data_path is empty", path)
	}
	dataPath := f.DataPath
	if !filepath.IsAbs(dataPath) {
		dataPath = filepath.Join(filepath.Dir(path), dataPath)
	}
	data, err := leveldata.Load(dataPath)
	if err != nil {
		return nil, nil, err
	}
	return f, data, nil
}

// Selections converts the step's ticks to an evaluator selection. The flag
// and compliance boxes are present only when the step mentions them.
func (s *FixtureStep) Selections() eval.Selections {
	return eval.Selections{
		Options:    s.Options,
		Details:    s.Details,
		Flag:       s.Flag,
		Compliance: s.Compliance,
	}
}

// ToControllerConfig applies the overrides on top of desk defaults.
func (fc *FixtureConfig) ToControllerConfig() desk.Config {
	cfg := desk.DefaultConfig()
	cfg.LoopOnEnd = fc.LoopOnEnd
	if fc.HardFailThreshold != nil {
		cfg.HardFailThreshold = *fc.HardFailThreshold
	}
	if fc.ReportWrongPenalty != nil {
		cfg.Report.WrongPenalty = *fc.ReportWrongPenalty
	}
	return cfg
}

// #endregion fixture-loader
