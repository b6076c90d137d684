package replay

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielpatrickdp/formdesk/internal/anomaly"
	"github.com/danielpatrickdp/formdesk/internal/desk"
	"github.com/danielpatrickdp/formdesk/internal/eval"
	"github.com/danielpatrickdp/formdesk/internal/leveldata"
	"github.com/danielpatrickdp/formdesk/internal/state"
)

// Step actions.
const (
	ActionAccept   = "accept"
	ActionReject   = "reject"
	ActionReport   = "report"
	ActionReset    = "reset"
	ActionActivate = "activate"
)

// #region types
// StepResult is the outcome of one replayed step.
type StepResult struct {
	StepID     string
	Action     string
	Outcome    desk.Outcome
	After      desk.Snapshot
	Mismatches []string
}

// OK reports whether every expectation held.
func (r StepResult) OK() bool { return len(r.Mismatches) == 0 }

// Summary aggregates a replay run.
type Summary struct {
	TotalSteps int
	Passed     int // commits that passed
	Failed     int // commits that failed
	Resolved   int
	Unresolved int
	Ignored    int
	Mismatches int
	Final      desk.Snapshot
}

// #endregion types

// #region script-view
// scriptView is a headless view. Each step writes its ticks into Selections
// before acting.
type scriptView struct {
	eval.Selections
	marked bool
}

func (v *scriptView) RenderQuestion(*leveldata.QuestionRecord, []string) { v.Selections = eval.Selections{} }
func (v *scriptView) RenderLevel(*leveldata.LevelRecord, []string, bool) { v.Selections = eval.Selections{} }
func (v *scriptView) SetLocked(bool)                                     {}
func (v *scriptView) ClearOverwritten()                                  { v.marked = false }
func (v *scriptView) MarkHeaderOverwritten(on bool)                      { v.marked = v.marked || on }
func (v *scriptView) MarkBodyOverwritten(on bool)                        { v.marked = v.marked || on }
func (v *scriptView) MarkOptionOverwritten(_ string, on bool)            { v.marked = v.marked || on }

type instantClock struct{}

func (instantClock) Sleep(time.Duration) {}

// #endregion script-view

// #region replay
// Replay runs the fixture's steps through a real controller backed by an
// in-memory store, with report delays skipped. The returned error covers
// setup failures and unknown actions only; expectation misses are reported
// per step.
func Replay(data *leveldata.Data, f *Fixture, logger *slog.Logger) ([]StepResult, Summary, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	kv, err := state.NewStore(":memory:")
	if err != nil {
		return nil, Summary{}, fmt.Errorf("open replay store: %w", err)
	}
	defer kv.Close()

	if f.StartRun != nil {
		if err := desk.SaveRunState(kv, *f.StartRun); err != nil {
			return nil, Summary{}, fmt.Errorf("seed run state: %w", err)
		}
	}

	view := &scriptView{}
	ctrl, err := desk.New(f.Config.ToControllerConfig(), data, desk.Deps{
		Store:  kv,
		View:   view,
		Clock:  instantClock{},
		Logger: logger,
	})
	if err != nil {
		return nil, Summary{}, err
	}
	ctrl.Start()
	anomalies := anomaly.NewStore(kv)

	results := make([]StepResult, 0, len(f.Steps))
	var sum Summary

	for i := range f.Steps {
		step := &f.Steps[i]
		action := strings.ToLower(strings.TrimSpace(step.Action))
		res := StepResult{StepID: step.StepID, Action: action}

		switch action {
		case ActionAccept, ActionReject:
			view.Selections = step.Selections()
			res.Outcome = ctrl.Commit(action == ActionAccept)
		case ActionReport:
			ctrl.SelectAnomaly(step.Anomaly)
			res.Outcome = ctrl.Report()
		case ActionReset:
			res.Outcome = ctrl.Reset()
		case ActionActivate:
			id := strings.ToUpper(strings.TrimSpace(step.Anomaly))
			if err := anomalies.Activate(id, anomaly.Vec2{X: 0.5, Y: 0.5}, 0.12); err != nil {
				return results, sum, fmt.Errorf("step %s: activate %s: %w", step.StepID, id, err)
			}
			res.Outcome = desk.Outcome{Status: desk.StatusApplied, AnomalyID: id}
		default:
			return results, sum, fmt.Errorf("step %s: unknown action %q", step.StepID, step.Action)
		}

		res.After = ctrl.Snapshot()
		if step.Expect != nil {
			res.Mismatches = compare(step.Expect, res.Outcome, res.After, view.marked)
		}
		tally(&sum, action, res)
		results = append(results, res)
	}

	sum.TotalSteps = len(results)
	sum.Final = ctrl.Snapshot()
	return results, sum, nil
}

func tally(sum *Summary, action string, res StepResult) {
	sum.Mismatches += len(res.Mismatches)
	if res.Outcome.Status == desk.StatusIgnored {
		sum.Ignored++
		return
	}
	if res.Outcome.Status != desk.StatusApplied {
		return
	}
	switch action {
	case ActionAccept, ActionReject:
		if res.Outcome.Passed {
			sum.Passed++
		} else {
			sum.Failed++
		}
	case ActionReport:
		if res.Outcome.Passed {
			sum.Resolved++
		} else {
			sum.Unresolved++
		}
	}
}

// #endregion replay

// #region compare
func compare(e *FixtureExpect, out desk.Outcome, snap desk.Snapshot, marked bool) []string {
	var miss []string
	check := func(name string, ok bool, got, want any) {
		if !ok {
			miss = append(miss, fmt.Sprintf("%s: got %v, want %v", name, got, want))
		}
	}

	if e.Status != "" {
		check("status", string(out.Status) == e.Status, out.Status, e.Status)
	}
	if e.Passed != nil {
		check("passed", out.Passed == *e.Passed, out.Passed, *e.Passed)
	}
	if e.RouteID != "" {
		check("route_id", out.RouteID == e.RouteID, out.RouteID, e.RouteID)
	}
	if e.Errors != nil {
		check("errors", snap.Run.Errors == *e.Errors, snap.Run.Errors, *e.Errors)
	}
	if e.Obedience != nil {
		check("obedience", snap.Run.Obedience == *e.Obedience, snap.Run.Obedience, *e.Obedience)
	}
	if e.Humanity != nil {
		check("humanity", snap.Run.Humanity == *e.Humanity, snap.Run.Humanity, *e.Humanity)
	}
	if e.Awareness != nil {
		check("awareness", snap.Run.Awareness == *e.Awareness, snap.Run.Awareness, *e.Awareness)
	}
	if e.HardFailed != nil {
		check("hard_failed", snap.Run.HardFailed == *e.HardFailed, snap.Run.HardFailed, *e.HardFailed)
	}
	if e.NextLevel != "" {
		check("next_level", snap.LevelID == e.NextLevel, snap.LevelID, e.NextLevel)
	}
	if e.Marked != nil {
		check("marked", marked == *e.Marked, marked, *e.Marked)
	}
	return miss
}

// #endregion compare
