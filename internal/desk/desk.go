// Package desk is the level and run controller. It loads a level, renders
// its display copy, takes one stamp or report at a time, scores it against
// the canonical record and advances, persisting the run after every change.
package desk

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danielpatrickdp/formdesk/internal/anomaly"
	"github.com/danielpatrickdp/formdesk/internal/eval"
	"github.com/danielpatrickdp/formdesk/internal/leveldata"
	"github.com/danielpatrickdp/formdesk/internal/logging"
	"github.com/danielpatrickdp/formdesk/internal/overlay"
	"github.com/danielpatrickdp/formdesk/internal/progression"
	"github.com/danielpatrickdp/formdesk/internal/report"
	"github.com/danielpatrickdp/formdesk/internal/state"
)

// HUD text shown once the run is frozen.
const hudScrapped = "SCRAPPED"

// #region controller-struct
// Controller runs one session. Operations are serialized; a call made while
// another is in flight is ignored rather than queued.
type Controller struct {
	cfg       Config
	kv        *state.Store
	anomalies *anomaly.Store
	progress  *progression.Tracker
	view      View
	fx        Effects
	clock     Clock
	logger    *slog.Logger

	busy atomic.Bool

	mu       sync.Mutex
	data     *leveldata.Data
	pending  *leveldata.Data
	stage    Stage
	run      RunState
	runID    string
	resolved overlay.Resolved
	marks    overlay.Marks
	panel    report.Panel
	machine  report.Machine
}

// Deps are the collaborators a Controller needs. Store and View are
// required; the rest have defaults.
type Deps struct {
	Store   *state.Store
	View    View
	Effects Effects
	Clock   Clock
	Logger  *slog.Logger
}

// #endregion controller-struct

// #region constructor
// New builds a controller over data. Missing or empty data is a
// configuration error: it is logged and returned, and no controller is made.
func New(cfg Config, data *leveldata.Data, deps Deps) (*Controller, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if data == nil || data.Len() == 0 {
		logger.Error("level data missing or empty, controller disabled")
		return nil, leveldata.ErrNoLevels
	}
	if deps.Store == nil || deps.View == nil {
		return nil, errors.New("desk: store and view are required")
	}

	c := &Controller{
		cfg:       cfg,
		kv:        deps.Store,
		anomalies: anomaly.NewStore(deps.Store),
		progress:  progression.NewTracker(deps.Store),
		view:      deps.View,
		fx:        deps.Effects,
		clock:     deps.Clock,
		logger:    logger,
		data:      data,
		resolved:  overlay.Resolved{},
	}
	if c.fx == nil {
		c.fx = nopEffects{}
	}
	if c.clock == nil {
		c.clock = RealClock{}
	}

	if cfg.Journal {
		if err := logging.EnsureSchema(deps.Store.DB()); err != nil {
			return nil, fmt.Errorf("desk: %w", err)
		}
	}

	if cfg.PersistProgress {
		c.run = LoadRunState(deps.Store, data.Len(), cfg.HardFailThreshold)
		c.runID = deps.Store.GetString(keyRunID, "")
	}
	if c.runID == "" {
		c.runID = logging.NewRunID()
		c.persistRunID()
	}
	return c, nil
}

// #endregion constructor

// #region start
// Start enters the first level, honoring the debug start settings. A run
// that was saved past the hard-fail threshold starts frozen.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.DebugStartLevel > 0 {
		c.run.Index = clampIndex(c.cfg.DebugStartLevel-1, c.data.Len())
		if c.cfg.DebugResetOnStart {
			c.run = RunState{Index: c.run.Index}
		}
		c.saveRun()
	}

	if c.run.HardFailed || c.thresholdReached() {
		c.enterHardFail()
		return
	}
	c.loadLevel(c.run.Index)
}

// #endregion start

// #region loading
// loadLevel is the Loading stage. Level-local anomaly state never survives
// into the next level.
func (c *Controller) loadLevel(i int) {
	if c.run.HardFailed {
		return
	}
	c.stage = StageLoading

	if c.pending != nil {
		c.logger.Info("applying reloaded level data", "schema", c.pending.Kind.String(), "levels", c.pending.Len())
		c.data = c.pending
		c.pending = nil
	}

	c.run.Index = clampIndex(i, c.data.Len())
	c.resolved = overlay.Resolved{}
	c.marks = overlay.Marks{}
	c.panel.Clear()
	c.machine.Finish()
	c.fx.ClearReportStatus()

	if err := c.anomalies.Clear(anomaly.AnswerOverride); err != nil {
		c.logger.Warn("clear answer override", "error", err)
	}
	c.view.ClearOverwritten()

	switch c.data.Kind {
	case leveldata.KindQuestions:
		c.renderQuestion()
	case leveldata.KindLegacy:
		lv := &c.data.Levels[c.run.Index]
		details := lv.SecurityDetailsAvailable
		if len(details) == 0 {
			details = c.progress.UnlockedIDs()
		}
		security := len(c.progress.UnlockedIDs()) > 0 || c.progress.FlagUnlocked()
		c.view.RenderLevel(lv, details, security)
	}

	c.view.SetLocked(false)
	c.panel.SetLocked(false)
	c.fx.ShowHUD(c.hudLocked())
	c.saveRun()

	c.stage = StageReady
	c.logger.Debug("level loaded", "level_id", c.data.LevelID(c.run.Index), "index", c.run.Index)
}

// renderQuestion re-derives the display copy from the canonical question
// and renders it with its overwritten marks.
func (c *Controller) renderQuestion() {
	q := &c.data.Questions[c.run.Index]
	display, marks, changed := overlay.ApplyAnswerOverride(q, c.resolved)
	if changed {
		if err := c.anomalies.SetActive(anomaly.AnswerOverride, true); err != nil {
			c.logger.Warn("activate answer override", "error", err)
		}
	}
	c.marks = marks

	c.view.RenderQuestion(&display, c.progress.UnlockedIDs())
	c.applyMarks()
}

func (c *Controller) applyMarks() {
	if !c.anomalies.IsActive(anomaly.AnswerOverride) || c.resolved.Has(anomaly.AnswerOverride) {
		return
	}
	if c.marks.Header {
		c.view.MarkHeaderOverwritten(true)
	}
	if c.marks.Body {
		c.view.MarkBodyOverwritten(true)
	}
	for _, id := range c.marks.Options() {
		c.view.MarkOptionOverwritten(id, true)
	}
}

// #endregion loading

// #region commit
// Commit stamps the current form. The evaluator reads the canonical record
// and the view's selections; the display copy plays no part.
func (c *Controller) Commit(accept bool) Outcome {
	if !c.busy.CompareAndSwap(false, true) {
		return Outcome{Status: StatusIgnored, Reason: "busy"}
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()

	if out, ok := c.gate(); !ok {
		return out
	}

	idx := c.run.Index
	out := Outcome{Status: StatusApplied, LevelID: c.data.LevelID(idx), Index: idx}

	// Committing
	c.stage = StageCommitting
	c.lockInputs()
	c.fx.PlayStamp(accept)

	res := eval.Evaluate(c.data, idx, accept, c.view)
	out.Passed = res.Passed
	out.RouteID = res.RouteID
	out.Reason = res.Reason
	if res.Passed {
		out.Delta = res.Delta
		c.run.Obedience += res.Delta.Obedience
		c.run.Humanity += res.Delta.Humanity
		c.run.Awareness += res.Delta.Awareness
		c.saveRun()
	}
	c.logger.Info("commit evaluated",
		"level_id", out.LevelID,
		"accept", accept,
		"passed", res.Passed,
		"route", res.RouteID,
		"reason", res.Reason,
	)

	// Folding
	c.stage = StageFolding
	c.fx.TurnPage()

	// Advancing
	c.stage = StageAdvancing
	if !res.Passed {
		out.Penalty = c.wrongAnswerPenalty(idx)
		c.addErrors(out.Penalty)
	}
	if c.data.Kind == leveldata.KindLegacy {
		c.unlockIntroduced(&c.data.Levels[idx])
	}

	action := logging.ActionReject
	if accept {
		action = logging.ActionAccept
	}
	outcome := logging.OutcomeFail
	switch {
	case res.Passed:
		outcome = logging.OutcomePass
	case c.run.HardFailed:
		outcome = logging.OutcomeHardFailed
	}
	c.journal(action, outcome, out.LevelID, idx, res.RouteID, res.Reason, out.Delta)

	if c.run.HardFailed {
		out.HardFailed = true
		return out
	}
	c.loadLevel(nextIndex(idx, c.data.Len(), c.cfg.LoopOnEnd))
	return out
}

// wrongAnswerPenalty is onWrong.scrapErrors for questions, 1 for legacy.
func (c *Controller) wrongAnswerPenalty(idx int) int {
	if c.data.Kind == leveldata.KindQuestions {
		return c.data.Questions[idx].Penalty()
	}
	return 1
}

// unlockIntroduced grows progression as pages go by, whatever the answer.
func (c *Controller) unlockIntroduced(lv *leveldata.LevelRecord) {
	if err := c.progress.UnlockMany(lv.IntroduceSecurityDetails); err != nil {
		c.logger.Warn("unlock security details", "level_id", lv.ID, "error", err)
	}
	if lv.IntroduceFlag {
		if err := c.progress.UnlockFlag(); err != nil {
			c.logger.Warn("unlock flag", "level_id", lv.ID, "error", err)
		}
	}
}

// #endregion commit

// #region report
// SelectAnomaly picks a row in the report panel. Selecting a row deselects
// the others; selecting the same row again clears it.
func (c *Controller) SelectAnomaly(id string) bool {
	if c.busy.Load() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != StageReady || c.data.Kind != leveldata.KindQuestions {
		return false
	}
	return c.panel.Select(id)
}

// SelectedAnomaly returns the panel's selected id.
func (c *Controller) SelectedAnomaly() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panel.Selected()
}

// Report files the selected anomaly. After a fixed check delay it resolves
// if the anomaly store holds the id as active; otherwise the wrong-report
// penalty applies. Reports are only taken on question data.
func (c *Controller) Report() Outcome {
	if !c.busy.CompareAndSwap(false, true) {
		return Outcome{Status: StatusIgnored, Reason: "busy"}
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()

	if out, ok := c.gate(); !ok {
		return out
	}
	if c.data.Kind != leveldata.KindQuestions {
		return Outcome{Status: StatusIgnored, Reason: "reports need question data"}
	}

	id := c.panel.Selected()
	if err := c.machine.Begin(id); err != nil {
		return Outcome{Status: StatusIgnored, Reason: err.Error()}
	}

	idx := c.run.Index
	out := Outcome{Status: StatusApplied, LevelID: c.data.LevelID(idx), Index: idx, AnomalyID: id}

	// Checking
	c.stage = StageReporting
	c.lockInputs()
	rc := c.cfg.Report
	var elapsed time.Duration
	for elapsed < rc.FixDuration {
		c.fx.ShowReportStatus(report.CheckingText(elapsed, rc.DotInterval))
		step := rc.FixDuration - elapsed
		if rc.DotInterval > 0 && rc.DotInterval < step {
			step = rc.DotInterval
		}
		c.clock.Sleep(step)
		elapsed += step
	}

	active := c.anomalies.IsActive(id)
	phase := c.machine.Settle(active)
	c.fx.ShowReportStatus(report.ResultText(phase))
	c.clock.Sleep(rc.HoldDuration)

	if phase == report.PhaseResolved {
		out.Passed = true
		out.Reason = "resolved " + id
		if err := c.anomalies.Clear(id); err != nil {
			c.logger.Warn("clear reported anomaly", "id", id, "error", err)
		}
		c.resolved.Add(id)
		if id == anomaly.AnswerOverride {
			c.view.ClearOverwritten()
			c.renderQuestion()
		}
	} else {
		out.Reason = "nothing active for " + id
		out.Penalty = max(1, rc.WrongPenalty)
		c.addErrors(out.Penalty)
	}
	c.logger.Info("report settled", "level_id", out.LevelID, "id", id, "phase", phase.String())

	outcome := logging.OutcomeUnresolved
	switch {
	case out.Passed:
		outcome = logging.OutcomeResolved
	case c.run.HardFailed:
		outcome = logging.OutcomeHardFailed
	}
	c.journal(logging.ActionReport, outcome, out.LevelID, idx, id, out.Reason, leveldata.ScoreDelta{})

	// Back to Idle
	c.machine.Finish()
	c.panel.Clear()
	c.fx.ClearReportStatus()

	if c.run.HardFailed {
		out.HardFailed = true
		return out
	}
	c.view.SetLocked(false)
	c.panel.SetLocked(false)
	c.stage = StageReady
	c.saveRun()
	return out
}

// #endregion report

// #region reset
// Reset zeroes the run, clears progression and every catalog anomaly, starts
// a new run id and reloads the first level. It is the only way out of a
// hard fail.
func (c *Controller) Reset() Outcome {
	if !c.busy.CompareAndSwap(false, true) {
		return Outcome{Status: StatusIgnored, Reason: "busy"}
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()

	prevRun := c.runID
	c.run = RunState{}
	if err := c.progress.Reset(); err != nil {
		c.logger.Warn("reset progression", "error", err)
	}
	for _, item := range anomaly.Catalog {
		if err := c.anomalies.Clear(item.ID); err != nil {
			c.logger.Warn("clear anomaly", "id", item.ID, "error", err)
		}
	}
	c.journal(logging.ActionReset, logging.OutcomePass, "", 0, "", "reset from run "+prevRun, leveldata.ScoreDelta{})

	c.runID = logging.NewRunID()
	c.persistRunID()
	c.saveRun()
	c.logger.Info("run reset", "previous_run", prevRun, "run", c.runID)

	c.loadLevel(0)
	return Outcome{Status: StatusApplied, LevelID: c.data.LevelID(0), Passed: true, Reason: "reset"}
}

// #endregion reset

// #region reload
// Reload queues new level data. It takes effect at the next Loading stage,
// never in the middle of a level.
func (c *Controller) Reload(data *leveldata.Data) error {
	if data == nil || data.Len() == 0 {
		return leveldata.ErrNoLevels
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = data
	return nil
}

// #endregion reload

// #region snapshot
// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	resolved := make([]string, 0, len(c.resolved))
	for id := range c.resolved {
		resolved = append(resolved, id)
	}
	sort.Strings(resolved)

	return Snapshot{
		RunID:        c.runID,
		Stage:        c.stage.String(),
		Schema:       c.data.Kind.String(),
		Day:          c.data.Day,
		Total:        c.data.Len(),
		LevelID:      c.data.LevelID(c.run.Index),
		Run:          c.run,
		Resolved:     resolved,
		Unlocked:     c.progress.UnlockedIDs(),
		FlagUnlocked: c.progress.FlagUnlocked(),
		Report:       c.machine.Phase().String(),
		HUD:          c.hudLocked(),
		PendingData:  c.pending != nil,
		Threshold:    c.cfg.HardFailThreshold,
	}
}

// HUD returns the level counter line.
func (c *Controller) HUD() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hudLocked()
}

func (c *Controller) hudLocked() string {
	return FormatHUD(c.data, c.run.Index, c.run.HardFailed)
}

// FormatHUD renders the level counter: "Day N Level: i/total" for question
// data with a day, "Level: i/total" otherwise, "SCRAPPED" once hard failed.
func FormatHUD(data *leveldata.Data, index int, hardFailed bool) string {
	if hardFailed {
		return hudScrapped
	}
	total := data.Len()
	if data.Kind == leveldata.KindQuestions && data.Day > 0 {
		return fmt.Sprintf("Day %d Level: %d/%d", data.Day, index+1, total)
	}
	return fmt.Sprintf("Level: %d/%d", index+1, total)
}

// #endregion snapshot

// #region helpers
// gate admits an operation only in Ready.
func (c *Controller) gate() (Outcome, bool) {
	switch c.stage {
	case StageReady:
		return Outcome{}, true
	case StageHardFailed:
		return Outcome{Status: StatusHardFailed, HardFailed: true, Reason: "run scrapped"}, false
	default:
		return Outcome{Status: StatusIgnored, Reason: "not ready: " + c.stage.String()}, false
	}
}

func (c *Controller) lockInputs() {
	c.view.SetLocked(true)
	c.panel.SetLocked(true)
}

// addErrors adds at least one error and trips the hard fail at threshold.
func (c *Controller) addErrors(n int) {
	c.run.Errors += max(1, n)
	c.saveRun()
	if c.thresholdReached() {
		c.enterHardFail()
	}
}

func (c *Controller) thresholdReached() bool {
	return c.cfg.HardFailThreshold > 0 && c.run.Errors >= c.cfg.HardFailThreshold
}

func (c *Controller) enterHardFail() {
	c.run.HardFailed = true
	c.stage = StageHardFailed
	c.lockInputs()
	c.fx.ShowHUD(hudScrapped)
	c.logger.Warn("hard fail threshold reached", "errors", c.run.Errors, "threshold", c.cfg.HardFailThreshold)
}

func (c *Controller) saveRun() {
	if !c.cfg.PersistProgress {
		return
	}
	if err := SaveRunState(c.kv, c.run); err != nil {
		c.logger.Warn("save run state", "error", err)
	}
}

func (c *Controller) persistRunID() {
	if !c.cfg.PersistProgress {
		return
	}
	if err := c.kv.SetString(keyRunID, c.runID); err != nil {
		c.logger.Warn("save run id", "error", err)
	}
}

func (c *Controller) journal(action, outcome, levelID string, idx int, subject, reason string, delta leveldata.ScoreDelta) {
	if !c.cfg.Journal {
		return
	}
	entry := logging.DecisionEntry{
		RunID:       c.runID,
		LevelID:     levelID,
		LevelIndex:  idx,
		Action:      action,
		Outcome:     outcome,
		Subject:     subject,
		Reason:      reason,
		ErrorsAfter: c.run.Errors,
	}
	if !delta.IsZero() {
		if raw, err := json.Marshal(delta); err == nil {
			entry.DeltaJSON = string(raw)
		}
	}
	if err := logging.LogDecision(c.kv.DB(), entry); err != nil {
		c.logger.Warn("journal write failed", "action", action, "error", err)
	}
}

// #endregion helpers
