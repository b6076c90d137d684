package desk

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielpatrickdp/formdesk/internal/anomaly"
	"github.com/danielpatrickdp/formdesk/internal/eval"
	"github.com/danielpatrickdp/formdesk/internal/leveldata"
	"github.com/danielpatrickdp/formdesk/internal/logging"
	"github.com/danielpatrickdp/formdesk/internal/progression"
	"github.com/danielpatrickdp/formdesk/internal/state"
)

// #region fakes
type fakeView struct {
	eval.Selections

	locked       bool
	lastQuestion leveldata.QuestionRecord
	lastLevel    string
	lastDetails  []string
	renders      int

	header  bool
	body    bool
	options map[string]bool
}

func (v *fakeView) RenderQuestion(q *leveldata.QuestionRecord, _ []string) {
	v.lastQuestion = *q
	v.renders++
	v.Selections = eval.Selections{}
}

func (v *fakeView) RenderLevel(lv *leveldata.LevelRecord, details []string, _ bool) {
	v.lastLevel = lv.ID
	v.lastDetails = details
	v.renders++
	v.Selections = eval.Selections{}
}

func (v *fakeView) SetLocked(locked bool) { v.locked = locked }

func (v *fakeView) ClearOverwritten() {
	v.header, v.body = false, false
	v.options = nil
}

func (v *fakeView) MarkHeaderOverwritten(on bool) { v.header = on }
func (v *fakeView) MarkBodyOverwritten(on bool)   { v.body = on }

func (v *fakeView) MarkOptionOverwritten(id string, on bool) {
	if v.options == nil {
		v.options = map[string]bool{}
	}
	v.options[id] = on
}

type fakeEffects struct {
	stamps   []bool
	pages    int
	statuses []string
	hud      string
}

func (f *fakeEffects) PlayStamp(accept bool)        { f.stamps = append(f.stamps, accept) }
func (f *fakeEffects) TurnPage()                    { f.pages++ }
func (f *fakeEffects) ShowReportStatus(text string) { f.statuses = append(f.statuses, text) }
func (f *fakeEffects) ClearReportStatus()           {}
func (f *fakeEffects) ShowHUD(text string)          { f.hud = text }

type stepClock struct {
	total time.Duration
}

func (c *stepClock) Sleep(d time.Duration) { c.total += d }

// gateClock blocks the first Sleep until released.
type gateClock struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateClock) Sleep(time.Duration) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
}

// #endregion fakes

// #region helpers
func tempStore(t *testing.T) *state.Store {
	t.Helper()
	s, err := state.NewStore(filepath.Join(t.TempDir(), "desk.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type rig struct {
	c     *Controller
	kv    *state.Store
	view  *fakeView
	fx    *fakeEffects
	clock *stepClock
}

func newRig(t *testing.T, cfg Config, data *leveldata.Data) *rig {
	t.Helper()
	return newRigOn(t, tempStore(t), cfg, data)
}

func newRigOn(t *testing.T, kv *state.Store, cfg Config, data *leveldata.Data) *rig {
	t.Helper()
	r := &rig{kv: kv, view: &fakeView{}, fx: &fakeEffects{}, clock: &stepClock{}}
	c, err := New(cfg, data, Deps{Store: kv, View: r.view, Effects: r.fx, Clock: r.clock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.c = c
	c.Start()
	return r
}

func acceptQuestion(id string) leveldata.QuestionRecord {
	return leveldata.QuestionRecord{
		LevelID: id,
		Form:    leveldata.Form{Header: leveldata.Header{Title: id}},
		Routes: []leveldata.AnswerRoute{
			{RouteID: "ok", Stamp: "ACCEPT", ScoreDelta: leveldata.ScoreDelta{Obedience: 1}},
		},
	}
}

func questionData(qs ...leveldata.QuestionRecord) *leveldata.Data {
	return &leveldata.Data{Kind: leveldata.KindQuestions, Day: 1, Questions: qs}
}

func overrideQuestion() leveldata.QuestionRecord {
	return leveldata.QuestionRecord{
		LevelID: "D1_Q1",
		Form: leveldata.Form{
			Header:  leveldata.Header{Title: "Transfer request"},
			Body:    leveldata.Body{Order: "Deny the transfer."},
			Options: []leveldata.Option{{ID: "A", Label: "Approve"}, {ID: "B", Label: "Deny"}},
		},
		Routes: []leveldata.AnswerRoute{
			{RouteID: "deny", Stamp: "REJECT", MustTickOptionIDs: []string{"B"}, ScoreDelta: leveldata.ScoreDelta{Awareness: 2}},
			{RouteID: "approve", Stamp: "ACCEPT", MustTickOptionIDs: []string{"A"}},
		},
		ScriptedAnomalies: []leveldata.ScriptedAnomaly{
			{ID: anomaly.AnswerOverride, OverrideTitle: "Transfer approved", OptionA: "A", OptionB: "B"},
		},
	}
}

// #endregion helpers

// #region constructor-tests
func TestNew_EmptyDataIsConfigError(t *testing.T) {
	kv := tempStore(t)
	_, err := New(DefaultConfig(), &leveldata.Data{Kind: leveldata.KindQuestions}, Deps{Store: kv, View: &fakeView{}})
	if !errors.Is(err, leveldata.ErrNoLevels) {
		t.Fatalf("expected ErrNoLevels, got %v", err)
	}
	_, err = New(DefaultConfig(), nil, Deps{Store: kv, View: &fakeView{}})
	if !errors.Is(err, leveldata.ErrNoLevels) {
		t.Fatalf("expected ErrNoLevels for nil data, got %v", err)
	}
}

func TestStart_RendersFirstLevel(t *testing.T) {
	r := newRig(t, DefaultConfig(), questionData(acceptQuestion("Q1"), acceptQuestion("Q2")))
	snap := r.c.Snapshot()
	if snap.Stage != "ready" || snap.LevelID != "Q1" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if r.view.renders != 1 || r.view.locked {
		t.Fatalf("expected one unlocked render, got renders=%d locked=%t", r.view.renders, r.view.locked)
	}
	if r.fx.hud != "Day 1 Level: 1/2" {
		t.Fatalf("unexpected HUD %q", r.fx.hud)
	}
}

// #endregion constructor-tests

// #region commit-tests
func TestCommit_PassAppliesDeltaAndAdvances(t *testing.T) {
	r := newRig(t, DefaultConfig(), questionData(acceptQuestion("Q1"), acceptQuestion("Q2")))

	out := r.c.Commit(true)
	if out.Status != StatusApplied || !out.Passed || out.RouteID != "ok" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	snap := r.c.Snapshot()
	if snap.Run.Obedience != 1 || snap.Run.Errors != 0 || snap.LevelID != "Q2" {
		t.Fatalf("unexpected run %+v at %s", snap.Run, snap.LevelID)
	}
	if len(r.fx.stamps) != 1 || !r.fx.stamps[0] || r.fx.pages != 1 {
		t.Fatalf("expected one accept stamp and one page turn, got %v/%d", r.fx.stamps, r.fx.pages)
	}
}

func TestCommit_ClampsOrWrapsAtEnd(t *testing.T) {
	data := questionData(acceptQuestion("Q1"), acceptQuestion("Q2"))

	r := newRig(t, DefaultConfig(), data)
	r.c.Commit(true)
	r.c.Commit(true)
	if got := r.c.Snapshot().LevelID; got != "Q2" {
		t.Fatalf("expected to stay on last level, got %s", got)
	}

	cfg := DefaultConfig()
	cfg.LoopOnEnd = true
	r = newRig(t, cfg, data)
	r.c.Commit(true)
	r.c.Commit(true)
	if got := r.c.Snapshot().LevelID; got != "Q1" {
		t.Fatalf("expected wrap to first level, got %s", got)
	}
}

func TestCommit_WrongAnswerPenalty(t *testing.T) {
	q := acceptQuestion("Q1")
	q.OnWrong = &leveldata.WrongScore{ScrapErrors: 3}
	r := newRig(t, DefaultConfig(), questionData(q, acceptQuestion("Q2")))

	out := r.c.Commit(false)
	if out.Passed || out.Penalty != 3 {
		t.Fatalf("expected penalty 3, got %+v", out)
	}
	if got := r.c.Snapshot().Run.Errors; got != 3 {
		t.Fatalf("expected 3 errors, got %d", got)
	}
}

func TestHardFail_FreezesCountersUntilReset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HardFailThreshold = 2
	r := newRig(t, cfg, questionData(acceptQuestion("Q1"), acceptQuestion("Q2"), acceptQuestion("Q3")))

	r.c.Commit(false)
	out := r.c.Commit(false)
	if !out.HardFailed {
		t.Fatalf("second wrong commit should hard fail: %+v", out)
	}
	before := r.c.Snapshot()
	if before.Run.Errors != 2 || !before.Run.HardFailed || before.Stage != "hard_failed" {
		t.Fatalf("unexpected state %+v", before)
	}
	if r.fx.hud != "SCRAPPED" || !r.view.locked {
		t.Fatalf("expected locked SCRAPPED view, hud=%q locked=%t", r.fx.hud, r.view.locked)
	}

	if out := r.c.Commit(true); out.Status != StatusHardFailed {
		t.Fatalf("commit after hard fail: %+v", out)
	}
	if r.c.SelectAnomaly(anomaly.FormError) {
		t.Fatal("panel should be frozen")
	}
	if out := r.c.Report(); out.Status != StatusHardFailed {
		t.Fatalf("report after hard fail: %+v", out)
	}
	after := r.c.Snapshot()
	if after.Run != before.Run {
		t.Fatalf("counters moved while frozen: %+v -> %+v", before.Run, after.Run)
	}

	reset := r.c.Reset()
	if reset.Status != StatusApplied {
		t.Fatalf("reset: %+v", reset)
	}
	snap := r.c.Snapshot()
	if snap.Run != (RunState{}) || snap.Stage != "ready" || snap.LevelID != "Q1" {
		t.Fatalf("reset should restart the run, got %+v", snap)
	}
	if snap.RunID == before.RunID {
		t.Fatal("reset should start a new run id")
	}
}

func TestHardFail_RestoredFromStore(t *testing.T) {
	kv := tempStore(t)
	if err := SaveRunState(kv, RunState{Index: 1, Errors: 5}); err != nil {
		t.Fatalf("SaveRunState: %v", err)
	}
	cfg := DefaultConfig()
	cfg.HardFailThreshold = 5
	r := newRigOn(t, kv, cfg, questionData(acceptQuestion("Q1"), acceptQuestion("Q2")))
	if got := r.c.Snapshot().Stage; got != "hard_failed" {
		t.Fatalf("expected frozen start, got %s", got)
	}
	if r.view.renders != 0 {
		t.Fatal("no level should load while hard failed")
	}
}

// #endregion commit-tests

// #region report-tests
func TestReport_AnswerOverrideHeals(t *testing.T) {
	r := newRig(t, DefaultConfig(), questionData(overrideQuestion(), acceptQuestion("Q2")))
	anomalies := anomaly.NewStore(r.kv)

	if r.view.lastQuestion.Form.Header.Title != "Transfer approved" {
		t.Fatalf("expected overridden title, got %q", r.view.lastQuestion.Form.Header.Title)
	}
	if !r.view.header || !r.view.options["A"] || !r.view.options["B"] {
		t.Fatalf("expected header and both options marked, got header=%t options=%v", r.view.header, r.view.options)
	}
	if !anomalies.IsActive(anomaly.AnswerOverride) {
		t.Fatal("override should be active in the store")
	}

	if !r.c.SelectAnomaly("answer_override") {
		t.Fatal("select failed")
	}
	out := r.c.Report()
	if out.Status != StatusApplied || !out.Passed || out.AnomalyID != anomaly.AnswerOverride {
		t.Fatalf("unexpected report outcome %+v", out)
	}
	if r.clock.total != 2250*time.Millisecond {
		t.Fatalf("expected fix plus hold delay of 2.25s, got %v", r.clock.total)
	}
	if r.fx.statuses[0] != "FIXING REPORTED ISSUE" || r.fx.statuses[len(r.fx.statuses)-1] != "DONE" {
		t.Fatalf("unexpected status lines %v", r.fx.statuses)
	}

	if anomalies.IsActive(anomaly.AnswerOverride) {
		t.Fatal("store entry should be cleared")
	}
	if r.view.lastQuestion.Form.Header.Title != "Transfer request" {
		t.Fatalf("form should heal, got %q", r.view.lastQuestion.Form.Header.Title)
	}
	if r.view.header || len(r.view.options) != 0 {
		t.Fatal("marks should be cleared after heal")
	}
	if r.view.locked || r.c.SelectedAnomaly() != "" {
		t.Fatal("report should end unlocked with nothing selected")
	}

	r.view.Options = []string{"B"}
	commit := r.c.Commit(false)
	if commit.RouteID != "deny" || commit.Delta.Awareness != 2 {
		t.Fatalf("healed form should evaluate against the canonical routes, got %+v", commit)
	}
}

func TestReport_WrongReportPenalty(t *testing.T) {
	r := newRig(t, DefaultConfig(), questionData(acceptQuestion("Q1")))
	r.c.SelectAnomaly(anomaly.FormError)

	out := r.c.Report()
	if out.Passed || out.Penalty != 1 {
		t.Fatalf("expected unresolved report with penalty 1, got %+v", out)
	}
	if last := r.fx.statuses[len(r.fx.statuses)-1]; last != "ERRORS NOT FOUND" {
		t.Fatalf("unexpected result line %q", last)
	}
	snap := r.c.Snapshot()
	if snap.Run.Errors != 1 || snap.LevelID != "Q1" || snap.Stage != "ready" {
		t.Fatalf("report should stay on the level, got %+v", snap)
	}
}

func TestReport_NeedsSelection(t *testing.T) {
	r := newRig(t, DefaultConfig(), questionData(acceptQuestion("Q1")))
	if out := r.c.Report(); out.Status != StatusIgnored {
		t.Fatalf("report with no selection should be ignored, got %+v", out)
	}
	if r.c.Snapshot().Run.Errors != 0 {
		t.Fatal("ignored report changed counters")
	}
}

func TestReport_ExternalActivationIsReportable(t *testing.T) {
	r := newRig(t, DefaultConfig(), questionData(acceptQuestion("Q1"), acceptQuestion("Q2")))
	anomalies := anomaly.NewStore(r.kv)
	if err := anomalies.Activate(anomaly.DisplayGlitch, anomaly.Vec2{X: 0.3, Y: 0.6}, 0.2); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	r.c.SelectAnomaly(anomaly.DisplayGlitch)
	if out := r.c.Report(); !out.Passed {
		t.Fatalf("spawned glitch should be reportable: %+v", out)
	}
	if anomalies.IsActive(anomaly.DisplayGlitch) {
		t.Fatal("resolved glitch should be cleared")
	}
}

func TestReport_IgnoredForLegacyData(t *testing.T) {
	data := &leveldata.Data{Kind: leveldata.KindLegacy, Levels: []leveldata.LevelRecord{{ID: "L1"}}}
	r := newRig(t, DefaultConfig(), data)
	if r.c.SelectAnomaly(anomaly.FormError) {
		t.Fatal("legacy panel should not take selections")
	}
	if out := r.c.Report(); out.Status != StatusIgnored {
		t.Fatalf("expected ignored, got %+v", out)
	}
}

func TestReport_BlocksConcurrentCommit(t *testing.T) {
	kv := tempStore(t)
	view := &fakeView{}
	clock := &gateClock{entered: make(chan struct{}), release: make(chan struct{})}
	c, err := New(DefaultConfig(), questionData(acceptQuestion("Q1")), Deps{Store: kv, View: view, Clock: clock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Start()
	c.SelectAnomaly(anomaly.FormError)

	done := make(chan Outcome)
	go func() { done <- c.Report() }()
	<-clock.entered

	if out := c.Commit(true); out.Status != StatusIgnored {
		t.Fatalf("commit during report should be ignored, got %+v", out)
	}
	close(clock.release)
	if out := <-done; out.Status != StatusApplied {
		t.Fatalf("report: %+v", out)
	}
}

// #endregion report-tests

// #region level-tests
func TestLoading_ClearsLevelLocalOverride(t *testing.T) {
	r := newRig(t, DefaultConfig(), questionData(acceptQuestion("Q1"), acceptQuestion("Q2")))
	anomalies := anomaly.NewStore(r.kv)
	anomalies.SetActive(anomaly.AnswerOverride, true)
	anomalies.SetActive(anomaly.DisplayGlitch, true)

	r.c.Commit(true)
	if anomalies.IsActive(anomaly.AnswerOverride) {
		t.Fatal("answer override leaked into the next level")
	}
	if !anomalies.IsActive(anomaly.DisplayGlitch) {
		t.Fatal("global display glitch should persist across levels")
	}
}

func TestLegacy_UnlocksIntroducedDetailsRegardless(t *testing.T) {
	data := &leveldata.Data{Kind: leveldata.KindLegacy, Levels: []leveldata.LevelRecord{
		{ID: "L1", IntroduceSecurityDetails: []string{"SEAL"}, Options: []leveldata.Option{{ID: "X"}}},
		{ID: "L2"},
	}}
	r := newRig(t, DefaultConfig(), data)

	// No option ticked: wrong answer.
	out := r.c.Commit(true)
	if out.Passed {
		t.Fatal("expected a wrong answer")
	}
	tracker := progression.NewTracker(r.kv)
	if !tracker.IsUnlocked("SEAL") {
		t.Fatal("introduced details should unlock on a wrong answer too")
	}
	if tracker.FlagUnlocked() {
		t.Fatal("details alone should not unlock the flag")
	}
	if r.view.lastLevel != "L2" || len(r.view.lastDetails) != 1 || r.view.lastDetails[0] != "SEAL" {
		t.Fatalf("L2 should offer unlocked details, got %s %v", r.view.lastLevel, r.view.lastDetails)
	}
	if r.fx.hud != "Level: 2/2" {
		t.Fatalf("unexpected legacy HUD %q", r.fx.hud)
	}
}

func TestLegacy_FlagUnlocksOnlyWhenIntroduced(t *testing.T) {
	data := &leveldata.Data{Kind: leveldata.KindLegacy, Levels: []leveldata.LevelRecord{
		{ID: "L1", CanBeTampered: true},
		{ID: "L2", IntroduceFlag: true},
		{ID: "L3"},
	}}
	r := newRig(t, DefaultConfig(), data)
	tracker := progression.NewTracker(r.kv)

	r.c.Commit(true)
	if tracker.FlagUnlocked() {
		t.Fatal("a tamperable page should not unlock the flag by itself")
	}
	r.c.Commit(true)
	if !tracker.FlagUnlocked() {
		t.Fatal("introduceFlag should unlock the flag")
	}
}

func TestPersistence_ResumesRun(t *testing.T) {
	kv := tempStore(t)
	data := questionData(acceptQuestion("Q1"), acceptQuestion("Q2"), acceptQuestion("Q3"))

	first := newRigOn(t, kv, DefaultConfig(), data)
	first.c.Commit(false)
	runID := first.c.Snapshot().RunID

	second := newRigOn(t, kv, DefaultConfig(), data)
	snap := second.c.Snapshot()
	if snap.LevelID != "Q2" || snap.Run.Errors != 1 || snap.RunID != runID {
		t.Fatalf("expected resumed run, got %+v", snap)
	}

	cfg := DefaultConfig()
	cfg.PersistProgress = false
	fresh := newRigOn(t, kv, cfg, data)
	if snap := fresh.c.Snapshot(); snap.LevelID != "Q1" || snap.Run.Errors != 0 {
		t.Fatalf("persistence off should start fresh, got %+v", snap)
	}
}

func TestDebugStartLevel(t *testing.T) {
	kv := tempStore(t)
	SaveRunState(kv, RunState{Errors: 4, Humanity: 2})

	cfg := DefaultConfig()
	cfg.DebugStartLevel = 3
	r := newRigOn(t, kv, cfg, questionData(acceptQuestion("Q1"), acceptQuestion("Q2"), acceptQuestion("Q3")))
	snap := r.c.Snapshot()
	if snap.LevelID != "Q3" || snap.Run.Errors != 0 || snap.Run.Humanity != 0 {
		t.Fatalf("expected reset start at Q3, got %+v", snap)
	}
}

func TestReload_AppliesAtNextLoading(t *testing.T) {
	r := newRig(t, DefaultConfig(), questionData(acceptQuestion("Q1"), acceptQuestion("Q2")))

	if err := r.c.Reload(&leveldata.Data{}); !errors.Is(err, leveldata.ErrNoLevels) {
		t.Fatalf("empty reload should fail, got %v", err)
	}
	next := questionData(acceptQuestion("N1"), acceptQuestion("N2"), acceptQuestion("N3"))
	if err := r.c.Reload(next); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if snap := r.c.Snapshot(); !snap.PendingData || snap.LevelID != "Q1" {
		t.Fatalf("reload must not disturb the current level, got %+v", snap)
	}

	r.c.Commit(true)
	snap := r.c.Snapshot()
	if snap.PendingData || snap.Total != 3 || snap.LevelID != "N2" {
		t.Fatalf("expected new data at index 1, got %+v", snap)
	}
}

func TestJournal_RecordsDecisions(t *testing.T) {
	r := newRig(t, DefaultConfig(), questionData(acceptQuestion("Q1"), acceptQuestion("Q2")))
	r.c.Commit(true)
	r.c.SelectAnomaly(anomaly.Mimic)
	r.c.Report()

	rows, err := logging.Recent(r.kv.DB(), r.c.Snapshot().RunID, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 journal rows, got %d", len(rows))
	}
	if rows[0].Action != logging.ActionReport || rows[0].Outcome != logging.OutcomeUnresolved || rows[0].Subject != anomaly.Mimic {
		t.Fatalf("unexpected report row %+v", rows[0])
	}
	if rows[1].Action != logging.ActionAccept || !strings.Contains(rows[1].DeltaJSON, `"obedience":1`) {
		t.Fatalf("unexpected commit row %+v", rows[1])
	}
}

// #endregion level-tests

func TestFormatHUD(t *testing.T) {
	q := questionData(acceptQuestion("Q1"))
	q.Day = 0
	if got := FormatHUD(q, 0, false); got != "Level: 1/1" {
		t.Fatalf("dayless question HUD %q", got)
	}
	if got := FormatHUD(q, 0, true); got != "SCRAPPED" {
		t.Fatalf("hard-failed HUD %q", got)
	}
}
