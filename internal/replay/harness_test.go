package replay

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/formdesk/internal/desk"
	"github.com/danielpatrickdp/formdesk/internal/leveldata"
)

func loadSession(t *testing.T, name string) (*Fixture, *leveldata.Data) {
	t.Helper()
	f, data, err := LoadSession(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("LoadSession(%s): %v", name, err)
	}
	return f, data
}

func TestReplay_Session(t *testing.T) {
	f, data := loadSession(t, "session.json")

	results, sum, err := Replay(data, f, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(results) != len(f.Steps) {
		t.Fatalf("expected %d results, got %d", len(f.Steps), len(results))
	}
	for _, r := range results {
		if !r.OK() {
			t.Errorf("step %s: %s", r.StepID, strings.Join(r.Mismatches, "; "))
		}
	}
	if sum.Mismatches != 0 {
		t.Fatalf("expected no mismatches, got %d", sum.Mismatches)
	}
	if sum.Passed != 3 || sum.Failed != 1 {
		t.Fatalf("expected 3 passed / 1 failed commits, got %d/%d", sum.Passed, sum.Failed)
	}
	if sum.Resolved != 1 || sum.Unresolved != 1 {
		t.Fatalf("expected 1 resolved / 1 unresolved report, got %d/%d", sum.Resolved, sum.Unresolved)
	}
	if sum.Final.LevelID != "Q1_CHECKPOINT" || sum.Final.Run.Errors != 0 {
		t.Fatalf("expected a fresh run after reset, got %+v", sum.Final)
	}
}

func TestReplay_HardFailFixture(t *testing.T) {
	f, data := loadSession(t, "hardfail.json")

	results, sum, err := Replay(data, f, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	for _, r := range results {
		if !r.OK() {
			t.Errorf("step %s: %s", r.StepID, strings.Join(r.Mismatches, "; "))
		}
	}
	if results[1].Outcome.Status != desk.StatusHardFailed {
		t.Fatalf("commit after hard fail should be refused, got %s", results[1].Outcome.Status)
	}
	if sum.Final.Run.HardFailed {
		t.Fatalf("reset should clear the hard fail")
	}
}

func TestReplay_ReportsMismatches(t *testing.T) {
	_, data := loadSession(t, "session.json")
	wrong := 9
	f := &Fixture{Steps: []FixtureStep{{
		StepID: "x1",
		Action: ActionAccept,
		Expect: &FixtureExpect{Status: "applied", Passed: boolPtr(true), Errors: &wrong},
	}}}

	results, sum, err := Replay(data, f, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	// accept with nothing ticked matches no route on the first form
	if results[0].OK() {
		t.Fatalf("expected mismatches")
	}
	if len(results[0].Mismatches) != 2 || sum.Mismatches != 2 {
		t.Fatalf("expected passed and errors to mismatch, got %v", results[0].Mismatches)
	}
	if !strings.HasPrefix(results[0].Mismatches[0], "passed:") {
		t.Fatalf("unexpected first mismatch %q", results[0].Mismatches[0])
	}
}

func TestReplay_ActivateThenReport(t *testing.T) {
	_, data := loadSession(t, "session.json")
	f := &Fixture{Steps: []FixtureStep{
		{StepID: "a1", Action: ActionActivate, Anomaly: "display_glitch"},
		{StepID: "a2", Action: ActionReport, Anomaly: "DISPLAY_GLITCH", Expect: &FixtureExpect{Passed: boolPtr(true), Errors: intPtr(0)}},
		{StepID: "a3", Action: ActionReport, Anomaly: "DISPLAY_GLITCH", Expect: &FixtureExpect{Passed: boolPtr(false), Errors: intPtr(1)}},
	}}

	results, _, err := Replay(data, f, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	for _, r := range results {
		if !r.OK() {
			t.Errorf("step %s: %s", r.StepID, strings.Join(r.Mismatches, "; "))
		}
	}
}

func TestReplay_UnknownAction(t *testing.T) {
	_, data := loadSession(t, "session.json")
	f := &Fixture{Steps: []FixtureStep{{StepID: "bad", Action: "shred"}}}

	if _, _, err := Replay(data, f, nil); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestReplay_EmptyData(t *testing.T) {
	if _, _, err := Replay(&leveldata.Data{}, &Fixture{}, nil); err == nil {
		t.Fatalf("expected error for empty level data")
	}
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }
