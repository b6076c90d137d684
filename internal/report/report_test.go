package report

import (
	"errors"
	"testing"
	"time"
)

func TestPanelSingleSelection(t *testing.T) {
	var p Panel
	if !p.Select("form_error") {
		t.Fatal("expected catalog id to be selectable")
	}
	if !p.Select("DISPLAY_GLITCH") {
		t.Fatal("expected second id to be selectable")
	}
	if p.Selected() != "DISPLAY_GLITCH" {
		t.Fatalf("expected DISPLAY_GLITCH, got %q", p.Selected())
	}
	if p.IsSelected("FORM_ERROR") {
		t.Fatal("selecting a new id must deselect the old one")
	}

	p.Select("DISPLAY_GLITCH")
	if p.Selected() != "" {
		t.Fatal("selecting the same id again should clear it")
	}

	if p.Select("NOT_AN_ANOMALY") {
		t.Fatal("unknown id accepted")
	}
}

func TestPanelLocked(t *testing.T) {
	var p Panel
	p.SetLocked(true)
	if p.Select("MIMIC") {
		t.Fatal("locked panel accepted a selection")
	}
	p.SetLocked(false)
	if !p.Select("MIMIC") {
		t.Fatal("unlocked panel rejected a selection")
	}
	p.Clear()
	if p.Selected() != "" {
		t.Fatal("clear left a selection")
	}
}

func TestMachineCycle(t *testing.T) {
	var m Machine
	if err := m.Begin(""); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if err := m.Begin("SOMETHING"); !errors.Is(err, ErrUnknownAnomaly) {
		t.Fatalf("expected ErrUnknownAnomaly, got %v", err)
	}
	if err := m.Begin("answer_override"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if m.Phase() != PhaseChecking || m.ID() != "ANSWER_OVERRIDE" {
		t.Fatalf("unexpected state %v %q", m.Phase(), m.ID())
	}
	if err := m.Begin("FORM_ERROR"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	if got := m.Settle(true); got != PhaseResolved {
		t.Fatalf("expected resolved, got %v", got)
	}
	// Settling twice keeps the first result.
	if got := m.Settle(false); got != PhaseResolved {
		t.Fatalf("second settle changed phase to %v", got)
	}

	m.Finish()
	if m.Phase() != PhaseIdle || m.ID() != "" {
		t.Fatal("finish should return to idle")
	}

	m.Begin("FORM_ERROR")
	if got := m.Settle(false); got != PhaseUnresolved {
		t.Fatalf("expected unresolved, got %v", got)
	}
}

func TestCheckingTextDots(t *testing.T) {
	step := 180 * time.Millisecond
	want := []string{
		"FIXING REPORTED ISSUE",
		"FIXING REPORTED ISSUE.",
		"FIXING REPORTED ISSUE..",
		"FIXING REPORTED ISSUE...",
		"FIXING REPORTED ISSUE",
	}
	for i, w := range want {
		if got := CheckingText(time.Duration(i)*step, step); got != w {
			t.Errorf("step %d: got %q, want %q", i, got, w)
		}
	}
	if ResultText(PhaseResolved) != "DONE" || ResultText(PhaseUnresolved) != "ERRORS NOT FOUND" {
		t.Fatal("unexpected result text")
	}
}
