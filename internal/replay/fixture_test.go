package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/formdesk/internal/leveldata"
)

func TestFixture_LoadSession(t *testing.T) {
	f, data, err := LoadSession(filepath.Join("testdata", "session.json"))
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if data.Kind != leveldata.KindQuestions || data.Len() != 3 {
		t.Fatalf("expected 3 questions, got kind=%v len=%d", data.Kind, data.Len())
	}
	if len(f.Steps) != 7 {
		t.Fatalf("expected 7 steps, got %d", len(f.Steps))
	}
	if f.Steps[0].Action != ActionAccept || f.Steps[0].Expect == nil {
		t.Fatalf("unexpected first step: %+v", f.Steps[0])
	}
	if f.StartRun != nil {
		t.Fatalf("session fixture should not seed a run")
	}
}

func TestFixture_StartRunAndConfig(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "hardfail.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.StartRun == nil || f.StartRun.Errors != 2 {
		t.Fatalf("expected start_run errors=2, got %+v", f.StartRun)
	}
	cfg := f.Config.ToControllerConfig()
	if cfg.HardFailThreshold != 3 {
		t.Fatalf("expected threshold 3, got %d", cfg.HardFailThreshold)
	}
	if !cfg.PersistProgress || !cfg.Journal {
		t.Fatalf("overrides should keep the other defaults: %+v", cfg)
	}
	if cfg.Report.WrongPenalty != 1 {
		t.Fatalf("expected default report penalty 1, got %d", cfg.Report.WrongPenalty)
	}
}

func TestFixture_Selections(t *testing.T) {
	on := true
	step := FixtureStep{Options: []string{"A"}, Details: []string{"MORSE"}, Flag: &on}
	sel := step.Selections()

	if sel.SelectedOptionCount() != 1 || sel.FirstSelectedOptionID() != "A" {
		t.Fatalf("unexpected options: %+v", sel)
	}
	if got, present := sel.TamperFlag(); !got || !present {
		t.Fatalf("expected flag on and present")
	}
	if _, present := sel.ComplianceBox(); present {
		t.Fatalf("compliance box should be absent when the step omits it")
	}
}

func TestFixture_Errors(t *testing.T) {
	if _, err := LoadFixture(filepath.Join("testdata", "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFixture(bad); err == nil {
		t.Fatalf("expected parse error")
	}

	noData := filepath.Join(dir, "nodata.json")
	if err := os.WriteFile(noData, []byte(`{"steps":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadSession(noData); err == nil {
		t.Fatalf("expected error for empty data_path")
	}
}
