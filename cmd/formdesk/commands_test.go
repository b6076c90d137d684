package main

import (
	"testing"
	"time"

	"github.com/danielpatrickdp/formdesk/internal/config"
)

func TestControllerConfigMapsReportTimings(t *testing.T) {
	c := config.Default()
	c.HardFailThreshold = 7
	c.LoopOnEnd = true
	c.ReportFixDuration = 2 * time.Second
	c.ReportWrongPenalty = 3

	dc := controllerConfig(c)
	if dc.HardFailThreshold != 7 || !dc.LoopOnEnd {
		t.Fatalf("run settings not mapped: %+v", dc)
	}
	if dc.Report.FixDuration != 2*time.Second || dc.Report.WrongPenalty != 3 {
		t.Fatalf("report settings not mapped: %+v", dc.Report)
	}
	if dc.Report.DotInterval != c.ReportDotInterval || dc.Report.HoldDuration != c.ReportHoldDuration {
		t.Fatalf("report timings not mapped: %+v", dc.Report)
	}
	if !dc.Journal {
		t.Fatalf("journal should stay on")
	}
}

func TestIsOn(t *testing.T) {
	for _, s := range []string{"", "on", "ON", "yes", "1", "true"} {
		if !isOn(s) {
			t.Errorf("isOn(%q) = false", s)
		}
	}
	for _, s := range []string{"off", "no", "0", "false"} {
		if isOn(s) {
			t.Errorf("isOn(%q) = true", s)
		}
	}
}
