package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/danielpatrickdp/formdesk/internal/anomaly"
	"github.com/danielpatrickdp/formdesk/internal/desk"
	"github.com/danielpatrickdp/formdesk/internal/logging"
	"github.com/danielpatrickdp/formdesk/internal/progression"
	"github.com/danielpatrickdp/formdesk/internal/terminal"
	"github.com/spf13/cobra"
)

// inspectReport is the JSON shape of inspect output.
type inspectReport struct {
	RunID        string                  `json:"run_id"`
	LevelID      string                  `json:"level_id,omitempty"`
	Run          desk.RunState           `json:"run"`
	Threshold    int                     `json:"hard_fail_threshold"`
	Unlocked     []string                `json:"unlocked"`
	FlagUnlocked bool                    `json:"flag_unlocked"`
	Anomalies    []anomaly.Entry         `json:"active_anomalies"`
	Decisions    []logging.DecisionEntry `json:"decisions"`
}

// #region inspect
func runInspect(cmd *cobra.Command, args []string) error {
	last, _ := cmd.Flags().GetInt("last")
	allRuns, _ := cmd.Flags().GetBool("all-runs")
	jsonOut, _ := cmd.Flags().GetBool("json")

	kv, err := openStore()
	if err != nil {
		return err
	}
	defer kv.Close()

	// the level file only bounds the saved index and names the level
	data, err := loadData()
	if err != nil {
		logger.Info("inspecting without level data", "error", err)
	}
	total := math.MaxInt
	if data != nil {
		total = data.Len()
	}

	rep := inspectReport{
		RunID:     desk.LoadRunID(kv),
		Run:       desk.LoadRunState(kv, total, cfg.HardFailThreshold),
		Threshold: cfg.HardFailThreshold,
	}
	if data != nil {
		rep.LevelID = data.LevelID(rep.Run.Index)
	}

	tracker := progression.NewTracker(kv)
	rep.Unlocked = tracker.UnlockedIDs()
	rep.FlagUnlocked = tracker.FlagUnlocked()

	store := anomaly.NewStore(kv)
	ids, err := store.ActiveIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		rep.Anomalies = append(rep.Anomalies, store.Get(id))
	}

	if err := logging.EnsureSchema(kv.DB()); err != nil {
		return err
	}
	runID := rep.RunID
	if allRuns {
		runID = ""
	}
	if rep.Decisions, err = logging.Recent(kv.DB(), runID, last); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printInspect(out, rep)
	return nil
}

func printInspect(w io.Writer, rep inspectReport) {
	title := terminal.Styles.Title.Render
	muted := terminal.Styles.Muted.Render

	fmt.Fprintln(w, title("RUN"))
	fmt.Fprintf(w, "  id:         %s\n", orDash(rep.RunID))
	fmt.Fprintf(w, "  level:      %d %s\n", rep.Run.Index+1, rep.LevelID)
	fmt.Fprintf(w, "  errors:     %d / %d\n", rep.Run.Errors, rep.Threshold)
	fmt.Fprintf(w, "  scores:     obedience=%d humanity=%d awareness=%d\n", rep.Run.Obedience, rep.Run.Humanity, rep.Run.Awareness)
	if rep.Run.HardFailed {
		fmt.Fprintln(w, "  state:      "+terminal.Styles.Reject.Render("SCRAPPED"))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, title("PROGRESSION"))
	fmt.Fprintf(w, "  flag:       %v\n", rep.FlagUnlocked)
	if len(rep.Unlocked) == 0 {
		fmt.Fprintln(w, "  details:    "+muted("none"))
	}
	for _, id := range rep.Unlocked {
		fmt.Fprintf(w, "  detail:     %s\n", progression.LabelFor(id))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, title("ACTIVE ANOMALIES"))
	if len(rep.Anomalies) == 0 {
		fmt.Fprintln(w, "  "+muted("none"))
	}
	for _, e := range rep.Anomalies {
		fmt.Fprintf(w, "  %-18s pos=(%.2f, %.2f) severity=%.2f\n", e.ID, e.Pos.X, e.Pos.Y, e.Severity)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, title("DECISIONS"))
	if len(rep.Decisions) == 0 {
		fmt.Fprintln(w, "  "+muted("none"))
		return
	}
	fmt.Fprintf(w, "  %-20s %-8s %-12s %-16s %-18s %s\n", "TIME", "ACTION", "OUTCOME", "LEVEL", "SUBJECT", "ERRORS")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 86))
	for _, d := range rep.Decisions {
		fmt.Fprintf(w, "  %-20s %-8s %-12s %-16s %-18s %d\n",
			d.CreatedAt.Format("2006-01-02 15:04:05"), d.Action, d.Outcome, orDash(d.LevelID), orDash(d.Subject), d.ErrorsAfter)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion inspect
