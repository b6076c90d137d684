package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danielpatrickdp/formdesk/internal/replay"
	"github.com/danielpatrickdp/formdesk/internal/terminal"
	"github.com/spf13/cobra"
)

var errMismatch = errors.New("replay expectations not met")

// #region replay
func runReplay(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	f, data, err := replay.LoadSession(args[0])
	if err != nil {
		return err
	}
	results, sum, err := replay.Replay(data, f, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{"steps": results, "summary": sum}); err != nil {
			return err
		}
	} else {
		printReplay(out, f.Description, results, sum)
	}
	if sum.Mismatches > 0 {
		return fmt.Errorf("%w: %d mismatches", errMismatch, sum.Mismatches)
	}
	return nil
}

func printReplay(w io.Writer, desc string, results []replay.StepResult, sum replay.Summary) {
	if desc != "" {
		fmt.Fprintln(w, terminal.Styles.Title.Render(desc))
	}
	fmt.Fprintf(w, "%-8s %-9s %-12s %-7s %-14s %-7s %s\n", "STEP", "ACTION", "STATUS", "PASSED", "ROUTE", "ERRORS", "CHECK")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, r := range results {
		check := terminal.Styles.Muted.Render("ok")
		if !r.OK() {
			check = terminal.Styles.Status.Render("MISMATCH")
		}
		route := r.Outcome.RouteID
		if route == "" {
			route = r.Outcome.AnomalyID
		}
		fmt.Fprintf(w, "%-8s %-9s %-12s %-7v %-14s %-7d %s\n",
			r.StepID, r.Action, r.Outcome.Status, r.Outcome.Passed, orDash(route), r.After.Run.Errors, check)
		for _, m := range r.Mismatches {
			fmt.Fprintf(w, "         %s\n", m)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Steps: %d | Commits: %d passed, %d failed | Reports: %d resolved, %d unresolved | Ignored: %d | Mismatches: %d\n",
		sum.TotalSteps, sum.Passed, sum.Failed, sum.Resolved, sum.Unresolved, sum.Ignored, sum.Mismatches)
	fmt.Fprintf(w, "Final: level %s, errors %d, hard failed %v\n", sum.Final.LevelID, sum.Final.Run.Errors, sum.Final.Run.HardFailed)
}

// #endregion replay
