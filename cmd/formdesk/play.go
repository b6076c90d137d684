package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danielpatrickdp/formdesk/internal/anomaly"
	"github.com/danielpatrickdp/formdesk/internal/config"
	"github.com/danielpatrickdp/formdesk/internal/desk"
	"github.com/danielpatrickdp/formdesk/internal/leveldata"
	"github.com/danielpatrickdp/formdesk/internal/terminal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const playHelp = `commands:
  tick <option-id>     toggle an option
  flag on|off          tamper flag (legacy forms)
  detail <id>          toggle a security detail (flag must be on)
  comply on|off        compliance box (legacy forms)
  accept | reject      stamp the form
  select <anomaly-id>  pick a row on the report panel
  report [anomaly-id]  file the selected (or given) anomaly
  rules                show the day rules
  status               show the run
  reset                start a new run
  help | quit`

// #region play
func runPlay(cmd *cobra.Command, args []string) error {
	data, err := loadData()
	if err != nil {
		return err
	}
	kv, err := openStore()
	if err != nil {
		return err
	}
	defer kv.Close()

	out := cmd.OutOrStdout()
	view := terminal.NewFormView(out)
	ctrl, err := desk.New(controllerConfig(cfg), data, desk.Deps{
		Store:   kv,
		View:    view,
		Effects: view,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	var rules *terminal.RulesBook
	if cfg.RulesPath != "" {
		if rules, err = terminal.LoadRules(cfg.RulesPath); err != nil {
			logger.Warn("rules unavailable", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.WatchData {
		w, err := leveldata.NewWatcher(cfg.DataPath, 250*time.Millisecond, func(d *leveldata.Data) {
			if err := ctrl.Reload(d); err != nil {
				logger.Warn("reload rejected", "error", err)
			}
		}, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(ctx) })
	}
	startDrivers(ctx, g, cfg, anomaly.NewStore(kv), view, logger)

	ctrl.Start()
	s := &session{ctrl: ctrl, view: view, rules: rules, out: out}
	s.draw()

	g.Go(func() error {
		defer cancel()
		return s.loop(ctx, cmd.InOrStdin())
	})
	return g.Wait()
}

// startDrivers runs the anomaly drivers until ctx is done. They only touch
// the anomaly store and the view, both safe for concurrent use.
func startDrivers(ctx context.Context, g *errgroup.Group, c config.Config, store *anomaly.Store, view *terminal.FormView, logger *slog.Logger) {
	poll := c.DisplayGlitch.PollInterval

	dcfg := anomaly.DefaultDisplayConfig()
	dcfg.StartSeverity = c.DisplayGlitch.StartSeverity
	dcfg.MaxSeverity = c.DisplayGlitch.MaxSeverity
	dcfg.SeverityPerMinute = c.DisplayGlitch.SeverityPerMinute
	display := anomaly.NewDisplayDriver(dcfg, store, view, nil, logger)

	burst := anomaly.NewBurstDriver(anomaly.DefaultBurstConfig(), store, view, nil)

	scfg := anomaly.DefaultSpawnConfig()
	scfg.Enabled = c.Spawner.Enabled
	scfg.StartDelay = c.Spawner.StartDelay
	scfg.CheckInterval = c.Spawner.CheckInterval
	scfg.BaseChance = c.Spawner.BaseChance
	scfg.ChanceRampPerMinute = c.Spawner.ChanceRampPerMinute
	scfg.StartSeverity = c.DisplayGlitch.StartSeverity
	spawner := anomaly.NewSpawner(scfg, store, nil, logger)

	for _, t := range []anomaly.Ticker{display, burst, spawner} {
		g.Go(func() error { return anomaly.Run(ctx, t, poll) })
	}
}

// #endregion play

// #region session
type session struct {
	ctrl  *desk.Controller
	view  *terminal.FormView
	rules *terminal.RulesBook
	out   io.Writer
}

// loop reads commands until quit, EOF or ctx is done.
func (s *session) loop(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(s.out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := s.exec(line); quit {
				return nil
			}
		}
	}
}

// exec runs one command line and reports whether the session should end.
func (s *session) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		s.draw()
		return false
	}
	verb, arg := strings.ToLower(fields[0]), ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch verb {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(s.out, playHelp)
		return false
	case "tick":
		if !s.view.ToggleOption(arg) {
			fmt.Fprintf(s.out, "cannot tick %q\n", arg)
		}
	case "flag":
		if !s.view.SetFlag(isOn(arg)) {
			fmt.Fprintln(s.out, "no tamper flag on this form")
		}
	case "detail":
		if !s.view.ToggleDetail(arg) {
			fmt.Fprintf(s.out, "cannot mark %q\n", arg)
		}
	case "comply":
		if !s.view.SetCompliance(isOn(arg)) {
			fmt.Fprintln(s.out, "no compliance box on this form")
		}
	case "accept", "reject":
		s.printOutcome(s.ctrl.Commit(verb == "accept"))
	case "select":
		if !s.ctrl.SelectAnomaly(arg) {
			fmt.Fprintf(s.out, "cannot select %q\n", arg)
		}
	case "report":
		if arg != "" && !strings.EqualFold(s.ctrl.SelectedAnomaly(), arg) {
			s.ctrl.SelectAnomaly(arg)
		}
		s.printOutcome(s.ctrl.Report())
	case "rules":
		s.printRules()
		return false
	case "status":
		fmt.Fprintln(s.out, s.ctrl.HUD())
		return false
	case "reset":
		s.printOutcome(s.ctrl.Reset())
	default:
		fmt.Fprintf(s.out, "unknown command %q (try help)\n", verb)
		return false
	}
	s.draw()
	return false
}

func (s *session) draw() {
	s.view.Print()
	snap := s.ctrl.Snapshot()
	if snap.Schema == leveldata.KindQuestions.String() {
		fmt.Fprintln(s.out, terminal.ReportPanel(s.ctrl.SelectedAnomaly()))
	}
}

func (s *session) printRules() {
	if s.rules == nil {
		fmt.Fprintln(s.out, "no rules file configured")
		return
	}
	fmt.Fprintln(s.out, s.rules.Render(max(1, s.ctrl.Snapshot().Day)))
}

func (s *session) printOutcome(o desk.Outcome) {
	switch o.Status {
	case desk.StatusIgnored:
		fmt.Fprintf(s.out, "ignored: %s\n", o.Reason)
	case desk.StatusHardFailed:
		fmt.Fprintln(s.out, "run scrapped: reset to start over")
	default:
		verdict := "wrong"
		if o.Passed {
			verdict = "ok"
		}
		fmt.Fprintf(s.out, "%s %s: %s", o.LevelID, verdict, o.Reason)
		if o.Penalty > 0 {
			fmt.Fprintf(s.out, " (+%d errors)", o.Penalty)
		}
		fmt.Fprintln(s.out)
	}
}

func isOn(s string) bool {
	switch strings.ToLower(s) {
	case "", "on", "yes", "1", "true":
		return true
	}
	return false
}

// #endregion session
