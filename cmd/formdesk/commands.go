package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/danielpatrickdp/formdesk/internal/config"
	"github.com/danielpatrickdp/formdesk/internal/desk"
	"github.com/danielpatrickdp/formdesk/internal/leveldata"
	"github.com/danielpatrickdp/formdesk/internal/report"
	"github.com/danielpatrickdp/formdesk/internal/state"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string
	dataPath   string
	dbPath     string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "formdesk",
		Short: "A paper-form desk: stamp forms, catch anomalies, keep the error count down",
		Long: `formdesk loads a day of forms, lets you tick options and stamp
ACCEPT or REJECT, and scores every stamp against the form's routes.
Anomalies on the desk can be reported for a fix.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = newLogger(logLevel)
			slog.SetDefault(logger)

			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dataPath != "" {
				loaded.DataPath = dataPath
			}
			if dbPath != "" {
				loaded.DBPath = dbPath
			}
			cfg = loaded
			return nil
		},
	}

	playCmd = &cobra.Command{
		Use:   "play",
		Short: "Work the desk interactively",
		RunE:  runPlay,
	}
	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Show the saved run, progression, active anomalies and recent decisions",
		RunE:  runInspect,
	}
	replayCmd = &cobra.Command{
		Use:   "replay <fixture.json>",
		Short: "Replay a scripted session and check its expectations",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplay,
	}
	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Start a new run: zero errors and scores, clear unlocks and anomalies",
		RunE:  runReset,
	}
	rulesCmd = &cobra.Command{
		Use:   "rules",
		Short: "Print the global and today rules",
		RunE:  runRules,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "level file (overrides data_path)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite state file (overrides db_path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "debug, info, warn or error")

	rootCmd.AddCommand(playCmd)

	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Int("last", 20, "show N most recent decisions")
	inspectCmd.Flags().Bool("all-runs", false, "include decisions from earlier runs")
	inspectCmd.Flags().Bool("json", false, "output as JSON instead of a table")

	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Bool("json", false, "output step results as JSON")

	rootCmd.AddCommand(resetCmd)

	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().Int("day", 0, "day to show (default: the level file's day)")
}

// #region helpers
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func loadData() (*leveldata.Data, error) {
	if cfg.DataPath == "" {
		return nil, fmt.Errorf("no level file: set data_path, FORMDESK_DATA_PATH or --data")
	}
	data, err := leveldata.Load(cfg.DataPath)
	if err != nil {
		return nil, err
	}
	for _, p := range data.Problems() {
		logger.Warn("level data problem", "path", cfg.DataPath, "problem", p)
	}
	return data, nil
}

func openStore() (*state.Store, error) {
	kv, err := state.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	return kv, nil
}

// controllerConfig maps the runtime config onto the controller's.
func controllerConfig(c config.Config) desk.Config {
	dc := desk.DefaultConfig()
	dc.HardFailThreshold = c.HardFailThreshold
	dc.LoopOnEnd = c.LoopOnEnd
	dc.PersistProgress = c.PersistProgress
	dc.DebugStartLevel = c.DebugStartLevel
	dc.DebugResetOnStart = c.DebugResetOnStart
	dc.Report = report.Config{
		FixDuration:  c.ReportFixDuration,
		DotInterval:  c.ReportDotInterval,
		HoldDuration: c.ReportHoldDuration,
		WrongPenalty: c.ReportWrongPenalty,
	}
	return dc
}

// #endregion helpers
