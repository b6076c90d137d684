// Package config loads runtime settings: built-in defaults, then an optional
// YAML file, then FORMDESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "FORMDESK_"

// #region types
// Config is the full runtime configuration.
type Config struct {
	DataPath  string `yaml:"data_path" env:"DATA_PATH"`
	RulesPath string `yaml:"rules_path" env:"RULES_PATH"`
	DBPath    string `yaml:"db_path" env:"DB_PATH"`

	PersistProgress   bool `yaml:"persist_progress" env:"PERSIST_PROGRESS"`
	LoopOnEnd         bool `yaml:"loop_on_end" env:"LOOP_ON_END"`
	HardFailThreshold int  `yaml:"hard_fail_threshold" env:"HARD_FAIL_THRESHOLD"`

	ReportFixDuration  time.Duration `yaml:"report_fix_duration" env:"REPORT_FIX_DURATION"`
	ReportDotInterval  time.Duration `yaml:"report_dot_interval" env:"REPORT_DOT_INTERVAL"`
	ReportHoldDuration time.Duration `yaml:"report_hold_duration" env:"REPORT_HOLD_DURATION"`
	ReportWrongPenalty int           `yaml:"report_wrong_penalty" env:"REPORT_WRONG_PENALTY"`

	// DebugStartLevel is 1-based; 0 starts from the saved index.
	DebugStartLevel   int  `yaml:"debug_start_level" env:"DEBUG_START_LEVEL"`
	DebugResetOnStart bool `yaml:"debug_reset_on_start" env:"DEBUG_RESET_ON_START"`

	WatchData bool `yaml:"watch_data" env:"WATCH_DATA"`

	Spawner       SpawnerConfig       `yaml:"spawner" envPrefix:"SPAWNER_"`
	DisplayGlitch DisplayGlitchConfig `yaml:"display_glitch" envPrefix:"DISPLAY_GLITCH_"`
}

// SpawnerConfig tunes the random display-glitch spawner.
type SpawnerConfig struct {
	Enabled             bool          `yaml:"enabled" env:"ENABLED"`
	StartDelay          time.Duration `yaml:"start_delay" env:"START_DELAY"`
	CheckInterval       time.Duration `yaml:"check_interval" env:"CHECK_INTERVAL"`
	BaseChance          float64       `yaml:"base_chance" env:"BASE_CHANCE"`
	ChanceRampPerMinute float64       `yaml:"chance_ramp_per_minute" env:"CHANCE_RAMP_PER_MINUTE"`
}

// DisplayGlitchConfig tunes the persistent display glitch.
type DisplayGlitchConfig struct {
	StartSeverity     float64       `yaml:"start_severity" env:"START_SEVERITY"`
	MaxSeverity       float64       `yaml:"max_severity" env:"MAX_SEVERITY"`
	SeverityPerMinute float64       `yaml:"severity_per_minute" env:"SEVERITY_PER_MINUTE"`
	PollInterval      time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
}

// #endregion types

// #region defaults
// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		DBPath:             "formdesk.db",
		PersistProgress:    true,
		HardFailThreshold:  50,
		ReportFixDuration:  1500 * time.Millisecond,
		ReportDotInterval:  180 * time.Millisecond,
		ReportHoldDuration: 750 * time.Millisecond,
		ReportWrongPenalty: 1,
		DebugResetOnStart:  true,
		Spawner: SpawnerConfig{
			Enabled:             true,
			StartDelay:          10 * time.Second,
			CheckInterval:       15 * time.Second,
			BaseChance:          0.05,
			ChanceRampPerMinute: 0.02,
		},
		DisplayGlitch: DisplayGlitchConfig{
			StartSeverity:     0.12,
			MaxSeverity:       0.95,
			SeverityPerMinute: 0.06,
			PollInterval:      100 * time.Millisecond,
		},
	}
}

// #endregion defaults

// #region load
// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), and the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// #endregion load

// #region validate
// Validate rejects values the controller cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.HardFailThreshold < 0 {
		errs = append(errs, fmt.Errorf("hard_fail_threshold must be >= 0, got %d", c.HardFailThreshold))
	}
	if c.ReportFixDuration < 0 || c.ReportDotInterval < 0 || c.ReportHoldDuration < 0 {
		errs = append(errs, errors.New("report durations must be >= 0"))
	}
	if c.ReportWrongPenalty < 0 {
		errs = append(errs, fmt.Errorf("report_wrong_penalty must be >= 0, got %d", c.ReportWrongPenalty))
	}
	if c.DebugStartLevel < 0 {
		errs = append(errs, fmt.Errorf("debug_start_level must be >= 0, got %d", c.DebugStartLevel))
	}
	if c.Spawner.StartDelay < 0 || c.Spawner.CheckInterval < 0 {
		errs = append(errs, errors.New("spawner durations must be >= 0"))
	}
	if !unit(c.Spawner.BaseChance) {
		errs = append(errs, fmt.Errorf("spawner.base_chance must be in [0,1], got %g", c.Spawner.BaseChance))
	}
	if c.Spawner.ChanceRampPerMinute < 0 {
		errs = append(errs, errors.New("spawner.chance_ramp_per_minute must be >= 0"))
	}
	g := c.DisplayGlitch
	if !unit(g.StartSeverity) || !unit(g.MaxSeverity) || g.StartSeverity > g.MaxSeverity {
		errs = append(errs, fmt.Errorf("display_glitch severities must satisfy 0 <= start <= max <= 1, got %g..%g", g.StartSeverity, g.MaxSeverity))
	}
	if g.PollInterval <= 0 {
		errs = append(errs, errors.New("display_glitch.poll_interval must be > 0"))
	}
	return errors.Join(errs...)
}

func unit(f float64) bool { return f >= 0 && f <= 1 }

// #endregion validate
