package anomaly

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Ticker is implemented by every driver. Tick advances the driver by dt of
// unscaled wall time.
type Ticker interface {
	Tick(dt time.Duration)
}

// Run polls t every interval until ctx is done. Cancellation is a clean stop.
func Run(ctx context.Context, t Ticker, interval time.Duration) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	tk := time.NewTicker(interval)
	defer tk.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			if s, ok := t.(interface{ Stop() }); ok {
				s.Stop()
			}
			return nil
		case now := <-tk.C:
			t.Tick(now.Sub(last))
			last = now
		}
	}
}

// Range is a closed duration interval sampled uniformly.
type Range struct {
	Min, Max time.Duration
}

func (r Range) sample(rng *rand.Rand) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rng.Float64()*float64(r.Max-r.Min))
}

func newRand(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
}

// #region display-glitch
// Cue is the visual/audio effect a display glitch drives.
type Cue interface {
	ApplyCue(severity float64, pos Vec2)
	ClearCue()
}

// DisplayConfig tunes the persistent display glitch.
type DisplayConfig struct {
	AnomalyID         string
	DefaultPos        Vec2
	StartSeverity     float64
	MaxSeverity       float64
	SeverityPerMinute float64
	On                Range
	Off               Range
}

// DefaultDisplayConfig returns the tuning used in play.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		AnomalyID:         DisplayGlitch,
		DefaultPos:        Vec2{X: 0.5, Y: 0.5},
		StartSeverity:     0.12,
		MaxSeverity:       0.95,
		SeverityPerMinute: 0.06,
		On:                Range{120 * time.Millisecond, 280 * time.Millisecond},
		Off:               Range{1200 * time.Millisecond, 2800 * time.Millisecond},
	}
}

// DisplayDriver mirrors a persisted anomaly entry into a pulsing Cue. It
// never owns activation: each tick re-reads the store and either renders or
// makes sure the cue is cleared.
type DisplayDriver struct {
	cfg    DisplayConfig
	store  *Store
	cue    Cue
	rng    *rand.Rand
	logger *slog.Logger

	active    bool
	severity  float64
	pos       Vec2
	cueOn     bool
	phaseLeft time.Duration
}

// NewDisplayDriver builds a driver. rng and logger may be nil.
func NewDisplayDriver(cfg DisplayConfig, store *Store, cue Cue, rng *rand.Rand, logger *slog.Logger) *DisplayDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DisplayDriver{
		cfg:      cfg,
		store:    store,
		cue:      cue,
		rng:      newRand(rng),
		logger:   logger,
		severity: cfg.StartSeverity,
		pos:      cfg.DefaultPos,
	}
}

// Active reports whether the driver is currently pulsing.
func (d *DisplayDriver) Active() bool { return d.active }

// Severity is the driver's current severity.
func (d *DisplayDriver) Severity() float64 { return d.severity }

// Tick implements Ticker.
func (d *DisplayDriver) Tick(dt time.Duration) {
	id := d.cfg.AnomalyID
	should := d.store.IsActive(id)

	if !d.active && should {
		d.active = true
		d.pos = d.store.Pos(id, d.cfg.DefaultPos)
		d.severity = clamp(d.store.Severity(id, d.cfg.StartSeverity), d.cfg.StartSeverity, d.cfg.MaxSeverity)
		d.cueOn = false
		d.phaseLeft = 0
	}
	if d.active && !should {
		d.Stop()
		return
	}
	if !d.active {
		return
	}

	d.pos = d.store.Pos(id, d.pos)
	d.severity = clamp(d.severity+d.cfg.SeverityPerMinute/60*dt.Seconds(), d.cfg.StartSeverity, d.cfg.MaxSeverity)
	if err := d.store.SetSeverity(id, d.severity); err != nil {
		d.logger.Warn("persist severity", "anomaly_id", id, "error", err)
	}

	d.phaseLeft -= dt
	if d.phaseLeft > 0 {
		return
	}
	if d.cueOn {
		d.cue.ClearCue()
		d.cueOn = false
		d.phaseLeft = d.cfg.Off.sample(d.rng)
		return
	}
	d.cue.ApplyCue(d.severity, d.pos)
	d.cueOn = true
	d.phaseLeft = d.cfg.On.sample(d.rng)
}

// Stop ends pulsing and clears the cue.
func (d *DisplayDriver) Stop() {
	d.active = false
	d.cueOn = false
	d.phaseLeft = 0
	if d.cue != nil {
		d.cue.ClearCue()
	}
}

// #endregion display-glitch

// #region burst
// Pulser flashes every field currently marked as overwritten.
type Pulser interface {
	PulseOverwritten(d time.Duration)
}

// BurstConfig tunes the answer-override burst.
type BurstConfig struct {
	AnomalyID string
	On        Range
	Off       Range
	Pulse     time.Duration
}

// DefaultBurstConfig returns the tuning used in play.
func DefaultBurstConfig() BurstConfig {
	return BurstConfig{
		AnomalyID: AnswerOverride,
		On:        Range{120 * time.Millisecond, 250 * time.Millisecond},
		Off:       Range{1200 * time.Millisecond, 2800 * time.Millisecond},
		Pulse:     180 * time.Millisecond,
	}
}

// BurstDriver pulses overwritten fields while the answer override is active.
type BurstDriver struct {
	cfg     BurstConfig
	store   *Store
	targets Pulser
	rng     *rand.Rand

	running  bool
	waitLeft time.Duration
}

// NewBurstDriver builds a burst driver. rng may be nil.
func NewBurstDriver(cfg BurstConfig, store *Store, targets Pulser, rng *rand.Rand) *BurstDriver {
	return &BurstDriver{cfg: cfg, store: store, targets: targets, rng: newRand(rng)}
}

// Running reports whether the driver is bursting.
func (b *BurstDriver) Running() bool { return b.running }

// Tick implements Ticker.
func (b *BurstDriver) Tick(dt time.Duration) {
	if !b.store.IsActive(b.cfg.AnomalyID) {
		b.running = false
		b.waitLeft = 0
		return
	}
	if !b.running {
		b.running = true
		b.waitLeft = 0
	}
	b.waitLeft -= dt
	if b.waitLeft > 0 {
		return
	}
	b.targets.PulseOverwritten(b.cfg.Pulse)
	b.waitLeft = b.cfg.On.sample(b.rng) + b.cfg.Off.sample(b.rng)
}

// #endregion burst

// #region spawner
// SpawnConfig tunes the random display-glitch spawner.
type SpawnConfig struct {
	AnomalyID           string
	Enabled             bool
	StartDelay          time.Duration
	CheckInterval       time.Duration
	BaseChance          float64
	ChanceRampPerMinute float64
	BasePos             Vec2
	Jitter              Vec2
	StartSeverity       float64
}

// DefaultSpawnConfig returns the tuning used in play.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		AnomalyID:           DisplayGlitch,
		Enabled:             true,
		StartDelay:          10 * time.Second,
		CheckInterval:       15 * time.Second,
		BaseChance:          0.05,
		ChanceRampPerMinute: 0.02,
		BasePos:             Vec2{X: 0.5, Y: 0.5},
		Jitter:              Vec2{X: 0.25, Y: 0.18},
		StartSeverity:       0.12,
	}
}

// Spawner occasionally activates an anomaly id it does not otherwise own.
type Spawner struct {
	cfg    SpawnConfig
	store  *Store
	rng    *rand.Rand
	logger *slog.Logger

	elapsed   time.Duration
	nextCheck time.Duration
}

// NewSpawner builds a spawner. rng and logger may be nil.
func NewSpawner(cfg SpawnConfig, store *Store, rng *rand.Rand, logger *slog.Logger) *Spawner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spawner{cfg: cfg, store: store, rng: newRand(rng), logger: logger, nextCheck: cfg.CheckInterval}
}

// Chance returns the spawn probability for the current elapsed time.
func (s *Spawner) Chance() float64 {
	return clamp01(s.cfg.BaseChance + s.elapsed.Minutes()*s.cfg.ChanceRampPerMinute)
}

// Tick implements Ticker.
func (s *Spawner) Tick(dt time.Duration) {
	if !s.cfg.Enabled {
		return
	}
	s.elapsed += dt
	s.nextCheck -= dt

	if s.elapsed < s.cfg.StartDelay {
		return
	}
	if s.store.IsActive(s.cfg.AnomalyID) {
		return
	}
	if s.nextCheck > 0 {
		return
	}
	s.nextCheck = max(250*time.Millisecond, s.cfg.CheckInterval)

	if s.rng.Float64() <= s.Chance() {
		if err := s.SpawnNow(); err != nil {
			s.logger.Warn("spawn anomaly", "anomaly_id", s.cfg.AnomalyID, "error", err)
		}
	}
}

// SpawnNow activates the anomaly at a jittered position with the start severity.
func (s *Spawner) SpawnNow() error {
	pos := Vec2{
		X: s.cfg.BasePos.X + (s.rng.Float64()*2-1)*s.cfg.Jitter.X,
		Y: s.cfg.BasePos.Y + (s.rng.Float64()*2-1)*s.cfg.Jitter.Y,
	}
	return s.store.Activate(s.cfg.AnomalyID, pos, s.cfg.StartSeverity)
}

// #endregion spawner
