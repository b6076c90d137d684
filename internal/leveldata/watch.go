package leveldata

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// #region watcher
// Watcher reloads a level file when it changes on disk. Editors often write
// via rename, so the parent directory is watched and events are filtered by
// file name and debounced.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(*Data)
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher starts watching path. onChange receives every successful reparse;
// failed parses are logged and the previous data stays in use.
func NewWatcher(path string, debounce time.Duration, onChange func(*Data), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{path: abs, debounce: debounce, onChange: onChange, logger: logger, fsw: fsw}, nil
}

// Run delivers reloads until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("level watcher error", "path", w.path, "error", err)
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	d, err := Load(w.path)
	if err != nil {
		w.logger.Warn("level file reload failed, keeping previous data", "path", w.path, "error", err)
		return
	}
	w.logger.Info("level file reloaded", "path", w.path, "schema", d.Kind.String(), "levels", d.Len())
	w.onChange(d)
}

// #endregion watcher
