package skill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher re-runs a Syncer when anything under its skills directory changes.
type Watcher struct {
	syncer   *Syncer
	logger   *slog.Logger
	debounce time.Duration

	// onSync, when set, receives the outcome of every pass.
	onSync func(*SyncReport, error)
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

func WithSyncHook(fn func(*SyncReport, error)) WatcherOption {
	return func(w *Watcher) { w.onSync = fn }
}

func NewWatcher(syncer *Syncer, logger *slog.Logger, opts ...WatcherOption) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &Watcher{syncer: syncer, logger: logger, debounce: defaultDebounce}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the skills directory and its immediate subdirectories until
// ctx is done. The directory is created if missing.
func (w *Watcher) Run(ctx context.Context) error {
	root := w.syncer.Root()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create skills dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			w.add(fw, filepath.Join(root, e.Name()))
		}
	}
	w.logger.Info("watching skills", "dir", root)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Create != 0 && filepath.Dir(ev.Name) == root {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.add(fw, ev.Name)
				}
			}
			w.logger.Debug("skills changed", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("skill watcher error", "error", err)

		case <-timer.C:
			report, err := w.syncer.Sync(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("skill sync failed", "error", err)
			}
			if w.onSync != nil {
				w.onSync(report, err)
			}
		}
	}
}

func (w *Watcher) add(fw *fsnotify.Watcher, dir string) {
	if err := fw.Add(dir); err != nil {
		w.logger.Warn("cannot watch skill dir", "dir", dir, "error", err)
	}
}
