package knowledge

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/wolfman30/hmo-benefits-assistant/pkg/logging"
)

const defaultReloadDebounce = 500 * time.Millisecond

// ReloadFunc is notified after every reload attempt.
type ReloadFunc func(idx *Index, err error)

// Watcher reloads the index when the offline indexer rewrites its file.
type Watcher struct {
	path     string
	holder   *Holder
	logger   *logging.Logger
	debounce time.Duration
	onReload ReloadFunc
}

// WatcherOption customises a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long to wait for writes to settle before reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithReloadHook registers a callback run after each reload attempt.
func WithReloadHook(fn ReloadFunc) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher creates a watcher for the index file at path.
func NewWatcher(path string, holder *Holder, logger *logging.Logger, opts ...WatcherOption) *Watcher {
	if holder == nil {
		panic("knowledge: watcher requires a holder")
	}
	if logger == nil {
		logger = logging.Default()
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		holder:   holder,
		logger:   logger,
		debounce: defaultReloadDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is cancelled. The parent directory is watched so that
// atomic rename-into-place writes are observed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("knowledge: create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("knowledge: watch %s: %w", filepath.Dir(w.path), err)
	}

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			w.reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("knowledge index watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	idx, err := w.holder.Reload(w.path)
	if err != nil {
		w.logger.Error("knowledge index reload failed; keeping previous index", "path", w.path, "error", err)
	} else {
		w.logger.Info("knowledge index reloaded", "path", w.path, "chunks", idx.Len())
	}
	if w.onReload != nil {
		w.onReload(idx, err)
	}
}
