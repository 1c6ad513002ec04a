package file

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/cmis-poller/internal/logger"
)

// DefaultDebounce coalesces the burst of events editors produce on save.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a ConfigStore when its file changes.
type Watcher struct {
	store    *ConfigStore
	onReload func(context.Context)
	debounce time.Duration
}

// NewWatcher creates a watcher. onReload runs after each successful reload.
func NewWatcher(store *ConfigStore, onReload func(context.Context)) *Watcher {
	return &Watcher{
		store:    store,
		onReload: onReload,
		debounce: DefaultDebounce,
	}
}

// Run watches until ctx is cancelled. The parent directory is watched
// rather than the file so that rename-on-save is seen.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	path := filepath.Clean(w.store.Path())
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Warn("config watcher: %v", err)

		case <-timer.C:
			if err := w.store.Load(); err != nil {
				logger.Warn("config reload failed, keeping previous configuration: %v", err)
				continue
			}
			logger.Info("reloaded %s", path)
			if w.onReload != nil {
				w.onReload(ctx)
			}
		}
	}
}
