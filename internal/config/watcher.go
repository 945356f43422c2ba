package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mcpfed/pkg/logging"
)

// ConfigUpdated signals that config.json changed on disk and should be
// reloaded. It carries only the watched Path; the receiver re-reads via
// LoadAppConfig.
type ConfigUpdated struct {
	Path string
}

// Watcher watches a single config file and emits a debounced ConfigUpdated
// signal whenever it is created, written, or renamed into place. Rapid
// successive writes (editors that write-then-rename) collapse into one
// signal per debounceInterval.
type Watcher struct {
	mu sync.Mutex

	path             string
	debounceInterval time.Duration
	watcher          *fsnotify.Watcher
	stopCh           chan struct{}
	timer            *time.Timer
	running          bool
}

// NewWatcher creates a Watcher for the config file at path. A zero
// debounceInterval defaults to 500ms.
func NewWatcher(path string, debounceInterval time.Duration) *Watcher {
	if debounceInterval == 0 {
		debounceInterval = 500 * time.Millisecond
	}
	return &Watcher{
		path:             path,
		debounceInterval: debounceInterval,
		stopCh:           make(chan struct{}),
	}
}

// Start begins watching the config file's parent directory and emits a
// ConfigUpdated on updates into the given channel. It watches the directory
// rather than the file itself so that atomic replace-via-rename (as done by
// most config-management tooling) is observed correctly.
func (w *Watcher) Start(ctx context.Context, updates chan<- ConfigUpdated) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		w.mu.Unlock()
		return err
	}

	stopCh := make(chan struct{})
	w.watcher = fw
	w.running = true
	w.stopCh = stopCh
	w.mu.Unlock()

	go w.processEvents(ctx, fw, stopCh, updates)

	logging.Info("ConfigWatcher", "watching %s for changes", w.path)
	return nil
}

func (w *Watcher) processEvents(ctx context.Context, fw *fsnotify.Watcher, stopCh <-chan struct{}, updates chan<- ConfigUpdated) {
	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return
		case <-stopCh:
			w.cancelPending()
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if sameFile(event.Name, w.path) {
				w.debounce(updates)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logging.Error("ConfigWatcher", err, "filesystem watcher error")
		}
	}
}

func (w *Watcher) debounce(updates chan<- ConfigUpdated) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	path := w.path
	w.timer = time.AfterFunc(w.debounceInterval, func() {
		select {
		case updates <- ConfigUpdated{Path: path}:
			logging.Debug("ConfigWatcher", "emitted config update for %s", path)
		default:
			logging.Warn("ConfigWatcher", "update channel full, dropping signal for %s", path)
		}
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)

	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			logging.Error("ConfigWatcher", err, "error closing filesystem watcher")
		}
		w.watcher = nil
	}
	logging.Info("ConfigWatcher", "stopped")
	return nil
}

func sameFile(eventPath, target string) bool {
	return eventPath == target || filepath.Base(eventPath) == filepath.Base(target)
}
