package cliconfig

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/pubship/internal/ports"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher calls onChange after the config file is written, created or
// replaced. Bursts of events within the debounce window collapse into one
// call.
type Watcher struct {
	path     string
	onChange func()
	logger   ports.Logger
	delay    time.Duration

	mu       sync.Mutex
	debounce *time.Timer
}

func NewWatcher(path string, logger ports.Logger, onChange func()) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		logger:   logger,
		delay:    defaultDebounce,
	}
}

// Run watches until ctx is done. The parent directory is watched so that
// editors replacing the file by rename are seen.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Debug("watching config file", ports.String("path", w.path))

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			w.stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.delay, w.onChange)
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
}
