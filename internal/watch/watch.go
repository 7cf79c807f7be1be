// Package watch re-runs a callback when a source file changes.
package watch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeffhb60/csv-pivot-app/internal/debug"
)

// DefaultDebounce coalesces the burst of events an editor or exporter emits
// while rewriting a file.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a file for changes
type Watcher struct {
	file     string
	callback func() error
	onError  func(error)
	debounce time.Duration
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher creates a new file watcher. Callback errors are passed to onError
// and do not stop the watcher.
func NewWatcher(file string, callback func() error, onError func(error)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	absPath, err := filepath.Abs(file)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	// Watch the directory so atomic renames over the file are seen too.
	dir := filepath.Dir(absPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	if onError == nil {
		onError = func(err error) { debug.Error("Watch callback failed", "file", absPath, "error", err) }
	}

	return &Watcher{
		file:     absPath,
		callback: callback,
		onError:  onError,
		debounce: DefaultDebounce,
		watcher:  watcher,
		done:     make(chan struct{}),
	}, nil
}

// SetDebounce changes the quiet period before the callback fires. Call it
// before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start runs the callback once, then again after every change to the file.
func (w *Watcher) Start() error {
	if err := w.callback(); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}

	go func() {
		debounceTimer := time.NewTimer(w.debounce)
		debounceTimer.Stop()
		var debounceCh <-chan time.Time

		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}

				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					eventPath, err := filepath.Abs(event.Name)
					if err == nil && eventPath == w.file {
						debug.Debug("Source changed", "file", w.file, "op", event.Op.String())
						debounceTimer.Reset(w.debounce)
						debounceCh = debounceTimer.C
					}
				}

			case <-debounceCh:
				if err := w.callback(); err != nil {
					w.onError(err)
				}
				debounceCh = nil

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.onError(fmt.Errorf("watch error: %w", err))

			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// Stop stops watching the file
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
