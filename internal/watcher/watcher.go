// Package watcher reports changes to the files of a running program.
//
// It watches the parent directory of every file so editors that replace
// a file by renaming are seen, keeps only events for the tracked files
// and coalesces bursts of events into one batch per debounce window.
package watcher

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when New is given a non-positive delay.
const DefaultDebounce = 200 * time.Millisecond

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// Watcher delivers batches of changed file paths.
type Watcher struct {
	fs    *fsnotify.Watcher
	delay time.Duration
	files map[string]bool

	changes chan []string
	errors  chan error

	mu       sync.Mutex
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// New watches the given files. Changes are delivered after no further
// event has arrived for debounce.
func New(paths []string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		fs:      fsw,
		delay:   debounce,
		files:   make(map[string]bool),
		changes: make(chan []string, 16),
		errors:  make(chan error, 16),
		closeCh: make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w.closedWg.Add(1)
	go w.processLoop(fsw.Events, fsw.Errors)
	return w, nil
}

// Changes returns the channel of changed-path batches. It is closed by
// Close.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Files returns the watched files, sorted.
func (w *Watcher) Files() []string {
	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Close stops the watcher. Pending changes are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.closedWg.Wait()
	close(w.changes)
	close(w.errors)
	return w.fs.Close()
}

// processLoop collects relevant events and emits them once the debounce
// timer expires.
func (w *Watcher) processLoop(events <-chan fsnotify.Event, errs <-chan error) {
	defer w.closedWg.Done()

	pending := make(map[string]bool)
	timer := time.NewTimer(w.delay)
	timer.Stop()

	for {
		select {
		case <-w.closeCh:
			timer.Stop()
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			pending[filepath.Clean(ev.Name)] = true
			timer.Reset(w.delay)

		case err, ok := <-errs:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				// Channel full, drop error
			}

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			sort.Strings(batch)
			pending = make(map[string]bool)
			select {
			case w.changes <- batch:
			case <-w.closeCh:
				return
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&relevantOps == 0 {
		return false
	}
	return w.files[filepath.Clean(ev.Name)]
}
