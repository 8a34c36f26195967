// Package watch regenerates validator blocks as source units change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gnana997/propgen/pkg/scanner"
)

// DefaultDebounce groups bursts of writes to one file, as editors save in
// several steps.
const DefaultDebounce = 200 * time.Millisecond

// Target is regenerated when units change.
type Target interface {
	Regenerate(ctx context.Context, paths []string) error
	// Owns reports writes made by the target itself, which are ignored.
	Owns(path string, content []byte) bool
}

// Options configures a Watcher.
type Options struct {
	// Scan selects the watched units with the scanner's globs.
	Scan     scanner.Config
	Debounce time.Duration
}

// Stats reports watcher activity.
type Stats struct {
	Pending       int
	Regenerations int
	Failures      int
	Ignored       int
	IsRunning     bool
}

// Watcher watches a source tree and regenerates each changed unit after
// its debounce delay. Regenerations run one at a time.
type Watcher struct {
	fsw    *fsnotify.Watcher
	root   string
	target Target
	opts   Options
	log    *slog.Logger

	// Debouncing
	timers   map[string]*time.Timer
	timersMu sync.Mutex

	regenMu sync.Mutex

	statsMu sync.Mutex
	stats   Stats

	stopCh  chan struct{}
	stopped bool
	mu      sync.Mutex
}

// New creates a watcher over root.
func New(root string, target Target, opts Options, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if err := scanner.ValidatePatterns(opts.Scan); err != nil {
		return nil, err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		fsw:    fsw,
		root:   absRoot,
		target: target,
		opts:   opts,
		log:    logger,
		timers: make(map[string]*time.Timer),
		stopCh: make(chan struct{}),
	}, nil
}

// Run watches until ctx is canceled or Stop is called.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return fmt.Errorf("watcher already stopped")
	}
	w.mu.Unlock()
	w.record(func(s *Stats) { s.IsRunning = true })
	defer w.Stop()

	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.log.Info("watching for changes", "root", w.root, "debounce_ms", w.opts.Debounce.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("file watcher error", "error", err)
		}
	}
}

// Stop stops the watcher. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)

	w.timersMu.Lock()
	for _, timer := range w.timers {
		timer.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.timersMu.Unlock()

	w.record(func(s *Stats) { s.IsRunning = false })

	err := w.fsw.Close()
	w.log.Info("file watcher stopped")
	return err
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() Stats {
	w.timersMu.Lock()
	pending := len(w.timers)
	w.timersMu.Unlock()

	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	s := w.stats
	s.Pending = pending
	return s
}

// addTree watches dir and every directory below it that is not excluded.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if scanner.ExcludesDir(w.root, path, w.opts.Scan) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			if path == dir {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			w.log.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !scanner.ExcludesDir(w.root, path, w.opts.Scan) {
				if err := w.addTree(path); err != nil {
					w.log.Warn("failed to watch new directory", "path", path, "error", err)
				}
				// Files created with the directory produce no events of
				// their own.
				w.scheduleExisting(ctx, path)
			}
			return
		}
	}

	if !scanner.Matches(w.root, path, w.opts.Scan) {
		return
	}

	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		w.log.Debug("file event", "op", event.Op.String(), "file", path)
		w.debounce(ctx, path)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.cancel(path)
		w.log.Debug("unit removed", "file", path)
	}
}

func (w *Watcher) scheduleExisting(ctx context.Context, dir string) {
	files, err := scanner.DiscoverFiles(dir, w.opts.Scan)
	if err != nil {
		return
	}
	for _, f := range files {
		if scanner.Matches(w.root, f, w.opts.Scan) {
			w.debounce(ctx, f)
		}
	}
}

// debounce schedules a regeneration of path. A later event for the same
// path restarts the delay.
func (w *Watcher) debounce(ctx context.Context, path string) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(w.opts.Debounce, func() {
		w.release(path, timer)
		w.regenerate(ctx, path)
	})
	w.timers[path] = timer
}

// release drops the pending entry for path if it still belongs to timer.
// A timer that fired while a later event re-armed the path leaves the
// newer entry alone.
func (w *Watcher) release(path string, timer *time.Timer) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	if w.timers[path] == timer {
		delete(w.timers, path)
	}
}

func (w *Watcher) cancel(path string) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) regenerate(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	w.regenMu.Lock()
	defer w.regenMu.Unlock()

	content, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.log.Warn("failed to read changed unit", "file", path, "error", err)
		}
		return
	}
	if w.target.Owns(path, content) {
		w.record(func(s *Stats) { s.Ignored++ })
		w.log.Debug("ignoring own write", "file", path)
		return
	}

	if err := w.target.Regenerate(ctx, []string{path}); err != nil {
		w.record(func(s *Stats) { s.Failures++ })
		w.log.Warn("regeneration failed", "file", path, "error", err)
		return
	}
	w.record(func(s *Stats) { s.Regenerations++ })
}

func (w *Watcher) record(update func(*Stats)) {
	w.statsMu.Lock()
	update(&w.stats)
	w.statsMu.Unlock()
}
