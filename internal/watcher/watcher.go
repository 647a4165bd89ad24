// Package watcher subscribes to filesystem changes under a project root and
// feeds them to the Indexer, debouncing bursts and recovering from the
// watch root disappearing (spec §4.6).
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/vector-index-mcp/internal/pathfilter"
)

const (
	// DebounceWindow collapses repeated events for the same path.
	DebounceWindow = 500 * time.Millisecond

	// QueueCapacity bounds the backlog of debounced work items (spec §5
	// Backpressure).
	QueueCapacity = 1024

	// RootPollInterval is how often watch-root disappearance is rechecked.
	RootPollInterval = 5 * time.Second
)

// Indexer is the subset of *indexer.Indexer the watcher drives. Declared
// here (not imported from the indexer package) so the watcher can be tested
// against a fake without constructing a real store/embedder.
type Indexer interface {
	IndexFile(ctx context.Context, absPath string) error
	RemoveFile(ctx context.Context, filePath string) error
	MarkWatcherError(message string)
}

// Watcher owns one fsnotify subscription rooted at project root.
type Watcher struct {
	root   string
	filter *pathfilter.Filter
	idx    Indexer
	logger *zap.Logger

	fsw *fsnotify.Watcher

	timerMu sync.Mutex
	timers  map[string]*time.Timer

	workCh   chan Event
	overflow bool
	workMu   sync.Mutex

	rootPollInterval time.Duration
}

// New builds a Watcher for root. Call Start to begin watching.
func New(root string, filter *pathfilter.Filter, idx Indexer, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		root:             root,
		filter:           filter,
		idx:              idx,
		logger:           logger,
		timers:           make(map[string]*time.Timer),
		workCh:           make(chan Event, QueueCapacity),
		rootPollInterval: RootPollInterval,
	}
}

// SetRootPollInterval overrides the watch-root-disappearance poll cadence.
// Intended for tests; production callers should rely on the default.
func (w *Watcher) SetRootPollInterval(d time.Duration) {
	w.rootPollInterval = d
}

// Start subscribes recursively under root and launches the event loop, the
// debounced worker, and the root-disappearance poller. It returns once the
// initial subscription succeeds; all further work happens in background
// goroutines that stop when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	if err := w.addRecursive(w.root); err != nil {
		_ = fsw.Close()
		return err
	}

	go w.runEventLoop(ctx)
	go w.runWorker(ctx)
	go w.runRootPoller(ctx)

	return nil
}

// Stop closes the fsnotify subscription; the background goroutines observe
// ctx cancellation (passed to Start) and exit on their own.
func (w *Watcher) Stop() error {
	if w.fsw == nil {
		return nil
	}
	return w.fsw.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("watcher: failed to watch directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

func (w *Watcher) runEventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFsEvent(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher: fsnotify error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleFsEvent(ctx context.Context, ev fsnotify.Event) {
	switch {
	case ev.Op&fsnotify.Create == fsnotify.Create:
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(ev.Name); err != nil {
				w.logger.Warn("watcher: failed to watch new directory", zap.String("path", ev.Name), zap.Error(err))
			}
			return
		}
		w.schedule(ctx, ev.Name, EventCreated)
	case ev.Op&fsnotify.Write == fsnotify.Write:
		w.schedule(ctx, ev.Name, EventModified)
	case ev.Op&fsnotify.Remove == fsnotify.Remove, ev.Op&fsnotify.Rename == fsnotify.Rename:
		// fsnotify reports a move as Rename(src) [+ a separate Create(dst)
		// handled above]; both collapse to the same "source path is gone"
		// treatment here.
		w.schedule(ctx, ev.Name, EventDeleted)
	}
}

// schedule coalesces repeated events for the same path within
// DebounceWindow, resetting the timer on every new event for that path.
func (w *Watcher) schedule(ctx context.Context, absPath string, kind EventKind) {
	if kind != EventDeleted && !w.filter.Eligible(absPath) {
		return
	}

	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if t, ok := w.timers[absPath]; ok {
		t.Stop()
	}
	w.timers[absPath] = time.AfterFunc(DebounceWindow, func() {
		w.timerMu.Lock()
		delete(w.timers, absPath)
		w.timerMu.Unlock()
		w.enqueue(ctx, Event{Kind: kind, Path: absPath})
	})
}

func (w *Watcher) enqueue(ctx context.Context, ev Event) {
	select {
	case w.workCh <- ev:
		w.workMu.Lock()
		w.overflow = false
		w.workMu.Unlock()
	case <-ctx.Done():
	default:
		w.workMu.Lock()
		alreadyOverflowing := w.overflow
		w.overflow = true
		w.workMu.Unlock()
		if !alreadyOverflowing {
			w.logger.Error("watcher: backlog full, dropping events", zap.String("path", ev.Path))
			w.idx.MarkWatcherError("watcher backlog overflow")
		}
	}
}

func (w *Watcher) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.workCh:
			if !ok {
				return
			}
			w.process(ctx, ev)
		}
	}
}

func (w *Watcher) process(ctx context.Context, ev Event) {
	if ev.Kind == EventDeleted {
		relPath, ok := w.filter.RelPath(ev.Path)
		if !ok {
			return
		}
		if err := w.idx.RemoveFile(ctx, relPath); err != nil {
			w.logger.Warn("watcher: remove_file failed", zap.String("path", relPath), zap.Error(err))
		}
		return
	}

	if err := w.idx.IndexFile(ctx, ev.Path); err != nil {
		w.logger.Warn("watcher: index_file failed", zap.String("path", ev.Path), zap.Error(err))
	}
}

func (w *Watcher) runRootPoller(ctx context.Context) {
	ticker := time.NewTicker(w.rootPollInterval)
	defer ticker.Stop()

	rootMissing := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := os.Stat(w.root)
			switch {
			case err == nil && rootMissing:
				rootMissing = false
				// The old watches went away with the directory; subscribe again.
				if err := w.addRecursive(w.root); err != nil {
					w.logger.Warn("watcher: failed to re-watch project root", zap.String("path", w.root), zap.Error(err))
				}
			case err != nil && errors.Is(err, os.ErrNotExist) && !rootMissing:
				rootMissing = true
				w.idx.MarkWatcherError("project root unavailable")
			}
		}
	}
}
