package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher follows a corpus directory tree and emits debounced batches of
// document changes.
type Watcher struct {
	fs        *fsnotify.Watcher
	debouncer *Debouncer
	opts      Options
	events    chan []FileEvent
	errors    chan error
	stopCh    chan struct{}
	root      string

	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

// New creates a watcher. Nothing is watched until Start.
func New(opts Options) (*Watcher, error) {
	opts = opts.WithDefaults()
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		fs:        fsw,
		debouncer: NewDebouncer(opts.DebounceWindow),
		opts:      opts,
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start watches root recursively and blocks until Stop or ctx ends.
func (w *Watcher) Start(ctx context.Context, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.mu.Lock()
	w.root = abs
	w.mu.Unlock()

	if err := w.addRecursive(abs); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}
	slog.Debug("watcher_started", slog.String("root", abs))

	go w.forward(ctx)

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	info, statErr := os.Stat(event.Name)
	isDir := statErr == nil && info.IsDir()

	if isDir {
		if event.Op&fsnotify.Create != 0 && !w.opts.Corpus.ExcludesDir(rel) {
			if err := w.addRecursive(event.Name); err != nil {
				w.emitError(err)
			}
		}
		return
	}

	if slices.Contains(ConfigFileNames, rel) {
		w.debouncer.Add(FileEvent{Path: rel, Operation: OpConfigChange, Timestamp: time.Now()})
		return
	}
	if !w.opts.Corpus.IncludesFile(rel) {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}
	w.debouncer.Add(FileEvent{Path: rel, Operation: op, Timestamp: time.Now()})
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(w.root, path)
		if rel != "." && w.opts.Corpus.ExcludesDir(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func (w *Watcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			w.emit(batch)
		}
	}
}

func (w *Watcher) emit(batch []FileEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.events <- batch:
	default:
		count := w.droppedBatches.Add(1)
		slog.Warn("event buffer full, dropping batch",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped_batches", count))
	}
}

func (w *Watcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}

// Events returns the channel of batched document changes. It is closed by
// Stop.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns non-fatal watcher errors. It is closed by Stop.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// WatchCount returns the number of directories being watched. It is zero
// until Start has registered the tree.
func (w *Watcher) WatchCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.root == "" {
		return 0
	}
	return len(w.fs.WatchList())
}

// DroppedBatches returns how many batches were dropped on a full buffer.
func (w *Watcher) DroppedBatches() uint64 {
	return w.droppedBatches.Load()
}

// Stop releases the watcher. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()
	err := w.fs.Close()
	close(w.events)
	close(w.errors)
	return err
}

// Run calls fn for every batch until ctx ends or the watcher stops. A
// failing fn is logged and watching continues.
func Run(ctx context.Context, w *Watcher, fn func(context.Context, []FileEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			if err := fn(ctx, batch); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Warn("watch_batch_failed",
					slog.Int("changes", len(batch)),
					slog.String("error", err.Error()))
			}
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}
