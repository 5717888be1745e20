package orchestrator

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher keeps the graph current by re-parsing files as they change on
// disk. Events are debounced: a burst of writes to the same files produces
// one incremental batch.
type Watcher struct {
	source   *DirSource
	orch     *Orchestrator
	log      *zap.Logger
	debounce time.Duration
	onBatch  func(BatchSummary)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a pending change set is flushed.
// Defaults to 300ms.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(log *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.log = log }
}

// WithBatchCallback registers a callback invoked after each incremental
// batch, from the watcher goroutine.
func WithBatchCallback(fn func(BatchSummary)) WatcherOption {
	return func(w *Watcher) { w.onBatch = fn }
}

// NewWatcher returns a Watcher over the orchestrator's directory source.
func NewWatcher(source *DirSource, orch *Orchestrator, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		source:   source,
		orch:     orch,
		log:      zap.NewNop(),
		debounce: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the source tree until ctx is cancelled. Newly created
// directories are added to the watch set as they appear.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.source.Root()); err != nil {
		return err
	}
	w.log.Info("watching", zap.String("root", w.source.Root()))

	pending := make(map[string]bool)
	var timer *time.Timer
	var timerC <-chan time.Time

	arm := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, ev, pending)
			if len(pending) > 0 {
				arm()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-timerC:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]bool)

			summary, err := w.orch.ParsePaths(ctx, paths)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.log.Warn("incremental batch failed", zap.Error(err))
				continue
			}
			w.log.Debug("incremental batch",
				zap.Uint64("generation", summary.Generation),
				zap.Int("files", len(paths)),
				zap.Int("parsed", summary.Parsed),
				zap.Int("removed", summary.Removed))
			if w.onBatch != nil {
				w.onBatch(summary)
			}
		}
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event, pending map[string]bool) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.ignoredDir(filepath.Base(ev.Name)) {
				if err := w.addRecursive(fw, ev.Name); err != nil {
					w.log.Warn("watch add failed", zap.String("dir", ev.Name), zap.Error(err))
				}
			}
			return
		}
	}

	rel, err := filepath.Rel(w.source.Root(), ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	for _, seg := range strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/") {
		if w.ignoredDir(seg) {
			return
		}
	}
	pending[rel] = true
}

func (w *Watcher) ignoredDir(name string) bool {
	return name != "." && name != "" &&
		(w.source.Ignored(name) || strings.HasPrefix(name, "."))
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.ignoredDir(d.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}
