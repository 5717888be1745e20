package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/veldtlabs/cortex/internal/graph"
)

// FileFailure records one file that failed to parse during a batch.
type FileFailure struct {
	Path    string `json:"path"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

// BatchSummary reports the outcome of one parse batch.
type BatchSummary struct {
	Generation     uint64        `json:"generation"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     time.Time     `json:"finishedAt"`
	Parsed         int           `json:"parsed"`
	Unchanged      int           `json:"unchanged"`
	Failed         int           `json:"failed"`
	Skipped        int           `json:"skipped"` // unknown language or filtered out
	Removed        int           `json:"removed"`
	Discarded      int           `json:"discarded"` // lost generation races
	SymbolsAdded   int           `json:"symbolsAdded"`
	SymbolsRemoved int           `json:"symbolsRemoved"`
	Failures       []FileFailure `json:"failures,omitempty"`
	Cancelled      bool          `json:"cancelled,omitempty"`
}

// Orchestrator drives parse batches: it fans file parsing out over a bounded
// worker pool and applies each file's result to the store under the batch
// generation. Parse failures never abort a batch; they are collected in the
// summary.
type Orchestrator struct {
	source    Source
	store     *graph.Store
	registry  *graph.Registry
	log       *zap.Logger
	workers   int
	languages map[graph.Language]bool // nil = all registered languages

	mu      sync.Mutex
	last    *BatchSummary
	running bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers bounds the parse worker pool. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithLanguages restricts parsing to the given languages. Files of other
// languages are counted as skipped.
func WithLanguages(langs ...graph.Language) Option {
	return func(o *Orchestrator) {
		if len(langs) == 0 {
			return
		}
		o.languages = make(map[graph.Language]bool, len(langs))
		for _, l := range langs {
			o.languages[l] = true
		}
	}
}

// New returns an Orchestrator over source and store.
func New(source Source, store *graph.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:   source,
		store:    store,
		registry: graph.NewRegistry(),
		log:      zap.NewNop(),
		workers:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes a full batch: every file the source lists is parsed if
// changed, and files the store knows but the source no longer lists are
// removed. Cancellation stops dispatching new files; results already applied
// stay applied.
func (o *Orchestrator) Run(ctx context.Context) (BatchSummary, error) {
	paths, err := o.source.ListFiles(ctx)
	if err != nil {
		return BatchSummary{}, err
	}

	summary, err := o.parseBatch(ctx, paths)
	if err != nil {
		return summary, err
	}

	// Deletion scan: anything in the store the source no longer lists.
	if !summary.Cancelled {
		listed := make(map[string]bool, len(paths))
		for _, p := range paths {
			listed[p] = true
		}
		for _, rec := range o.store.Files() {
			if !listed[rec.Path] {
				if o.store.RemoveFile(rec.Path) {
					summary.Removed++
				}
			}
		}
	}

	o.finish(&summary)
	return summary, nil
}

// ParsePaths executes a batch over an explicit set of paths, used by the
// watcher for incremental updates. Paths that no longer exist are removed
// from the store.
func (o *Orchestrator) ParsePaths(ctx context.Context, paths []string) (BatchSummary, error) {
	summary, err := o.parseBatch(ctx, paths)
	if err != nil {
		return summary, err
	}
	o.finish(&summary)
	return summary, nil
}

// LastSummary returns the most recently completed batch summary.
func (o *Orchestrator) LastSummary() (BatchSummary, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return BatchSummary{}, false
	}
	return *o.last, true
}

func (o *Orchestrator) finish(summary *BatchSummary) {
	summary.FinishedAt = time.Now()
	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].Path < summary.Failures[j].Path
	})
	o.mu.Lock()
	cp := *summary
	o.last = &cp
	o.mu.Unlock()

	o.log.Info("batch finished",
		zap.Uint64("generation", summary.Generation),
		zap.Int("parsed", summary.Parsed),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("removed", summary.Removed),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
		zap.Bool("cancelled", summary.Cancelled))
}

// fileOutcome is the per-file result collected from the worker pool.
type fileOutcome struct {
	parsed    bool
	unchanged bool
	skipped   bool
	removed   bool
	discarded bool
	added     int
	removedN  int
	failure   *FileFailure
}

func (o *Orchestrator) parseBatch(ctx context.Context, paths []string) (BatchSummary, error) {
	gen := o.store.NextGeneration()
	summary := BatchSummary{
		Generation: gen,
		StartedAt:  time.Now(),
	}

	outcomes := make([]fileOutcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, path := range paths {
		if gctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		g.Go(func() error {
			outcomes[i] = o.processFile(gctx, path, gen)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return summary, err
	}
	if ctx.Err() != nil {
		summary.Cancelled = true
	}

	for _, out := range outcomes {
		switch {
		case out.failure != nil:
			summary.Failed++
			summary.Failures = append(summary.Failures, *out.failure)
		case out.parsed:
			summary.Parsed++
			summary.SymbolsAdded += out.added
			summary.SymbolsRemoved += out.removedN
		case out.unchanged:
			summary.Unchanged++
		case out.skipped:
			summary.Skipped++
		case out.removed:
			summary.Removed++
		case out.discarded:
			summary.Discarded++
		}
	}
	return summary, nil
}

// processFile parses one file and applies the result. Returns the outcome;
// never an error, so one broken file cannot cancel its siblings.
func (o *Orchestrator) processFile(ctx context.Context, path string, gen uint64) fileOutcome {
	if ctx.Err() != nil {
		return fileOutcome{skipped: true}
	}

	content, err := o.source.ReadFile(ctx, path)
	if errors.Is(err, graph.ErrNotFound) {
		return fileOutcome{removed: o.store.RemoveFile(path)}
	}
	if err != nil {
		return fileOutcome{failure: &FileFailure{Path: path, Message: err.Error()}}
	}

	adapter, lang, err := o.registry.Dispatch(path, content)
	if errors.Is(err, graph.ErrUnknownLanguage) {
		return fileOutcome{skipped: true}
	}
	if err != nil {
		return fileOutcome{failure: &FileFailure{Path: path, Message: err.Error()}}
	}
	if o.languages != nil && !o.languages[lang] {
		return fileOutcome{skipped: true}
	}

	// Unchanged hash short-circuits regardless of status: MarkFileFailure
	// records a broken file's hash so it is not re-dispatched every batch.
	hash := contentHash(content)
	if rec, ok := o.store.File(path); ok && rec.Hash == hash {
		return fileOutcome{unchanged: true}
	}

	rawSyms, rawRefs, err := adapter.Parse(content, path)
	if err != nil {
		var perr *graph.ParseError
		failure := FileFailure{Path: path, Message: err.Error()}
		if errors.As(err, &perr) {
			failure.Line = perr.Line
			failure.Column = perr.Column
			failure.Message = perr.Msg
		}
		if markErr := o.store.MarkFileFailure(path, lang, hash, gen); errors.Is(markErr, graph.ErrStaleGeneration) {
			return fileOutcome{discarded: true}
		}
		o.log.Warn("parse failed",
			zap.String("path", path),
			zap.String("language", string(lang)),
			zap.String("error", failure.Message))
		return fileOutcome{failure: &failure}
	}

	syms, refs := graph.Normalize(lang, path, content, rawSyms, rawRefs)
	res, err := o.store.ApplyFileUpdate(path, lang, hash, gen, syms, refs)
	if errors.Is(err, graph.ErrStaleGeneration) {
		return fileOutcome{discarded: true}
	}
	if err != nil {
		return fileOutcome{failure: &FileFailure{Path: path, Message: err.Error()}}
	}
	return fileOutcome{parsed: true, added: res.Added, removedN: res.Removed}
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
