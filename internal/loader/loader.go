// Package loader brings semantic search online in the background.
//
// A Loader starts Idle. When the capability decision allows it, Start moves
// it to Loading and returns at once; the model and the vectors file load
// concurrently under a timeout. The loader then settles in Ready or Failed
// and never leaves that state. Readers take an immutable Snapshot.
package loader

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/amandocs/internal/artifact"
	"github.com/Aman-CERP/amandocs/internal/capability"
	"github.com/Aman-CERP/amandocs/internal/embed"
	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// DefaultTimeout bounds a load.
const DefaultTimeout = 30 * time.Second

// State is the loader lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Resources are the semantic structures available once Ready.
type Resources struct {
	Model        *embed.Model
	Vectors      *store.VectorSet
	ModelVersion string
}

// Snapshot is an immutable view of the loader.
type Snapshot struct {
	State     State
	Reason    string
	Resources *Resources
	Since     time.Time
}

// Semantic reports whether semantic resources can be used.
func (s Snapshot) Semantic() bool {
	return s.State == StateReady && s.Resources != nil
}

// Config configures a Loader.
type Config struct {
	IndexDir  string
	Timeout   time.Duration
	VectorSet store.VectorSetConfig
}

// Loader owns the progressive loading of one index's semantic resources.
type Loader struct {
	model       *embed.Model
	index       *artifact.Index
	session     *capability.Session
	cfg         Config
	readVectors func(dir string) (*artifact.Vectors, error)
	onChange    func(Snapshot)

	mu      sync.RWMutex
	snap    Snapshot
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Loader.
type Option func(*Loader)

// WithOnChange registers a callback invoked after every state change.
func WithOnChange(fn func(Snapshot)) Option {
	return func(l *Loader) {
		l.onChange = fn
	}
}

// withVectorReader replaces the vectors reader in tests.
func withVectorReader(fn func(dir string) (*artifact.Vectors, error)) Option {
	return func(l *Loader) {
		l.readVectors = fn
	}
}

// New creates an Idle loader for index. The session records failures.
func New(model *embed.Model, index *artifact.Index, session *capability.Session, cfg Config, opts ...Option) *Loader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if session == nil {
		session = capability.NewSession()
	}
	l := &Loader{
		model:       model,
		index:       index,
		session:     session,
		cfg:         cfg,
		readVectors: artifact.ReadVectors,
		snap:        Snapshot{State: StateIdle, Since: time.Now()},
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start begins loading when decision allows semantic mode and returns
// immediately. It reports whether loading began. Start is effective once.
func (l *Loader) Start(ctx context.Context, decision capability.Decision) bool {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return false
	}
	l.started = true

	var reason string
	switch {
	case !decision.SemanticEnabled:
		reason = decision.Reason
	case l.model == nil:
		reason = "no embedding model configured"
	case l.index == nil || l.index.ModelVersion == "":
		reason = "index has no embeddings"
	}
	if reason != "" {
		l.snap.Reason = reason
		snap := l.snap
		close(l.done)
		l.mu.Unlock()
		slog.Info("semantic_search_disabled", slog.String("reason", reason))
		l.notify(snap)
		return false
	}

	loadCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.snap = Snapshot{State: StateLoading, Since: time.Now()}
	snap := l.snap
	l.mu.Unlock()

	slog.Info("semantic_load_started",
		slog.String("session", l.session.ID()),
		slog.Duration("timeout", l.cfg.Timeout))
	l.notify(snap)

	go l.run(loadCtx)
	return true
}

type loadResult struct {
	vectors *artifact.Vectors
	err     error
}

func (l *Loader) run(ctx context.Context) {
	defer close(l.done)

	timeoutCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	resultCh := make(chan loadResult, 1)
	go func() {
		var vectors *artifact.Vectors
		g, gctx := errgroup.WithContext(timeoutCtx)
		g.Go(func() error {
			return l.model.Load(gctx)
		})
		g.Go(func() error {
			v, err := l.readVectors(l.cfg.IndexDir)
			if err != nil {
				return err
			}
			vectors = v
			return nil
		})
		err := g.Wait()
		resultCh <- loadResult{vectors: vectors, err: err}
	}()

	var res loadResult
	select {
	case res = <-resultCh:
	case <-timeoutCtx.Done():
		res = loadResult{err: timeoutCtx.Err()}
	}

	// Cancellation by Close is not a failure of the model.
	if ctx.Err() != nil {
		l.settle(Snapshot{State: StateFailed, Reason: "loading cancelled"}, false)
		slog.Debug("semantic_load_cancelled", slog.String("session", l.session.ID()))
		return
	}

	if res.err == nil && timeoutCtx.Err() != nil {
		res.err = timeoutCtx.Err()
	}
	if res.err != nil {
		l.fail(res.err)
		return
	}

	modelVersion := l.model.Version()
	if err := artifact.CheckPair(l.index, res.vectors, modelVersion); err != nil {
		l.fail(err)
		return
	}

	set, err := res.vectors.VectorSet(l.cfg.VectorSet)
	if err != nil {
		l.fail(amanerrors.New(amanerrors.ErrCodeArtifactCorrupt, "failed to build vector set", err))
		return
	}

	l.settle(Snapshot{
		State:     StateReady,
		Reason:    "semantic search ready",
		Resources: &Resources{Model: l.model, Vectors: set, ModelVersion: modelVersion},
	}, false)
	slog.Info("semantic_load_ready",
		slog.String("session", l.session.ID()),
		slog.String("model_version", modelVersion),
		slog.Int("vectors", set.Len()),
		slog.Bool("hnsw", set.UsesGraph()))
}

func (l *Loader) fail(err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = amanerrors.New(amanerrors.ErrCodeModelLoadTimeout, "semantic loading timed out", err).
			WithDetail("timeout", l.cfg.Timeout.String())
	}
	slog.Warn("semantic_load_failed", append([]any{slog.String("session", l.session.ID())}, amanerrors.LogAttrs(err)...)...)
	l.settle(Snapshot{State: StateFailed, Reason: err.Error()}, true)
}

func (l *Loader) settle(s Snapshot, record bool) {
	s.Since = time.Now()
	l.mu.Lock()
	l.snap = s
	l.mu.Unlock()
	if record {
		l.session.RecordFailure(s.Reason)
	}
	l.notify(s)
}

func (l *Loader) notify(s Snapshot) {
	if l.onChange != nil {
		l.onChange(s)
	}
}

// Snapshot returns the current state atomically.
func (l *Loader) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Wait blocks until the loader settles or ctx ends. An unstarted loader
// never settles.
func (l *Loader) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-l.done:
		return l.Snapshot(), nil
	case <-ctx.Done():
		return l.Snapshot(), ctx.Err()
	}
}

// Close cancels in-flight loading and waits for the loader to settle.
func (l *Loader) Close() {
	l.mu.Lock()
	started, cancel := l.started, l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if started {
		<-l.done
	}
}
