package cmd

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/amandocs/internal/artifact"
	"github.com/Aman-CERP/amandocs/internal/capability"
	"github.com/Aman-CERP/amandocs/internal/embed"
	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/loader"
	"github.com/Aman-CERP/amandocs/internal/search"
)

// searchSession is an opened index with its loader and engine.
type searchSession struct {
	index    *artifact.Index
	session  *capability.Session
	decision capability.Decision
	model    *embed.Model
	loader   *loader.Loader
	engine   *search.Engine
	stats    *search.Stats
	started  bool
}

// openSearch reads the index, assesses the machine and starts loading
// semantic resources in the background. Keyword search is usable as soon
// as it returns.
func openSearch(ctx context.Context, a *app, keywordOnly bool) (*searchSession, error) {
	ix, err := artifact.ReadIndex(a.indexDir())
	if err != nil {
		if amanerrors.HasCode(err, amanerrors.ErrCodeArtifactNotFound) {
			return nil, amanerrors.New(amanerrors.ErrCodeArtifactNotFound, "no index found", err).
				WithSuggestion("Run 'amandocs index' first")
		}
		return nil, err
	}

	s := &searchSession{index: ix, session: capability.NewSession(), stats: search.NewStats()}
	profile := capability.DetectProfile(s.session, keywordOnly || a.cfg.Capability.KeywordOnly, a.cfg.MinMemoryBytes())
	s.decision = capability.Assess(profile)
	slog.Info("capability_assessed",
		slog.String("session", s.session.ID()),
		slog.Bool("semantic", s.decision.SemanticEnabled),
		slog.String("reason", s.decision.Reason),
		slog.String("available_memory", capability.FormatBytes(profile.AvailableMemory)))

	if s.decision.SemanticEnabled && ix.ModelVersion != "" {
		s.model, err = a.newModel(true)
		if err != nil {
			slog.Warn("embedding_model_unavailable", amanerrors.LogAttrs(err)...)
			s.model = nil
		}
	}

	s.loader = loader.New(s.model, ix, s.session, loader.Config{
		IndexDir:  a.indexDir(),
		Timeout:   a.cfg.Loader.Timeout,
		VectorSet: a.cfg.Loader.Vectors,
	}, loader.WithOnChange(func(snap loader.Snapshot) {
		slog.Info("loader_state",
			slog.String("session", s.session.ID()),
			slog.String("state", string(snap.State)),
			slog.String("reason", snap.Reason))
	}))
	s.started = s.loader.Start(ctx, s.decision)

	s.engine = search.NewEngine(ix, s.loader,
		search.WithConfig(a.cfg.Search),
		search.WithStats(s.stats))
	return s, nil
}

// wait blocks until the loader settles. It returns at once when loading
// never began.
func (s *searchSession) wait(ctx context.Context) loader.Snapshot {
	if !s.started {
		return s.loader.Snapshot()
	}
	snap, err := s.loader.Wait(ctx)
	if err != nil {
		slog.Debug("loader_wait_interrupted", slog.String("error", err.Error()))
	}
	return snap
}

// mode reports the mode of a result set. Empty sets take the mode the
// loader currently allows.
func (s *searchSession) mode(results []search.RankedResult, keywordOnly bool) search.Mode {
	if len(results) > 0 {
		return results[0].Mode
	}
	if !keywordOnly && s.loader.Snapshot().Semantic() {
		return search.ModeHybrid
	}
	return search.ModeKeyword
}

func (s *searchSession) Close() {
	s.loader.Close()
	if s.model != nil {
		_ = s.model.Close()
	}
}
