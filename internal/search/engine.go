package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Aman-CERP/amandocs/internal/analysis"
	"github.com/Aman-CERP/amandocs/internal/artifact"
	"github.com/Aman-CERP/amandocs/internal/embed"
	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/loader"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// SnapshotSource supplies the semantic state. *loader.Loader implements it.
type SnapshotSource interface {
	Snapshot() loader.Snapshot
}

// Engine answers queries over one loaded index. It is safe for concurrent
// use; a new Search cancels the embedding work of the previous one.
type Engine struct {
	index    *artifact.Index
	postings *store.PostingIndex
	source   SnapshotSource
	config   Config
	rerank   *reranker
	stats    *Stats

	mu       sync.Mutex
	seq      uint64
	inflight context.CancelCauseFunc
}

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) EngineOption {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithStats records query statistics into s.
func WithStats(s *Stats) EngineOption {
	return func(e *Engine) {
		e.stats = s
	}
}

// NewEngine creates an engine over ix. A nil source means keyword-only.
func NewEngine(ix *artifact.Index, source SnapshotSource, opts ...EngineOption) *Engine {
	e := &Engine{
		index:  ix,
		source: source,
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.config = e.config.withDefaults()
	e.postings = ix.PostingIndex(e.config.BM25)

	titles := make([]string, len(ix.Docs))
	for i, d := range ix.Docs {
		titles[i] = analysis.Normalize(d.Title)
	}
	e.rerank = &reranker{
		titleBoost:  e.config.TitleBoost,
		phraseBoost: e.config.PhraseBoost,
		postings:    e.postings,
		normTitles:  titles,
	}
	return e
}

// Index returns the index the engine serves.
func (e *Engine) Index() *artifact.Index {
	return e.index
}

// begin registers a new query and cancels the one in flight.
func (e *Engine) begin(ctx context.Context) (context.Context, func()) {
	qctx, cancel := context.WithCancelCause(ctx)

	e.mu.Lock()
	if e.inflight != nil {
		e.inflight(ErrQuerySuperseded)
	}
	e.seq++
	id := e.seq
	e.inflight = cancel
	e.mu.Unlock()

	return qctx, func() {
		e.mu.Lock()
		if e.seq == id {
			e.inflight = nil
		}
		e.mu.Unlock()
		cancel(nil)
	}
}

// Search runs a query. An empty query returns no results and no error.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]RankedResult, error) {
	start := time.Now()

	normQuery := analysis.Normalize(query)
	if normQuery == "" {
		return []RankedResult{}, nil
	}

	qctx, done := e.begin(ctx)
	defer done()

	// One snapshot per query; state is not re-read after awaiting.
	var snap loader.Snapshot
	if e.source != nil && !opts.KeywordOnly {
		snap = e.source.Snapshot()
	}

	allow := e.filter(opts)
	tokens := analysis.Tokenize(normQuery)
	terms := distinctTerms(tokens)

	lexHits := e.postings.Score(terms, allow)
	semHits, semantic, err := e.semanticHits(qctx, normQuery, snap, allow)
	if err != nil {
		return nil, err
	}
	if context.Cause(qctx) == ErrQuerySuperseded {
		return nil, ErrQuerySuperseded
	}

	cands := e.candidates(lexHits, semHits)
	fuse(cands, semantic)
	e.rerank.apply(cands, normQuery, tokens)
	sortCandidates(cands)

	limit := opts.Limit
	if limit <= 0 {
		limit = e.config.DefaultLimit
	}
	if limit > e.config.MaxLimit {
		limit = e.config.MaxLimit
	}
	if len(cands) > limit {
		cands = cands[:limit]
	}

	mode := ModeKeyword
	if semantic {
		mode = ModeHybrid
	}
	results := make([]RankedResult, len(cands))
	for i, c := range cands {
		d := e.index.Docs[c.doc]
		matched := c.matchedTerms
		if matched == nil {
			matched = []string{}
		}
		results[i] = RankedResult{
			DocumentID:    d.ID,
			Title:         d.Title,
			Score:         c.score,
			Snippet:       snippet(d.Excerpt, matched, e.config.SnippetChars),
			MatchedTerms:  matched,
			LexicalScore:  c.lexNorm,
			SemanticScore: c.semNorm,
			Version:       d.Version,
			Category:      d.Category,
			Path:          d.Path,
			UpdatedAt:     d.UpdatedAt,
			Mode:          mode,
		}
	}

	latency := time.Since(start)
	if e.stats != nil {
		e.stats.Record(mode, terms, len(results), latency)
	}
	slog.Debug("search_complete",
		slog.String("mode", string(mode)),
		slog.Int("lexical_hits", len(lexHits)),
		slog.Int("semantic_hits", len(semHits)),
		slog.Int("results", len(results)),
		slog.Duration("latency", latency))

	return results, nil
}

// semanticHits embeds the query and scores it against the vectors. It
// reports whether semantic scoring took part. Only supersession and
// caller cancellation are errors; every other problem degrades.
func (e *Engine) semanticHits(ctx context.Context, normQuery string, snap loader.Snapshot, allow func(int) bool) ([]store.VectorHit, bool, error) {
	if !snap.Semantic() {
		return nil, false, nil
	}
	res := snap.Resources
	if res.ModelVersion != e.index.ModelVersion || res.Model.Version() != res.ModelVersion {
		slog.Debug("semantic_skipped_version_mismatch",
			slog.String("index", e.index.ModelVersion),
			slog.String("loaded", res.ModelVersion))
		return nil, false, nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, e.config.QueryTimeout)
	defer cancel()

	qvec, err := res.Model.EmbedQuery(embedCtx, embed.QueryText(normQuery))
	if err != nil {
		switch {
		case context.Cause(ctx) == ErrQuerySuperseded:
			return nil, false, ErrQuerySuperseded
		case ctx.Err() != nil:
			return nil, false, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded) || embedCtx.Err() != nil:
			slog.Warn("query_embedding_timeout", amanerrors.LogAttrs(
				amanerrors.QueryTimeout("query embedding exceeded timeout", err).
					WithDetail("timeout", e.config.QueryTimeout.String()))...)
		default:
			slog.Warn("query_embedding_failed", amanerrors.LogAttrs(err)...)
		}
		return nil, false, nil
	}

	hits, err := res.Vectors.Similar(qvec, e.config.SemanticCandidates, allow)
	if err != nil {
		slog.Warn("semantic_search_failed", slog.String("error", err.Error()))
		return nil, false, nil
	}

	positive := hits[:0]
	for _, h := range hits {
		if h.Similarity > 0 {
			positive = append(positive, h)
		}
	}
	return positive, true, nil
}

// candidates merges both hit lists into one candidate per document.
func (e *Engine) candidates(lexHits []store.LexicalHit, semHits []store.VectorHit) []*candidate {
	byDoc := make(map[int]*candidate, len(lexHits)+len(semHits))
	get := func(doc int) *candidate {
		c, ok := byDoc[doc]
		if !ok {
			d := e.index.Docs[doc]
			c = &candidate{doc: doc, id: d.ID, updatedAt: d.UpdatedAt}
			byDoc[doc] = c
		}
		return c
	}

	for _, h := range lexHits {
		c := get(h.Doc)
		c.lexical = h.Score
		c.hasLexical = true
		c.matchedTerms = h.MatchedTerms
	}
	for _, h := range semHits {
		c := get(h.Doc)
		c.semantic = h.Similarity
		c.hasSemantic = true
	}

	out := make([]*candidate, 0, len(byDoc))
	for _, c := range byDoc {
		out = append(out, c)
	}
	return out
}

// filter builds the candidate restriction for opts. Unversioned documents
// pass every version filter.
func (e *Engine) filter(opts Options) func(int) bool {
	if opts.Version == "" && opts.Category == "" {
		return nil
	}
	return func(doc int) bool {
		d := e.index.Docs[doc]
		if opts.Version != "" && d.Version != "" && d.Version != opts.Version {
			return false
		}
		if opts.Category != "" && d.Category != opts.Category {
			return false
		}
		return true
	}
}

func distinctTerms(tokens []analysis.Token) []string {
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t.Term]; ok {
			continue
		}
		seen[t.Term] = struct{}{}
		terms = append(terms, t.Term)
	}
	return terms
}
