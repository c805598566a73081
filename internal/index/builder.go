// Package index builds search artifacts from a document corpus.
//
// A build tokenizes every document into posting lists, embeds the documents
// it can (reusing cached vectors by content hash), and emits a sealed
// artifact. Embedding problems never fail a build; they leave the affected
// documents keyword-only and are recorded in the Report.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/amandocs/internal/analysis"
	"github.com/Aman-CERP/amandocs/internal/artifact"
	"github.com/Aman-CERP/amandocs/internal/corpus"
	"github.com/Aman-CERP/amandocs/internal/embed"
	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// DefaultExcerptChars bounds the stored excerpt used for snippets.
const DefaultExcerptChars = 600

// ProgressFunc receives (done, total) after each document is processed.
type ProgressFunc func(done, total int)

// Report summarizes a build.
type Report struct {
	Documents   int
	CacheHits   int
	CacheMisses int
	Embedded    int
	// MissingEmbeddings lists the IDs of keyword-only documents.
	MissingEmbeddings []string
	ModelVersion      string
	Digest            string
	Duration          time.Duration
}

// KeywordOnly returns the number of documents without an embedding.
func (r *Report) KeywordOnly() int {
	return len(r.MissingEmbeddings)
}

// Builder produces artifacts. A Builder may run several builds, one at a time.
type Builder struct {
	model        *embed.Model
	cache        store.EmbeddingCache
	workers      int
	excerptChars int
	progress     ProgressFunc
	group        singleflight.Group
}

// Option configures a Builder.
type Option func(*Builder)

// WithWorkers sets the embedding worker count.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithExcerptChars sets the stored excerpt length.
func WithExcerptChars(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.excerptChars = n
		}
	}
}

// WithProgress sets a progress callback. Calls are serialized.
func WithProgress(fn ProgressFunc) Option {
	return func(b *Builder) {
		b.progress = fn
	}
}

// NewBuilder creates a builder. A nil model produces keyword-only
// artifacts; a nil cache uses an in-memory cache.
func NewBuilder(model *embed.Model, cache store.EmbeddingCache, opts ...Option) *Builder {
	if cache == nil {
		cache = store.NewMemoryEmbeddingCache()
	}
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	b := &Builder{
		model:        model,
		cache:        cache,
		workers:      workers,
		excerptChars: DefaultExcerptChars,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// embedResult is the outcome for one document.
type embedResult struct {
	vec []float32
	hit bool
	err error
}

// Build indexes docs. It fails only on an empty or malformed corpus or a
// cancelled context.
func (b *Builder) Build(ctx context.Context, docs []corpus.Document) (*artifact.Artifact, *Report, error) {
	start := time.Now()

	if len(docs) == 0 {
		return nil, nil, amanerrors.IndexBuildError("corpus is empty", nil)
	}
	if err := corpus.Validate(docs); err != nil {
		return nil, nil, err
	}

	ordered := make([]corpus.Document, len(docs))
	for i, d := range docs {
		if d.ContentHash == "" {
			d = d.WithHash()
		}
		ordered[i] = d
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	slog.Info("index_build_started", slog.Int("documents", len(ordered)))

	postings, docLens := buildPostings(ordered)

	modelVersion := b.loadModel(ctx)
	if err := ctx.Err(); err != nil {
		return nil, nil, amanerrors.IndexBuildError("build cancelled", err)
	}

	results := make([]embedResult, len(ordered))
	if modelVersion != "" {
		if err := b.embedAll(ctx, ordered, modelVersion, results); err != nil {
			return nil, nil, err
		}
	}

	report := &Report{Documents: len(ordered)}
	a := &artifact.Artifact{
		Index: &artifact.Index{
			Docs:     make([]artifact.DocMeta, len(ordered)),
			DocLens:  docLens,
			Postings: postings,
		},
	}
	vectors := &artifact.Vectors{}

	for i, d := range ordered {
		r := results[i]
		meta := artifact.DocMeta{
			ID:          d.ID,
			Title:       d.Title,
			Category:    d.Category,
			Version:     d.Version,
			Tags:        d.Tags,
			UpdatedAt:   d.UpdatedAt.UTC(),
			Path:        d.Path,
			ContentHash: d.ContentHash,
			Excerpt:     excerpt(d.Body, b.excerptChars),
		}

		if r.vec != nil {
			meta.HasEmbedding = true
			vectors.Docs = append(vectors.Docs, i)
			vectors.Vectors = append(vectors.Vectors, r.vec)
			report.Embedded++
			if r.hit {
				report.CacheHits++
			} else {
				report.CacheMisses++
			}
		} else {
			report.MissingEmbeddings = append(report.MissingEmbeddings, d.ID)
		}
		a.Index.Docs[i] = meta
	}

	if report.Embedded > 0 {
		vectors.Dimensions = len(vectors.Vectors[0])
		a.Index.ModelVersion = modelVersion
		a.Vectors = vectors
		report.ModelVersion = modelVersion
	}

	report.Digest = a.Seal()
	report.Duration = time.Since(start)

	slog.Info("index_build_complete",
		slog.Int("documents", report.Documents),
		slog.Int("embedded", report.Embedded),
		slog.Int("keyword_only", report.KeywordOnly()),
		slog.Int("cache_hits", report.CacheHits),
		slog.Int("cache_misses", report.CacheMisses),
		slog.String("model_version", report.ModelVersion),
		slog.String("digest", report.Digest),
		slog.Duration("duration", report.Duration))

	return a, report, nil
}

// BuildAndWrite holds the build lock on dir, builds, and writes the artifact.
func (b *Builder) BuildAndWrite(ctx context.Context, dir string, docs []corpus.Document) (*Report, error) {
	lock := NewBuildLock(dir)
	if err := lock.TryLock(); err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	a, report, err := b.Build(ctx, docs)
	if err != nil {
		return nil, err
	}
	if err := artifact.Write(dir, a); err != nil {
		return nil, err
	}
	return report, nil
}

// loadModel returns the model version, or "" when the build is keyword-only.
func (b *Builder) loadModel(ctx context.Context) string {
	if b.model == nil {
		return ""
	}
	if err := b.model.Load(ctx); err != nil {
		if ctx.Err() == nil {
			slog.Warn("embedding_model_unavailable", amanerrors.LogAttrs(err)...)
		}
		return ""
	}
	return b.model.Version()
}

// embedAll fills results for every document with a non-empty body.
func (b *Builder) embedAll(ctx context.Context, docs []corpus.Document, modelVersion string, results []embedResult) error {
	pool, err := ants.NewPool(b.workers)
	if err != nil {
		return amanerrors.InternalError("failed to create worker pool", err)
	}
	defer pool.Release()

	var (
		wg      sync.WaitGroup
		done    atomic.Int64
		progMu  sync.Mutex
		total   = len(docs)
		failure atomic.Int64
	)

	report := func() {
		n := int(done.Add(1))
		if b.progress != nil {
			progMu.Lock()
			b.progress(n, total)
			progMu.Unlock()
		}
	}

	for i := range docs {
		d := docs[i]
		text := embed.DocumentText("", d.Body)
		if text == "" {
			slog.Warn("document_keyword_only",
				slog.String("id", d.ID),
				slog.String("reason", "empty body"))
			report()
			continue
		}

		wg.Add(1)
		idx := i
		submitErr := pool.Submit(func() {
			defer wg.Done()
			defer report()
			if ctx.Err() != nil {
				return
			}
			vec, hit, err := b.embedDocument(ctx, d, modelVersion)
			if err != nil {
				if ctx.Err() == nil {
					failure.Add(1)
					slog.Warn("document_keyword_only",
						append([]any{slog.String("id", d.ID)}, amanerrors.LogAttrs(err)...)...)
				}
				return
			}
			results[idx] = embedResult{vec: vec, hit: hit}
		})
		if submitErr != nil {
			wg.Done()
			return amanerrors.InternalError("failed to schedule embedding", submitErr)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return amanerrors.IndexBuildError("build cancelled", err)
	}
	if n := failure.Load(); n > 0 {
		slog.Warn("embedding_failures", slog.Int64("documents", n))
	}
	return nil
}

// embedDocument returns the cached vector for d or computes and caches it.
// Concurrent requests for the same hash share one computation; only the
// caller that ran it counts as a miss.
func (b *Builder) embedDocument(ctx context.Context, d corpus.Document, modelVersion string) ([]float32, bool, error) {
	if vec, ok := b.cachedVector(ctx, d, modelVersion); ok {
		return vec, true, nil
	}

	key := d.ContentHash + "|" + modelVersion
	computed := false
	v, err, _ := b.group.Do(key, func() (interface{}, error) {
		// A previous claim on this key may have finished between the read
		// above and this claim.
		if vec, ok := b.cachedVector(ctx, d, modelVersion); ok {
			return vec, nil
		}
		computed = true
		vec, err := b.model.Embed(ctx, embed.DocumentText(d.Title, d.Body))
		if err != nil {
			return nil, err
		}
		if err := b.cache.Put(ctx, d.ContentHash, modelVersion, vec); err != nil {
			slog.Warn("embedding_cache_write_failed", slog.String("id", d.ID), slog.String("error", err.Error()))
		}
		return vec, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]float32), !computed, nil
}

func (b *Builder) cachedVector(ctx context.Context, d corpus.Document, modelVersion string) ([]float32, bool) {
	vec, ok, err := b.cache.Get(ctx, d.ContentHash, modelVersion)
	if err != nil {
		slog.Warn("embedding_cache_read_failed", slog.String("id", d.ID), slog.String("error", err.Error()))
		return nil, false
	}
	return vec, ok
}

// buildPostings indexes title then body tokens. Body positions start after
// a gap so a phrase never spans the title boundary.
func buildPostings(docs []corpus.Document) ([]store.PostingList, []int) {
	pb := store.NewPostingBuilder(len(docs))
	for i, d := range docs {
		title := analysis.Analyze(d.Title)
		body := analysis.Analyze(d.Body)

		offset := 0
		if n := len(title); n > 0 {
			offset = title[n-1].Position + 1
		}
		tokens := make([]analysis.Token, 0, len(title)+len(body))
		tokens = append(tokens, title...)
		for _, t := range body {
			tokens = append(tokens, analysis.Token{Term: t.Term, Position: t.Position + offset})
		}
		pb.Add(i, tokens)
	}
	return pb.Build()
}

// excerpt returns the first n runes of the stripped body.
func excerpt(body string, n int) string {
	text := analysis.StripMarkup(body)
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

// String renders a one-line summary.
func (r *Report) String() string {
	return fmt.Sprintf("%d documents, %d embedded (%d cached), %d keyword-only in %s",
		r.Documents, r.Embedded, r.CacheHits, r.KeywordOnly(), r.Duration.Round(time.Millisecond))
}
