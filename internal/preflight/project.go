package preflight

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aman-CERP/amandocs/internal/artifact"
	"github.com/Aman-CERP/amandocs/internal/corpus"
	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// CheckCorpus loads the corpus and validates document identities.
func (c *Checker) CheckCorpus(ctx context.Context) CheckResult {
	result := CheckResult{Name: "corpus", Required: true, Details: c.target.CorpusDir}

	docs, err := corpus.LoadDir(ctx, c.target.CorpusDir, c.target.CorpusOptions)
	if err != nil {
		result.Status = StatusFail
		result.Message = errorMessage(err)
		return result
	}
	if err := corpus.Validate(docs); err != nil {
		result.Status = StatusFail
		result.Message = errorMessage(err)
		return result
	}
	if len(docs) == 0 {
		result.Status = StatusWarn
		result.Message = "no documents found"
		return result
	}

	versions := map[string]struct{}{}
	for _, d := range docs {
		if d.Version != "" {
			versions[d.Version] = struct{}{}
		}
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d documents, %d versions", len(docs), len(versions))
	return result
}

// CheckIndex reads the index artifact and its vectors.
func (c *Checker) CheckIndex() CheckResult {
	result := CheckResult{Name: "index", Required: false, Details: c.target.IndexDir}

	ix, err := artifact.ReadIndex(c.target.IndexDir)
	if err != nil {
		result.Status = StatusWarn
		if amanerrors.HasCode(err, amanerrors.ErrCodeArtifactNotFound) {
			result.Message = "not built (run 'amandocs index')"
		} else {
			result.Status = StatusFail
			result.Message = errorMessage(err)
		}
		return result
	}

	if ix.ModelVersion == "" {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%d documents, keyword-only (no embeddings)", len(ix.Docs))
		return result
	}

	vecs, err := artifact.ReadVectors(c.target.IndexDir)
	if err == nil {
		err = artifact.CheckPair(ix, vecs, ix.ModelVersion)
	}
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%d documents, vectors unusable: %s", len(ix.Docs), errorMessage(err))
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d documents, %d embedded (%s)", len(ix.Docs), ix.EmbeddedCount(), ix.ModelVersion)
	return result
}

// CheckCache opens the embedding cache and counts its entries.
func (c *Checker) CheckCache(ctx context.Context) CheckResult {
	result := CheckResult{Name: "embedding_cache", Required: false, Details: c.target.CachePath}

	cache, err := store.OpenEmbeddingCache(c.target.CacheBackend, c.target.CachePath)
	if err != nil {
		result.Status = StatusWarn
		result.Message = errorMessage(err)
		return result
	}
	defer func() { _ = cache.Close() }()

	stats, err := cache.Stats(ctx)
	if err != nil {
		result.Status = StatusWarn
		result.Message = errorMessage(err)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s, %d entries across %d model versions", stats.Backend, stats.Total(), len(stats.ByVersion))
	return result
}

// CheckEmbedder loads the configured model and compares its version with
// the index.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{Name: "embedder", Required: false}

	model, err := c.newModel()
	if err != nil {
		result.Status = StatusWarn
		result.Message = errorMessage(err)
		return result
	}
	defer func() { _ = model.Close() }()

	loadCtx, cancel := context.WithTimeout(ctx, c.loadTimeout)
	defer cancel()
	if err := model.Load(loadCtx); err != nil {
		result.Status = StatusWarn
		result.Message = "model unavailable, search will be keyword-only"
		result.Details = errorMessage(err)
		return result
	}

	result.Status = StatusPass
	result.Message = model.Version()
	if ix, err := artifact.ReadIndex(c.target.IndexDir); err == nil && ix.ModelVersion != "" && ix.ModelVersion != model.Version() {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s does not match index model %s (rebuild the index)", model.Version(), ix.ModelVersion)
	}
	return result
}

// errorMessage keeps the first line of err, which carries the code.
func errorMessage(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
