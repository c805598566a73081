package cmd

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/amandocs/internal/embed"
	"github.com/Aman-CERP/amandocs/internal/preflight"
	"github.com/Aman-CERP/amandocs/internal/store"
)

func (a *app) corpusDir() string {
	return a.cfg.CorpusDir(a.root)
}

func (a *app) indexDir() string {
	return a.cfg.IndexDir(a.root)
}

// openCache opens the configured embedding cache, creating the index
// directory that holds it.
func (a *app) openCache() (store.EmbeddingCache, error) {
	if err := os.MkdirAll(a.indexDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	return store.OpenEmbeddingCache(a.cfg.Cache.Backend, a.cfg.CachePath(a.root))
}

// newModel creates the configured embedding model. Query models carry an
// LRU of recent query embeddings.
func (a *app) newModel(query bool) (*embed.Model, error) {
	return embed.NewModelFromConfig(a.cfg.Embeddings, query)
}

func (a *app) preflightTarget() preflight.Target {
	return preflight.Target{
		ProjectDir:    a.root,
		CorpusDir:     a.corpusDir(),
		CorpusOptions: a.cfg.CorpusOptions(),
		IndexDir:      a.indexDir(),
		CacheBackend:  a.cfg.Cache.Backend,
		CachePath:     a.cfg.CachePath(a.root),
		MinMemory:     a.cfg.MinMemoryBytes(),
	}
}
