package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const badgerKeyPrefix = "emb/"

// BadgerEmbeddingCache persists embeddings in a BadgerDB directory.
// Keys are "emb/<model version>\x00<content hash>".
type BadgerEmbeddingCache struct {
	db   *badger.DB
	path string
}

var _ EmbeddingCache = (*BadgerEmbeddingCache)(nil)

// badgerLogger routes badger's logging through slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(msg string, args ...any)   { l.logger.Error(fmt.Sprintf(msg, args...)) }
func (l badgerLogger) Warningf(msg string, args ...any) { l.logger.Warn(fmt.Sprintf(msg, args...)) }
func (l badgerLogger) Infof(msg string, args ...any)    { l.logger.Debug(fmt.Sprintf(msg, args...)) }
func (l badgerLogger) Debugf(msg string, args ...any)   { l.logger.Debug(fmt.Sprintf(msg, args...)) }

// NewBadgerEmbeddingCache opens or creates the cache directory at path.
// An empty path creates an in-memory database.
func NewBadgerEmbeddingCache(path string) (*BadgerEmbeddingCache, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = badgerLogger{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}

	slog.Debug("embedding_cache_opened", slog.String("backend", CacheBackendBadger), slog.String("path", path))
	return &BadgerEmbeddingCache{db: db, path: path}, nil
}

func badgerKey(contentHash, modelVersion string) []byte {
	return []byte(badgerKeyPrefix + modelVersion + "\x00" + contentHash)
}

func badgerVersionPrefix(modelVersion string) []byte {
	return []byte(badgerKeyPrefix + modelVersion + "\x00")
}

// Get implements EmbeddingCache.
func (c *BadgerEmbeddingCache) Get(_ context.Context, contentHash, modelVersion string) ([]float32, bool, error) {
	var blob []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(contentHash, modelVersion))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("embedding cache lookup failed: %w", err)
	}

	vec, err := decodeVector(blob)
	if err != nil {
		slog.Warn("embedding_cache_entry_corrupt",
			slog.String("content_hash", contentHash),
			slog.String("model_version", modelVersion))
		return nil, false, nil
	}
	return vec, true, nil
}

// Put implements EmbeddingCache.
func (c *BadgerEmbeddingCache) Put(_ context.Context, contentHash, modelVersion string, vector []float32) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(contentHash, modelVersion), encodeVector(vector))
	})
	if err != nil {
		return fmt.Errorf("embedding cache write failed: %w", err)
	}
	return nil
}

// Stats implements EmbeddingCache.
func (c *BadgerEmbeddingCache) Stats(_ context.Context) (CacheStats, error) {
	stats := CacheStats{Backend: CacheBackendBadger, Path: c.path, ByVersion: make(map[string]int)}
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()[len(badgerKeyPrefix):]
			if sep := bytes.IndexByte(key, 0); sep >= 0 {
				stats.ByVersion[string(key[:sep])]++
			}
		}
		return nil
	})
	return stats, err
}

// Prune implements EmbeddingCache.
func (c *BadgerEmbeddingCache) Prune(ctx context.Context, keepVersion string) (int, error) {
	stats, err := c.Stats(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	var prefixes [][]byte
	for version, n := range stats.ByVersion {
		if version == keepVersion {
			continue
		}
		prefixes = append(prefixes, badgerVersionPrefix(version))
		removed += n
	}
	if len(prefixes) == 0 {
		return 0, nil
	}
	if err := c.db.DropPrefix(prefixes...); err != nil {
		return 0, fmt.Errorf("embedding cache prune failed: %w", err)
	}
	return removed, nil
}

// Close implements EmbeddingCache.
func (c *BadgerEmbeddingCache) Close() error {
	if c.db.IsClosed() {
		return nil
	}
	return c.db.Close()
}
