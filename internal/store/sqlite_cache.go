package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

const embeddingSchema = `
CREATE TABLE IF NOT EXISTS embeddings (
	content_hash  TEXT    NOT NULL,
	model_version TEXT    NOT NULL,
	dims          INTEGER NOT NULL,
	vector        BLOB    NOT NULL,
	created_at    INTEGER NOT NULL,
	PRIMARY KEY (content_hash, model_version)
);
CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model_version);
`

// SQLiteEmbeddingCache persists embeddings in a SQLite database. WAL mode
// lets a build write while another process reads.
type SQLiteEmbeddingCache struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ EmbeddingCache = (*SQLiteEmbeddingCache)(nil)

// NewSQLiteEmbeddingCache opens or creates the cache at path.
// An empty path creates an in-memory database.
func NewSQLiteEmbeddingCache(path string) (*SQLiteEmbeddingCache, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(embeddingSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize embedding cache schema: %w", err)
	}

	slog.Debug("embedding_cache_opened", slog.String("backend", CacheBackendSQLite), slog.String("path", path))
	return &SQLiteEmbeddingCache{db: db, path: path}, nil
}

// Get implements EmbeddingCache.
func (c *SQLiteEmbeddingCache) Get(ctx context.Context, contentHash, modelVersion string) ([]float32, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, false, fmt.Errorf("embedding cache is closed")
	}

	var dims int
	var blob []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT dims, vector FROM embeddings WHERE content_hash = ? AND model_version = ?`,
		contentHash, modelVersion).Scan(&dims, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("embedding cache lookup failed: %w", err)
	}

	vec, err := decodeVector(blob)
	if err != nil || len(vec) != dims {
		slog.Warn("embedding_cache_entry_corrupt",
			slog.String("content_hash", contentHash),
			slog.String("model_version", modelVersion))
		return nil, false, nil
	}
	return vec, true, nil
}

// Put implements EmbeddingCache.
func (c *SQLiteEmbeddingCache) Put(ctx context.Context, contentHash, modelVersion string, vector []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("embedding cache is closed")
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO embeddings (content_hash, model_version, dims, vector, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(content_hash, model_version) DO UPDATE SET
			dims = excluded.dims,
			vector = excluded.vector,
			created_at = excluded.created_at`,
		contentHash, modelVersion, len(vector), encodeVector(vector), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("embedding cache write failed: %w", err)
	}
	return nil
}

// Stats implements EmbeddingCache.
func (c *SQLiteEmbeddingCache) Stats(ctx context.Context) (CacheStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{Backend: CacheBackendSQLite, Path: c.path, ByVersion: make(map[string]int)}
	rows, err := c.db.QueryContext(ctx,
		`SELECT model_version, COUNT(*) FROM embeddings GROUP BY model_version`)
	if err != nil {
		return stats, fmt.Errorf("embedding cache stats failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var version string
		var n int
		if err := rows.Scan(&version, &n); err != nil {
			return stats, err
		}
		stats.ByVersion[version] = n
	}
	return stats, rows.Err()
}

// Prune implements EmbeddingCache.
func (c *SQLiteEmbeddingCache) Prune(ctx context.Context, keepVersion string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx, `DELETE FROM embeddings WHERE model_version != ?`, keepVersion)
	if err != nil {
		return 0, fmt.Errorf("embedding cache prune failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close implements EmbeddingCache.
func (c *SQLiteEmbeddingCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}
