package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"
)

// EmbeddingCache stores document embeddings by content hash and model
// version across builds. A lookup under a different model version is a
// miss; stale entries are left in place until Prune.
type EmbeddingCache interface {
	Get(ctx context.Context, contentHash, modelVersion string) ([]float32, bool, error)
	Put(ctx context.Context, contentHash, modelVersion string, vector []float32) error
	Stats(ctx context.Context) (CacheStats, error)
	Prune(ctx context.Context, keepVersion string) (int, error)
	Close() error
}

// CacheStats counts entries per model version.
type CacheStats struct {
	Backend   string
	Path      string
	ByVersion map[string]int
}

// Total returns the number of entries across versions.
func (s CacheStats) Total() int {
	n := 0
	for _, c := range s.ByVersion {
		n += c
	}
	return n
}

// Versions returns the model versions present, sorted.
func (s CacheStats) Versions() []string {
	out := make([]string, 0, len(s.ByVersion))
	for v := range s.ByVersion {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Cache backends accepted by OpenEmbeddingCache.
const (
	CacheBackendSQLite = "sqlite"
	CacheBackendBadger = "badger"
	CacheBackendMemory = "memory"
)

// OpenEmbeddingCache opens the cache for backend at path.
func OpenEmbeddingCache(backend, path string) (EmbeddingCache, error) {
	switch backend {
	case "", CacheBackendSQLite:
		return NewSQLiteEmbeddingCache(path)
	case CacheBackendBadger:
		return NewBadgerEmbeddingCache(path)
	case CacheBackendMemory:
		return NewMemoryEmbeddingCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q (use sqlite, badger or memory)", backend)
	}
}

// encodeVector serializes v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}

type cacheKey struct {
	hash    string
	version string
}

// MemoryEmbeddingCache is a process-local EmbeddingCache.
type MemoryEmbeddingCache struct {
	mu      sync.RWMutex
	entries map[cacheKey][]float32
}

// NewMemoryEmbeddingCache creates an empty in-memory cache.
func NewMemoryEmbeddingCache() *MemoryEmbeddingCache {
	return &MemoryEmbeddingCache{entries: make(map[cacheKey][]float32)}
}

// Get implements EmbeddingCache.
func (c *MemoryEmbeddingCache) Get(_ context.Context, contentHash, modelVersion string) ([]float32, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[cacheKey{contentHash, modelVersion}]
	if !ok {
		return nil, false, nil
	}
	return append([]float32(nil), v...), true, nil
}

// Put implements EmbeddingCache.
func (c *MemoryEmbeddingCache) Put(_ context.Context, contentHash, modelVersion string, vector []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{contentHash, modelVersion}] = append([]float32(nil), vector...)
	return nil
}

// Stats implements EmbeddingCache.
func (c *MemoryEmbeddingCache) Stats(_ context.Context) (CacheStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := CacheStats{Backend: CacheBackendMemory, ByVersion: make(map[string]int)}
	for k := range c.entries {
		stats.ByVersion[k.version]++
	}
	return stats, nil
}

// Prune implements EmbeddingCache.
func (c *MemoryEmbeddingCache) Prune(_ context.Context, keepVersion string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k := range c.entries {
		if k.version != keepVersion {
			delete(c.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Close implements EmbeddingCache.
func (c *MemoryEmbeddingCache) Close() error {
	return nil
}
