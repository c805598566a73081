package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Aman-CERP/amandocs/internal/analysis"
	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// ModelConfig controls how Model handles input length.
type ModelConfig struct {
	MaxTokens int
	MaxChunks int
}

// Model is the embedding adapter used by both the indexer and the query
// engine. Loading is explicit; Embed fails until Load has succeeded.
type Model struct {
	backend Embedder
	cfg     ModelConfig

	mu      sync.RWMutex
	loaded  bool
	version string
}

// NewModel wraps backend. The backend is not loaded.
func NewModel(backend Embedder, cfg ModelConfig) *Model {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = DefaultMaxChunks
	}
	return &Model{backend: backend, cfg: cfg}
}

// Load prepares the backend. Calling Load on a loaded model is a no-op.
func (m *Model) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return nil
	}

	if err := m.backend.Load(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return amanerrors.New(amanerrors.ErrCodeEmbeddingUnavailable, "embedding model failed to load", err)
	}

	m.version = ModelVersion(m.backend.ModelName(), m.backend.Dimensions())
	m.loaded = true
	slog.Info("embedding_model_loaded", slog.String("model_version", m.version))
	return nil
}

// Loaded reports whether Load has succeeded.
func (m *Model) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Version returns the model version, or "" before Load.
func (m *Model) Version() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Dimensions returns the vector length, or 0 before Load.
func (m *Model) Dimensions() int {
	if !m.Loaded() {
		return 0
	}
	return m.backend.Dimensions()
}

// Embed embeds a document. Input longer than the window is split into
// windows that are embedded separately and averaged; windows beyond
// MaxChunks are dropped.
func (m *Model) Embed(ctx context.Context, text string) ([]float32, error) {
	if !m.Loaded() {
		return nil, amanerrors.New(amanerrors.ErrCodeModelNotLoaded, "embedding model is not loaded", nil)
	}

	windows := m.windows(text)
	if len(windows) == 1 {
		return m.embedOne(ctx, windows[0])
	}

	vecs, err := m.backend.EmbedBatch(ctx, windows)
	if err != nil {
		return nil, m.wrap(ctx, err)
	}
	return average(vecs, m.backend.Dimensions())
}

// EmbedQuery embeds a query, truncating it to a single window.
func (m *Model) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if !m.Loaded() {
		return nil, amanerrors.New(amanerrors.ErrCodeModelNotLoaded, "embedding model is not loaded", nil)
	}
	return m.embedOne(ctx, m.windows(text)[0])
}

// Close releases the backend.
func (m *Model) Close() error {
	return m.backend.Close()
}

func (m *Model) embedOne(ctx context.Context, text string) ([]float32, error) {
	vec, err := m.backend.Embed(ctx, text)
	if err != nil {
		return nil, m.wrap(ctx, err)
	}
	if len(vec) != m.backend.Dimensions() {
		return nil, amanerrors.New(amanerrors.ErrCodeEmbeddingUnavailable,
			fmt.Sprintf("backend returned %d dimensions, expected %d", len(vec), m.backend.Dimensions()), nil)
	}
	return vec, nil
}

func (m *Model) wrap(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return amanerrors.New(amanerrors.ErrCodeEmbeddingUnavailable, "embedding failed", err)
}

// windows splits text into at most MaxChunks windows of MaxTokens words.
// It always returns at least one window.
func (m *Model) windows(text string) []string {
	words := strings.Fields(text)
	if len(words) <= m.cfg.MaxTokens {
		return []string{strings.Join(words, " ")}
	}

	var out []string
	for start := 0; start < len(words) && len(out) < m.cfg.MaxChunks; start += m.cfg.MaxTokens {
		end := start + m.cfg.MaxTokens
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
	}
	return out
}

func average(vecs [][]float32, dims int) ([]float32, error) {
	if len(vecs) == 0 {
		return nil, amanerrors.New(amanerrors.ErrCodeEmbeddingUnavailable, "no embeddings returned", nil)
	}
	sum := make([]float32, dims)
	for _, v := range vecs {
		if len(v) != dims {
			return nil, amanerrors.New(amanerrors.ErrCodeEmbeddingUnavailable,
				fmt.Sprintf("backend returned %d dimensions, expected %d", len(v), dims), nil)
		}
		for i, x := range v {
			sum[i] += x
		}
	}
	for i := range sum {
		sum[i] /= float32(len(vecs))
	}
	return normalizeVector(sum), nil
}

// DocumentText is the embedding input for a document: the same normalized
// text its content hash covers, so a cache hit always matches the input.
func DocumentText(title, body string) string {
	t := analysis.Normalize(title)
	b := analysis.Normalize(body)
	if t == "" {
		return b
	}
	if b == "" {
		return t
	}
	return t + "\n" + b
}

// QueryText is the embedding input for a query.
func QueryText(query string) string {
	return analysis.Normalize(query)
}
