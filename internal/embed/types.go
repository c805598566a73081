// Package embed turns text into fixed-length embedding vectors.
//
// Backends implement Embedder. Model wraps a backend with the explicit
// Load lifecycle and the long-input handling shared by index building and
// query answering.
package embed

import (
	"context"
	"fmt"
	"math"
	"time"
)

const (
	// DefaultMaxTokens is the input window, counted in whitespace-separated words.
	DefaultMaxTokens = 256

	// DefaultMaxChunks caps how many windows a long document is split into.
	DefaultMaxChunks = 8

	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 16

	// DefaultTimeout is the default timeout for one embedding request.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts.
	DefaultMaxRetries = 3

	// StaticDimensions is the default dimension of the static embedder.
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Load prepares the backend (connects, resolves the model, detects
	// dimensions). It must be called before Embed.
	Load(ctx context.Context) error

	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension. Valid after Load.
	Dimensions() int

	// ModelName returns the model identifier. Valid after Load.
	ModelName() string

	// Close releases resources.
	Close() error
}

// ModelVersion identifies the vector space of a model. Vectors are only
// comparable when their model versions are equal.
func ModelVersion(modelName string, dims int) string {
	return fmt.Sprintf("%s@%d", modelName, dims)
}

// normalizeVector returns v scaled to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
