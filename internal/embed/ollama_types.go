package embed

import "time"

// Ollama API constants
const (
	// DefaultOllamaHost is the default Ollama API endpoint
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is the preferred embedding model for prose documentation
	DefaultOllamaModel = "nomic-embed-text"

	// OllamaPoolSize for connection pool
	OllamaPoolSize = 4

	// DefaultRequestsPerSecond bounds the request rate to a local server.
	DefaultRequestsPerSecond = 20.0
)

// FallbackOllamaModels are tried in order if the primary model is not installed.
var FallbackOllamaModels = []string{
	"mxbai-embed-large",
	"all-minilm",
}

// OllamaConfig configures the Ollama embedder
type OllamaConfig struct {
	// Host is the Ollama API endpoint (default: http://localhost:11434)
	Host string

	// Model is the embedding model to use
	Model string

	// FallbackModels are tried in order if the primary model is not installed
	FallbackModels []string

	// Dimensions overrides auto-detection (0 = auto-detect during Load)
	Dimensions int

	// BatchSize for batch embedding requests
	BatchSize int

	// Timeout for one API request
	Timeout time.Duration

	// MaxRetries for transient failures during Load and Embed
	MaxRetries int

	// RequestsPerSecond is the client-side rate limit (0 = default)
	RequestsPerSecond float64

	// PoolSize for HTTP connection pool
	PoolSize int
}

// DefaultOllamaConfig returns sensible defaults
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:              DefaultOllamaHost,
		Model:             DefaultOllamaModel,
		FallbackModels:    FallbackOllamaModels,
		BatchSize:         DefaultBatchSize,
		Timeout:           DefaultTimeout,
		MaxRetries:        DefaultMaxRetries,
		RequestsPerSecond: DefaultRequestsPerSecond,
		PoolSize:          OllamaPoolSize,
	}
}

// OllamaEmbedRequest is the Ollama /api/embed request
type OllamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"` // string or []string for batch
}

// OllamaEmbedResponse is the Ollama /api/embed response
type OllamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaModelListResponse is the Ollama /api/tags response
type OllamaModelListResponse struct {
	Models []OllamaModelInfo `json:"models"`
}

// OllamaModelInfo describes an installed model
type OllamaModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}
