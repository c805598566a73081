package embed

import (
	"fmt"
	"strings"
	"time"
)

// Provider names accepted in configuration.
const (
	ProviderStatic = "static"
	ProviderOllama = "ollama"
)

// Config selects and tunes an embedding backend.
type Config struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	Host              string        `yaml:"host"`
	Dimensions        int           `yaml:"dimensions"`
	MaxTokens         int           `yaml:"max_tokens"`
	MaxChunks         int           `yaml:"max_chunks"`
	BatchSize         int           `yaml:"batch_size"`
	MaxRetries        int           `yaml:"max_retries"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	QueryCacheSize    int           `yaml:"query_cache_size"`
}

// DefaultConfig returns the offline default: the static backend.
func DefaultConfig() Config {
	return Config{
		Provider:          ProviderStatic,
		Model:             DefaultOllamaModel,
		Host:              DefaultOllamaHost,
		MaxTokens:         DefaultMaxTokens,
		MaxChunks:         DefaultMaxChunks,
		BatchSize:         DefaultBatchSize,
		MaxRetries:        DefaultMaxRetries,
		Timeout:           DefaultTimeout,
		RequestsPerSecond: DefaultRequestsPerSecond,
		QueryCacheSize:    DefaultQueryCacheSize,
	}
}

// NewEmbedder creates the configured backend. The backend is not loaded.
func NewEmbedder(cfg Config) (Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderStatic:
		return NewStaticEmbedder(cfg.Dimensions), nil
	case ProviderOllama:
		oc := DefaultOllamaConfig()
		if cfg.Host != "" {
			oc.Host = cfg.Host
		}
		if cfg.Model != "" {
			oc.Model = cfg.Model
		}
		oc.Dimensions = cfg.Dimensions
		if cfg.BatchSize > 0 {
			oc.BatchSize = cfg.BatchSize
		}
		if cfg.Timeout > 0 {
			oc.Timeout = cfg.Timeout
		}
		if cfg.MaxRetries > 0 {
			oc.MaxRetries = cfg.MaxRetries
		}
		if cfg.RequestsPerSecond > 0 {
			oc.RequestsPerSecond = cfg.RequestsPerSecond
		}
		return NewOllamaEmbedder(oc), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (want %s or %s)", cfg.Provider, ProviderStatic, ProviderOllama)
	}
}

// NewModelFromConfig creates the configured backend and wraps it in a Model.
// With query set, the backend is fronted by an LRU of recent embeddings.
func NewModelFromConfig(cfg Config, query bool) (*Model, error) {
	backend, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	if query {
		backend = NewCachedEmbedder(backend, cfg.QueryCacheSize)
	}
	return NewModel(backend, ModelConfig{MaxTokens: cfg.MaxTokens, MaxChunks: cfg.MaxChunks}), nil
}
