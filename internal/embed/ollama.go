package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// OllamaEmbedder generates embeddings using Ollama's HTTP API.
type OllamaEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OllamaConfig
	breaker   *gobreaker.CircuitBreaker
	limiter   *rate.Limiter

	mu        sync.RWMutex
	modelName string
	dims      int
	loaded    bool
	closed    bool
}

// Verify interface implementation at compile time
var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates an Ollama embedder. No network traffic happens
// until Load.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.FallbackModels == nil {
		cfg.FallbackModels = FallbackOllamaModels
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = OllamaPoolSize
	}

	// IdleConnTimeout is short because CLI runs are short-lived.
	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		MaxConnsPerHost:     cfg.PoolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ollama",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || err == context.Canceled || err == context.DeadlineExceeded
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	return &OllamaEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		breaker:   breaker,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		modelName: cfg.Model,
		dims:      cfg.Dimensions,
	}
}

// Load resolves an installed model and detects its dimensions, retrying
// transient failures with backoff.
func (e *OllamaEmbedder) Load(ctx context.Context) error {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return fmt.Errorf("embedder is closed")
	}
	if e.loaded {
		e.mu.RUnlock()
		return nil
	}
	e.mu.RUnlock()

	retry := amanerrors.DefaultRetryConfig()
	retry.MaxRetries = e.config.MaxRetries
	retry.Jitter = true

	model, err := amanerrors.RetryWithResult(ctx, retry, func() (string, error) {
		return e.findAvailableModel(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Ollama or find model: %w", err)
	}

	dims := e.config.Dimensions
	if dims == 0 {
		dims, err = amanerrors.RetryWithResult(ctx, retry, func() (int, error) {
			return e.detectDimensions(ctx, model)
		})
		if err != nil {
			return fmt.Errorf("failed to detect embedding dimensions: %w", err)
		}
	}

	e.mu.Lock()
	e.modelName = model
	e.dims = dims
	e.loaded = true
	e.mu.Unlock()

	slog.Debug("ollama_model_ready", slog.String("model", model), slog.Int("dimensions", dims))
	return nil
}

// listModels gets available models from Ollama
func (e *OllamaEmbedder) listModels(ctx context.Context) ([]OllamaModelInfo, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, e.config.Host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ollama: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result OllamaModelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Models, nil
}

// findAvailableModel returns the installed name of the configured model
// or the first installed fallback. Tags are optional when matching.
func (e *OllamaEmbedder) findAvailableModel(ctx context.Context) (string, error) {
	models, err := e.listModels(ctx)
	if err != nil {
		return "", err
	}

	available := make(map[string]string) // normalized -> actual
	for _, m := range models {
		name := strings.ToLower(m.Name)
		available[name] = m.Name
		base := strings.Split(name, ":")[0]
		if _, exists := available[base]; !exists {
			available[base] = m.Name
		}
	}

	candidates := append([]string{e.config.Model}, e.config.FallbackModels...)
	for _, c := range candidates {
		name := strings.ToLower(c)
		if actual, ok := available[name]; ok {
			return actual, nil
		}
		if actual, ok := available[strings.Split(name, ":")[0]]; ok {
			return actual, nil
		}
	}

	return "", fmt.Errorf("no embedding model available (tried %s and %v)", e.config.Model, e.config.FallbackModels)
}

// detectDimensions embeds a probe text and measures the result.
func (e *OllamaEmbedder) detectDimensions(ctx context.Context, model string) (int, error) {
	embeddings, err := e.doEmbed(ctx, model, []string{"dimension detection"})
	if err != nil {
		return 0, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return 0, fmt.Errorf("empty embedding returned")
	}
	return len(embeddings[0]), nil
}

// Embed generates embedding for a single text
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts using Ollama's batch
// API. Empty texts get zero vectors without a request.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed, loaded, model, dims := e.closed, e.loaded, e.modelName, e.dims
	e.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	if !loaded {
		return nil, fmt.Errorf("ollama model %s is not loaded", model)
	}

	results := make([][]float32, len(texts))
	var pending []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, dims)
			continue
		}
		pending = append(pending, i)
	}

	for start := 0; start < len(pending); start += e.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + e.config.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]
		batchTexts := make([]string, len(batch))
		for i, idx := range batch {
			batchTexts[i] = texts[idx]
		}

		embeddings, err := e.doEmbedWithRetry(ctx, model, batchTexts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch: %w", err)
		}
		if len(embeddings) != len(batch) {
			return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(embeddings), len(batch))
		}
		for i, emb := range embeddings {
			results[batch[i]] = emb
		}
	}

	return results, nil
}

// doEmbedWithRetry sends one batch through the rate limiter and circuit
// breaker, retrying transient failures. An open breaker is not retried.
func (e *OllamaEmbedder) doEmbedWithRetry(ctx context.Context, model string, texts []string) ([][]float32, error) {
	retry := amanerrors.DefaultRetryConfig()
	retry.MaxRetries = e.config.MaxRetries
	retry.InitialDelay = 100 * time.Millisecond
	retry.ShouldRetry = func(err error) bool {
		return err != gobreaker.ErrOpenState && err != gobreaker.ErrTooManyRequests
	}

	return amanerrors.RetryWithResult(ctx, retry, func() ([][]float32, error) {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		out, err := e.breaker.Execute(func() (interface{}, error) {
			return e.doEmbed(ctx, model, texts)
		})
		if err != nil {
			slog.Debug("embedding_attempt_failed",
				slog.Int("texts_count", len(texts)),
				slog.String("error", err.Error()))
			return nil, err
		}
		return out.([][]float32), nil
	})
}

// doEmbed performs a single embedding request.
func (e *OllamaEmbedder) doEmbed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	var input any = texts
	if len(texts) == 1 {
		input = texts[0]
	}

	body, err := json.Marshal(OllamaEmbedRequest{Model: model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResult OllamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResult); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	embeddings := make([][]float32, len(apiResult.Embeddings))
	for i, emb := range apiResult.Embeddings {
		embedding := make([]float32, len(emb))
		for j, v := range emb {
			embedding[j] = float32(v)
		}
		embeddings[i] = normalizeVector(embedding)
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model identifier, prefixed with the provider so
// that an Ollama model never shares a version with another backend.
func (e *OllamaEmbedder) ModelName() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return "ollama:" + e.modelName
}

// Close releases resources
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}
