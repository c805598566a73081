package embed

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
)

// mockEmbedder is a test double that counts calls. Each text maps to a
// one-hot vector chosen by its first word, so averages are predictable.
type mockEmbedder struct {
	loadCalls  atomic.Int64
	embedCalls atomic.Int64
	batchCalls atomic.Int64
	dimensions int
	modelName  string
	loadErr    error
	embedErr   error
	lastBatch  atomic.Value // []string
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dimensions: dims, modelName: "mock-model"}
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	v := make([]float32, m.dimensions)
	first := strings.Fields(text)
	if len(first) == 0 {
		return v
	}
	v[len(first[0])%m.dimensions] = 1
	return v
}

func (m *mockEmbedder) Load(_ context.Context) error {
	m.loadCalls.Add(1)
	return m.loadErr
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	m.lastBatch.Store(append([]string(nil), texts...))
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int   { return m.dimensions }
func (m *mockEmbedder) ModelName() string { return m.modelName }
func (m *mockEmbedder) Close() error      { return nil }

var errBackendDown = errors.New("backend down")

func words(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = prefix
	}
	return strings.Join(parts, " ")
}
