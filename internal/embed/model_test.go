package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

func TestModel_EmbedBeforeLoad_ReturnsModelNotLoaded(t *testing.T) {
	m := NewModel(newMockEmbedder(8), ModelConfig{})

	_, err := m.Embed(context.Background(), "hello")

	require.Error(t, err)
	assert.True(t, amanerrors.HasCode(err, amanerrors.ErrCodeModelNotLoaded))
	assert.Empty(t, m.Version())
}

func TestModel_Load_SetsVersionOnce(t *testing.T) {
	backend := newMockEmbedder(8)
	m := NewModel(backend, ModelConfig{})

	require.NoError(t, m.Load(context.Background()))
	require.NoError(t, m.Load(context.Background()))

	assert.True(t, m.Loaded())
	assert.Equal(t, "mock-model@8", m.Version())
	assert.Equal(t, 8, m.Dimensions())
	assert.Equal(t, int64(1), backend.loadCalls.Load())
}

func TestModel_LoadFailure_IsEmbeddingUnavailable(t *testing.T) {
	backend := newMockEmbedder(8)
	backend.loadErr = errBackendDown
	m := NewModel(backend, ModelConfig{})

	err := m.Load(context.Background())

	require.Error(t, err)
	assert.True(t, amanerrors.HasCode(err, amanerrors.ErrCodeEmbeddingUnavailable))
	assert.ErrorIs(t, err, errBackendDown)
	assert.False(t, m.Loaded())
}

func TestModel_LoadCancelled_ReturnsContextError(t *testing.T) {
	backend := newMockEmbedder(8)
	backend.loadErr = errBackendDown
	m := NewModel(backend, ModelConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Load(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestModel_Embed_ShortInputUsesSingleCall(t *testing.T) {
	backend := newMockEmbedder(8)
	m := NewModel(backend, ModelConfig{MaxTokens: 10})
	require.NoError(t, m.Load(context.Background()))

	vec, err := m.Embed(context.Background(), "abc def")

	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, int64(1), backend.embedCalls.Load())
	assert.Equal(t, int64(0), backend.batchCalls.Load())
}

func TestModel_Embed_LongInputIsChunkedAndAveraged(t *testing.T) {
	// Given: a window of 4 words and a text of two distinct windows
	backend := newMockEmbedder(8)
	m := NewModel(backend, ModelConfig{MaxTokens: 4, MaxChunks: 8})
	require.NoError(t, m.Load(context.Background()))
	text := words("ab", 4) + " " + words("abc", 4)

	// When: embedding the document
	vec, err := m.Embed(context.Background(), text)

	// Then: both windows are embedded in one batch and the mean is unit length
	require.NoError(t, err)
	assert.Equal(t, int64(1), backend.batchCalls.Load())
	want := float32(1 / math.Sqrt2)
	assert.InDelta(t, want, vec[2], 1e-6)
	assert.InDelta(t, want, vec[3], 1e-6)
}

func TestModel_Embed_DropsWindowsBeyondMaxChunks(t *testing.T) {
	backend := newMockEmbedder(8)
	m := NewModel(backend, ModelConfig{MaxTokens: 2, MaxChunks: 3})
	require.NoError(t, m.Load(context.Background()))

	_, err := m.Embed(context.Background(), words("x", 20))

	require.NoError(t, err)
	batch := backend.lastBatch.Load().([]string)
	assert.Len(t, batch, 3)
}

func TestModel_EmbedQuery_TruncatesToOneWindow(t *testing.T) {
	backend := newMockEmbedder(8)
	m := NewModel(backend, ModelConfig{MaxTokens: 3})
	require.NoError(t, m.Load(context.Background()))

	_, err := m.EmbedQuery(context.Background(), words("q", 50))

	require.NoError(t, err)
	assert.Equal(t, int64(1), backend.embedCalls.Load())
	assert.Equal(t, int64(0), backend.batchCalls.Load())
}

func TestModel_EmbedFailure_IsEmbeddingUnavailable(t *testing.T) {
	backend := newMockEmbedder(8)
	m := NewModel(backend, ModelConfig{})
	require.NoError(t, m.Load(context.Background()))
	backend.embedErr = errBackendDown

	_, err := m.Embed(context.Background(), "anything")

	assert.True(t, amanerrors.HasCode(err, amanerrors.ErrCodeEmbeddingUnavailable))
}

func TestDocumentText_IgnoresWhitespaceAndMarkup(t *testing.T) {
	a := DocumentText("Saga  Pattern", "Use **sagas**\n\nfor   long transactions.")
	b := DocumentText("saga pattern", "Use sagas for long transactions.")

	assert.Equal(t, a, b)
	assert.Equal(t, "saga pattern", DocumentText("Saga Pattern", ""))
}

func TestModelVersion(t *testing.T) {
	assert.Equal(t, "static-hash-v1@256", ModelVersion(StaticModelName, 256))
}
