package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEmbedder_ImplementsEmbedderInterface(t *testing.T) {
	var _ Embedder = NewCachedEmbedder(newMockEmbedder(4), 10)
}

func TestCachedEmbedder_CacheHit_ReturnsWithoutCallingInner(t *testing.T) {
	// Given: a cached embedder
	inner := newMockEmbedder(8)
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	// When: I embed the same text twice
	first, err := cached.Embed(ctx, "saga")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "saga")
	require.NoError(t, err)

	// Then: inner embedder is called only once
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.embedCalls.Load())
	assert.Equal(t, 1, cached.Len())
}

func TestCachedEmbedder_Batch_OnlySendsMisses(t *testing.T) {
	inner := newMockEmbedder(8)
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()
	_, err := cached.Embed(ctx, "a")
	require.NoError(t, err)

	out, err := cached.EmbedBatch(ctx, []string{"a", "bb", "ccc"})

	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, []string{"bb", "ccc"}, inner.lastBatch.Load().([]string))
}

func TestCachedEmbedder_AllHits_SkipsInner(t *testing.T) {
	inner := newMockEmbedder(8)
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()
	_, _ = cached.EmbedBatch(ctx, []string{"a", "b"})

	_, err := cached.EmbedBatch(ctx, []string{"b", "a"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), inner.batchCalls.Load())
}

func TestCachedEmbedder_KeyIncludesModel(t *testing.T) {
	inner := newMockEmbedder(8)
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()
	_, _ = cached.Embed(ctx, "same")

	inner.modelName = "other-model"
	_, _ = cached.Embed(ctx, "same")

	assert.Equal(t, int64(2), inner.embedCalls.Load())
}
