package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	*StaticEmbedder
	embedCalls atomic.Int32
	batchTexts atomic.Int32
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{StaticEmbedder: NewStaticEmbedder(16)}
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embedCalls.Add(1)
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchTexts.Add(int32(len(texts)))
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_EmbedHitsCache(t *testing.T) {
	// Given: a cached embedder over a counting inner embedder
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	// When: embedding the same text twice
	first, err := c.Embed(ctx, "daylight")
	require.NoError(t, err)
	second, err := c.Embed(ctx, "daylight")
	require.NoError(t, err)

	// Then: the inner embedder is called once
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.embedCalls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCachedEmbedder_BatchOnlyEmbedsMisses(t *testing.T) {
	// Given: one text already cached
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()
	_, err := c.Embed(ctx, "a")
	require.NoError(t, err)

	// When: batching a cached and two new texts
	out, err := c.EmbedBatch(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)

	// Then: only misses reach the inner batch, and order is preserved
	assert.Equal(t, int32(2), inner.batchTexts.Load())
	require.Len(t, out, 3)
	want, _ := inner.StaticEmbedder.Embed(ctx, "c")
	assert.Equal(t, want, out[2])
	assert.Equal(t, 3, c.Len())
}

func TestCachedEmbedder_EvictsLRU(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 2)
	ctx := context.Background()

	for _, s := range []string{"a", "b", "c"} {
		_, err := c.Embed(ctx, s)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, c.Len())
	_, _ = c.Embed(ctx, "a")
	assert.Equal(t, int32(4), inner.embedCalls.Load())
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	c := NewCachedEmbedder(newCountingEmbedder(), 0)

	out, err := c.EmbedBatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, out)
}
