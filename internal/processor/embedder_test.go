package processor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentforge/ragpipe/internal/models"
)

func makeChunks(n int) []models.Chunk {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		text := fmt.Sprintf("chunk number %d with some content", i)
		chunks[i] = models.Chunk{
			ChunkIndex:  i,
			ContentText: text,
			TokenCount:  EstimateTokens(text),
		}
	}
	return chunks
}

func TestEmbedChunksAllSucceed(t *testing.T) {
	provider := &fakeEmbedProvider{dim: 8}
	e := NewEmbedder(provider, testConfig())
	chunks := makeChunks(30)

	stats := e.EmbedChunks(context.Background(), chunks)

	assert.Equal(t, 30, stats.Requested)
	assert.Equal(t, 30, stats.Succeeded)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 2, provider.calls) // 25 + 5
	assert.Greater(t, stats.TotalCost, 0.0)

	for i := range chunks {
		assert.Len(t, chunks[i].Embedding, 8)
		assert.Equal(t, "test-embed", chunks[i].EmbeddingModel)
	}
}

func TestEmbedChunksSubBatchFailureIsIsolated(t *testing.T) {
	provider := &fakeEmbedProvider{
		dim:       8,
		failCalls: map[int]error{2: errors.New("upstream 500")},
	}
	e := NewEmbedder(provider, testConfig())
	chunks := makeChunks(75)

	stats := e.EmbedChunks(context.Background(), chunks)

	assert.Equal(t, 75, stats.Requested)
	assert.Equal(t, 50, stats.Succeeded)
	assert.Equal(t, 25, stats.Failed)
	require.Len(t, stats.Errors, 1)

	// Index alignment is preserved: the failed middle sub-batch has no
	// embeddings, its neighbors keep theirs.
	for i := 0; i < 25; i++ {
		assert.Len(t, chunks[i].Embedding, 8)
	}
	for i := 25; i < 50; i++ {
		assert.Empty(t, chunks[i].Embedding)
	}
	for i := 50; i < 75; i++ {
		assert.Len(t, chunks[i].Embedding, 8)
	}
}

func TestEmbedChunksDimensionMismatchFailsSubBatch(t *testing.T) {
	provider := &fakeEmbedProvider{dim: 4} // wrong dimension
	e := NewEmbedder(provider, testConfig())
	chunks := makeChunks(10)

	stats := e.EmbedChunks(context.Background(), chunks)

	assert.Zero(t, stats.Succeeded)
	assert.Equal(t, 10, stats.Failed)
	for i := range chunks {
		assert.Empty(t, chunks[i].Embedding)
	}
}

func TestEmbedChunksNilProvider(t *testing.T) {
	e := NewEmbedder(nil, testConfig())
	chunks := makeChunks(5)

	stats := e.EmbedChunks(context.Background(), chunks)
	assert.Equal(t, 5, stats.Failed)
	assert.Zero(t, stats.Succeeded)
}

func TestEmbedChunksEmpty(t *testing.T) {
	e := NewEmbedder(&fakeEmbedProvider{dim: 8}, testConfig())
	stats := e.EmbedChunks(context.Background(), nil)
	assert.Zero(t, stats.Requested)
}

func TestValidateChunksPartition(t *testing.T) {
	provider := &fakeEmbedProvider{
		dim:       8,
		failCalls: map[int]error{2: errors.New("boom")},
	}
	e := NewEmbedder(provider, testConfig())
	chunks := makeChunks(75)
	e.EmbedChunks(context.Background(), chunks)

	valid, failed := e.ValidateChunks(chunks)
	assert.Len(t, valid, 50)
	assert.Equal(t, 25, failed)
	for _, ch := range valid {
		assert.Len(t, ch.Embedding, 8)
	}
}
