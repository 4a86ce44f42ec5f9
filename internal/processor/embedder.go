package processor

import (
	"context"
	"fmt"
	"log"

	"github.com/contentforge/ragpipe/internal/core"
	"github.com/contentforge/ragpipe/internal/models"
)

// BatchStats reports the outcome of embedding one document's chunks.
type BatchStats struct {
	Requested   int
	Succeeded   int
	Failed      int
	TotalTokens int
	TotalCost   float64
	Errors      []string
}

// Embedder batches chunk texts to the embedding capability in fixed-size
// sub-batches. Each sub-batch succeeds or fails independently: a failed
// sub-batch leaves its chunks without embeddings while other sub-batches'
// results are retained, preserving index alignment throughout.
type Embedder struct {
	provider core.EmbeddingProvider
	cfg      Config
}

// NewEmbedder constructs an embedder.
func NewEmbedder(provider core.EmbeddingProvider, cfg Config) *Embedder {
	return &Embedder{provider: provider, cfg: cfg.Normalize()}
}

// EmbedChunks populates chunk embeddings in place and returns batch stats.
// Chunks that already carry an embedding are left untouched but still
// occupy their position in the batch accounting.
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []models.Chunk) BatchStats {
	stats := BatchStats{Requested: len(chunks)}
	if len(chunks) == 0 || e.provider == nil {
		stats.Failed = len(chunks)
		return stats
	}

	for start := 0; start < len(chunks); start += e.cfg.EmbedSubBatch {
		end := start + e.cfg.EmbedSubBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		sub := chunks[start:end]

		if start > 0 {
			sleepCtx(ctx, e.cfg.EmbedPause)
		}

		if err := e.embedSubBatch(ctx, sub, &stats); err != nil {
			stats.Errors = append(stats.Errors, err.Error())
			stats.Failed += len(sub)
			log.Printf("embedder: sub-batch %d-%d failed: %v", start, end-1, err)
		}
	}

	return stats
}

// embedSubBatch makes one upstream call for a slice of chunks. A vector of
// the wrong dimensionality anywhere in the response fails the whole
// sub-batch; a malformed vector is never silently accepted.
func (e *Embedder) embedSubBatch(ctx context.Context, sub []models.Chunk, stats *BatchStats) error {
	texts := make([]string, len(sub))
	for i := range sub {
		texts[i] = sub[i].ContentText
	}

	vecs, err := e.provider.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != len(sub) {
		return fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), len(sub))
	}
	for i, v := range vecs {
		if len(v) != e.cfg.EmbedDim {
			return fmt.Errorf("embedding dimensions at index %d: got %d want %d", i, len(v), e.cfg.EmbedDim)
		}
	}

	for i := range sub {
		sub[i].Embedding = vecs[i]
		sub[i].EmbeddingModel = e.cfg.EmbedModel
		stats.TotalTokens += sub[i].TokenCount
	}
	stats.Succeeded += len(sub)
	stats.TotalCost += float64(sumTokens(sub)) * CostPerToken
	return nil
}

// ValidateChunks partitions chunks into those with a valid embedding and a
// count of failures. Only valid chunks proceed to persistence.
func (e *Embedder) ValidateChunks(chunks []models.Chunk) ([]models.Chunk, int) {
	valid := make([]models.Chunk, 0, len(chunks))
	failed := 0

	for i := range chunks {
		if len(chunks[i].Embedding) == e.cfg.EmbedDim {
			valid = append(valid, chunks[i])
		} else {
			failed++
			log.Printf("embedder: missing or invalid embedding for chunk %d", chunks[i].ChunkIndex)
		}
	}

	return valid, failed
}

func sumTokens(chunks []models.Chunk) int {
	total := 0
	for i := range chunks {
		total += chunks[i].TokenCount
	}
	return total
}
