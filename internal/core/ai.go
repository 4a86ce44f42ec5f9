package core

import "context"

// EmbeddingProvider turns a batch of texts into one vector per text with a
// single upstream call. Sub-batching, pacing and partial-failure handling
// live in the processor, not here.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider generates a short completion for a system/user prompt pair.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
