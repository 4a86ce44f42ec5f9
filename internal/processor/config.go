package processor

import "time"

// Processing constants carried by default configs. Token counts everywhere
// are estimates from EstimateTokens, so budgets stay internally consistent
// even though absolute counts diverge from a real tokenizer.
const (
	// TokenMax is the conservative per-chunk token ceiling, kept below the
	// true model limit to leave margin.
	TokenMax = 350

	// ContextOverlap is the number of characters of neighboring chunk text
	// stitched into context_before/context_after.
	ContextOverlap = 100

	// SegmentSectionMaxChars caps a section built from segments.
	SegmentSectionMaxChars = 2000

	// TextSectionMaxChars caps a section built from flat text paragraphs.
	TextSectionMaxChars = 1200

	// SectionTimeGap is the silence gap (seconds) that forces a new section
	// for time-based sources.
	SectionTimeGap = 300.0

	// SentenceFallbackChars is the piece size used when sentence splitting
	// finds no boundaries (~200 tokens).
	SentenceFallbackChars = 800

	// EmbeddingDimensions is the contracted vector size.
	EmbeddingDimensions = 1536

	// EmbeddingSubBatch is how many texts go into one upstream embed call.
	EmbeddingSubBatch = 25

	// CheckpointEvery is how many items are processed between checkpoints.
	CheckpointEvery = 10

	// CostPerToken is the embedding price: $0.02 per 1M tokens.
	CostPerToken = 0.00000002

	// SummaryCallCost is the rough per-call price of one summary request.
	SummaryCallCost = 0.00008
)

// Config tunes the pipeline. Zero values fall back to the package defaults
// above via Normalize.
type Config struct {
	TokenMax        int
	ContextOverlap  int
	EmbedDim        int
	EmbedSubBatch   int
	EmbedModel      string
	CheckpointEvery int

	// Cooperative pacing between external calls; tests set these to zero.
	SummaryPause     time.Duration
	SummaryLongPause time.Duration
	EmbedPause       time.Duration
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		TokenMax:         TokenMax,
		ContextOverlap:   ContextOverlap,
		EmbedDim:         EmbeddingDimensions,
		EmbedSubBatch:    EmbeddingSubBatch,
		EmbedModel:       "text-embedding-004",
		CheckpointEvery:  CheckpointEvery,
		SummaryPause:     100 * time.Millisecond,
		SummaryLongPause: time.Second,
		EmbedPause:       500 * time.Millisecond,
	}
}

// Normalize fills unset fields with defaults.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.TokenMax <= 0 {
		c.TokenMax = def.TokenMax
	}
	if c.ContextOverlap <= 0 {
		c.ContextOverlap = def.ContextOverlap
	}
	if c.EmbedDim <= 0 {
		c.EmbedDim = def.EmbedDim
	}
	if c.EmbedSubBatch <= 0 {
		c.EmbedSubBatch = def.EmbedSubBatch
	}
	if c.EmbedModel == "" {
		c.EmbedModel = def.EmbedModel
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = def.CheckpointEvery
	}
	return c
}
