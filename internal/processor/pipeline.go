package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/contentforge/ragpipe/internal/core"
	"github.com/contentforge/ragpipe/internal/models"
)

// ErrInterrupted is returned by Run when the context is cancelled mid-run.
// The checkpoint on disk is marked interrupted so the next run can resume.
var ErrInterrupted = errors.New("processing interrupted")

// Outcome classifies the result of processing one content item.
type Outcome int

const (
	OutcomePersisted Outcome = iota
	OutcomeAlreadyProcessed
	OutcomeSkipped
	OutcomeFailed
)

// itemResult carries the per-item counters back to the run loop.
type itemResult struct {
	Outcome  Outcome
	Sections int
	Chunks   int
	Embedded int
	Tokens   int
	Cost     float64
	Err      error
}

// Pipeline drives one content item at a time through the fixed stage
// sequence: sections, section summaries, chunks, embeddings, validation,
// document summary, persistence. Items are independent; one item's failure
// never aborts the run.
type Pipeline struct {
	db          core.DbClient
	sections    *SectionBuilder
	chunker     *Chunker
	summarizer  *Summarizer
	embedder    *Embedder
	checkpoints *CheckpointStore
	cfg         Config
}

// NewPipeline wires the processing stages together. checkpoints may be nil,
// disabling resume support.
func NewPipeline(db core.DbClient, summarizer *Summarizer, embedder *Embedder, checkpoints *CheckpointStore, cfg Config) *Pipeline {
	cfg = cfg.Normalize()
	return &Pipeline{
		db:          db,
		sections:    NewSectionBuilder(),
		chunker:     NewChunker(cfg),
		summarizer:  summarizer,
		embedder:    embedder,
		checkpoints: checkpoints,
		cfg:         cfg,
	}
}

// Run processes items sequentially, checkpointing periodically. With resume
// set, a previous checkpoint's counters are restored and processing starts
// after its last processed index. Returns the run stats and ErrInterrupted
// when cancelled.
func (p *Pipeline) Run(ctx context.Context, items []models.ContentItem, resume bool) (*Stats, error) {
	stats := NewStats()
	startIndex := 0

	if resume && p.checkpoints != nil {
		cp, ok, err := p.checkpoints.Load()
		if err != nil {
			log.Printf("pipeline: checkpoint unreadable, starting fresh: %v", err)
		} else if ok {
			startIndex = cp.LastProcessedIndex + 1
			stats.DocumentsProcessed = cp.ProcessedCount
			stats.DocumentsFailed = cp.FailedCount
			stats.SectionsCreated = cp.SectionsCreated
			stats.ChunksCreated = cp.ChunksCreated
			stats.TotalCost = cp.TotalCost
			log.Printf("pipeline: resuming from checkpoint at index %d", startIndex)
		}
	}

	if startIndex >= len(items) && len(items) > 0 {
		log.Println("pipeline: checkpoint is past the end of the work list, nothing to do")
	}

	for i := startIndex; i < len(items); i++ {
		select {
		case <-ctx.Done():
			p.saveCheckpoint(i-1, stats, true)
			stats.LogFinal(nil)
			return stats, ErrInterrupted
		default:
		}

		item := &items[i]
		log.Printf("pipeline: processing %s %s (%d/%d): %s", item.SourceType, item.SourceID, i+1, len(items), item.Title)

		res := p.processItemSafe(ctx, item)
		switch res.Outcome {
		case OutcomePersisted:
			stats.DocumentsProcessed++
			stats.SectionsCreated += res.Sections
			stats.ChunksCreated += res.Chunks
			stats.EmbeddingsGenerated += res.Embedded
			stats.TotalTokens += res.Tokens
			stats.TotalCost += res.Cost
			log.Printf("pipeline: completed %s %s: %d sections, %d chunks, %d embeddings",
				item.SourceType, item.SourceID, res.Sections, res.Chunks, res.Embedded)
		case OutcomeAlreadyProcessed:
			stats.DocumentsProcessed++
			log.Printf("pipeline: %s %s already processed, skipping", item.SourceType, item.SourceID)
		case OutcomeSkipped:
			log.Printf("pipeline: %s %s has no indexable content, skipping", item.SourceType, item.SourceID)
		case OutcomeFailed:
			stats.DocumentsFailed++
			stats.TotalCost += res.Cost
			log.Printf("pipeline: failed %s %s: %v", item.SourceType, item.SourceID, res.Err)
		}

		if (i+1)%p.cfg.CheckpointEvery == 0 {
			p.saveCheckpoint(i, stats, false)
		}

		// Cancellation during the item is surfaced as an interrupt, not a
		// per-item failure.
		if ctx.Err() != nil {
			p.saveCheckpoint(i, stats, true)
			stats.LogFinal(nil)
			return stats, ErrInterrupted
		}
	}

	if len(items) > 0 {
		p.saveCheckpoint(len(items)-1, stats, false)
	}

	totals, err := p.db.CorpusTotals(ctx)
	if err != nil {
		log.Printf("pipeline: corpus totals unavailable: %v", err)
		totals = nil
	}
	stats.LogFinal(totals)
	return stats, nil
}

// processItemSafe runs one item, converting a panic into a failed outcome so
// a single malformed item cannot take down the run.
func (p *Pipeline) processItemSafe(ctx context.Context, item *models.ContentItem) (res itemResult) {
	defer func() {
		if r := recover(); r != nil {
			res = itemResult{Outcome: OutcomeFailed, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return p.processItem(ctx, item)
}

func (p *Pipeline) processItem(ctx context.Context, item *models.ContentItem) itemResult {
	// Cheap pre-check; the unique constraint still guards the race.
	if exists, err := p.db.DocumentExists(ctx, item.SourceType, item.SourceID); err == nil && exists {
		return itemResult{Outcome: OutcomeAlreadyProcessed}
	}

	var segments []models.Segment
	if item.SourceType.Segmented() {
		var err error
		segments, err = p.db.ListSegments(ctx, item.SourceType, item.SourceID)
		if err != nil {
			return itemResult{Outcome: OutcomeFailed, Err: fmt.Errorf("load segments: %w", err)}
		}
	}

	sections := p.sections.BuildSections(item, segments)
	if len(sections) == 0 {
		return itemResult{Outcome: OutcomeSkipped}
	}

	cost := p.summarizer.SummarizeSections(ctx, sections)

	chunks := p.chunker.ChunkSections(sections)
	if len(chunks) == 0 {
		return itemResult{Outcome: OutcomeFailed, Cost: cost, Err: errors.New("no chunks produced")}
	}

	batch := p.embedder.EmbedChunks(ctx, chunks)
	cost += batch.TotalCost

	valid, failed := p.embedder.ValidateChunks(chunks)
	if failed > 0 {
		log.Printf("pipeline: %d/%d chunks missing embeddings for %s %s", failed, len(chunks), item.SourceType, item.SourceID)
	}
	if len(valid) == 0 {
		return itemResult{Outcome: OutcomeFailed, Cost: cost, Err: errors.New("no valid embeddings generated")}
	}

	summary, summaryCost := p.summarizer.DocumentSummary(ctx, item, sections)
	cost += summaryCost

	doc := p.buildDocument(item, sections, valid, summary)

	saved, err := p.db.SaveDocument(ctx, doc, sections, valid)
	if err != nil {
		return itemResult{Outcome: OutcomeFailed, Cost: cost, Err: fmt.Errorf("save document: %w", err)}
	}
	if !saved {
		return itemResult{Outcome: OutcomeAlreadyProcessed, Cost: cost}
	}

	return itemResult{
		Outcome:  OutcomePersisted,
		Sections: len(sections),
		Chunks:   len(valid),
		Embedded: batch.Succeeded,
		Tokens:   batch.TotalTokens,
		Cost:     cost,
	}
}

// buildDocument assembles the document-level record from the processed
// pieces. Word and character counts fall back to the section totals when the
// item did not carry inline text.
func (p *Pipeline) buildDocument(item *models.ContentItem, sections []models.Section, chunks []models.Chunk, summary string) *models.Document {
	wordCount := item.WordCount
	charCount := item.CharacterCount
	if wordCount == 0 || charCount == 0 {
		for i := range sections {
			wordCount += sections[i].WordCount
			charCount += sections[i].CharacterCount
		}
	}

	var fullText string
	for i := range sections {
		fullText += sections[i].ContentText
	}

	return &models.Document{
		SourceType:     item.SourceType,
		SourceID:       item.SourceID,
		Title:          item.Title,
		ContentType:    item.ContentType,
		Author:         item.Author,
		ContentDate:    item.ContentDate,
		Language:       "en",
		Summary:        summary,
		WordCount:      wordCount,
		CharacterCount: charCount,
		SectionCount:   len(sections),
		ChunkCount:     len(chunks),
		Status:         models.StatusCompleted,
		EmbeddingModel: p.cfg.EmbedModel,
		QualityScore:   QualityScore(fullText, item.SourceType, nil),
		ProcessedAt:    time.Now().UTC(),
	}
}

func (p *Pipeline) saveCheckpoint(lastIndex int, stats *Stats, interrupted bool) {
	if p.checkpoints == nil || lastIndex < 0 {
		return
	}
	cp := Checkpoint{
		LastProcessedIndex: lastIndex,
		ProcessedCount:     stats.DocumentsProcessed,
		FailedCount:        stats.DocumentsFailed,
		SectionsCreated:    stats.SectionsCreated,
		ChunksCreated:      stats.ChunksCreated,
		TotalCost:          stats.TotalCost,
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
		Interrupted:        interrupted,
	}
	if err := p.checkpoints.Save(cp); err != nil {
		log.Printf("pipeline: checkpoint save failed: %v", err)
	}
}
