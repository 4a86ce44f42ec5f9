package processor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentforge/ragpipe/internal/models"
)

func newTestPipeline(t *testing.T, db *fakeDB, provider *fakeEmbedProvider) *Pipeline {
	t.Helper()
	cfg := testConfig()
	store, err := NewCheckpointStore(t.TempDir())
	require.NoError(t, err)
	return NewPipeline(db, NewSummarizer(nil, cfg), NewEmbedder(provider, cfg), store, cfg)
}

func transcriptItem(id string) models.ContentItem {
	return models.ContentItem{
		SourceType: models.SourceVideo,
		SourceID:   id,
		Title:      "talk " + id,
	}
}

func transcriptSegments(id string) []models.Segment {
	return []models.Segment{
		{Index: 0, Text: strings.Repeat("Alice explains the design in depth. ", 10), Speaker: "Alice",
			StartTime: f64(0), EndTime: f64(60), Confidence: f64(0.9), SourceType: "video", SourceID: id + "-s0"},
		{Index: 1, Text: strings.Repeat("Bob asks about the tradeoffs involved. ", 10), Speaker: "Bob",
			StartTime: f64(60), EndTime: f64(120), Confidence: f64(0.8), SourceType: "video", SourceID: id + "-s1"},
	}
}

func TestPipelineRunHappyPath(t *testing.T) {
	db := newFakeDB()
	db.segments["v1"] = transcriptSegments("v1")
	p := newTestPipeline(t, db, &fakeEmbedProvider{dim: 8})

	stats, err := p.Run(context.Background(), []models.ContentItem{transcriptItem("v1")}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DocumentsProcessed)
	assert.Zero(t, stats.DocumentsFailed)
	assert.Equal(t, 2, stats.SectionsCreated)
	assert.Greater(t, stats.ChunksCreated, 0)
	assert.Greater(t, stats.TotalTokens, 0)

	require.Len(t, db.savedDocs, 1)
	doc := db.savedDocs[0]
	assert.Equal(t, models.SourceVideo, doc.SourceType)
	assert.Equal(t, "v1", doc.SourceID)
	assert.Equal(t, models.StatusCompleted, doc.Status)
	assert.Equal(t, 2, doc.SectionCount)
	assert.Equal(t, doc.ChunkCount, len(db.savedChunks[0]))
	assert.NotEmpty(t, doc.Summary)
	assert.False(t, doc.ProcessedAt.IsZero())

	// Only chunks with valid embeddings reach persistence.
	for _, ch := range db.savedChunks[0] {
		assert.Len(t, ch.Embedding, 8)
	}
	// Section summaries were filled in (heuristic path, nil LLM).
	for _, s := range db.savedSections[0] {
		assert.NotEmpty(t, s.Summary)
	}
}

func TestPipelineEmptyItemSkippedNotFailed(t *testing.T) {
	db := newFakeDB()
	p := newTestPipeline(t, db, &fakeEmbedProvider{dim: 8})

	item := models.ContentItem{SourceType: models.SourceDocument, SourceID: "d1", ContentText: "   "}
	stats, err := p.Run(context.Background(), []models.ContentItem{item}, false)
	require.NoError(t, err)

	assert.Zero(t, stats.DocumentsProcessed)
	assert.Zero(t, stats.DocumentsFailed)
	assert.Empty(t, db.savedDocs)
}

func TestPipelineAlreadyProcessedIsSuccess(t *testing.T) {
	db := newFakeDB()
	db.segments["v1"] = transcriptSegments("v1")
	db.saveResult = false
	p := newTestPipeline(t, db, &fakeEmbedProvider{dim: 8})

	stats, err := p.Run(context.Background(), []models.ContentItem{transcriptItem("v1")}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DocumentsProcessed)
	assert.Zero(t, stats.DocumentsFailed)
	assert.Zero(t, stats.SectionsCreated)
}

func TestPipelineExistingDocumentSkipsWork(t *testing.T) {
	db := newFakeDB()
	db.segments["v1"] = transcriptSegments("v1")
	db.existingDocs["video/v1"] = true
	provider := &fakeEmbedProvider{dim: 8}
	p := newTestPipeline(t, db, provider)

	stats, err := p.Run(context.Background(), []models.ContentItem{transcriptItem("v1")}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DocumentsProcessed)
	assert.Empty(t, db.savedDocs)
	assert.Zero(t, provider.calls)
}

func TestPipelineSaveErrorFailsItem(t *testing.T) {
	db := newFakeDB()
	db.segments["v1"] = transcriptSegments("v1")
	db.saveErr = errors.New("connection reset")
	p := newTestPipeline(t, db, &fakeEmbedProvider{dim: 8})

	stats, err := p.Run(context.Background(), []models.ContentItem{transcriptItem("v1")}, false)
	require.NoError(t, err)

	assert.Zero(t, stats.DocumentsProcessed)
	assert.Equal(t, 1, stats.DocumentsFailed)
}

func TestPipelineSegmentsErrorFailsItem(t *testing.T) {
	db := newFakeDB()
	db.segmentsErr = errors.New("table missing")
	p := newTestPipeline(t, db, &fakeEmbedProvider{dim: 8})

	stats, err := p.Run(context.Background(), []models.ContentItem{transcriptItem("v1")}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentsFailed)
}

func TestPipelineNoEmbeddingsFailsItem(t *testing.T) {
	db := newFakeDB()
	db.segments["v1"] = transcriptSegments("v1")
	provider := &fakeEmbedProvider{dim: 8, failCalls: map[int]error{1: errors.New("down"), 2: errors.New("down")}}
	p := newTestPipeline(t, db, provider)

	stats, err := p.Run(context.Background(), []models.ContentItem{transcriptItem("v1")}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DocumentsFailed)
	assert.Empty(t, db.savedDocs)
}

func TestPipelineOneFailureDoesNotAbortRun(t *testing.T) {
	db := newFakeDB()
	db.segments["good"] = transcriptSegments("good")
	// "bad" has no segments: zero sections, skipped. "good" persists.
	p := newTestPipeline(t, db, &fakeEmbedProvider{dim: 8})

	items := []models.ContentItem{transcriptItem("bad"), transcriptItem("good")}
	stats, err := p.Run(context.Background(), items, false)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DocumentsProcessed)
	require.Len(t, db.savedDocs, 1)
	assert.Equal(t, "good", db.savedDocs[0].SourceID)
}

func TestPipelineCheckpointWritten(t *testing.T) {
	db := newFakeDB()
	db.segments["v1"] = transcriptSegments("v1")
	db.segments["v2"] = transcriptSegments("v2")
	cfg := testConfig()
	store, err := NewCheckpointStore(t.TempDir())
	require.NoError(t, err)
	p := NewPipeline(db, NewSummarizer(nil, cfg), NewEmbedder(&fakeEmbedProvider{dim: 8}, cfg), store, cfg)

	items := []models.ContentItem{transcriptItem("v1"), transcriptItem("v2")}
	_, err = p.Run(context.Background(), items, false)
	require.NoError(t, err)

	cp, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, cp.LastProcessedIndex)
	assert.Equal(t, 2, cp.ProcessedCount)
	assert.False(t, cp.Interrupted)
}

func TestPipelineResumeSkipsProcessed(t *testing.T) {
	db := newFakeDB()
	db.segments["v1"] = transcriptSegments("v1")
	db.segments["v2"] = transcriptSegments("v2")
	cfg := testConfig()
	store, err := NewCheckpointStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(Checkpoint{LastProcessedIndex: 0, ProcessedCount: 1, SectionsCreated: 2}))

	p := NewPipeline(db, NewSummarizer(nil, cfg), NewEmbedder(&fakeEmbedProvider{dim: 8}, cfg), store, cfg)
	items := []models.ContentItem{transcriptItem("v1"), transcriptItem("v2")}

	stats, err := p.Run(context.Background(), items, true)
	require.NoError(t, err)

	// Only v2 was processed this run; v1's counters came from the checkpoint.
	require.Len(t, db.savedDocs, 1)
	assert.Equal(t, "v2", db.savedDocs[0].SourceID)
	assert.Equal(t, 2, stats.DocumentsProcessed)
	assert.Equal(t, 4, stats.SectionsCreated)
}

func TestPipelineInterrupted(t *testing.T) {
	db := newFakeDB()
	db.segments["v1"] = transcriptSegments("v1")
	cfg := testConfig()
	store, err := NewCheckpointStore(t.TempDir())
	require.NoError(t, err)
	p := NewPipeline(db, NewSummarizer(nil, cfg), NewEmbedder(&fakeEmbedProvider{dim: 8}, cfg), store, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Run(ctx, []models.ContentItem{transcriptItem("v1")}, false)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Empty(t, db.savedDocs)
}

func TestPipelineNoCheckpointStore(t *testing.T) {
	db := newFakeDB()
	db.segments["v1"] = transcriptSegments("v1")
	cfg := testConfig()
	p := NewPipeline(db, NewSummarizer(nil, cfg), NewEmbedder(&fakeEmbedProvider{dim: 8}, cfg), nil, cfg)

	stats, err := p.Run(context.Background(), []models.ContentItem{transcriptItem("v1")}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentsProcessed)
}
