package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/contentforge/ragpipe/internal/models"
)

// fakeDB is an in-memory DbClient for pipeline and loader tests.
type fakeDB struct {
	records  map[models.SourceType][]models.SourceRecord
	segments map[string][]models.Segment

	savedDocs     []*models.Document
	savedSections [][]models.Section
	savedChunks   [][]models.Chunk

	saveResult   bool
	saveErr      error
	segmentsErr  error
	listErr      error
	totals       models.CorpusTotals
	existingDocs map[string]bool
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		records:      map[models.SourceType][]models.SourceRecord{},
		segments:     map[string][]models.Segment{},
		saveResult:   true,
		existingDocs: map[string]bool{},
	}
}

func (f *fakeDB) ListUnprocessed(ctx context.Context, st models.SourceType, limit int, since *time.Time) ([]models.SourceRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	recs := f.records[st]
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (f *fakeDB) ListSegments(ctx context.Context, st models.SourceType, sourceID string) ([]models.Segment, error) {
	if f.segmentsErr != nil {
		return nil, f.segmentsErr
	}
	return f.segments[sourceID], nil
}

func (f *fakeDB) DocumentExists(ctx context.Context, st models.SourceType, sourceID string) (bool, error) {
	return f.existingDocs[string(st)+"/"+sourceID], nil
}

func (f *fakeDB) SaveDocument(ctx context.Context, doc *models.Document, sections []models.Section, chunks []models.Chunk) (bool, error) {
	if f.saveErr != nil {
		return false, f.saveErr
	}
	if !f.saveResult {
		return false, nil
	}
	f.savedDocs = append(f.savedDocs, doc)
	f.savedSections = append(f.savedSections, sections)
	f.savedChunks = append(f.savedChunks, chunks)
	return true, nil
}

func (f *fakeDB) CorpusTotals(ctx context.Context) (*models.CorpusTotals, error) {
	t := f.totals
	return &t, nil
}

func (f *fakeDB) Close() error { return nil }

// fakeEmbedProvider returns fixed-dimension vectors, optionally failing on
// selected call numbers (1-based).
type fakeEmbedProvider struct {
	dim       int
	calls     int
	failCalls map[int]error
	gotTexts  [][]string
}

func (f *fakeEmbedProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.gotTexts = append(f.gotTexts, texts)
	if err, ok := f.failCalls[f.calls]; ok {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
		out[i][0] = float32(i + 1)
	}
	return out, nil
}

// fakeObjectClient serves objects from a bucket/key map, counting which
// retrieval path the loader took.
type fakeObjectClient struct {
	files       map[string][]byte
	getCalls    int
	streamCalls int
}

func (f *fakeObjectClient) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	f.getCalls++
	data, ok := f.files[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("no such object: %s/%s", bucket, key)
	}
	return data, nil
}

func (f *fakeObjectClient) GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	f.streamCalls++
	data, ok := f.files[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("no such object: %s/%s", bucket, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// fakeExtractor streams canned lines the way the docconv extractor does.
type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(ctx context.Context, g *errgroup.Group, data []byte, contentType string) (<-chan string, error) {
	out := make(chan string, 8)
	g.Go(func() error {
		defer close(out)
		if f.err != nil {
			return f.err
		}
		for _, line := range strings.Split(f.text, "\n") {
			out <- line
		}
		return nil
	})
	return out, nil
}

// fakeLLM returns a canned response or error, recording prompts.
type fakeLLM struct {
	response string
	err      error
	calls    int
	systems  []string
	users    []string
}

func (f *fakeLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.systems = append(f.systems, systemPrompt)
	f.users = append(f.users, userPrompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func f64(v float64) *float64 { return &v }

func iptr(v int) *int { return &v }

func testConfig() Config {
	return Config{
		TokenMax:        TokenMax,
		ContextOverlap:  ContextOverlap,
		EmbedDim:        8,
		EmbedSubBatch:   25,
		EmbedModel:      "test-embed",
		CheckpointEvery: 2,
	}
}
