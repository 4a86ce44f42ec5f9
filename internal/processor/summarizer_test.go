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

func TestSummarizeSectionsNilLLM(t *testing.T) {
	s := NewSummarizer(nil, testConfig())
	sections := []models.Section{
		{ContentText: "A brief section. With more detail after."},
	}

	cost := s.SummarizeSections(context.Background(), sections)
	assert.Zero(t, cost)
	assert.Equal(t, "A brief section.", sections[0].Summary)
}

func TestSummarizeSectionsShortContentSkipsAI(t *testing.T) {
	llm := &fakeLLM{response: "should not be used"}
	s := NewSummarizer(llm, testConfig())
	sections := []models.Section{
		{ContentText: "Short content. Second sentence."},
	}

	cost := s.SummarizeSections(context.Background(), sections)
	assert.Zero(t, cost)
	assert.Zero(t, llm.calls)
	assert.Equal(t, "Short content.", sections[0].Summary)
}

func TestSummarizeSectionsCallsAI(t *testing.T) {
	llm := &fakeLLM{response: "  An AI-written summary.  "}
	s := NewSummarizer(llm, testConfig())
	long := strings.Repeat("Substantial content that needs summarizing. ", 10)
	sections := []models.Section{{ContentText: long}}

	cost := s.SummarizeSections(context.Background(), sections)
	assert.Equal(t, 1, llm.calls)
	assert.InDelta(t, SummaryCallCost, cost, 1e-9)
	assert.Equal(t, "An AI-written summary.", sections[0].Summary)
}

func TestSummarizeSectionsSpeakerPrompt(t *testing.T) {
	llm := &fakeLLM{response: "summary"}
	s := NewSummarizer(llm, testConfig())
	long := strings.Repeat("Things the speaker said at length. ", 10)
	sections := []models.Section{{ContentText: long, Speaker: "Alice"}}

	s.SummarizeSections(context.Background(), sections)
	require.Equal(t, 1, llm.calls)
	assert.Contains(t, llm.users[0], "speaker segment from Alice")
}

func TestSummarizeSectionsCapsLength(t *testing.T) {
	llm := &fakeLLM{response: strings.Repeat("long output ", 50)}
	s := NewSummarizer(llm, testConfig())
	long := strings.Repeat("Content that will get a huge summary back. ", 10)
	sections := []models.Section{{ContentText: long}}

	s.SummarizeSections(context.Background(), sections)
	assert.Len(t, sections[0].Summary, summaryMaxChars)
	assert.True(t, strings.HasSuffix(sections[0].Summary, "..."))
}

func TestSummarizeSectionsErrorFallsBack(t *testing.T) {
	llm := &fakeLLM{err: errors.New("rate limited")}
	s := NewSummarizer(llm, testConfig())
	long := strings.Repeat("Content the model never got to see properly. ", 10)
	sections := []models.Section{{ContentText: long}}

	cost := s.SummarizeSections(context.Background(), sections)
	assert.Zero(t, cost)
	assert.NotEmpty(t, sections[0].Summary)
}

func TestSummarizeSectionsSkipsExisting(t *testing.T) {
	llm := &fakeLLM{response: "new summary"}
	s := NewSummarizer(llm, testConfig())
	sections := []models.Section{
		{ContentText: strings.Repeat("Already handled content here. ", 10), Summary: "existing"},
	}

	s.SummarizeSections(context.Background(), sections)
	assert.Zero(t, llm.calls)
	assert.Equal(t, "existing", sections[0].Summary)
}

func TestDocumentSummaryNoSectionSummaries(t *testing.T) {
	s := NewSummarizer(nil, testConfig())
	item := &models.ContentItem{SourceType: models.SourceVideo}
	sections := []models.Section{{}, {}, {}}

	summary, cost := s.DocumentSummary(context.Background(), item, sections)
	assert.Zero(t, cost)
	assert.Equal(t, "Document containing 3 sections from video", summary)
}

func TestDocumentSummaryShortCombinedInline(t *testing.T) {
	llm := &fakeLLM{response: "should not be called"}
	s := NewSummarizer(llm, testConfig())
	item := &models.ContentItem{SourceType: models.SourceDocument}
	sections := []models.Section{
		{Summary: "First point."},
		{Summary: "Second point."},
	}

	summary, cost := s.DocumentSummary(context.Background(), item, sections)
	assert.Zero(t, cost)
	assert.Zero(t, llm.calls)
	assert.Equal(t, "First point.\nSecond point.", summary)
}

func TestDocumentSummaryAICall(t *testing.T) {
	llm := &fakeLLM{response: "A document-level synthesis."}
	s := NewSummarizer(llm, testConfig())
	item := &models.ContentItem{SourceType: models.SourceDocument}
	long := strings.Repeat("s", 120)
	sections := []models.Section{
		{Summary: long}, {Summary: long}, {Summary: long},
	}

	summary, cost := s.DocumentSummary(context.Background(), item, sections)
	assert.Equal(t, 1, llm.calls)
	assert.InDelta(t, SummaryCallCost, cost, 1e-9)
	assert.Equal(t, "A document-level synthesis.", summary)
}

func TestDocumentSummaryErrorJoinsFirstThree(t *testing.T) {
	llm := &fakeLLM{err: errors.New("unavailable")}
	s := NewSummarizer(llm, testConfig())
	item := &models.ContentItem{SourceType: models.SourceDocument}
	long := strings.Repeat("s", 120)
	sections := []models.Section{
		{Summary: long}, {Summary: long}, {Summary: long}, {Summary: "fourth"},
	}

	summary, cost := s.DocumentSummary(context.Background(), item, sections)
	assert.Zero(t, cost)
	assert.NotContains(t, summary, "fourth")
	assert.Equal(t, strings.Join([]string{long, long, long}, " "), summary)
}

func TestFallbackSummary(t *testing.T) {
	assert.Equal(t, "First sentence.", fallbackSummary("First sentence. And the rest of it."))
	assert.Equal(t, "tiny", fallbackSummary("tiny"))

	long := strings.Repeat("word ", 60)
	got := fallbackSummary(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), 153)
}

func TestFirstSentence(t *testing.T) {
	assert.Equal(t, "One.", firstSentence("One. Two."))
	assert.Equal(t, "no period.", firstSentence("no period"))
}
