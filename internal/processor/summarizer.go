package processor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/contentforge/ragpipe/internal/core"
	"github.com/contentforge/ragpipe/internal/models"
)

const (
	sectionSummarySystemPrompt = "You are a technical summarizer. Create a concise 1-2 sentence summary " +
		"that captures the main point or key information. Be specific and factual."

	documentSummarySystemPrompt = "You are a document summarizer. Create a comprehensive 2-3 sentence summary " +
		"that captures the main themes and key points from the section summaries provided."

	// Content below this length skips the AI call entirely.
	shortContentThreshold = 200

	// Generated summaries are capped at this many characters.
	summaryMaxChars = 300

	// Combined section summaries below this length become the document
	// summary verbatim, with no AI call.
	documentSummaryInlineThreshold = 300
)

// Summarizer produces per-section and per-document summaries through an LLM
// capability, degrading to deterministic heuristics whenever the capability
// is missing or fails. Summarization failure is never fatal to the pipeline.
type Summarizer struct {
	llm   core.LLMProvider
	cfg   Config
	calls int
}

// NewSummarizer constructs a summarizer. llm may be nil, in which case only
// the heuristic fallbacks are used.
func NewSummarizer(llm core.LLMProvider, cfg Config) *Summarizer {
	return &Summarizer{llm: llm, cfg: cfg.Normalize()}
}

// SummarizeSections fills in the Summary field of each section, in place.
// It returns the estimated cost of the AI calls made.
func (s *Summarizer) SummarizeSections(ctx context.Context, sections []models.Section) float64 {
	if s.llm == nil {
		log.Println("summarizer: LLM not available, using fallback summaries")
		for i := range sections {
			sections[i].Summary = fallbackSummary(sections[i].ContentText)
		}
		return 0
	}

	cost := 0.0
	for i := range sections {
		if sections[i].Summary != "" {
			continue
		}

		summary, callCost, err := s.summarizeSection(ctx, &sections[i])
		cost += callCost
		if err != nil {
			log.Printf("summarizer: section %d summary failed, using fallback: %v", sections[i].SectionIndex, err)
			summary = fallbackSummary(sections[i].ContentText)
		}
		sections[i].Summary = summary
	}
	return cost
}

// summarizeSection returns the summary for one section and the cost of any
// AI call made. Short content short-circuits to the first sentence.
func (s *Summarizer) summarizeSection(ctx context.Context, section *models.Section) (string, float64, error) {
	content := strings.TrimSpace(section.ContentText)

	if len(content) < shortContentThreshold {
		return firstSentence(content), 0, nil
	}

	var userPrompt string
	switch {
	case section.Speaker != "":
		userPrompt = fmt.Sprintf("Summarize this speaker segment from %s:\n\n%s", section.Speaker, content)
	case section.SectionType == models.SectionSocialPost:
		userPrompt = fmt.Sprintf("Summarize this social media post:\n\n%s", content)
	default:
		userPrompt = fmt.Sprintf("Summarize this text content:\n\n%s", content)
	}

	summary, err := s.generate(ctx, sectionSummarySystemPrompt, userPrompt)
	if err != nil {
		return "", 0, err
	}

	summary = strings.TrimSpace(summary)
	if len(summary) > summaryMaxChars {
		summary = summary[:summaryMaxChars-3] + "..."
	}
	return summary, SummaryCallCost, nil
}

// DocumentSummary builds the document-level summary from the already
// generated section summaries. It returns the summary and the cost of any
// AI call made.
func (s *Summarizer) DocumentSummary(ctx context.Context, item *models.ContentItem, sections []models.Section) (string, float64) {
	var summaries []string
	for i := range sections {
		if sections[i].Summary != "" {
			summaries = append(summaries, sections[i].Summary)
		}
	}

	if len(summaries) == 0 {
		return fmt.Sprintf("Document containing %d sections from %s", len(sections), item.SourceType), 0
	}

	combined := strings.Join(summaries, "\n")
	if len(combined) < documentSummaryInlineThreshold {
		return combined, 0
	}

	if s.llm == nil {
		joined := strings.Join(first(summaries, 3), " ")
		if len(joined) > 500 {
			joined = joined[:500] + "..."
		}
		return joined, 0
	}

	userPrompt := fmt.Sprintf("Create a document summary from these section summaries:\n\n%s", combined)
	summary, err := s.generate(ctx, documentSummarySystemPrompt, userPrompt)
	if err != nil {
		log.Printf("summarizer: document summary failed, joining section summaries: %v", err)
		return strings.Join(first(summaries, 3), " "), 0
	}

	return strings.TrimSpace(summary), SummaryCallCost
}

// generate makes one LLM call with cooperative pacing: a short pause after
// every call and a longer one every tenth call.
func (s *Summarizer) generate(ctx context.Context, system, user string) (string, error) {
	out, err := s.llm.Generate(ctx, system, user)
	if err != nil {
		return "", err
	}

	s.calls++
	if s.calls%10 == 0 {
		sleepCtx(ctx, s.cfg.SummaryLongPause)
	} else {
		sleepCtx(ctx, s.cfg.SummaryPause)
	}
	return out, nil
}

// firstSentence returns everything up to and including the first period,
// or the whole content with a period appended when there is none.
func firstSentence(content string) string {
	if i := strings.Index(content, "."); i >= 0 {
		return content[:i+1]
	}
	return content + "."
}

// fallbackSummary is the non-AI heuristic: the first sentence when it is
// reasonably short, otherwise the first 150 characters cut at a word
// boundary. It never fails.
func fallbackSummary(content string) string {
	content = strings.TrimSpace(content)

	if i := strings.Index(content, "."); i >= 0 && i < shortContentThreshold && i+1 < len(content) {
		return content[:i+1]
	}

	if len(content) <= 150 {
		return content
	}

	truncated := content[:150]
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 100 {
		return truncated[:lastSpace] + "..."
	}
	return truncated + "..."
}

func first(ss []string, n int) []string {
	if len(ss) < n {
		return ss
	}
	return ss[:n]
}

// sleepCtx sleeps for d unless the context is cancelled first. A zero or
// negative d returns immediately.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
