package processor

import (
	"strings"
	"unicode"

	"github.com/contentforge/ragpipe/internal/models"
)

// SectionBuilder converts one content item into an ordered list of sections
// using one of two strategies: segmented sources (video, audio, external
// content) are grouped from their pre-existing segments preserving speaker
// turns and timing; flat-text sources (document, social post) are split on
// logical boundaries.
type SectionBuilder struct{}

// NewSectionBuilder constructs a section builder.
func NewSectionBuilder() *SectionBuilder {
	return &SectionBuilder{}
}

// BuildSections returns the item's sections. Empty or whitespace-only
// content yields zero sections; the caller treats that as "nothing to
// index", not an error.
func (b *SectionBuilder) BuildSections(item *models.ContentItem, segments []models.Segment) []models.Section {
	if item.SourceType.Segmented() {
		return b.sectionsFromSegments(item, segments)
	}
	return b.sectionsFromText(item)
}

// pendingSection accumulates segments until a split condition fires.
type pendingSection struct {
	textParts    []string
	speaker      string
	sectionTitle string
	startTime    *float64
	endTime      *float64
	startPos     *int
	endPos       *int
	confidences  []float64
	segments     []models.Segment
}

func (p *pendingSection) text() string {
	return strings.Join(p.textParts, " ")
}

func (b *SectionBuilder) sectionsFromSegments(item *models.ContentItem, segments []models.Segment) []models.Section {
	var sections []models.Section
	var current *pendingSection

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}

		if current == nil || shouldSplitSection(current, seg, item.SourceType) {
			if current != nil {
				sections = append(sections, finalizeSection(current, len(sections), item))
			}
			current = &pendingSection{
				textParts:    []string{text},
				speaker:      seg.Speaker,
				sectionTitle: seg.SectionTitle,
				startTime:    seg.StartTime,
				endTime:      seg.EndTime,
				startPos:     seg.StartPosition,
				endPos:       seg.EndPosition,
				segments:     []models.Segment{seg},
			}
			if seg.Confidence != nil {
				current.confidences = append(current.confidences, *seg.Confidence)
			}
			continue
		}

		current.textParts = append(current.textParts, text)
		current.endTime = seg.EndTime
		current.endPos = seg.EndPosition
		current.segments = append(current.segments, seg)
		if seg.Confidence != nil {
			current.confidences = append(current.confidences, *seg.Confidence)
		}
	}

	if current != nil {
		sections = append(sections, finalizeSection(current, len(sections), item))
	}

	return sections
}

// shouldSplitSection checks the split conditions in precedence order:
// speaker change, section-title change, time gap, accumulated length.
func shouldSplitSection(current *pendingSection, seg models.Segment, st models.SourceType) bool {
	if st.TimeBased() && seg.Speaker != current.speaker {
		return true
	}

	if st == models.SourceExternalContent &&
		seg.SectionTitle != "" && seg.SectionTitle != current.sectionTitle {
		return true
	}

	if st.TimeBased() && seg.StartTime != nil && current.endTime != nil {
		if *seg.StartTime-*current.endTime > SectionTimeGap {
			return true
		}
	}

	if len(current.text()) > SegmentSectionMaxChars {
		return true
	}

	return false
}

func finalizeSection(p *pendingSection, index int, item *models.ContentItem) models.Section {
	content := p.text()

	var confidence *float64
	if len(p.confidences) > 0 {
		sum := 0.0
		for _, c := range p.confidences {
			sum += c
		}
		mean := sum / float64(len(p.confidences))
		confidence = &mean
	}

	sectionType := models.SectionLogical
	if p.speaker != "" {
		sectionType = models.SectionSpeakerTurn
	} else if p.sectionTitle != "" {
		sectionType = models.SectionTitled
	}

	sourceType := string(item.SourceType)
	sourceID := ""
	if len(p.segments) > 0 && p.segments[0].SourceType != "" {
		sourceType = p.segments[0].SourceType
	}
	if len(p.segments) == 1 {
		sourceID = p.segments[0].SourceID
	}

	return models.Section{
		SectionIndex:   index,
		Title:          p.sectionTitle,
		SectionType:    sectionType,
		SourceType:     sourceType,
		SourceID:       sourceID,
		Speaker:        p.speaker,
		StartTime:      p.startTime,
		EndTime:        p.endTime,
		StartPosition:  p.startPos,
		EndPosition:    p.endPos,
		ContentText:    content,
		WordCount:      models.CountWords(content),
		CharacterCount: len(content),
		Confidence:     confidence,
	}
}

func (b *SectionBuilder) sectionsFromText(item *models.ContentItem) []models.Section {
	text := strings.TrimSpace(item.ContentText)
	if text == "" {
		return nil
	}

	// A social post is always a single section.
	if item.SourceType == models.SourceSocialPost {
		return []models.Section{{
			SectionIndex:   0,
			SectionType:    models.SectionSocialPost,
			SourceType:     string(item.SourceType),
			ContentText:    text,
			WordCount:      models.CountWords(text),
			CharacterCount: len(text),
		}}
	}

	return splitTextByBoundaries(text, string(item.SourceType))
}

// splitTextByBoundaries groups paragraphs into sections of at most
// TextSectionMaxChars. Paragraphs are delimited by blank lines, falling
// back to single newlines when the text has no blank lines at all.
func splitTextByBoundaries(text, sourceType string) []models.Section {
	paragraphs := splitNonEmpty(text, "\n\n")
	if len(paragraphs) == 0 {
		paragraphs = splitNonEmpty(text, "\n")
	}

	var sections []models.Section
	current := ""

	emit := func() {
		sections = append(sections, models.Section{
			SectionIndex:   len(sections),
			Title:          extractSectionTitle(current),
			SectionType:    models.SectionDocument,
			SourceType:     sourceType,
			ContentText:    current,
			WordCount:      models.CountWords(current),
			CharacterCount: len(current),
		})
	}

	for _, para := range paragraphs {
		potential := para
		if current != "" {
			potential = current + "\n\n" + para
		}

		if len(potential) > TextSectionMaxChars && current != "" {
			emit()
			current = para
		} else {
			current = potential
		}
	}

	if current != "" {
		emit()
	}

	return sections
}

func splitNonEmpty(text, sep string) []string {
	var out []string
	for _, p := range strings.Split(text, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// extractSectionTitle returns the section's first line when it looks like a
// title: short, not the only line, and either all caps, a markdown header,
// colon-terminated, or at most eight words.
func extractSectionTitle(text string) string {
	lines := strings.Split(text, "\n")
	first := strings.TrimSpace(lines[0])

	if len(first) >= 100 || len(lines) < 2 {
		return ""
	}

	if isAllUpper(first) ||
		strings.HasPrefix(first, "#") ||
		strings.HasSuffix(first, ":") ||
		len(strings.Fields(first)) <= 8 {
		return first
	}

	return ""
}

// isAllUpper reports whether s contains at least one cased letter and no
// lowercase letters.
func isAllUpper(s string) bool {
	hasCased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasCased = true
		}
	}
	return hasCased
}
