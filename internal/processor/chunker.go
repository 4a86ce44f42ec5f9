package processor

import (
	"strings"
	"unicode"

	"github.com/contentforge/ragpipe/internal/models"
)

// TruncationMarker terminates a chunk that had to be hard-truncated because
// a single sentence exceeded the token budget.
const TruncationMarker = "..."

// Chunker splits sections into token-bounded chunks on sentence boundaries
// and stitches context windows between adjacent chunks across the document.
type Chunker struct {
	cfg Config
}

// NewChunker constructs a chunker.
func NewChunker(cfg Config) *Chunker {
	return &Chunker{cfg: cfg.Normalize()}
}

// ChunkSections produces the document's full ordered chunk list. Chunk
// indices are assigned globally across all sections; context windows are
// stitched in a second pass over the combined list.
func (c *Chunker) ChunkSections(sections []models.Section) []models.Chunk {
	var all []models.Chunk

	for si := range sections {
		sectionChunks := c.chunkSection(&sections[si], len(all))
		all = append(all, sectionChunks...)
	}

	c.addContextWindows(all)
	return all
}

// chunkSection splits one section. Sections that already fit the token
// budget become a single verbatim chunk carrying the section's own ranges.
func (c *Chunker) chunkSection(section *models.Section, startIndex int) []models.Chunk {
	text := strings.TrimSpace(section.ContentText)
	if text == "" {
		return nil
	}

	if EstimateTokens(text) <= c.cfg.TokenMax {
		ch := c.newChunk(text, startIndex, 0, section)
		ch.StartTime = section.StartTime
		ch.EndTime = section.EndTime
		ch.StartPosition = section.StartPosition
		ch.EndPosition = section.EndPosition
		return []models.Chunk{ch}
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []models.Chunk
	current := ""
	sectionChunkIndex := 0

	flush := func() {
		if current == "" {
			return
		}
		chunks = append(chunks, c.newChunk(current, startIndex+sectionChunkIndex, sectionChunkIndex, section))
		sectionChunkIndex++
		current = ""
	}

	for _, sentence := range sentences {
		potential := sentence
		if current != "" {
			potential = current + " " + sentence
		}

		if EstimateTokens(potential) <= c.cfg.TokenMax {
			current = potential
			continue
		}

		flush()

		// A lone sentence over the budget cannot be split further without
		// breaking mid-word; hard-truncate it into its own chunk.
		if EstimateTokens(sentence) > c.cfg.TokenMax {
			truncated := truncateToTokenLimit(sentence, c.cfg.TokenMax)
			chunks = append(chunks, c.newChunk(truncated, startIndex+sectionChunkIndex, sectionChunkIndex, section))
			sectionChunkIndex++
			continue
		}

		current = sentence
	}

	flush()
	return chunks
}

// newChunk builds a chunk from text, interpolating its time or position
// range proportionally within the parent section.
func (c *Chunker) newChunk(text string, chunkIndex, sectionChunkIndex int, section *models.Section) models.Chunk {
	ch := models.Chunk{
		ChunkIndex:        chunkIndex,
		SectionChunkIndex: sectionChunkIndex,
		ContentText:       text,
		ContentHash:       ContentHash(text),
		TokenCount:        EstimateTokens(text),
		CharacterCount:    len(text),
		QualityScore:      QualityScore(text, "", nil),
		InfoDensity:       InfoDensity(EstimateTokens(text)),
	}

	offset := chunkOffset(section.ContentText, text)

	if section.StartTime != nil && section.EndTime != nil {
		duration := *section.EndTime - *section.StartTime
		if duration > 0 && offset >= 0 && len(section.ContentText) > 0 {
			total := float64(len(section.ContentText))
			start := *section.StartTime + float64(offset)/total*duration
			end := *section.StartTime + float64(offset+len(text))/total*duration
			if end > *section.EndTime {
				end = *section.EndTime
			}
			ch.StartTime = &start
			ch.EndTime = &end
		}
	}

	if section.StartPosition != nil && offset >= 0 {
		start := *section.StartPosition + offset
		end := start + len(text)
		ch.StartPosition = &start
		ch.EndPosition = &end
	}

	return ch
}

// chunkOffset locates the chunk text inside the section text, ignoring a
// trailing truncation marker. Returns -1 when the text cannot be located.
func chunkOffset(sectionText, chunkText string) int {
	needle := strings.TrimSuffix(chunkText, TruncationMarker)
	if needle == "" {
		return -1
	}
	return strings.Index(sectionText, needle)
}

// addContextWindows stitches up to ContextOverlap characters of neighboring
// chunk text into each chunk, for retrieval continuity. The context is not
// re-embedded.
func (c *Chunker) addContextWindows(chunks []models.Chunk) {
	for i := range chunks {
		if i > 0 {
			prev := chunks[i-1].ContentText
			if len(prev) > c.cfg.ContextOverlap {
				prev = prev[len(prev)-c.cfg.ContextOverlap:]
			}
			chunks[i].ContextBefore = strings.TrimSpace(prev)
		}
		if i < len(chunks)-1 {
			next := chunks[i+1].ContentText
			if len(next) > c.cfg.ContextOverlap {
				next = next[:c.cfg.ContextOverlap]
			}
			chunks[i].ContextAfter = strings.TrimSpace(next)
		}
	}
}

// splitSentences breaks text on sentence-ending punctuation followed by
// whitespace and a capital letter. This is deliberately the same heuristic
// class as the rest of the pipeline: it mis-splits abbreviations and
// under-splits uncapitalized text, which is acceptable because chunk
// boundaries only need to be token-bounded, not linguistically perfect.
// Text with no detectable boundaries falls back to length-based pieces.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	i := 0

	for i < len(runes) {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			i++
			continue
		}

		// Consume the punctuation run.
		j := i + 1
		for j < len(runes) && (runes[j] == '.' || runes[j] == '!' || runes[j] == '?') {
			j++
		}

		// Consume trailing whitespace and require a capital to follow.
		k := j
		for k < len(runes) && unicode.IsSpace(runes[k]) {
			k++
		}

		if k == len(runes) || (k > j && unicode.IsUpper(runes[k])) {
			s := strings.TrimSpace(string(runes[start:j]))
			if s != "" {
				sentences = append(sentences, s)
			}
			start = k
			i = k
			continue
		}

		i = j
	}

	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) <= 1 {
		return splitByLength(text, SentenceFallbackChars)
	}

	return sentences
}

// splitByLength cuts text into pieces of at most maxChars, preferring word
// boundaries.
func splitByLength(text string, maxChars int) []string {
	var pieces []string
	start := 0

	for start < len(text) {
		end := start + maxChars
		if end >= len(text) {
			if p := strings.TrimSpace(text[start:]); p != "" {
				pieces = append(pieces, p)
			}
			break
		}

		breakPoint := strings.LastIndex(text[start:end], " ")
		if breakPoint > 0 {
			if p := strings.TrimSpace(text[start : start+breakPoint]); p != "" {
				pieces = append(pieces, p)
			}
			start += breakPoint + 1
		} else {
			if p := strings.TrimSpace(text[start:end]); p != "" {
				pieces = append(pieces, p)
			}
			start = end
		}
	}

	return pieces
}

// truncateToTokenLimit cuts text to roughly tokenMax tokens, ending on a
// word boundary when one falls within 20% of the target, and appends the
// truncation marker.
func truncateToTokenLimit(text string, tokenMax int) string {
	targetChars := tokenMax * 4
	if len(text) <= targetChars {
		return text
	}

	truncated := text[:targetChars]
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > targetChars*4/5 {
		return truncated[:lastSpace] + TruncationMarker
	}
	return truncated + TruncationMarker
}
