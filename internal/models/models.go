package models

import (
	"time"
)

// SourceType identifies which source-of-truth table a content item came from.
type SourceType string

const (
	SourceVideo           SourceType = "video"
	SourceAudio           SourceType = "audio"
	SourceExternalContent SourceType = "external_content"
	SourceDocument        SourceType = "document"
	SourceSocialPost      SourceType = "social_post"
)

// AllSourceTypes lists every source type in processing order.
var AllSourceTypes = []SourceType{
	SourceVideo,
	SourceAudio,
	SourceExternalContent,
	SourceDocument,
	SourceSocialPost,
}

// Valid reports whether st is a known source type.
func (st SourceType) Valid() bool {
	_, ok := SourceSpecs[st]
	return ok
}

// SourceSpec describes how one source type maps onto storage: which table
// holds the records, which table (if any) holds its pre-existing segments,
// and the foreign-key column linking segments to their parent record.
type SourceSpec struct {
	Table        string
	SegmentTable string
	SegmentFK    string
	Label        string
}

// SourceSpecs is the dispatch table for source-type-specific behavior.
// A source type with an empty SegmentTable is flat text and goes through
// the text-based section strategy.
var SourceSpecs = map[SourceType]SourceSpec{
	SourceVideo: {
		Table:        "videos",
		SegmentTable: "transcript_segments",
		SegmentFK:    "video_id",
		Label:        "video",
	},
	SourceAudio: {
		Table:        "audio_recordings",
		SegmentTable: "audio_segments",
		SegmentFK:    "recording_id",
		Label:        "audio",
	},
	SourceExternalContent: {
		Table:        "external_content",
		SegmentTable: "external_content_segments",
		SegmentFK:    "content_id",
		Label:        "external_content",
	},
	SourceDocument: {
		Table: "documents",
		Label: "document",
	},
	SourceSocialPost: {
		Table: "social_posts",
		Label: "social_post",
	},
}

// Segmented reports whether this source type carries pre-existing segments.
func (st SourceType) Segmented() bool {
	return SourceSpecs[st].SegmentTable != ""
}

// TimeBased reports whether this source type's segments carry timestamps.
func (st SourceType) TimeBased() bool {
	return st == SourceVideo || st == SourceAudio
}

// Processing status values for rag_documents.processing_status.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
	StatusUpdated    = "updated"
)

// Section type values.
const (
	SectionSpeakerTurn = "speaker_turn"
	SectionTitled      = "titled_section"
	SectionLogical     = "logical_section"
	SectionDocument    = "document_section"
	SectionSocialPost  = "social_post"
)

// Document is the persisted document-level record, the aggregate root for
// one ingested content item. (source_type, source_id) is unique.
type Document struct {
	ID             string     `db:"id" json:"id"`
	SourceType     SourceType `db:"source_type" json:"source_type"`
	SourceID       string     `db:"source_id" json:"source_id"`
	Title          string     `db:"title" json:"title"`
	ContentType    string     `db:"content_type" json:"content_type"`
	Author         string     `db:"author" json:"author,omitempty"`
	ContentDate    *time.Time `db:"content_date" json:"content_date,omitempty"`
	Language       string     `db:"language" json:"language"`
	Summary        string     `db:"summary" json:"summary"`
	WordCount      int        `db:"word_count" json:"word_count"`
	CharacterCount int        `db:"character_count" json:"character_count"`
	SectionCount   int        `db:"section_count" json:"section_count"`
	ChunkCount     int        `db:"chunk_count" json:"chunk_count"`
	Status         string     `db:"processing_status" json:"processing_status"`
	EmbeddingModel string     `db:"embedding_model" json:"embedding_model"`
	QualityScore   float64    `db:"content_quality_score" json:"content_quality_score"`
	ProcessedAt    time.Time  `db:"processed_at" json:"processed_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Section is a logical grouping within a document: a speaker turn, a time
// window, a titled subsection, or a paragraph group. Exactly one of the
// time range or position range is populated, depending on source type.
type Section struct {
	ID             string   `db:"id" json:"id"`
	DocumentID     string   `db:"document_id" json:"document_id"`
	SectionIndex   int      `db:"section_index" json:"section_index"`
	Title          string   `db:"title" json:"title,omitempty"`
	SectionType    string   `db:"section_type" json:"section_type"`
	SourceType     string   `db:"source_type" json:"source_type"`
	SourceID       string   `db:"source_id" json:"source_id,omitempty"`
	Speaker        string   `db:"speaker" json:"speaker,omitempty"`
	StartTime      *float64 `db:"start_time" json:"start_time,omitempty"`
	EndTime        *float64 `db:"end_time" json:"end_time,omitempty"`
	StartPosition  *int     `db:"start_position" json:"start_position,omitempty"`
	EndPosition    *int     `db:"end_position" json:"end_position,omitempty"`
	ContentText    string   `db:"content_text" json:"content_text"`
	Summary        string   `db:"summary" json:"summary,omitempty"`
	WordCount      int      `db:"word_count" json:"word_count"`
	CharacterCount int      `db:"character_count" json:"character_count"`
	Confidence     *float64 `db:"confidence" json:"confidence,omitempty"`
	QualityScore   float64  `db:"content_quality_score" json:"content_quality_score"`
}

// Duration returns the section's time span in seconds, or nil when the
// section has no time range.
func (s *Section) Duration() *float64 {
	if s.StartTime == nil || s.EndTime == nil {
		return nil
	}
	d := *s.EndTime - *s.StartTime
	return &d
}

// Chunk is the unit actually embedded and retrieved: a token-bounded span
// of text within a section. ChunkIndex is global across the document;
// SectionChunkIndex restarts at zero in each section.
type Chunk struct {
	ID                string    `db:"id" json:"id"`
	DocumentID        string    `db:"document_id" json:"document_id"`
	SectionID         string    `db:"section_id" json:"section_id,omitempty"`
	ChunkIndex        int       `db:"chunk_index" json:"chunk_index"`
	SectionChunkIndex int       `db:"section_chunk_index" json:"section_chunk_index"`
	ContentText       string    `db:"content_text" json:"content_text"`
	ContentHash       string    `db:"content_hash" json:"content_hash"`
	TokenCount        int       `db:"token_count" json:"token_count"`
	CharacterCount    int       `db:"character_count" json:"character_count"`
	Embedding         []float32 `db:"embedding" json:"-"`
	EmbeddingModel    string    `db:"embedding_model" json:"embedding_model"`
	ContextBefore     string    `db:"context_before" json:"context_before,omitempty"`
	ContextAfter      string    `db:"context_after" json:"context_after,omitempty"`
	StartTime         *float64  `db:"start_time" json:"start_time,omitempty"`
	EndTime           *float64  `db:"end_time" json:"end_time,omitempty"`
	StartPosition     *int      `db:"start_position" json:"start_position,omitempty"`
	EndPosition       *int      `db:"end_position" json:"end_position,omitempty"`
	QualityScore      float64   `db:"content_quality_score" json:"content_quality_score"`
	InfoDensity       float64   `db:"information_density" json:"information_density"`
}

// ContextWindowSize returns the combined character length of the stitched
// context fields.
func (c *Chunk) ContextWindowSize() int {
	return len(c.ContextBefore) + len(c.ContextAfter)
}

// HasEmbedding reports whether the chunk carries a non-empty embedding.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// CorpusTotals holds the knowledge-base-wide counters kept in corpus_summary.
type CorpusTotals struct {
	TotalDocuments int `db:"total_documents" json:"total_documents"`
	TotalSections  int `db:"total_sections" json:"total_sections"`
	TotalChunks    int `db:"total_chunks" json:"total_chunks"`
	TotalTokens    int `db:"total_tokens" json:"total_tokens"`
}
