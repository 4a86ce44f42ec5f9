package models

import (
	"strings"
	"time"
)

// SourceRecord is the raw row the loader reads from a source table before
// normalization. Only the fields relevant to the record's source type are
// populated; the conversion arm for each type decides which ones to read.
type SourceRecord struct {
	ID          string
	Title       string
	Filename    string
	ContentType string
	Author      string
	Speaker     string
	Speakers    []string
	EventName   string
	Source      string
	Platform    string
	DocType     string
	Description string
	SourceURL   string
	StorageURL  string
	ContentText string
	WordCount   int
	Duration    float64
	ContentDate *time.Time
	PersonaID   string
	Tags        []string
	Keywords    []string
	Hashtags    []string
	Mentions    []string
	Likes       int
	Comments    int
	Shares      int
}

// Segment is one pre-existing timestamped or positioned fragment of a
// segmented source (transcript segment, audio segment, external content
// segment), ordered by Index within its parent record.
type Segment struct {
	Index         int
	Text          string
	Speaker       string
	SectionTitle  string
	StartTime     *float64
	EndTime       *float64
	StartPosition *int
	EndPosition   *int
	Confidence    *float64
	SourceID      string
	SourceType    string
}

// ContentItem is the uniform, ephemeral view of one source record as it
// moves through the pipeline. It is constructed fresh per run and never
// persisted; the persisted aggregate is Document.
type ContentItem struct {
	SourceType     SourceType
	SourceID       string
	Title          string
	ContentType    string
	Author         string
	ContentDate    *time.Time
	ContentText    string
	WordCount      int
	CharacterCount int
	Metadata       map[string]any
}

// CountWords returns the whitespace-separated word count of text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
