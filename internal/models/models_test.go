package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceTypeValid(t *testing.T) {
	for _, st := range AllSourceTypes {
		assert.True(t, st.Valid(), st)
	}
	assert.False(t, SourceType("email").Valid())
	assert.False(t, SourceType("").Valid())
}

func TestSourceTypeSegmented(t *testing.T) {
	assert.True(t, SourceVideo.Segmented())
	assert.True(t, SourceAudio.Segmented())
	assert.True(t, SourceExternalContent.Segmented())
	assert.False(t, SourceDocument.Segmented())
	assert.False(t, SourceSocialPost.Segmented())
}

func TestSourceTypeTimeBased(t *testing.T) {
	assert.True(t, SourceVideo.TimeBased())
	assert.True(t, SourceAudio.TimeBased())
	assert.False(t, SourceExternalContent.TimeBased())
	assert.False(t, SourceDocument.TimeBased())
}

func TestSectionDuration(t *testing.T) {
	start, end := 10.0, 45.5
	s := Section{StartTime: &start, EndTime: &end}
	d := s.Duration()
	if assert.NotNil(t, d) {
		assert.InDelta(t, 35.5, *d, 0.001)
	}

	open := Section{StartTime: &start}
	assert.Nil(t, open.Duration())
	var empty Section
	assert.Nil(t, empty.Duration())
}

func TestChunkHelpers(t *testing.T) {
	c := Chunk{ContextBefore: "abcd", ContextAfter: "ef"}
	assert.Equal(t, 6, c.ContextWindowSize())
	assert.False(t, c.HasEmbedding())

	c.Embedding = []float32{0.1, 0.2}
	assert.True(t, c.HasEmbedding())
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords("   "))
	assert.Equal(t, 3, CountWords("one  two\nthree"))
}
