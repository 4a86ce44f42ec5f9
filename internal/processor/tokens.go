package processor

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode"

	"github.com/contentforge/ragpipe/internal/models"
)

// EstimateTokens approximates token count as max(1, len/4). It is not a
// real tokenizer; it only has to be consistent with itself, since every
// budget check in the pipeline uses the same estimate.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

// ContentHash returns the SHA-256 hex digest of text, used for dedup
// detection on chunks.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// QualityScore rates content in [0,1]: very short text scores 0.1, the base
// is 0.7, transcription confidence adds up to 0.2 for video/audio, heavy
// whitespace subtracts 0.3, and extremely long content subtracts 0.1.
func QualityScore(text string, st models.SourceType, confidence *float64) float64 {
	if len(text) < 100 {
		return 0.1
	}

	score := 0.7

	if confidence != nil && st.TimeBased() {
		score += *confidence * 0.2
	}

	spaces := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			spaces++
		}
	}
	if float64(spaces)/float64(len([]rune(text))) > 0.5 {
		score -= 0.3
	}

	if len(text) > 50000 {
		score -= 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}
	return score
}

// InfoDensity normalizes a chunk's token count against the 400-token target.
func InfoDensity(tokenCount int) float64 {
	d := float64(tokenCount) / 400.0
	if d > 1.0 {
		return 1.0
	}
	return d
}
