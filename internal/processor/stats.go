package processor

import (
	"log"
	"time"

	"github.com/contentforge/ragpipe/internal/models"
)

// Stats aggregates counters across one pipeline run.
type Stats struct {
	DocumentsProcessed  int
	DocumentsFailed     int
	SectionsCreated     int
	ChunksCreated       int
	EmbeddingsGenerated int
	TotalTokens         int
	TotalCost           float64
	StartTime           time.Time
}

// NewStats returns stats with the clock started.
func NewStats() *Stats {
	return &Stats{StartTime: time.Now().UTC()}
}

// Elapsed is the wall-clock time since the run started.
func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.StartTime)
}

// SuccessRate is processed/(processed+failed), or 0 for an empty run.
func (s *Stats) SuccessRate() float64 {
	total := s.DocumentsProcessed + s.DocumentsFailed
	if total == 0 {
		return 0
	}
	return float64(s.DocumentsProcessed) / float64(total)
}

// LogFinal writes the end-of-run statistics block, including corpus-wide
// totals when available.
func (s *Stats) LogFinal(totals *models.CorpusTotals) {
	log.Println("============================================================")
	log.Println("CONTENT PROCESSING COMPLETE")
	log.Println("============================================================")
	log.Printf("Documents processed: %d", s.DocumentsProcessed)
	log.Printf("Documents failed: %d", s.DocumentsFailed)
	log.Printf("Sections created: %d", s.SectionsCreated)
	log.Printf("Chunks created: %d", s.ChunksCreated)
	log.Printf("Embeddings generated: %d", s.EmbeddingsGenerated)
	log.Printf("Total tokens processed: %d", s.TotalTokens)
	log.Printf("Total cost: $%.6f", s.TotalCost)
	log.Printf("Processing time: %s", s.Elapsed().Round(time.Millisecond))

	if s.DocumentsProcessed > 0 {
		log.Printf("Average sections per document: %.1f", float64(s.SectionsCreated)/float64(s.DocumentsProcessed))
		log.Printf("Average chunks per document: %.1f", float64(s.ChunksCreated)/float64(s.DocumentsProcessed))
		log.Printf("Average cost per document: $%.6f", s.TotalCost/float64(s.DocumentsProcessed))
	}

	if totals != nil {
		log.Println("============================================================")
		log.Println("RAG DATABASE STATISTICS")
		log.Println("============================================================")
		log.Printf("Total documents in corpus: %d", totals.TotalDocuments)
		log.Printf("Total sections in corpus: %d", totals.TotalSections)
		log.Printf("Total chunks in corpus: %d", totals.TotalChunks)
		log.Printf("Total tokens in corpus: %d", totals.TotalTokens)
	}

	log.Println("============================================================")
}
