package core

import (
	"context"
	"time"

	"github.com/contentforge/ragpipe/internal/models"
)

// DbClient defines all persistence operations the pipeline needs.
// It abstracts Postgres/pgvector so higher layers never depend on a
// specific DB.
type DbClient interface {
	// ListUnprocessed returns source records of the given type that have no
	// rag_documents row yet, newest-first filtering by since when non-nil.
	ListUnprocessed(ctx context.Context, st models.SourceType, limit int, since *time.Time) ([]models.SourceRecord, error)

	// ListSegments returns the ordered pre-existing segments for one
	// segmented source record. Flat-text source types return no rows.
	ListSegments(ctx context.Context, st models.SourceType, sourceID string) ([]models.Segment, error)

	// DocumentExists reports whether a document was already ingested for
	// this (source_type, source_id) pair.
	DocumentExists(ctx context.Context, st models.SourceType, sourceID string) (bool, error)

	// SaveDocument writes one document with its sections and chunks in a
	// single transaction. It returns false without writing when a document
	// for the same source already exists (including losing a concurrent
	// insert race); partial writes are never left committed.
	SaveDocument(ctx context.Context, doc *models.Document, sections []models.Section, chunks []models.Chunk) (bool, error)

	// CorpusTotals returns the knowledge-base-wide counters.
	CorpusTotals(ctx context.Context) (*models.CorpusTotals, error)

	Close() error
}
