package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/contentforge/ragpipe/internal/models"
)

// SaveDocument writes one document with its sections and chunks in a single
// transaction. A unique violation on (source_type, source_id) means another
// run (or an earlier one) already ingested this source; that is reported as
// saved=false, not an error, and nothing is written.
func (c *DatabaseClient) SaveDocument(ctx context.Context, doc *models.Document, sections []models.Section, chunks []models.Chunk) (bool, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	const docQ = `
		INSERT INTO rag_documents
			(id, source_type, source_id, title, content_type, author, content_date, language, summary,
			 word_count, character_count, section_count, chunk_count, processing_status,
			 embedding_model, content_quality_score, processed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now(), now())
	`
	if _, err := tx.ExecContext(ctx, docQ,
		doc.ID, doc.SourceType, doc.SourceID, doc.Title, doc.ContentType, nullIfEmpty(doc.Author),
		nullTime(doc.ContentDate), doc.Language, doc.Summary,
		doc.WordCount, doc.CharacterCount, doc.SectionCount, doc.ChunkCount, doc.Status,
		doc.EmbeddingModel, doc.QualityScore, doc.ProcessedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}

	const sectionQ = `
		INSERT INTO rag_sections
			(id, document_id, section_index, title, section_type, source_type, source_id, speaker,
			 start_time, end_time, start_position, end_position, content_text, summary,
			 word_count, character_count, confidence, content_quality_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	sectionStmt, err := tx.PrepareContext(ctx, sectionQ)
	if err != nil {
		return false, err
	}
	defer sectionStmt.Close()

	for i := range sections {
		s := &sections[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.DocumentID = doc.ID
		if _, err := sectionStmt.ExecContext(ctx,
			s.ID, s.DocumentID, s.SectionIndex, nullIfEmpty(s.Title), s.SectionType,
			nullIfEmpty(s.SourceType), nullIfEmpty(s.SourceID), nullIfEmpty(s.Speaker),
			s.StartTime, s.EndTime, s.StartPosition, s.EndPosition, s.ContentText, nullIfEmpty(s.Summary),
			s.WordCount, s.CharacterCount, s.Confidence, s.QualityScore,
		); err != nil {
			return false, err
		}
	}

	const chunkQ = `
		INSERT INTO rag_chunks
			(id, document_id, section_id, chunk_index, section_chunk_index, content_text, content_hash,
			 token_count, character_count, embedding, embedding_model, context_before, context_after,
			 start_time, end_time, start_position, end_position, content_quality_score, information_density)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	chunkStmt, err := tx.PrepareContext(ctx, chunkQ)
	if err != nil {
		return false, err
	}
	defer chunkStmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if ch.ID == "" {
			ch.ID = uuid.NewString()
		}
		ch.DocumentID = doc.ID
		ch.SectionID = sections[sectionIndexForChunk(ch, sections)].ID

		var embedding any
		if len(ch.Embedding) > 0 {
			embedding = pgvector.NewVector(ch.Embedding)
		}

		if _, err := chunkStmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.SectionID, ch.ChunkIndex, ch.SectionChunkIndex,
			ch.ContentText, ch.ContentHash, ch.TokenCount, ch.CharacterCount,
			embedding, ch.EmbeddingModel, nullIfEmpty(ch.ContextBefore), nullIfEmpty(ch.ContextAfter),
			ch.StartTime, ch.EndTime, ch.StartPosition, ch.EndPosition,
			ch.QualityScore, ch.InfoDensity,
		); err != nil {
			return false, err
		}
	}

	totalTokens := 0
	for i := range chunks {
		totalTokens += chunks[i].TokenCount
	}
	const summaryQ = `
		UPDATE corpus_summary
		SET total_documents = total_documents + 1,
		    total_sections = total_sections + $1,
		    total_chunks = total_chunks + $2,
		    total_tokens = total_tokens + $3,
		    updated_at = now()
		WHERE id = 1
	`
	if _, err := tx.ExecContext(ctx, summaryQ, len(sections), len(chunks), totalTokens); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// sectionIndexForChunk resolves which section a chunk belongs to: by time
// range containment first, then position containment, then chunk index
// divided by the section count. The index fallback packs chunks into the
// early sections whenever chunks outnumber sections; the clamp keeps the
// result inside the list either way.
func sectionIndexForChunk(ch *models.Chunk, sections []models.Section) int {
	if ch.StartTime != nil {
		for i := range sections {
			s := &sections[i]
			if s.StartTime != nil && s.EndTime != nil &&
				*ch.StartTime >= *s.StartTime && *ch.StartTime <= *s.EndTime {
				return i
			}
		}
	}

	if ch.StartPosition != nil {
		for i := range sections {
			s := &sections[i]
			if s.StartPosition != nil && s.EndPosition != nil &&
				*ch.StartPosition >= *s.StartPosition && *ch.StartPosition <= *s.EndPosition {
				return i
			}
		}
	}

	per := len(sections)
	if per < 1 {
		per = 1
	}
	idx := ch.ChunkIndex / per
	if idx >= len(sections) {
		idx = len(sections) - 1
	}
	return idx
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
