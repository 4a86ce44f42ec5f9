package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/contentforge/ragpipe/internal/config"
	"github.com/contentforge/ragpipe/internal/core"
	"github.com/contentforge/ragpipe/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for a batch job; adjust as needed.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctxPing, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(ctxPing); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// ListUnprocessed returns source rows of one type that have no rag_documents
// row yet, newest first. since and limit are optional; a zero limit means no
// limit.
func (c *DatabaseClient) ListUnprocessed(ctx context.Context, st models.SourceType, limit int, since *time.Time) ([]models.SourceRecord, error) {
	switch st {
	case models.SourceVideo:
		return c.listVideos(ctx, limit, since)
	case models.SourceAudio:
		return c.listAudio(ctx, limit, since)
	case models.SourceExternalContent:
		return c.listExternalContent(ctx, limit, since)
	case models.SourceDocument:
		return c.listDocuments(ctx, limit, since)
	case models.SourceSocialPost:
		return c.listSocialPosts(ctx, limit, since)
	}
	return nil, fmt.Errorf("unknown content type: %s", st)
}

func (c *DatabaseClient) listVideos(ctx context.Context, limit int, since *time.Time) ([]models.SourceRecord, error) {
	const q = `
		SELECT t.id, COALESCE(t.filename, ''), COALESCE(t.speaker, ''), COALESCE(t.event_name, ''),
		       COALESCE(t.description, ''), COALESCE(t.duration_seconds, 0), t.content_date
		FROM videos t
		WHERE NOT EXISTS (
			SELECT 1 FROM rag_documents rd WHERE rd.source_type = $1 AND rd.source_id = t.id
		)
		AND ($2::timestamptz IS NULL OR t.created_at >= $2)
		ORDER BY t.created_at DESC
		LIMIT NULLIF($3::int, 0)
	`
	rows, err := c.db.QueryContext(ctx, q, models.SourceVideo, nullTime(since), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SourceRecord
	for rows.Next() {
		var r models.SourceRecord
		var contentDate sql.NullTime
		if err := rows.Scan(&r.ID, &r.Filename, &r.Speaker, &r.EventName, &r.Description, &r.Duration, &contentDate); err != nil {
			return nil, err
		}
		r.ContentDate = timePtr(contentDate)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) listAudio(ctx context.Context, limit int, since *time.Time) ([]models.SourceRecord, error) {
	const q = `
		SELECT t.id, COALESCE(t.title, ''), COALESCE(t.filename, ''), COALESCE(t.speakers, '[]'::jsonb),
		       COALESCE(t.source, ''), COALESCE(t.keywords, '[]'::jsonb), COALESCE(t.duration_seconds, 0), t.content_date
		FROM audio_recordings t
		WHERE NOT EXISTS (
			SELECT 1 FROM rag_documents rd WHERE rd.source_type = $1 AND rd.source_id = t.id
		)
		AND ($2::timestamptz IS NULL OR t.created_at >= $2)
		ORDER BY t.created_at DESC
		LIMIT NULLIF($3::int, 0)
	`
	rows, err := c.db.QueryContext(ctx, q, models.SourceAudio, nullTime(since), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SourceRecord
	for rows.Next() {
		var r models.SourceRecord
		var speakers, keywords []byte
		var contentDate sql.NullTime
		if err := rows.Scan(&r.ID, &r.Title, &r.Filename, &speakers, &r.Source, &keywords, &r.Duration, &contentDate); err != nil {
			return nil, err
		}
		r.Speakers = jsonStrings(speakers)
		r.Keywords = jsonStrings(keywords)
		r.ContentDate = timePtr(contentDate)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) listExternalContent(ctx context.Context, limit int, since *time.Time) ([]models.SourceRecord, error) {
	const q = `
		SELECT t.id, COALESCE(t.title, ''), COALESCE(t.content_type, ''), COALESCE(t.author, ''),
		       COALESCE(t.description, ''), COALESCE(t.source_url, ''), COALESCE(t.content_text, ''),
		       COALESCE(t.word_count, 0), COALESCE(t.tags, '[]'::jsonb), COALESCE(t.keywords, '[]'::jsonb), t.content_date
		FROM external_content t
		WHERE NOT EXISTS (
			SELECT 1 FROM rag_documents rd WHERE rd.source_type = $1 AND rd.source_id = t.id
		)
		AND ($2::timestamptz IS NULL OR t.created_at >= $2)
		ORDER BY t.created_at DESC
		LIMIT NULLIF($3::int, 0)
	`
	rows, err := c.db.QueryContext(ctx, q, models.SourceExternalContent, nullTime(since), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SourceRecord
	for rows.Next() {
		var r models.SourceRecord
		var tags, keywords []byte
		var contentDate sql.NullTime
		if err := rows.Scan(&r.ID, &r.Title, &r.ContentType, &r.Author, &r.Description, &r.SourceURL,
			&r.ContentText, &r.WordCount, &tags, &keywords, &contentDate); err != nil {
			return nil, err
		}
		r.Tags = jsonStrings(tags)
		r.Keywords = jsonStrings(keywords)
		r.ContentDate = timePtr(contentDate)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) listDocuments(ctx context.Context, limit int, since *time.Time) ([]models.SourceRecord, error) {
	const q = `
		SELECT t.id, COALESCE(t.title, ''), COALESCE(t.doc_type, ''), COALESCE(t.filename, ''),
		       COALESCE(t.storage_url, ''), COALESCE(t.content_text, ''), COALESCE(t.word_count, 0),
		       COALESCE(t.persona_id, ''), COALESCE(t.tags, '[]'::jsonb), COALESCE(t.duration_seconds, 0), t.content_date
		FROM documents t
		WHERE NOT EXISTS (
			SELECT 1 FROM rag_documents rd WHERE rd.source_type = $1 AND rd.source_id = t.id
		)
		AND ($2::timestamptz IS NULL OR t.created_at >= $2)
		ORDER BY t.created_at DESC
		LIMIT NULLIF($3::int, 0)
	`
	rows, err := c.db.QueryContext(ctx, q, models.SourceDocument, nullTime(since), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SourceRecord
	for rows.Next() {
		var r models.SourceRecord
		var tags []byte
		var contentDate sql.NullTime
		if err := rows.Scan(&r.ID, &r.Title, &r.DocType, &r.Filename, &r.StorageURL, &r.ContentText,
			&r.WordCount, &r.PersonaID, &tags, &r.Duration, &contentDate); err != nil {
			return nil, err
		}
		r.Tags = jsonStrings(tags)
		r.ContentDate = timePtr(contentDate)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) listSocialPosts(ctx context.Context, limit int, since *time.Time) ([]models.SourceRecord, error) {
	const q = `
		SELECT t.id, COALESCE(t.platform, ''), COALESCE(t.content_text, ''), COALESCE(t.persona_id, ''),
		       COALESCE(t.hashtags, '[]'::jsonb), COALESCE(t.mentions, '[]'::jsonb),
		       t.likes, t.comments, t.shares, t.content_date
		FROM social_posts t
		WHERE NOT EXISTS (
			SELECT 1 FROM rag_documents rd WHERE rd.source_type = $1 AND rd.source_id = t.id
		)
		AND ($2::timestamptz IS NULL OR t.created_at >= $2)
		ORDER BY t.created_at DESC
		LIMIT NULLIF($3::int, 0)
	`
	rows, err := c.db.QueryContext(ctx, q, models.SourceSocialPost, nullTime(since), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SourceRecord
	for rows.Next() {
		var r models.SourceRecord
		var hashtags, mentions []byte
		var contentDate sql.NullTime
		if err := rows.Scan(&r.ID, &r.Platform, &r.ContentText, &r.PersonaID, &hashtags, &mentions,
			&r.Likes, &r.Comments, &r.Shares, &contentDate); err != nil {
			return nil, err
		}
		r.Hashtags = jsonStrings(hashtags)
		r.Mentions = jsonStrings(mentions)
		r.ContentDate = timePtr(contentDate)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListSegments returns the ordered segments of one segmented source record.
// The table and FK column come from the per-type dispatch table; all segment
// tables share one column layout.
func (c *DatabaseClient) ListSegments(ctx context.Context, st models.SourceType, sourceID string) ([]models.Segment, error) {
	spec, ok := models.SourceSpecs[st]
	if !ok {
		return nil, fmt.Errorf("unknown content type: %s", st)
	}
	if spec.SegmentTable == "" {
		return nil, nil
	}

	q := fmt.Sprintf(`
		SELECT id, segment_index, text, COALESCE(speaker, ''), COALESCE(section_title, ''),
		       start_time, end_time, start_position, end_position, confidence
		FROM %s
		WHERE %s = $1
		ORDER BY segment_index ASC
	`, spec.SegmentTable, spec.SegmentFK)

	rows, err := c.db.QueryContext(ctx, q, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Segment
	for rows.Next() {
		var s models.Segment
		var startTime, endTime, confidence sql.NullFloat64
		var startPos, endPos sql.NullInt64
		if err := rows.Scan(&s.SourceID, &s.Index, &s.Text, &s.Speaker, &s.SectionTitle,
			&startTime, &endTime, &startPos, &endPos, &confidence); err != nil {
			return nil, err
		}
		s.SourceType = string(st)
		s.StartTime = floatPtr(startTime)
		s.EndTime = floatPtr(endTime)
		s.StartPosition = intPtr(startPos)
		s.EndPosition = intPtr(endPos)
		s.Confidence = floatPtr(confidence)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DocumentExists(ctx context.Context, st models.SourceType, sourceID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM rag_documents WHERE source_type = $1 AND source_id = $2)`
	var exists bool
	if err := c.db.QueryRowContext(ctx, q, st, sourceID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (c *DatabaseClient) CorpusTotals(ctx context.Context) (*models.CorpusTotals, error) {
	const q = `SELECT total_documents, total_sections, total_chunks, total_tokens FROM corpus_summary WHERE id = 1`
	var t models.CorpusTotals
	err := c.db.QueryRowContext(ctx, q).Scan(&t.TotalDocuments, &t.TotalSections, &t.TotalChunks, &t.TotalTokens)
	if err == sql.ErrNoRows {
		return &models.CorpusTotals{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Scan helpers for nullable columns.

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func intPtr(i sql.NullInt64) *int {
	if !i.Valid {
		return nil
	}
	v := int(i.Int64)
	return &v
}

func jsonStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

var _ core.DbClient = (*DatabaseClient)(nil)
