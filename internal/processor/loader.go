package processor

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/contentforge/ragpipe/internal/core"
	"github.com/contentforge/ragpipe/internal/models"
)

// Loader pulls un-ingested source records from storage and normalizes each
// into a uniform ContentItem. Document records whose text is not inline in
// the row are fetched from object storage and run through the extractor.
type Loader struct {
	db        core.DbClient
	obj       core.ObjectClient
	extractor core.DocumentExtractor
	bucket    string
}

// NewLoader constructs a loader. obj and extractor may be nil when no
// object-storage-backed documents are expected.
func NewLoader(db core.DbClient, obj core.ObjectClient, extractor core.DocumentExtractor, bucket string) *Loader {
	return &Loader{db: db, obj: obj, extractor: extractor, bucket: bucket}
}

// LoadItems returns the un-ingested content items of one source type.
// Records that cannot be normalized are skipped with a log line, not
// treated as errors.
func (l *Loader) LoadItems(ctx context.Context, st models.SourceType, limit int, since *time.Time) ([]models.ContentItem, error) {
	if !st.Valid() {
		return nil, fmt.Errorf("unknown content type: %s", st)
	}

	records, err := l.db.ListUnprocessed(ctx, st, limit, since)
	if err != nil {
		return nil, fmt.Errorf("list %s items: %w", st, err)
	}

	items := make([]models.ContentItem, 0, len(records))
	for i := range records {
		item, err := l.convert(ctx, st, &records[i])
		if err != nil {
			log.Printf("loader: skipping %s record %s: %v", st, records[i].ID, err)
			continue
		}
		items = append(items, item)
	}

	log.Printf("loader: found %d %s items to process", len(items), st)
	return items, nil
}

// LoadAll returns un-ingested items across every source type, in processing
// order.
func (l *Loader) LoadAll(ctx context.Context, limit int, since *time.Time) ([]models.ContentItem, error) {
	var all []models.ContentItem
	for _, st := range models.AllSourceTypes {
		items, err := l.LoadItems(ctx, st, limit, since)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	log.Printf("loader: found %d total items across all content types", len(all))
	return all, nil
}

// convert is the per-source-type normalization: one arm per tag of the
// SourceType union.
func (l *Loader) convert(ctx context.Context, st models.SourceType, rec *models.SourceRecord) (models.ContentItem, error) {
	switch st {
	case models.SourceVideo:
		title := rec.Filename
		if title == "" {
			title = fmt.Sprintf("Video %s", rec.ID)
		}
		return models.ContentItem{
			SourceType:  st,
			SourceID:    rec.ID,
			Title:       title,
			ContentType: "video",
			Author:      rec.Speaker,
			ContentDate: rec.ContentDate,
			Metadata: map[string]any{
				"event_name":       rec.EventName,
				"duration_seconds": rec.Duration,
				"description":      rec.Description,
			},
		}, nil

	case models.SourceAudio:
		title := rec.Title
		if title == "" {
			title = rec.Filename
		}
		if title == "" {
			title = fmt.Sprintf("Audio %s", rec.ID)
		}
		author := ""
		if len(rec.Speakers) > 0 {
			author = rec.Speakers[0]
		}
		return models.ContentItem{
			SourceType:  st,
			SourceID:    rec.ID,
			Title:       title,
			ContentType: "audio",
			Author:      author,
			ContentDate: rec.ContentDate,
			Metadata: map[string]any{
				"speakers":         rec.Speakers,
				"duration_seconds": rec.Duration,
				"source":           rec.Source,
				"keywords":         rec.Keywords,
			},
		}, nil

	case models.SourceExternalContent:
		return models.ContentItem{
			SourceType:     st,
			SourceID:       rec.ID,
			Title:          rec.Title,
			ContentType:    rec.ContentType,
			Author:         rec.Author,
			ContentDate:    rec.ContentDate,
			ContentText:    rec.ContentText,
			WordCount:      rec.WordCount,
			CharacterCount: len(rec.ContentText),
			Metadata: map[string]any{
				"description": rec.Description,
				"source_url":  rec.SourceURL,
				"tags":        rec.Tags,
				"keywords":    rec.Keywords,
			},
		}, nil

	case models.SourceDocument:
		text := rec.ContentText
		if text == "" && rec.StorageURL != "" {
			fetched, err := l.fetchDocumentText(ctx, rec)
			if err != nil {
				return models.ContentItem{}, fmt.Errorf("fetch document text: %w", err)
			}
			text = fetched
		}
		return models.ContentItem{
			SourceType:     st,
			SourceID:       rec.ID,
			Title:          rec.Title,
			ContentType:    rec.DocType,
			ContentText:    text,
			WordCount:      rec.WordCount,
			CharacterCount: len(text),
			ContentDate:    rec.ContentDate,
			Metadata: map[string]any{
				"persona_id":       rec.PersonaID,
				"source_filename":  rec.Filename,
				"duration_seconds": rec.Duration,
				"tags":             rec.Tags,
			},
		}, nil

	case models.SourceSocialPost:
		return models.ContentItem{
			SourceType:     st,
			SourceID:       rec.ID,
			Title:          fmt.Sprintf("%s post", rec.Platform),
			ContentType:    "social_post",
			ContentText:    rec.ContentText,
			WordCount:      models.CountWords(rec.ContentText),
			CharacterCount: len(rec.ContentText),
			ContentDate:    rec.ContentDate,
			Metadata: map[string]any{
				"platform":   rec.Platform,
				"persona_id": rec.PersonaID,
				"hashtags":   rec.Hashtags,
				"mentions":   rec.Mentions,
				"engagement": map[string]any{
					"likes":    rec.Likes,
					"comments": rec.Comments,
					"shares":   rec.Shares,
				},
			},
		}, nil
	}

	return models.ContentItem{}, fmt.Errorf("unknown content type: %s", st)
}

// fetchDocumentText downloads a document's raw file from object storage and
// extracts its plain text, joining the streamed fragments line by line.
// Text-format files skip the conversion step and stream straight off the
// object body; everything else is buffered and handed to the extractor.
func (l *Loader) fetchDocumentText(ctx context.Context, rec *models.SourceRecord) (string, error) {
	if l.obj == nil {
		return "", fmt.Errorf("object storage not configured")
	}

	bucket, key := parseStorageURL(rec.StorageURL)
	if bucket == "" {
		bucket = l.bucket
		key = rec.StorageURL
	}

	if isPlainTextDoc(rec.DocType) {
		return l.streamPlainText(ctx, bucket, key)
	}
	if l.extractor == nil {
		return "", fmt.Errorf("document extractor not configured")
	}

	data, err := l.obj.GetFile(ctx, bucket, key)
	if err != nil {
		return "", fmt.Errorf("get object: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	frags, err := l.extractor.ExtractText(gctx, g, data, rec.DocType)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}

	var b strings.Builder
	for frag := range frags {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(frag)
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}

	return b.String(), nil
}

// streamPlainText consumes a text-format object line by line directly off
// the body stream, dropping blank lines the same way the extractor does.
func (l *Loader) streamPlainText(ctx context.Context, bucket, key string) (string, error) {
	rc, err := l.obj.GetObjectReader(ctx, bucket, key)
	if err != nil {
		return "", fmt.Errorf("get object: %w", err)
	}
	defer rc.Close()

	var b strings.Builder
	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read object: %w", err)
	}
	return b.String(), nil
}

func isPlainTextDoc(docType string) bool {
	switch strings.ToLower(docType) {
	case "txt", "text", "md", "markdown":
		return true
	}
	return false
}

// parseStorageURL extracts the bucket and key from a virtual-hosted-style
// S3 URL. Example: https://my-bucket.s3.us-east-2.amazonaws.com/path/to/file.pdf
func parseStorageURL(u string) (bucket, key string) {
	if !strings.HasPrefix(u, "https://") {
		return "", ""
	}
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	host := hostPath[0]
	if len(hostPath) == 2 {
		key = hostPath[1]
	}
	if parts := strings.Split(host, "."); len(parts) > 0 {
		bucket = parts[0]
	}
	return bucket, key
}
