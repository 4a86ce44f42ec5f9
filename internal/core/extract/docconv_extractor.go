package extract

import (
	"bytes"
	"context"
	"log"
	"strings"

	"code.sajari.com/docconv"
	"golang.org/x/sync/errgroup"

	"github.com/contentforge/ragpipe/internal/core"
)

// DocconvExtractor extracts plain text from document bytes using docconv,
// which dispatches on MIME type (PDF, DOCX, HTML, plain text and friends).
type DocconvExtractor struct {
	useReadability bool
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

// ExtractText converts the document and streams its non-empty lines on the
// returned channel. The conversion runs on the errgroup so the caller's
// g.Wait surfaces extraction failures.
func (e *DocconvExtractor) ExtractText(ctx context.Context, g *errgroup.Group, data []byte, contentType string) (<-chan string, error) {
	out := make(chan string, 32)

	g.Go(func() error {
		defer close(out)

		res, err := docconv.Convert(bytes.NewReader(data), mimeType(contentType), e.useReadability)
		if err != nil {
			log.Printf("docconv: extraction failed for %q: %v", contentType, err)
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if res.Body == "" {
			log.Printf("docconv: extracted empty text for %q", contentType)
			return nil
		}

		for _, line := range strings.Split(res.Body, "\n") {
			if line = strings.TrimSpace(line); line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return out, nil
}

// mimeType maps the short document-type names stored on source rows to the
// MIME types docconv dispatches on. Already-qualified MIME types pass
// through unchanged.
func mimeType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "pdf":
		return "application/pdf"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "doc":
		return "application/msword"
	case "html", "htm":
		return "text/html"
	case "txt", "text", "md", "markdown", "":
		return "text/plain"
	default:
		return contentType
	}
}

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)
