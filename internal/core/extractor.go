package core

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DocumentExtractor extracts plain text from raw document bytes.
// The contentType hint helps the extractor choose the right parsing
// strategy; extracted text is streamed as line fragments.
type DocumentExtractor interface {
	ExtractText(ctx context.Context, g *errgroup.Group, data []byte, contentType string) (<-chan string, error)
}
