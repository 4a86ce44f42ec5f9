package core

import (
	"context"
	"io"
)

// ObjectClient defines interactions with S3 or any object storage holding
// raw source files (documents whose text is not inline in the DB row).
// GetFile buffers the whole object; GetObjectReader hands back the body
// stream for formats that can be consumed without a conversion step.
type ObjectClient interface {
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
