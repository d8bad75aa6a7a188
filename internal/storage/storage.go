package storage

import (
	"context"
	"io"
)

// Uploader persists one uploaded document and returns the path (or URL) that
// is stored on the profile record.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, size int64, r io.Reader) (storedPath string, err error)
}
