// Package storage persists uploaded files and returns the URL they are
// served from. LocalStore writes to disk (served by the API under
// /uploads/); S3Store writes to an S3-compatible bucket.
package storage

import (
	"context"
	"io"
)

// Store saves an object under name. The object is durable by the time Save
// returns, so callers may hand the URL out immediately.
type Store interface {
	Save(ctx context.Context, name, contentType string, body io.Reader) (url string, err error)
}
