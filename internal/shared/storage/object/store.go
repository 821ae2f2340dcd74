package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// ObjectStore saves and retrieves generated documents by key.
// Put overwrites any existing object under the same key.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (location string, sizeBytes int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
