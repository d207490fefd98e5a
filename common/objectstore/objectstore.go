// Package objectstore abstracts the remote key-value blob backend.
// Objects are addressed by the lowercase hex encoding of their content
// hash, so a Put of identical bytes is naturally idempotent.
package objectstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get when no object exists under a key.
var ErrNotFound = errors.New("object not found")

// Backend stores and retrieves immutable binary objects by key.
//
// Put streams body to the backend. The length argument is a hint for
// transports that need a declared content length up front; it is not an
// integrity boundary. Implementations must not expose a partially
// written object under key if the write fails.
type Backend interface {
	Put(ctx context.Context, key string, body io.Reader, length int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
