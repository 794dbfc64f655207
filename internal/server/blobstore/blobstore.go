// Package blobstore holds the bytes of permanent archives. Keys are the
// forward-slash relative paths produced by package paths.
package blobstore

import (
	"context"
	"io"
)

// Store persists archive bytes.
type Store interface {
	// Put writes r under key and returns the number of bytes written.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	// Adopt moves the local file src under key. On success src is gone.
	Adopt(ctx context.Context, key, src string) error
	// Open returns common.ErrNotFound when key does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
}
