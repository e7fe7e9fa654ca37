// Package blob wraps the object store behind a narrow interface.
// One Store instance maps to one bucket; the service uses two of them
// (role-tagged slot inputs and published artifacts).
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("blob: object not found")

// Object is one stored entry as seen by List.
type Object struct {
	Key      string
	Metadata map[string]string // lower-cased user metadata keys
}

// Store is the object-store contract the pipeline depends on.
//
// Put must be all-or-nothing: a failed write leaves no entry visible.
// Delete is idempotent; deleting a missing key is not an error.
type Store interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context) ([]Object, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
