// Package archive persists serialized documents under a key.
package archive

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned when no blob is stored under a key
var ErrBlobNotFound = errors.New("document blob not found")

// Archive stores opaque document blobs
type Archive interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}
