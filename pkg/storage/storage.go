package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when a stored object does not exist.
var ErrObjectNotFound = errors.New("storage object not found")

// Provider persists rendered export files. Keys are slash separated and
// relative to the provider root.
type Provider interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Name() string
}
