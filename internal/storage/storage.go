// Package storage defines container handles for object storage.
// Swap implementations by changing the concrete Service injected at startup:
// Azure Blob Storage in production, any S3-compatible provider through MinIO,
// or the in-memory store for local runs and tests.
package storage

import (
	"context"
	"errors"
	"io"
)

// DefaultContentType is written when the caller does not know the object's content type.
const DefaultContentType = "application/octet-stream"

// ErrNotFound is returned when an object or its container does not exist.
var ErrNotFound = errors.New("object not found")

// Object is the full content of a stored object.
type Object struct {
	Data        []byte
	ContentType string
}

// Container is a handle to one named container (an S3 bucket on MinIO).
type Container interface {
	// Name returns the container name the handle is bound to.
	Name() string
	// Upload streams reader to the container under key, overwriting any existing object.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Download reads the whole object at key into memory.
	Download(ctx context.Context, key string) (*Object, error)
}

// Service hands out container handles from a single storage account or endpoint.
type Service interface {
	// Container returns a handle for name. It performs no network I/O.
	Container(name string) Container
	// EnsureContainers creates any of the named containers that do not exist yet.
	EnsureContainers(ctx context.Context, names ...string) error
}

func contentTypeOrDefault(contentType string) string {
	if contentType == "" {
		return DefaultContentType
	}
	return contentType
}
