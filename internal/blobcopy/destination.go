package blobcopy

import (
	"context"

	"github.com/pdfprocessor/service/internal/storage"
)

// Destination supplies the container handle a copy is written to.
type Destination interface {
	Acquire(ctx context.Context) (storage.Container, error)
}

// DestinationFunc adapts a function to Destination.
type DestinationFunc func(ctx context.Context) (storage.Container, error)

// Acquire calls f.
func (f DestinationFunc) Acquire(ctx context.Context) (storage.Container, error) {
	return f(ctx)
}

// Fixed returns a Destination that always hands out c.
func Fixed(c storage.Container) Destination {
	return DestinationFunc(func(context.Context) (storage.Container, error) {
		return c, nil
	})
}

// FromService looks the container up on svc for every copy. The lookup is local;
// svc itself is built once at startup and shared.
func FromService(svc storage.Service, name string) Destination {
	return DestinationFunc(func(context.Context) (storage.Container, error) {
		return svc.Container(name), nil
	})
}
