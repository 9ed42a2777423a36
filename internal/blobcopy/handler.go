package blobcopy

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdfprocessor/service/internal/storage"
)

// Operations reported in CopyError.
const (
	OpName    = "name"
	OpRead    = "read"
	OpAcquire = "acquire"
	OpUpload  = "upload"
)

// CopyError describes a failed copy. Err is the underlying storage error.
type CopyError struct {
	Op   string
	Blob string
	Err  error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Blob, e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

// Handler copies transfer units into the destination container.
// It holds no per-invocation state and is safe for concurrent use.
type Handler struct {
	dst Destination
	log *zap.Logger
}

// NewHandler creates a Handler that writes to dst.
func NewHandler(dst Destination, log *zap.Logger) *Handler {
	return &Handler{dst: dst, log: log}
}

// WithDestination returns a copy of h that writes to dst.
func (h *Handler) WithDestination(dst Destination) *Handler {
	return &Handler{dst: dst, log: h.log}
}

// Handle writes unit.Data to the destination under unit.DestinationName,
// overwriting any existing object. Failures are logged and returned.
func (h *Handler) Handle(ctx context.Context, unit TransferUnit) error {
	log := h.log.With(
		zap.String("blob", unit.SourceName),
		zap.String("destination", unit.DestinationName),
	)
	log.Info("blob received", zap.Int("size", unit.Size()))
	log.Info("starting copy operation")

	container, err := h.dst.Acquire(ctx)
	if err != nil {
		return h.fail(log, OpAcquire, unit.SourceName, err)
	}

	err = container.Upload(ctx, unit.DestinationName, bytes.NewReader(unit.Data), int64(unit.Size()), unit.ContentType)
	if err != nil {
		return h.fail(log, OpUpload, unit.SourceName, err)
	}

	log.Info("blob copied", zap.String("container", container.Name()))
	return nil
}

// HandleObject reads the object at key from src in full and copies it.
func (h *Handler) HandleObject(ctx context.Context, src storage.Container, key string) error {
	source := src.Name() + "/" + key
	unit, err := NewTransferUnit(source, nil, "")
	if err != nil {
		return h.fail(h.log.With(zap.String("blob", source)), OpName, source, err)
	}

	obj, err := src.Download(ctx, key)
	if err != nil {
		log := h.log.With(zap.String("blob", source), zap.String("destination", unit.DestinationName))
		return h.fail(log, OpRead, source, err)
	}
	unit.Data = obj.Data
	unit.ContentType = obj.ContentType
	return h.Handle(ctx, unit)
}

func (h *Handler) fail(log *zap.Logger, op, blob string, err error) error {
	log.Error("blob copy failed", zap.String("op", op), zap.Error(err))
	return &CopyError{Op: op, Blob: blob, Err: err}
}
