package blobcopy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdfprocessor/service/internal/storage"
)

type failingContainer struct {
	err error
}

func (c failingContainer) Name() string { return "processed-pdf" }

func (c failingContainer) Upload(context.Context, string, io.Reader, int64, string) error {
	return c.err
}

func (c failingContainer) Download(context.Context, string) (*storage.Object, error) {
	return nil, c.err
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core), logs
}

func TestDestinationName(t *testing.T) {
	tests := map[string]string{
		"unprocessed-pdf/report.pdf": "processed_report.pdf",
		"a/b/c/doc.pdf":              "processed_doc.pdf",
		"doc.pdf":                    "processed_doc.pdf",
		"/leading.pdf":               "processed_leading.pdf",
		"dir/processed_x.pdf":        "processed_processed_x.pdf",
	}
	for in, want := range tests {
		assert.Equal(t, want, DestinationName(in), in)
	}
}

func TestNewTransferUnit_RejectsEmptyBasename(t *testing.T) {
	for _, name := range []string{"", "unprocessed-pdf/", "a/b/"} {
		_, err := NewTransferUnit(name, []byte("x"), "")
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestHandle_CopiesBytesExactly(t *testing.T) {
	svc := storage.NewMemoryService()
	log, _ := newObservedLogger()
	h := NewHandler(FromService(svc, "processed-pdf"), log)

	payload := make([]byte, 1024)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	unit, err := NewTransferUnit("unprocessed-pdf/report.pdf", payload, "application/pdf")
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), unit))

	obj, err := svc.Container("processed-pdf").Download(context.Background(), "processed_report.pdf")
	require.NoError(t, err)
	assert.Equal(t, payload, obj.Data)
	assert.Equal(t, "application/pdf", obj.ContentType)
}

func TestHandle_Idempotent(t *testing.T) {
	svc := storage.NewMemoryService()
	log, _ := newObservedLogger()
	h := NewHandler(Fixed(svc.Container("processed-pdf")), log)
	ctx := context.Background()

	unit, err := NewTransferUnit("a/b/c/doc.pdf", []byte("%PDF-1.7 body"), "")
	require.NoError(t, err)

	require.NoError(t, h.Handle(ctx, unit))
	require.NoError(t, h.Handle(ctx, unit))

	assert.Equal(t, []string{"processed_doc.pdf"}, svc.Keys("processed-pdf"))
	obj, err := svc.Container("processed-pdf").Download(ctx, "processed_doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 body"), obj.Data)
}

func TestHandle_UploadFailurePropagates(t *testing.T) {
	log, logs := newObservedLogger()
	quota := errors.New("quota exceeded")
	h := NewHandler(Fixed(failingContainer{err: quota}), log)

	unit, err := NewTransferUnit("unprocessed-pdf/report.pdf", []byte("x"), "")
	require.NoError(t, err)

	err = h.Handle(context.Background(), unit)
	require.Error(t, err)
	assert.ErrorIs(t, err, quota)

	var copyErr *CopyError
	require.ErrorAs(t, err, &copyErr)
	assert.Equal(t, OpUpload, copyErr.Op)
	assert.Equal(t, "unprocessed-pdf/report.pdf", copyErr.Blob)

	failures := logs.FilterMessage("blob copy failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
	assert.Equal(t, "unprocessed-pdf/report.pdf", failures[0].ContextMap()["blob"])
	assert.Equal(t, OpUpload, failures[0].ContextMap()["op"])
}

func TestHandle_AcquireFailurePropagates(t *testing.T) {
	log, logs := newObservedLogger()
	denied := errors.New("authorization failure")
	h := NewHandler(DestinationFunc(func(context.Context) (storage.Container, error) {
		return nil, denied
	}), log)

	unit, err := NewTransferUnit("unprocessed-pdf/report.pdf", []byte("x"), "")
	require.NoError(t, err)

	err = h.Handle(context.Background(), unit)
	assert.ErrorIs(t, err, denied)

	var copyErr *CopyError
	require.ErrorAs(t, err, &copyErr)
	assert.Equal(t, OpAcquire, copyErr.Op)
	assert.Equal(t, 1, logs.FilterField(zap.String("blob", "unprocessed-pdf/report.pdf")).FilterMessage("blob copy failed").Len())
}

func TestHandle_LogsReceiptAndSuccess(t *testing.T) {
	log, logs := newObservedLogger()
	h := NewHandler(Fixed(storage.NewMemoryService().Container("processed-pdf")), log)

	unit, err := NewTransferUnit("unprocessed-pdf/report.pdf", []byte("12345"), "")
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), unit))

	received := logs.FilterMessage("blob received").All()
	require.Len(t, received, 1)
	assert.Equal(t, int64(5), received[0].ContextMap()["size"])
	assert.Equal(t, 1, logs.FilterMessage("starting copy operation").Len())
	assert.Equal(t, 1, logs.FilterMessage("blob copied").Len())
}

func TestHandleObject_ReadsSource(t *testing.T) {
	svc := storage.NewMemoryService()
	ctx := context.Background()
	src := svc.Container("unprocessed-pdf")
	require.NoError(t, src.Upload(ctx, "2024/report.pdf", bytes.NewReader([]byte("pdf")), 3, "application/pdf"))

	log, logs := newObservedLogger()
	h := NewHandler(FromService(svc, "processed-pdf"), log)

	require.NoError(t, h.HandleObject(ctx, src, "2024/report.pdf"))

	obj, err := svc.Container("processed-pdf").Download(ctx, "processed_report.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf"), obj.Data)
	assert.Equal(t, "application/pdf", obj.ContentType)
	assert.Equal(t, 1, logs.FilterField(zap.String("blob", "unprocessed-pdf/2024/report.pdf")).FilterMessage("blob copied").Len())
}

func TestHandleObject_MissingSource(t *testing.T) {
	svc := storage.NewMemoryService()
	log, logs := newObservedLogger()
	h := NewHandler(FromService(svc, "processed-pdf"), log)

	err := h.HandleObject(context.Background(), svc.Container("unprocessed-pdf"), "gone.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var copyErr *CopyError
	require.ErrorAs(t, err, &copyErr)
	assert.Equal(t, OpRead, copyErr.Op)
	assert.Equal(t, 1, logs.FilterMessage("blob copy failed").Len())
	assert.Empty(t, svc.Keys("processed-pdf"))
}

func TestHandleObject_InvalidName(t *testing.T) {
	svc := storage.NewMemoryService()
	log, logs := newObservedLogger()
	h := NewHandler(FromService(svc, "processed-pdf"), log)

	err := h.HandleObject(context.Background(), svc.Container("unprocessed-pdf"), "reports/")
	assert.ErrorIs(t, err, ErrInvalidName)

	var copyErr *CopyError
	require.ErrorAs(t, err, &copyErr)
	assert.Equal(t, OpName, copyErr.Op)
	assert.Equal(t, "unprocessed-pdf/reports/", copyErr.Blob)
	assert.Equal(t, 1, logs.FilterField(zap.String("op", OpName)).FilterMessage("blob copy failed").Len())
	assert.Empty(t, svc.Keys("processed-pdf"))
}

func TestWithDestination(t *testing.T) {
	log, _ := newObservedLogger()
	first := storage.NewMemoryService()
	second := storage.NewMemoryService()
	h := NewHandler(Fixed(first.Container("processed-pdf")), log)

	unit, err := NewTransferUnit("doc.pdf", []byte("x"), "")
	require.NoError(t, err)
	require.NoError(t, h.WithDestination(Fixed(second.Container("processed-pdf"))).Handle(context.Background(), unit))

	assert.Empty(t, first.Keys("processed-pdf"))
	assert.Equal(t, []string{"processed_doc.pdf"}, second.Keys("processed-pdf"))
}
