package trigger

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7/pkg/notification"
	"go.uber.org/zap"

	"github.com/pdfprocessor/service/internal/blobcopy"
	"github.com/pdfprocessor/service/internal/response"
	"github.com/pdfprocessor/service/internal/storage"
)

const objectCreatedPrefix = "s3:ObjectCreated:"

// MinioHandler receives S3 bucket notifications from a MinIO webhook target.
type MinioHandler struct {
	copier *blobcopy.Handler
	source storage.Container
	log    *zap.Logger
}

// NewMinioHandler creates a handler that copies objects created in source.
func NewMinioHandler(copier *blobcopy.Handler, source storage.Container, log *zap.Logger) *MinioHandler {
	return &MinioHandler{copier: copier, source: source, log: log}
}

// Handle godoc
//
//	@Summary		MinIO bucket notification
//	@Description	Copies each object created in the unprocessed-pdf bucket. Any copy failure returns 500.
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=response.Result}
//	@Failure		400	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/api/minio/events [post]
func (h *MinioHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var info notification.Info
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		response.BadRequest(w, "invalid notification payload")
		return
	}

	result := response.Result{Copied: []string{}}
	for _, rec := range info.Records {
		if !strings.HasPrefix(string(rec.EventName), objectCreatedPrefix) || rec.S3.Bucket.Name != h.source.Name() {
			result.Ignored++
			continue
		}
		// S3 event keys are form-encoded.
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			h.log.Warn("undecodable object key", zap.String("key", rec.S3.Object.Key), zap.Error(err))
			response.BadRequest(w, "invalid object key")
			return
		}
		if err := h.copier.HandleObject(r.Context(), h.source, key); err != nil {
			response.InternalError(w, err.Error())
			return
		}
		result.Copied = append(result.Copied, blobcopy.DestinationName(key))
	}
	response.OK(w, result)
}
