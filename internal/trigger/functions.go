package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdfprocessor/service/internal/blobcopy"
	"github.com/pdfprocessor/service/internal/response"
	"github.com/pdfprocessor/service/internal/storage"
)

// Binding names declared in functionapp/process_blob_upload/function.json.
const (
	TriggerBindingName = "blob"
	OutputBindingName  = "outputBlob"
)

// ErrBindingPath is returned when the host-bound output path cannot hold the derived destination name.
var ErrBindingPath = errors.New("output binding path does not match destination name")

// InvokeRequest is the payload the Functions host posts to a custom handler.
type InvokeRequest struct {
	Data     map[string]json.RawMessage `json:"Data"`
	Metadata InvokeMetadata             `json:"Metadata"`
}

// InvokeMetadata carries the blob trigger's binding data.
type InvokeMetadata struct {
	Name        string         `json:"name"`
	BlobTrigger string         `json:"BlobTrigger"`
	Properties  BlobProperties `json:"Properties"`
}

// BlobProperties is the subset of trigger blob properties the handler reads.
type BlobProperties struct {
	ContentType string `json:"ContentType"`
	Length      int64  `json:"Length"`
}

// InvokeResponse is returned to the Functions host.
type InvokeResponse struct {
	Outputs     map[string]interface{} `json:"Outputs"`
	Logs        []string               `json:"Logs"`
	ReturnValue interface{}            `json:"ReturnValue"`
}

// outputBinding is a write-only container whose single upload is handed back
// to the host as the outputBlob binding value.
type outputBinding struct {
	container string
	boundName string
	data      []byte
}

func (o *outputBinding) Name() string { return o.container }

func (o *outputBinding) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if key != o.boundName {
		return fmt.Errorf("%w: bound %q, derived %q", ErrBindingPath, o.boundName, key)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read binding body: %w", err)
	}
	o.data = data
	return nil
}

func (o *outputBinding) Download(context.Context, string) (*storage.Object, error) {
	return nil, errors.New("output binding is write-only")
}

// FunctionsHandler serves the process_blob_upload function as an Azure
// Functions custom handler.
type FunctionsHandler struct {
	copier      *blobcopy.Handler
	source      storage.Container
	destination string
	useBinding  bool
	log         *zap.Logger
}

// NewFunctionsHandler creates the custom handler. With useBinding set, the copy
// is returned to the host through the outputBlob binding instead of being
// uploaded by the handler.
func NewFunctionsHandler(copier *blobcopy.Handler, source storage.Container, destination string, useBinding bool, log *zap.Logger) *FunctionsHandler {
	return &FunctionsHandler{
		copier:      copier,
		source:      source,
		destination: destination,
		useBinding:  useBinding,
		log:         log,
	}
}

// Handle godoc
//
//	@Summary		Functions custom handler invocation
//	@Description	Blob trigger invocation from the Azure Functions host for unprocessed-pdf/{name}.
//	@Tags			functions
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	InvokeResponse
//	@Failure		400	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/process_blob_upload [post]
func (h *FunctionsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid invocation payload")
		return
	}

	// BlobTrigger is "<container>/<name>"; name is the {name} path segment.
	source, name := req.Metadata.BlobTrigger, req.Metadata.Name
	if source == "" && name != "" {
		source = h.source.Name() + "/" + name
	}
	if name == "" {
		name = strings.TrimPrefix(source, h.source.Name()+"/")
	}
	if source == "" {
		response.BadRequest(w, "invocation carries no blob name")
		return
	}

	payload, hasPayload, err := blobPayload(req.Data)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	copier := h.copier
	var binding *outputBinding
	if h.useBinding {
		binding = &outputBinding{
			container: h.destination,
			boundName: blobcopy.DestinationPrefix + name,
		}
		copier = copier.WithDestination(blobcopy.Fixed(binding))
	}

	if hasPayload {
		unit, unitErr := blobcopy.NewTransferUnit(source, payload, req.Metadata.Properties.ContentType)
		if unitErr != nil {
			h.log.Error("blob copy failed", zap.String("blob", source), zap.Error(unitErr))
			response.BadRequest(w, unitErr.Error())
			return
		}
		err = copier.Handle(r.Context(), unit)
	} else {
		err = copier.HandleObject(r.Context(), h.source, name)
	}
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	destination := blobcopy.DestinationName(source)
	resp := InvokeResponse{
		Outputs: map[string]interface{}{},
		Logs:    []string{fmt.Sprintf("copied %s to %s/%s", source, h.destination, destination)},
	}
	if binding != nil {
		resp.Outputs[OutputBindingName] = binding.data
	}
	response.JSON(w, http.StatusOK, resp)
}

// blobPayload extracts the trigger bytes. The binding uses dataType "binary",
// so the host sends them base64-encoded.
func blobPayload(data map[string]json.RawMessage) ([]byte, bool, error) {
	raw, ok := data[TriggerBindingName]
	if !ok || string(raw) == "null" {
		return nil, false, nil
	}
	var payload []byte
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, fmt.Errorf("decode %s binding: %w", TriggerBindingName, err)
	}
	return payload, true, nil
}
