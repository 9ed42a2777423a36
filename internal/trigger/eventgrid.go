// Package trigger turns storage notifications into blob copies and reports
// the outcome back to whichever platform delivered them. A failed copy is
// answered with a 5xx status so the platform can redeliver.
package trigger

import (
	"bytes"
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

// Event Grid event types handled by EventGridHandler.
const (
	EventTypeBlobCreated            = "Microsoft.Storage.BlobCreated"
	EventTypeSubscriptionValidation = "Microsoft.EventGrid.SubscriptionValidationEvent"
)

const subjectPrefix = "/blobServices/default/containers/"

// ErrInvalidSubject is returned for a BlobCreated subject that does not name a blob.
var ErrInvalidSubject = errors.New("invalid event subject")

// gridEvent covers both the Event Grid schema (eventType) and CloudEvents 1.0 (type).
type gridEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"eventType"`
	Type      string          `json:"type"`
	Subject   string          `json:"subject"`
	Data      json.RawMessage `json:"data"`
}

func (e gridEvent) kind() string {
	if e.EventType != "" {
		return e.EventType
	}
	return e.Type
}

type validationData struct {
	ValidationCode string `json:"validationCode"`
}

// ValidationResponse answers an Event Grid subscription validation event.
type ValidationResponse struct {
	ValidationResponse string `json:"validationResponse"`
}

// decodeEvents accepts a batch (JSON array) or a single CloudEvent.
func decodeEvents(body []byte) ([]gridEvent, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	if body[0] == '[' {
		var events []gridEvent
		if err := json.Unmarshal(body, &events); err != nil {
			return nil, err
		}
		return events, nil
	}
	var ev gridEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, err
	}
	return []gridEvent{ev}, nil
}

// parseSubject splits "/blobServices/default/containers/{container}/blobs/{name}".
func parseSubject(subject string) (container, name string, err error) {
	rest, ok := strings.CutPrefix(subject, subjectPrefix)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSubject, subject)
	}
	container, name, ok = strings.Cut(rest, "/blobs/")
	if !ok || container == "" || name == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSubject, subject)
	}
	return container, name, nil
}

// EventGridHandler receives Event Grid push deliveries for the source container.
type EventGridHandler struct {
	copier *blobcopy.Handler
	source storage.Container
	log    *zap.Logger
}

// NewEventGridHandler creates a handler that copies blobs created in source.
func NewEventGridHandler(copier *blobcopy.Handler, source storage.Container, log *zap.Logger) *EventGridHandler {
	return &EventGridHandler{copier: copier, source: source, log: log}
}

// Validate godoc
//
//	@Summary		CloudEvents webhook validation
//	@Description	Abuse-protection handshake sent by Event Grid before CloudEvents delivery.
//	@Tags			events
//	@Param			WebHook-Request-Origin	header	string	true	"Origin requesting delivery"
//	@Success		200
//	@Failure		400	{object}	response.Envelope
//	@Router			/api/events [options]
func (h *EventGridHandler) Validate(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("WebHook-Request-Origin")
	if origin == "" {
		response.BadRequest(w, "missing WebHook-Request-Origin header")
		return
	}
	h.log.Info("cloudevents webhook validation", zap.String("origin", origin))
	w.Header().Set("WebHook-Allowed-Origin", origin)
	w.Header().Set("WebHook-Allowed-Rate", "*")
	w.WriteHeader(http.StatusOK)
}

// Handle godoc
//
//	@Summary		Event Grid delivery
//	@Description	Copies each blob created in unprocessed-pdf to processed-pdf as processed_<name>.
//	@Description	Answers subscription validation events. Any copy failure returns 500 so Event Grid retries.
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=response.Result}
//	@Failure		400	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/api/events [post]
func (h *EventGridHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.BadRequest(w, "read request body")
		return
	}
	events, err := decodeEvents(body)
	if err != nil {
		response.BadRequest(w, "invalid event payload")
		return
	}

	result := response.Result{Copied: []string{}}
	for _, ev := range events {
		switch ev.kind() {
		case EventTypeSubscriptionValidation:
			var data validationData
			if err := json.Unmarshal(ev.Data, &data); err != nil || data.ValidationCode == "" {
				response.BadRequest(w, "invalid validation event")
				return
			}
			h.log.Info("event grid subscription validation", zap.String("event_id", ev.ID))
			response.JSON(w, http.StatusOK, ValidationResponse{ValidationResponse: data.ValidationCode})
			return

		case EventTypeBlobCreated:
			container, name, err := parseSubject(ev.Subject)
			if err != nil {
				h.log.Warn("unparseable blob event", zap.String("event_id", ev.ID), zap.Error(err))
				response.BadRequest(w, err.Error())
				return
			}
			if container != h.source.Name() {
				result.Ignored++
				continue
			}
			if err := h.copier.HandleObject(r.Context(), h.source, name); err != nil {
				response.InternalError(w, err.Error())
				return
			}
			result.Copied = append(result.Copied, blobcopy.DestinationName(name))

		default:
			result.Ignored++
		}
	}
	response.OK(w, result)
}
