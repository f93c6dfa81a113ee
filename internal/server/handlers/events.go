package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/3leaps/s3relocate/pkg/notification"
	"github.com/3leaps/s3relocate/pkg/output"
	"github.com/3leaps/s3relocate/pkg/relocate"
)

// DefaultMaxBodyBytes caps webhook payloads when no limit is configured.
const DefaultMaxBodyBytes int64 = 10 << 20

// BatchRunner relocates one decoded batch.
type BatchRunner interface {
	Run(ctx context.Context, invocationID string, batch notification.Batch) (*relocate.Summary, error)
	Reject(invocationID string, err error)
}

// EventsResponse is the body of a successful POST /v1/events.
type EventsResponse struct {
	InvocationID string                    `json:"invocation_id"`
	Summary      output.SummaryRecord      `json:"summary"`
	Relocations  []output.RelocationRecord `json:"relocations"`
	Skips        []output.SkipRecord       `json:"skips,omitempty"`
}

// EventsHandler accepts S3 event notification documents over HTTP.
type EventsHandler struct {
	runner       BatchRunner
	newID        func() string
	maxBodyBytes int64
}

// NewEventsHandler creates a handler that runs batches through runner and
// labels them with IDs from newID.
func NewEventsHandler(runner BatchRunner, newID func() string, maxBodyBytes int64) *EventsHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &EventsHandler{runner: runner, newID: newID, maxBodyBytes: maxBodyBytes}
}

// ServeHTTP decodes the body, relocates it and answers with the summary.
//
// 400 means the payload could not be decoded and nothing was attempted.
// 502 means relocation started and aborted; the body names the failing
// record so the sender can retry the batch.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := h.newID()
	w.Header().Set("X-Invocation-ID", id)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.runner.Reject(id, err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, r, NewHTTPError(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "event payload too large", err))
			return
		}
		respondWithError(w, r, NewHTTPError(http.StatusBadRequest, CodeBadRequest, "failed to read event payload", err))
		return
	}

	batch, err := notification.Decode(body)
	if err != nil {
		h.runner.Reject(id, err)
		httpErr := NewHTTPError(http.StatusBadRequest, CodeBadRequest, "invalid event payload", err)
		httpErr.Details = map[string]any{"invocation_id": id, "error": output.NewErrorRecord(err)}
		respondWithError(w, r, httpErr)
		return
	}

	sum, runErr := h.runner.Run(r.Context(), id, batch)
	resp := newEventsResponse(id, sum, runErr)

	if runErr != nil {
		httpErr := NewHTTPError(http.StatusBadGateway, CodeRelocationFailed, "relocation aborted", runErr)
		httpErr.Details = map[string]any{
			"invocation_id": id,
			"error":         output.NewErrorRecord(runErr),
			"summary":       resp.Summary,
		}
		respondWithError(w, r, httpErr)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

func newEventsResponse(id string, sum *relocate.Summary, runErr error) EventsResponse {
	if sum == nil {
		sum = &relocate.Summary{}
	}
	resp := EventsResponse{
		InvocationID: id,
		Summary:      output.NewSummaryRecord(sum, runErr != nil),
		Relocations:  []output.RelocationRecord{},
	}
	for _, res := range sum.Results {
		if res.Status == relocate.StatusSkipped {
			resp.Skips = append(resp.Skips, output.SkipRecord{Index: res.Index, Key: res.Key, Reason: res.Reason})
			continue
		}
		resp.Relocations = append(resp.Relocations, output.RelocationRecord{
			Index:             res.Index,
			Key:               res.Key,
			SourceBucket:      res.SourceBucket,
			DestinationBucket: res.DestinationBucket,
			ETag:              res.ETag,
			Bytes:             res.Bytes,
		})
	}
	return resp
}
