package ingestion

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/verdict-lab/project-verdict/internal/api/v1"
	httperr "github.com/verdict-lab/project-verdict/internal/core/errors"
	"github.com/verdict-lab/project-verdict/internal/core/event"
	"github.com/verdict-lab/project-verdict/internal/queue"
	"github.com/verdict-lab/project-verdict/internal/schema"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgQueueFull      = "Event queue is full"
	msgShuttingDown   = "Service is shutting down"
	msgDecodeFailed   = "Failed to decode event"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	code       string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// PublishHandler handles HTTP POST requests for event publication: bind the
// envelope, decode the properties against the event's schema, enqueue.
func (s *Service) PublishHandler(c *gin.Context) {
	envelope, payloadSize, err := s.parseEvent(c)
	if err != nil {
		writeError(c, err)
		return
	}

	evt, err := s.decodeEvent(envelope)
	if err != nil {
		writeError(c, err)
		return
	}

	slog.Info("Received event",
		"event_id", evt.UUID,
		"event", evt.Name,
		"user_id", evt.Properties.UserID(),
		"payload_size", payloadSize)

	if err := s.enqueue(c, evt); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event_id": evt.UUID})
}

// QueueSizeHandler reports the current depth of the event queue.
func (s *Service) QueueSizeHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queue_size": s.queue.Size()})
}

// parseEvent reads the raw request body and binds it into an envelope.
// Returns the envelope and the raw payload size (used for structured logging upstream).
func (s *Service) parseEvent(c *gin.Context) (*v1.EventEnvelope, int, *ingestionError) {
	// Enforce maximum body size to prevent OOM attacks
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			code:       httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			code:       httperr.HttpInvalidRequestError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var envelope v1.EventEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			code:       httperr.HttpInvalidRequestError,
			message:    msgInvalidJSON,
		}
	}

	if err := envelope.Validate(); err != nil {
		slog.Warn("Envelope validation failed", "error", err, "event_id", envelope.UUID)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			code:       httperr.HttpInvalidRequestError,
			message:    err.Error(),
		}
	}

	return &envelope, len(bodyBytes), nil
}

// decodeEvent resolves the envelope against the event's registered schema
// and produces the typed domain event the pipeline consumes.
func (s *Service) decodeEvent(envelope *v1.EventEnvelope) (*event.Event, *ingestionError) {
	props, err := s.registry.Decode(envelope.Name, envelope.EventProperties)
	if err != nil {
		if errors.Is(err, schema.ErrNotRegistered) {
			slog.Warn("Unknown event name", "event", envelope.Name, "event_id", envelope.UUID)
			return nil, &ingestionError{
				statusCode: http.StatusBadRequest,
				code:       httperr.HttpUnknownEventError,
				message:    err.Error(),
			}
		}

		if d, ok := err.(schema.ValidationDetailer); ok {
			slog.Warn("Event properties failed validation",
				"event", envelope.Name,
				"event_id", envelope.UUID,
				"error", err)
			return nil, &ingestionError{
				statusCode: http.StatusBadRequest,
				code:       httperr.HttpInvalidPropertiesError,
				message:    err.Error(),
				details:    d.Details(),
			}
		}

		slog.Error("Failed to decode event properties", "event", envelope.Name, "error", err)
		return nil, &ingestionError{
			statusCode: http.StatusInternalServerError,
			code:       httperr.HttpInternalError,
			message:    msgDecodeFailed,
		}
	}

	return &event.Event{
		UUID:       envelope.UUID,
		Name:       envelope.Name,
		Timestamp:  envelope.Timestamp,
		Properties: props,
	}, nil
}

// enqueue hands the event to the processing queue, shedding load when it is
// full and rejecting intake during shutdown.
func (s *Service) enqueue(c *gin.Context, evt *event.Event) *ingestionError {
	if err := s.queue.Enqueue(evt); err != nil {
		switch {
		case errors.Is(err, queue.ErrFull):
			slog.Warn("Event queue is full, rejecting event", "event_id", evt.UUID, "queue_size", s.queue.Size())
			return &ingestionError{
				statusCode: http.StatusServiceUnavailable,
				code:       httperr.HttpQueueFullError,
				message:    msgQueueFull,
			}
		case errors.Is(err, queue.ErrClosed):
			slog.Warn("Event rejected during shutdown", "event_id", evt.UUID)
			return &ingestionError{
				statusCode: http.StatusServiceUnavailable,
				code:       httperr.HttpShuttingDownError,
				message:    msgShuttingDown,
			}
		}

		slog.Error("Failed to enqueue event", "error", err, "event_id", evt.UUID)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			code:       httperr.HttpInternalError,
			message:    "Failed to enqueue event",
		}
	}

	s.metrics.RecordIngested(c.Request.Context(), evt.Name)
	s.metrics.AddQueueDepth(c.Request.Context(), 1)
	return nil
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		Code:    err.code,
		Message: err.message,
		Details: err.details,
	})
}
