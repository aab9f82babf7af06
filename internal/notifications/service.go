// Package notifications delivers grant-change events to subscriber URLs.
// Delivery is fire-and-forget: grant mutations enqueue onto a bounded
// buffer and never block on the network, and failed deliveries are logged
// and dropped without retry.
package notifications

import (
	"context"
	"log/slog"
	"time"

	v1 "github.com/verdict-lab/project-verdict/internal/api/v1"
	"github.com/verdict-lab/project-verdict/internal/observability"
)

const (
	defaultBufferSize = 256
	drainTimeout      = 5 * time.Second
)

// Sender delivers one envelope to one subscriber URL.
type Sender interface {
	Send(ctx context.Context, url string, envelope v1.EventEnvelope) error
}

// Service routes published envelopes to the subscribers of their event
// name and dispatches them on a background goroutine.
type Service struct {
	subscribers map[string][]string
	sender      Sender
	pending     chan v1.EventEnvelope
	metrics     *observability.Metrics
}

// NewService creates the notification service. subscribers maps an event
// name to the URLs interested in it; events with no entry are logged only.
func NewService(subscribers map[string][]string, sender Sender, bufferSize int, metrics *observability.Metrics) *Service {
	if sender == nil {
		panic("notifications: sender is required")
	}
	if metrics == nil {
		panic("notifications: metrics are required")
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if subscribers == nil {
		subscribers = map[string][]string{}
	}

	return &Service{
		subscribers: subscribers,
		sender:      sender,
		pending:     make(chan v1.EventEnvelope, bufferSize),
		metrics:     metrics,
	}
}

// Publish enqueues an envelope for delivery. On a full buffer the envelope
// is dropped with a warning; the caller is on the grant mutation path and
// must never block here.
func (s *Service) Publish(envelope v1.EventEnvelope) {
	select {
	case s.pending <- envelope:
	default:
		slog.Warn("Notification buffer full, dropping",
			"event", envelope.Name,
			"uuid", envelope.UUID,
		)
		s.metrics.RecordNotification(context.Background(), envelope.Name, false)
	}
}

// Run dispatches pending envelopes until the context is cancelled, then
// drains whatever is already buffered under a short grace period.
func (s *Service) Run(ctx context.Context) error {
	slog.Info("Notification dispatcher started", "subscriptions", len(s.subscribers))
	for {
		select {
		case <-ctx.Done():
			s.drain()
			slog.Info("Notification dispatcher stopped")
			return nil
		case envelope := <-s.pending:
			s.deliver(ctx, envelope)
		}
	}
}

func (s *Service) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case envelope := <-s.pending:
			s.deliver(ctx, envelope)
		default:
			return
		}
	}
}

func (s *Service) deliver(ctx context.Context, envelope v1.EventEnvelope) {
	urls := s.subscribers[envelope.Name]
	if len(urls) == 0 {
		slog.Info("Grant notification has no subscribers",
			"event", envelope.Name,
			"properties", envelope.EventProperties,
		)
		return
	}

	for _, url := range urls {
		if err := s.sender.Send(ctx, url, envelope); err != nil {
			slog.Error("Failed to deliver notification",
				"event", envelope.Name,
				"url", url,
				"error", err,
			)
			s.metrics.RecordNotification(ctx, envelope.Name, false)
			continue
		}
		s.metrics.RecordNotification(ctx, envelope.Name, true)
	}
}
