package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments for the gate service.
type Metrics struct {
	// Pipeline metrics
	EventsIngested  metric.Int64Counter
	EventsProcessed metric.Int64Counter
	EventsDropped   metric.Int64Counter
	ProcessDuration metric.Float64Histogram
	QueueDepth      metric.Int64UpDownCounter

	// Grant metrics
	GrantTransitions   metric.Int64Counter
	AccessChecks       metric.Int64Counter
	CircuitTransitions metric.Int64Counter

	// Notification metrics
	NotificationsDelivered metric.Int64Counter
	NotificationsDropped   metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.EventsIngested, err = meter.Int64Counter(
		"verdict.events.ingested",
		metric.WithDescription("Events accepted at the HTTP ingress"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events.ingested: %w", err)
	}

	m.EventsProcessed, err = meter.Int64Counter(
		"verdict.events.processed",
		metric.WithDescription("Events fully processed by the pipeline"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events.processed: %w", err)
	}

	m.EventsDropped, err = meter.Int64Counter(
		"verdict.events.dropped",
		metric.WithDescription("Events dropped by processing errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events.dropped: %w", err)
	}

	m.ProcessDuration, err = meter.Float64Histogram(
		"verdict.process.duration",
		metric.WithDescription("Per-event processing duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.duration: %w", err)
	}

	m.QueueDepth, err = meter.Int64UpDownCounter(
		"verdict.queue.depth",
		metric.WithDescription("Events currently waiting in the ingest queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue.depth: %w", err)
	}

	m.GrantTransitions, err = meter.Int64Counter(
		"verdict.grants.transitions",
		metric.WithDescription("Grant state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating grants.transitions: %w", err)
	}

	m.AccessChecks, err = meter.Int64Counter(
		"verdict.access.checks",
		metric.WithDescription("Feature access checks served"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating access.checks: %w", err)
	}

	m.CircuitTransitions, err = meter.Int64Counter(
		"verdict.breaker.transitions",
		metric.WithDescription("Circuit breaker open/close transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating breaker.transitions: %w", err)
	}

	m.NotificationsDelivered, err = meter.Int64Counter(
		"verdict.notifications.delivered",
		metric.WithDescription("Notifications delivered to subscribers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating notifications.delivered: %w", err)
	}

	m.NotificationsDropped, err = meter.Int64Counter(
		"verdict.notifications.dropped",
		metric.WithDescription("Notifications dropped on overflow or delivery failure"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating notifications.dropped: %w", err)
	}

	return m, nil
}

// RecordIngested counts an event accepted at the ingress.
func (m *Metrics) RecordIngested(ctx context.Context, eventName string) {
	m.EventsIngested.Add(ctx, 1, metric.WithAttributes(attribute.String("event", eventName)))
}

// RecordProcessed counts a fully processed event and its latency.
func (m *Metrics) RecordProcessed(ctx context.Context, eventName string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("event", eventName))
	m.EventsProcessed.Add(ctx, 1, attrs)
	m.ProcessDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordDropped counts an event dropped by a processing error.
func (m *Metrics) RecordDropped(ctx context.Context, eventName string) {
	m.EventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("event", eventName)))
}

// AddQueueDepth moves the queue depth gauge: +1 on enqueue, -1 on dequeue.
func (m *Metrics) AddQueueDepth(ctx context.Context, delta int64) {
	m.QueueDepth.Add(ctx, delta)
}

// RecordGrantTransition counts a grant flip for a feature.
func (m *Metrics) RecordGrantTransition(ctx context.Context, featureName string, granted bool) {
	m.GrantTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("feature", featureName),
		attribute.Bool("granted", granted),
	))
}

// RecordAccessCheck counts a has-grant check and the answer served.
func (m *Metrics) RecordAccessCheck(ctx context.Context, featureName string, allowed bool) {
	m.AccessChecks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("feature", featureName),
		attribute.Bool("allowed", allowed),
	))
}

// RecordCircuitTransition counts a breaker flip for a feature.
func (m *Metrics) RecordCircuitTransition(ctx context.Context, featureName string, open bool) {
	m.CircuitTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("feature", featureName),
		attribute.Bool("open", open),
	))
}

// RecordNotification counts a delivery attempt outcome.
func (m *Metrics) RecordNotification(ctx context.Context, eventName string, delivered bool) {
	attrs := metric.WithAttributes(attribute.String("event", eventName))
	if delivered {
		m.NotificationsDelivered.Add(ctx, 1, attrs)
		return
	}
	m.NotificationsDropped.Add(ctx, 1, attrs)
}
