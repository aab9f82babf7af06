// Package observability wires OpenTelemetry metrics with backend-agnostic
// configuration. The reader is pluggable; without one the stack degrades to
// no-ops so instrumented code never has to check whether metrics are on.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "verdict"

// Config configures the observability stack.
type Config struct {
	// Service metadata
	ServiceName    string
	ServiceVersion string
	Environment    string // dev, staging, prod

	// MetricReader is the pluggable export path (Prometheus, OTLP,
	// manual in tests). Nil disables metrics.
	MetricReader sdkmetric.Reader

	// Logging
	Logger *slog.Logger
}

// Telemetry manages the observability stack.
type Telemetry struct {
	MeterProvider *sdkmetric.MeterProvider
	Metrics       *Metrics
	Logger        *slog.Logger
}

// Init initializes OpenTelemetry with graceful degradation. With a nil
// reader the meter provider has no export pipeline and every record is
// dropped, but Metrics is always usable.
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.MetricReader != nil {
		opts = append(opts, sdkmetric.WithReader(cfg.MetricReader))
	}
	mp := sdkmetric.NewMeterProvider(opts...)

	metrics, err := NewMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric instruments: %w", err)
	}

	otel.SetMeterProvider(mp)
	if cfg.MetricReader != nil {
		cfg.Logger.Info("Metrics initialized", "service", cfg.ServiceName)
	} else {
		cfg.Logger.Info("Metrics disabled (no reader configured)")
	}

	return &Telemetry{
		MeterProvider: mp,
		Metrics:       metrics,
		Logger:        cfg.Logger,
	}, nil
}

// Shutdown flushes and stops the telemetry stack.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.Logger.Info("Shutting down observability")
	return t.MeterProvider.Shutdown(ctx)
}

// NewDisabled returns instruments backed by a reader-less provider. Every
// record is dropped. Intended for tests and for components built without
// full telemetry wiring.
func NewDisabled() *Metrics {
	m, err := NewMetrics(sdkmetric.NewMeterProvider().Meter(meterName))
	if err != nil {
		// Instrument creation only fails on invalid names, which are
		// fixed at compile time here.
		panic(err)
	}
	return m
}
