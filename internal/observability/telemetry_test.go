package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func findSum(rm metricdata.ResourceMetrics, name string) (metricdata.Sum[int64], bool) {
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			return sum, ok
		}
	}
	return metricdata.Sum[int64]{}, false
}

func TestInit_CollectsThroughReader(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()

	tel, err := Init(ctx, Config{
		ServiceName:    "verdict-test",
		ServiceVersion: "0.0.0",
		Environment:    "test",
		MetricReader:   reader,
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, tel.Shutdown(ctx)) }()

	tel.Metrics.RecordIngested(ctx, "purchase")
	tel.Metrics.RecordIngested(ctx, "purchase")
	tel.Metrics.RecordAccessCheck(ctx, "message", true)
	tel.Metrics.AddQueueDepth(ctx, 1)
	tel.Metrics.AddQueueDepth(ctx, -1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	ingested, ok := findSum(rm, "verdict.events.ingested")
	require.True(t, ok, "ingested counter should be exported")
	require.Len(t, ingested.DataPoints, 1)
	require.EqualValues(t, 2, ingested.DataPoints[0].Value)

	checks, ok := findSum(rm, "verdict.access.checks")
	require.True(t, ok)
	require.EqualValues(t, 1, checks.DataPoints[0].Value)

	depth, ok := findSum(rm, "verdict.queue.depth")
	require.True(t, ok)
	require.EqualValues(t, 0, depth.DataPoints[0].Value, "enqueue and dequeue cancel out")
}

func TestNewDisabled_RecordsAreSafe(t *testing.T) {
	ctx := context.Background()
	m := NewDisabled()

	m.RecordIngested(ctx, "purchase")
	m.RecordProcessed(ctx, "purchase", 5*time.Millisecond)
	m.RecordDropped(ctx, "purchase")
	m.AddQueueDepth(ctx, 1)
	m.RecordGrantTransition(ctx, "message", false)
	m.RecordAccessCheck(ctx, "message", true)
	m.RecordCircuitTransition(ctx, "message", true)
	m.RecordNotification(ctx, "access_revoked", false)
}
