package processing

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verdict-lab/project-verdict/internal/core/event"
	"github.com/verdict-lab/project-verdict/internal/observability"
	"github.com/verdict-lab/project-verdict/internal/queue"
)

// DefaultWorkers is the consumer count when none is configured.
const DefaultWorkers = 3

// ConsumerPool runs a fixed set of workers over the event queue. Workers
// are not partitioned by user; aggregate-level locking keeps concurrent
// updates safe.
type ConsumerPool struct {
	queue     *queue.Queue
	processor *Processor
	workers   int
	metrics   *observability.Metrics
}

func NewConsumerPool(q *queue.Queue, p *Processor, workers int, metrics *observability.Metrics) *ConsumerPool {
	if q == nil {
		panic("processing: queue is required")
	}
	if p == nil {
		panic("processing: processor is required")
	}
	if metrics == nil {
		panic("processing: metrics are required")
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &ConsumerPool{
		queue:     q,
		processor: p,
		workers:   workers,
		metrics:   metrics,
	}
}

// Run blocks until every worker has exited. Workers exit when the context
// is cancelled or when the queue is closed and drained; closing the queue
// first gives a shutdown that finishes all accepted events.
func (c *ConsumerPool) Run(ctx context.Context) error {
	slog.Info("Consumer pool started", "workers", c.workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workers; i++ {
		i := i
		g.Go(func() error { return c.consume(gctx, i) })
	}
	err := g.Wait()

	slog.Info("Consumer pool stopped")
	return err
}

func (c *ConsumerPool) consume(ctx context.Context, worker int) error {
	for {
		select {
		case <-ctx.Done():
			slog.Info("Consumer cancelled", "worker", worker)
			return nil
		case evt, ok := <-c.queue.Events():
			if !ok {
				slog.Info("Consumer drained", "worker", worker)
				return nil
			}
			c.metrics.AddQueueDepth(ctx, -1)
			c.handle(ctx, evt)
		}
	}
}

// handle processes one event. Processing errors drop the event and keep the
// worker alive.
func (c *ConsumerPool) handle(ctx context.Context, evt *event.Event) {
	start := time.Now()
	if err := c.processor.Process(ctx, evt); err != nil {
		slog.Error("Failed to process event",
			"event_id", evt.UUID,
			"event", evt.Name,
			"error", err,
		)
		c.metrics.RecordDropped(ctx, evt.Name)
		return
	}
	c.metrics.RecordProcessed(ctx, evt.Name, time.Since(start))
}
