package processing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verdict-lab/project-verdict/internal/observability"
	"github.com/verdict-lab/project-verdict/internal/queue"
)

func TestNewConsumerPool_AppliesDefaultWorkers(t *testing.T) {
	p, _ := scamPipeline(t)
	pool := NewConsumerPool(queue.New(1), p, 0, observability.NewDisabled())
	require.Equal(t, DefaultWorkers, pool.workers)
}

func TestRun_DrainsClosedQueue(t *testing.T) {
	p, grants := scamPipeline(t)
	q := queue.New(8)
	pool := NewConsumerPool(q, p, 1, observability.NewDisabled())

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(newEvent("scam_flag", props{"user_id": "u1"})))
	}
	q.Close()

	require.NoError(t, pool.Run(context.Background()))

	// Flags two and three each settle the gate after the threshold.
	require.Equal(t, []grantCall{
		{"revoke", "u1", "message"},
		{"revoke", "u1", "message"},
	}, grants.calls)
}

func TestRun_ProcessingErrorKeepsWorkerAlive(t *testing.T) {
	p, grants := cardPipeline(t)
	q := queue.New(8)
	pool := NewConsumerPool(q, p, 1, observability.NewDisabled())

	// The empty zipcode fails aggregation and drops the event; the worker
	// keeps going and the three good cards still trip the rule.
	require.NoError(t, q.Enqueue(newEvent("add_credit_card", props{"user_id": "u1", "zipcode": ""})))
	for _, zip := range []string{"94103", "10001", "60601"} {
		require.NoError(t, q.Enqueue(newEvent("add_credit_card", props{"user_id": "u1", "zipcode": zip})))
	}
	q.Close()

	require.NoError(t, pool.Run(context.Background()))
	require.Equal(t, []grantCall{{"revoke", "u1", "purchase"}}, grants.calls)
}

func TestRun_StopsOnCancel(t *testing.T) {
	p, _ := scamPipeline(t)
	pool := NewConsumerPool(queue.New(8), p, 3, observability.NewDisabled())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pool did not stop on cancel")
	}
}
