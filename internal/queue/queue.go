// Package queue provides the bounded in-process buffer between the HTTP
// intake and the consumer pool.
package queue

import (
	"errors"
	"sync"

	"github.com/verdict-lab/project-verdict/internal/core/event"
)

var (
	// ErrFull rejects events while the buffer has no free capacity.
	ErrFull = errors.New("queue is full")

	// ErrClosed rejects events once Close has been called.
	ErrClosed = errors.New("queue is closed")
)

// DefaultCapacity bounds the queue when no capacity is configured.
const DefaultCapacity = 1024

// Queue is a bounded FIFO of decoded events. Enqueue never blocks; the
// receive side stays open after Close until buffered events drain, which
// lets shutdown finish in-flight work before the consumers exit.
type Queue struct {
	mu     sync.Mutex
	events chan *event.Event
	closed bool
}

func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{events: make(chan *event.Event, capacity)}
}

// Enqueue adds evt without blocking.
func (q *Queue) Enqueue(evt *event.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	select {
	case q.events <- evt:
		return nil
	default:
		return ErrFull
	}
}

// Events exposes the receive side for consumers. The channel ends after
// Close once the remaining buffered events have been received.
func (q *Queue) Events() <-chan *event.Event {
	return q.events
}

// Size reports the number of buffered events.
func (q *Queue) Size() int {
	return len(q.events)
}

// Close stops intake. Idempotent; buffered events remain receivable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.events)
}
