package engine

import (
	"sync"

	"github.com/BoonLang/boon-sub001/internal/payload"
)

// ExternalEvent is a stimulus entering the loop from outside: a UI event,
// a timer firing, a test harness injection. It addresses a declared pad
// by name and carries a correlation token (UUIDv7 in production) for
// tracing.
type ExternalEvent struct {
	Pad     string
	Payload payload.Value
	Token   string
}

// externalQueue is a thread-safe FIFO for external events.
//
// Enqueuing is safe from any goroutine (host drivers, timers firing on
// other threads); the tick loop drains it at tick start. The queue is
// unbounded so a burst of host events never blocks the producer.
//
// A buffered signal channel of size one coalesces wakeups for the
// blocking Run loop.
type externalQueue struct {
	mu     sync.Mutex
	events []ExternalEvent
	closed bool
	signal chan struct{}
}

func newExternalQueue() *externalQueue {
	return &externalQueue{
		events: make([]ExternalEvent, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends an event. Returns false if the queue is closed.
func (q *externalQueue) Enqueue(ev ExternalEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, ev)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// DrainAll removes and returns every queued event, preserving order.
// Called once per tick so events arriving mid-tick wait for the next one.
func (q *externalQueue) DrainAll() []ExternalEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = make([]ExternalEvent, 0, 16)
	return out
}

// Len returns the number of queued events.
func (q *externalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Wait returns the wakeup channel for context-aware blocking:
//
//	select {
//	case <-ctx.Done():
//	case <-q.Wait():
//	}
func (q *externalQueue) Wait() <-chan struct{} {
	return q.signal
}

// Close marks the queue closed and wakes all waiters.
func (q *externalQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
