// Package pipeline implements the bounded inter-stage queues (C6), the
// common stage shape and six stage workers (C5), and the parallel
// orchestrator (C7) that wires them together, grounded on the
// producer/consumer worker-pool pattern from the indexing-pipeline
// processor example (back-pressure retry loop, per-item recover(),
// context-cancellable worker loop) generalized to the six fixed stage
// kinds this pipeline needs.
package pipeline

import "context"

// Queue is a bounded multi-producer/multi-consumer FIFO of owned values.
// A buffered channel already gives us everything spec §4.6 asks for:
// blocking producers on Push when full, blocking consumers on Pop when
// empty, and internal synchronization with no caller-visible lock.
type Queue[T any] struct {
	ch chan T
}

// NewQueue creates a Queue with the given bounded capacity (default 8192
// per spec §4.6, chosen by the caller via config.Config.QueueCapacity).
func NewQueue[T any](capacity int) *Queue[T] {
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Push enqueues v, blocking if the queue is full, or returning ctx.Err()
// if ctx is canceled first.
func (q *Queue[T]) Push(ctx context.Context, v T) error {
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop dequeues the next value. ok is false if the queue was closed and
// drained, signaling upstream has finished producing.
func (q *Queue[T]) Pop(ctx context.Context) (v T, ok bool) {
	select {
	case v, ok = <-q.ch:
		return v, ok
	case <-ctx.Done():
		return v, false
	}
}

// Close signals no further values will be pushed. Consumers that have
// drained every buffered value see Pop return ok=false afterward.
func (q *Queue[T]) Close() {
	close(q.ch)
}

// Len reports the number of values currently buffered, used for progress
// reporting (`total_queued`).
func (q *Queue[T]) Len() int {
	return len(q.ch)
}
