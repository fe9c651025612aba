// Package queue buffers submitted frames between the HTTP intake and the
// frame worker. Enqueue never blocks; a full queue is reported to the caller
// so it can apply backpressure.
package queue

import (
	"context"
	"sync"

	"github.com/okian/visage/internal/domain/model"
	"github.com/okian/visage/pkg/metrics"
)

const defaultQueueCapacity = 64

// Frame is the payload flowing through the queue.
type Frame = model.Frame

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a frame. Returns ErrFull or ErrClosed when it was not added.
	Enqueue(ctx context.Context, f Frame) error

	// Dequeue returns a channel that yields frames in FIFO order. The channel
	// is closed when the queue is closed and drained, or ctx is done.
	Dequeue(ctx context.Context) <-chan Frame

	// Len returns the current number of queued frames.
	Len(ctx context.Context) int

	// Close stops intake. Already queued frames are still delivered.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	frames   chan Frame
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.frames = make(chan Frame, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a frame to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f Frame) error { //nolint:gocritic // hugeParam: Frame is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	}

	select {
	case q.frames <- f:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.frames))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueRejected("context_cancelled")
		return ctx.Err()
	default:
		metrics.RecordQueueRejected("full")
		return ErrFull
	}
}

// Dequeue returns a channel that receives frames as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Frame {
	out := make(chan Frame)
	go func() {
		defer close(out)
		for {
			var (
				f  Frame
				ok bool
			)
			select {
			case <-ctx.Done():
				return
			case f, ok = <-q.frames:
				if !ok {
					return
				}
			}
			select {
			case out <- f:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.frames))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued frames.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.frames)
	metrics.UpdateQueueSize(size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.frames)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
