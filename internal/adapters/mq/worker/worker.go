// Package worker drains the frame queue and hands each frame to the
// recognition pipeline. Exactly one worker runs so frames are processed one
// at a time and in arrival order.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/visage/internal/domain/model"
	"github.com/okian/visage/pkg/logger"
	"github.com/okian/visage/pkg/metrics"
)

const defaultShutdownTimeout = 5 * time.Second

// Processor runs one frame through recognition.
type Processor interface {
	Process(ctx context.Context, f model.Frame) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, f model.Frame) error

// Process calls fn.
func (fn ProcessorFunc) Process(ctx context.Context, f model.Frame) error { return fn(ctx, f) }

// Queue defines how the worker receives frames.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Frame
}

// FrameWorker processes frames from a queue until it is closed, ctx ends or
// Shutdown is called.
type FrameWorker struct {
	queue     Queue
	processor Processor
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewFrameWorker creates a worker with configuration options.
func NewFrameWorker(q Queue, p Processor, opts ...Option) *FrameWorker {
	w := &FrameWorker{
		queue:     q,
		processor: p,
		name:      "frame-worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Start runs the worker loop in a new goroutine.
func (w *FrameWorker) Start(ctx context.Context) {
	go w.Run(ctx)
}

// Run is the worker loop. It returns when the queue channel closes, ctx is
// done or Shutdown is called.
func (w *FrameWorker) Run(ctx context.Context) {
	defer close(w.done)

	frames := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := w.process(ctx, f); err != nil {
				w.logger.Warn(ctx, "frame processing failed",
					logger.String("frame_id", f.ID),
					logger.Error(err),
				)
			}
		}
	}
}

// Done is closed when Run has returned.
func (w *FrameWorker) Done() <-chan struct{} { return w.done }

// Shutdown stops the worker and waits for the frame in flight.
func (w *FrameWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultShutdownTimeout)
		defer cancel()
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *FrameWorker) process(ctx context.Context, f model.Frame) error { //nolint:gocritic // hugeParam: Frame is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Microseconds()) / 1000)
		metrics.UpdateWorkerLastFrame(float64(time.Now().Unix()))
	}()

	if err := w.processor.Process(ctx, f); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "process")
		return fmt.Errorf("process frame %s: %w", f.ID, err)
	}
	return nil
}
