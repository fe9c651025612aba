package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/visage/internal/adapters/mq/queue"
	"github.com/okian/visage/internal/adapters/mq/worker"
	"github.com/okian/visage/internal/domain/model"
	"github.com/okian/visage/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	mu    sync.Mutex
	seen  []string
	fail  map[string]error
	delay time.Duration
}

func (r *recorder) Process(_ context.Context, f model.Frame) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, f.ID)
	return r.fail[f.ID]
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestFrameWorker(t *testing.T) {
	convey.Convey("Given a worker over a real queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		rec := &recorder{fail: map[string]error{"f2": errors.New("boom")}}
		w := worker.NewFrameWorker(q, rec, worker.WithName("test-worker"), worker.WithLogger(logger.Nop()))

		convey.Convey("When frames are queued and the queue is closed", func() {
			for i := 0; i < 5; i++ {
				convey.So(q.Enqueue(ctx, model.Frame{ID: fmt.Sprintf("f%d", i)}), convey.ShouldBeNil)
			}
			_ = q.Close()
			w.Run(ctx)

			convey.Convey("Then every frame is processed once in order", func() {
				convey.So(rec.ids(), convey.ShouldResemble, []string{"f0", "f1", "f2", "f3", "f4"})
			})

			convey.Convey("And a failed frame does not stop the worker", func() {
				convey.So(len(rec.ids()), convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When the worker is shut down", func() {
			w.Start(ctx)
			convey.So(q.Enqueue(ctx, model.Frame{ID: "only"}), convey.ShouldBeNil)

			deadline := time.Now().Add(time.Second)
			for len(rec.ids()) == 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			err := w.Shutdown(context.Background())

			convey.Convey("Then it stops cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(rec.ids(), convey.ShouldResemble, []string{"only"})
				select {
				case <-w.Done():
				default:
					t.Error("worker not done after shutdown")
				}
			})

			convey.Convey("And a second shutdown is harmless", func() {
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			w.Start(ctx)
			cancel()

			convey.Convey("Then the worker exits", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					t.Error("worker did not exit on cancel")
				}
			})
		})
	})
}

func TestFrameWorkerShutdownTimeout(t *testing.T) {
	convey.Convey("Given a worker stuck on a slow frame", t, func() {
		q := queue.NewInMemoryQueue()
		rec := &recorder{delay: 200 * time.Millisecond}
		w := worker.NewFrameWorker(q, rec, worker.WithLogger(logger.Nop()))
		w.Start(context.Background())
		convey.So(q.Enqueue(context.Background(), model.Frame{ID: "slow"}), convey.ShouldBeNil)
		time.Sleep(20 * time.Millisecond)

		convey.Convey("When shutdown has a short deadline", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			err := w.Shutdown(ctx)

			convey.Convey("Then it reports the timeout", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})
}

func TestProcessorFunc(t *testing.T) {
	convey.Convey("Given a processor func", t, func() {
		called := ""
		p := worker.ProcessorFunc(func(_ context.Context, f model.Frame) error {
			called = f.ID
			return nil
		})
		convey.So(p.Process(context.Background(), model.Frame{ID: "x"}), convey.ShouldBeNil)
		convey.So(called, convey.ShouldEqual, "x")
	})
}
