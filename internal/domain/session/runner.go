package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/okian/visage/internal/domain/model"
	"github.com/okian/visage/pkg/errs"
	"github.com/okian/visage/pkg/logger"
)

const defaultInterval = 100 * time.Millisecond

// FrameSource yields raw frames, e.g. from a camera.
type FrameSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// FaceModel turns a raw frame into zero or more detections.
type FaceModel interface {
	Detect(ctx context.Context, frame []byte) ([]model.Detection, error)
}

// Ticker receives detected frames. Controller satisfies it.
type Ticker interface {
	Tick(ctx context.Context, frame model.Frame) (model.Result, State, error)
	SetUnavailable(err error)
}

// ErrNoFaceModel is reported when the runner was built without a source or model.
var ErrNoFaceModel = errors.New("face model or frame source not initialized")

// Runner is the host loop: it pulls frames, detects faces and ticks the
// target. Failures mark the target unavailable instead of stopping the loop.
type Runner struct {
	source   FrameSource
	model    FaceModel
	target   Ticker
	interval time.Duration
	down     bool
	logger   logger.Logger
}

// NewRunner builds a runner. source and fm may be nil, in which case every
// step reports ErrResourceUnavailable.
func NewRunner(source FrameSource, fm FaceModel, target Ticker, opts ...RunnerOption) *Runner {
	r := &Runner{
		source:   source,
		model:    fm,
		target:   target,
		interval: defaultInterval,
		logger:   logger.Get().Named("runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Step runs exactly one frame through the pipeline.
func (r *Runner) Step(ctx context.Context) (model.Result, State, error) {
	if r.source == nil || r.model == nil {
		return r.fail(ErrNoFaceModel)
	}
	raw, err := r.source.Next(ctx)
	if err != nil {
		return r.fail(err)
	}
	detections, err := r.model.Detect(ctx, raw)
	if err != nil {
		return r.fail(err)
	}
	if r.down {
		r.down = false
		r.target.SetUnavailable(nil)
		r.logger.Info(ctx, "face model recovered")
	}
	return r.target.Tick(ctx, model.Frame{
		ID:         uuid.NewString(),
		Detections: detections,
		ReceivedAt: time.Now(),
	})
}

func (r *Runner) fail(cause error) (model.Result, State, error) {
	r.down = true
	r.target.SetUnavailable(cause)
	return model.Result{}, Idle, errs.Wrap(opStep, errs.ErrResourceUnavailable, cause)
}

// Run calls Step on every interval until ctx is done. Step errors are logged
// and the loop continues.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, _, err := r.Step(ctx); err != nil {
				r.logger.Warn(ctx, "frame step failed", logger.Error(err))
			}
		}
	}
}
