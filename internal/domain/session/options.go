package session

import (
	"time"

	"github.com/okian/visage/internal/domain/model"
	"github.com/okian/visage/pkg/logger"
)

// Option configures a Controller.
type Option func(*Controller)

// WithSettings sets the initial operator settings.
func WithSettings(s model.Settings) Option {
	return func(c *Controller) {
		c.settings = s
	}
}

// WithDimension makes Tick reject descriptors of any other length. Zero
// accepts every length.
func WithDimension(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.dim = n
		}
	}
}

// WithClock overrides the clock used for result and feedback timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides how result and feedback ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(c *Controller) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// WithTransitionHook registers fn to observe every state change.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(c *Controller) {
		c.onTransition = fn
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithInterval sets how often Run pulls a frame.
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithRunnerLogger sets a custom logger for the runner.
func WithRunnerLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}
