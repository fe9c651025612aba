// Package session drives one recognition decision per frame and turns user
// feedback into ledger entries and threshold adjustments.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/visage/internal/domain/expression"
	"github.com/okian/visage/internal/domain/ledger"
	"github.com/okian/visage/internal/domain/matcher"
	"github.com/okian/visage/internal/domain/model"
	"github.com/okian/visage/internal/domain/threshold"
	"github.com/okian/visage/pkg/errs"
	"github.com/okian/visage/pkg/logger"
)

// Store is the descriptor store as seen by the controller.
type Store interface {
	All(ctx context.Context) []model.Person
	Find(ctx context.Context, name string) (model.Person, bool)
	Enroll(ctx context.Context, name string, d model.Descriptor) (model.Person, error)
}

// Adjustment is a threshold change caused by one feedback.
type Adjustment struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Outcome describes what a feedback submission changed.
type Outcome struct {
	Feedback   model.Feedback `json:"feedback"`
	Stats      model.Stats    `json:"stats"`
	Adjustment *Adjustment    `json:"adjustment,omitempty"`
	Enrolled   *model.Person  `json:"enrolled,omitempty"`
}

// Controller is the recognition state machine. It is not safe for concurrent
// use; callers serialize access.
type Controller struct {
	store    Store
	table    *threshold.Table
	ledger   *ledger.Ledger
	settings model.Settings
	dim      int

	state       State
	current     *model.Result
	detection   *model.Detection
	unavailable error

	now          func() time.Time
	newID        func() string
	onTransition func(from, to State)
	logger       logger.Logger
}

// NewController wires the controller to its owned collaborators.
func NewController(store Store, table *threshold.Table, l *ledger.Ledger, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		table:    table,
		ledger:   l,
		settings: model.DefaultSettings(),
		state:    Idle,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   logger.Get().Named("session"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.table.SetDefault(c.settings.ConfidenceThreshold)
	return c
}

// Settings returns the active operator settings.
func (c *Controller) Settings() model.Settings { return c.settings }

// SetSettings replaces the operator settings. The global threshold takes
// effect from the next tick.
func (c *Controller) SetSettings(s model.Settings) {
	c.settings = s
	c.table.SetDefault(s.ConfidenceThreshold)
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Current returns the open result, if any.
func (c *Controller) Current() (model.Result, State, bool) {
	if c.current == nil {
		return model.Result{}, c.state, false
	}
	return *c.current, c.state, true
}

// SetUnavailable marks the face model or frame source as failed. While set,
// every tick stays Idle. A nil err clears the condition.
func (c *Controller) SetUnavailable(err error) {
	c.unavailable = err
	if err != nil {
		c.clear()
	}
}

// Unavailable returns the error recorded by SetUnavailable.
func (c *Controller) Unavailable() error { return c.unavailable }

// Tick processes one frame. Only the first detection is considered. A new
// detection supersedes any result still awaiting feedback.
func (c *Controller) Tick(ctx context.Context, frame model.Frame) (model.Result, State, error) {
	if c.unavailable != nil {
		return model.Result{}, c.state, errs.Wrap(opTick, errs.ErrResourceUnavailable, c.unavailable)
	}
	if len(frame.Detections) == 0 {
		c.clear()
		return model.Result{}, c.state, nil
	}

	det := frame.Detections[0]
	if len(det.Descriptor) == 0 {
		c.clear()
		return model.Result{}, c.state, errs.Input(opTick, "detection has no descriptor")
	}
	if c.dim > 0 && len(det.Descriptor) != c.dim {
		c.clear()
		return model.Result{}, c.state, errs.Wrap(opTick, errs.ErrConfiguration,
			fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(det.Descriptor), c.dim))
	}
	det.Descriptor = det.Descriptor.Clone()
	c.detection = &det
	c.current = nil
	c.transition(Detected)

	best := matcher.Nearest(c.store.All(ctx), det.Descriptor)
	c.transition(Matched)

	candidate := ""
	if best.Person != nil {
		candidate = best.Person.Name
	}
	limit := c.table.Default()
	if c.settings.AdaptiveLearning {
		limit = c.table.For(candidate)
	}
	confidence := best.Confidence()

	predicted := model.Unknown
	if best.Person != nil && confidence >= limit {
		predicted = candidate
	}

	res := model.Result{
		ID:         c.newID(),
		Predicted:  predicted,
		Confidence: confidence,
		Distance:   best.Distance,
		Threshold:  limit,
		Box:        det.Box,
		Timestamp:  c.now(),
		Descriptor: det.Descriptor.Clone(),
	}
	if c.settings.ShowExpressions {
		res.Expression = expression.Top(det.Expressions)
	}
	c.current = &res
	c.transition(AwaitingFeedback)

	c.logger.Debug(ctx, "recognition",
		logger.String("predicted", predicted),
		logger.String("candidate", candidate),
		logger.Float64("confidence", confidence),
		logger.Float64("threshold", limit),
	)
	return res, c.state, nil
}

// Confirm records that the open result was right.
func (c *Controller) Confirm(ctx context.Context) (Outcome, error) {
	res, err := c.open(opConfirm)
	if err != nil {
		return Outcome{}, err
	}
	return c.finish(ctx, model.Feedback{
		ID:         c.newID(),
		Type:       model.Confirmed,
		Predicted:  res.Predicted,
		Actual:     res.Predicted,
		Confidence: res.Confidence,
		Timestamp:  c.now(),
	}, nil), nil
}

// Correct records that the open result should have been actual. A name
// missing from the store is enrolled with the held descriptor; a known name
// is recorded under its stored spelling.
func (c *Controller) Correct(ctx context.Context, actual string) (Outcome, error) {
	res, err := c.open(opCorrect)
	if err != nil {
		return Outcome{}, err
	}
	actual = strings.TrimSpace(actual)
	if actual == "" {
		return Outcome{}, errs.Input(opCorrect, "actual name must not be empty")
	}

	var enrolled *model.Person
	if p, ok := c.store.Find(ctx, actual); ok {
		actual = p.Name
	} else {
		p, err := c.store.Enroll(ctx, actual, res.Descriptor.Clone())
		if err != nil {
			return Outcome{}, err
		}
		enrolled = &p
	}

	return c.finish(ctx, model.Feedback{
		ID:         c.newID(),
		Type:       model.Corrected,
		Predicted:  res.Predicted,
		Actual:     actual,
		Confidence: res.Confidence,
		Timestamp:  c.now(),
	}, enrolled), nil
}

// EnrollCurrent stores the descriptor of the most recent detection under name.
func (c *Controller) EnrollCurrent(ctx context.Context, name string) (model.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Person{}, errs.Input(opEnroll, "name must not be empty")
	}
	if c.detection == nil {
		return model.Person{}, errs.Input(opEnroll, "no face detected")
	}
	return c.store.Enroll(ctx, name, c.detection.Descriptor.Clone())
}

func (c *Controller) open(op string) (model.Result, error) {
	if c.state != AwaitingFeedback || c.current == nil {
		return model.Result{}, errs.New(op, errs.ErrNoOpenResult)
	}
	return *c.current, nil
}

func (c *Controller) finish(ctx context.Context, fb model.Feedback, enrolled *model.Person) Outcome {
	out := Outcome{Feedback: fb, Enrolled: enrolled}
	out.Stats = c.ledger.Record(fb)
	if c.settings.AdaptiveLearning {
		name, v := c.table.Apply(fb)
		out.Adjustment = &Adjustment{Name: name, Value: v}
	}
	out.Stats.AdaptiveThresholds = c.table.Snapshot()

	c.current = nil
	c.transition(Idle)

	fields := []logger.Field{
		logger.String("type", string(fb.Type)),
		logger.String("predicted", fb.Predicted),
		logger.String("actual", fb.Actual),
	}
	if out.Adjustment != nil {
		fields = append(fields, logger.Float64("threshold", out.Adjustment.Value))
	}
	c.logger.Info(ctx, "feedback recorded", fields...)
	return out
}

// clear drops the ephemeral result and detection and returns to Idle.
func (c *Controller) clear() {
	c.current = nil
	c.detection = nil
	c.transition(Idle)
}

func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	if c.onTransition != nil && from != to {
		c.onTransition(from, to)
	}
}
