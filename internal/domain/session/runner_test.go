package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/visage/internal/domain/model"
	"github.com/okian/visage/internal/domain/session"
	"github.com/okian/visage/pkg/errs"
	"github.com/okian/visage/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type scriptedSource struct {
	err error
	n   int
}

func (s *scriptedSource) Next(context.Context) ([]byte, error) {
	s.n++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("frame"), nil
}

type fixedModel struct {
	detections []model.Detection
	err        error
}

func (m *fixedModel) Detect(context.Context, []byte) ([]model.Detection, error) {
	return m.detections, m.err
}

func TestRunnerStep(t *testing.T) {
	ctx := context.Background()

	Convey("Given a runner over a controller", t, func() {
		f := newFixture(model.DefaultSettings())
		alice := model.Descriptor{0.1, 0.2, 0.3}
		_, _ = f.store.Enroll(ctx, "Alice", alice)
		src := &scriptedSource{}
		fm := &fixedModel{detections: frameOf(alice).Detections}
		r := session.NewRunner(src, fm, f.ctrl, session.WithRunnerLogger(logger.Nop()))

		Convey("When a step succeeds", func() {
			res, state, err := r.Step(ctx)

			Convey("Then the controller is ticked with the detection", func() {
				So(err, ShouldBeNil)
				So(res.Predicted, ShouldEqual, "Alice")
				So(state, ShouldEqual, session.AwaitingFeedback)
			})
		})

		Convey("When the face model fails", func() {
			fm.err = errors.New("model not loaded")
			_, state, err := r.Step(ctx)

			Convey("Then the controller is marked unavailable", func() {
				So(errs.IsUnavailable(err), ShouldBeTrue)
				So(state, ShouldEqual, session.Idle)
				So(f.ctrl.Unavailable(), ShouldNotBeNil)
			})

			Convey("And a later good step clears it", func() {
				fm.err = nil
				res, _, err := r.Step(ctx)
				So(err, ShouldBeNil)
				So(res.Predicted, ShouldEqual, "Alice")
				So(f.ctrl.Unavailable(), ShouldBeNil)
			})
		})

		Convey("When the frame source fails", func() {
			src.err = errors.New("camera busy")
			_, _, err := r.Step(ctx)
			So(errs.IsUnavailable(err), ShouldBeTrue)
			So(f.ctrl.Unavailable(), ShouldNotBeNil)
		})

		Convey("When no face model was initialized", func() {
			bare := session.NewRunner(nil, nil, f.ctrl, session.WithRunnerLogger(logger.Nop()))
			_, _, err := bare.Step(ctx)
			So(errors.Is(err, session.ErrNoFaceModel), ShouldBeTrue)
			So(errs.IsUnavailable(err), ShouldBeTrue)
		})
	})
}

func TestRunnerRun(t *testing.T) {
	Convey("Given a running loop", t, func() {
		f := newFixture(model.DefaultSettings())
		src := &scriptedSource{}
		r := session.NewRunner(src, &fixedModel{}, f.ctrl,
			session.WithInterval(time.Millisecond),
			session.WithRunnerLogger(logger.Nop()),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		Convey("When the context ends", func() {
			err := r.Run(ctx)

			Convey("Then Run returns the context error after stepping", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(src.n, ShouldBeGreaterThan, 0)
				So(f.ctrl.State(), ShouldEqual, session.Idle)
			})
		})
	})
}
