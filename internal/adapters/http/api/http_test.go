package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/visage/internal/adapters/http/api"
	"github.com/okian/visage/internal/adapters/mq/queue"
	"github.com/okian/visage/internal/domain/model"
	"github.com/okian/visage/internal/domain/session"
	"github.com/okian/visage/pkg/errs"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps records calls and returns canned values.
type mockDeps struct {
	seen      map[string]bool
	submitErr error
	submitted []model.Frame

	tickResult model.Result
	tickState  session.State
	tickErr    error

	feedbackErr  error
	lastFeedback model.FeedbackType
	lastActual   string

	enrollErr error
	people    []model.Person

	historyLimit int
	history      []model.Feedback

	settings  model.Settings
	updateErr error
	resets    []string
}

func newMockDeps() *mockDeps {
	return &mockDeps{seen: map[string]bool{}, settings: model.DefaultSettings()}
}

func (m *mockDeps) SubmitFrame(_ context.Context, f model.Frame) (string, bool, error) {
	if m.submitErr != nil {
		return f.ID, false, m.submitErr
	}
	if f.ID == "" {
		f.ID = "generated"
	}
	if m.seen[f.ID] {
		return f.ID, true, nil
	}
	m.seen[f.ID] = true
	m.submitted = append(m.submitted, f)
	return f.ID, false, nil
}

func (m *mockDeps) Tick(context.Context, model.Frame) (model.Result, session.State, error) {
	return m.tickResult, m.tickState, m.tickErr
}

func (m *mockDeps) Current(context.Context) model.SessionSnapshot {
	return model.SessionSnapshot{State: "idle", Settings: m.settings}
}

func (m *mockDeps) Feedback(_ context.Context, typ model.FeedbackType, actual string) (session.Outcome, error) {
	if m.feedbackErr != nil {
		return session.Outcome{}, m.feedbackErr
	}
	m.lastFeedback, m.lastActual = typ, actual
	return session.Outcome{
		Feedback:   model.Feedback{ID: "fb-1", Type: typ, Predicted: "Alice", Actual: actual},
		Stats:      model.Stats{TotalFeedback: 1, CorrectCount: 1, Accuracy: 1},
		Adjustment: &session.Adjustment{Name: "Alice", Value: 0.58},
	}, nil
}

func (m *mockDeps) EnrollCurrent(_ context.Context, name string) (model.Person, error) {
	if m.enrollErr != nil {
		return model.Person{}, m.enrollErr
	}
	p := model.Person{ID: "p-1", Name: name}
	m.people = append(m.people, p)
	return p, nil
}

func (m *mockDeps) EnrollDescriptor(_ context.Context, name string, d model.Descriptor) (model.Person, error) {
	if m.enrollErr != nil {
		return model.Person{}, m.enrollErr
	}
	p := model.Person{ID: "p-2", Name: name, Descriptor: d}
	m.people = append(m.people, p)
	return p, nil
}

func (m *mockDeps) People(context.Context) []model.Person { return m.people }

func (m *mockDeps) History(_ context.Context, limit int) []model.Feedback {
	m.historyLimit = limit
	return m.history
}

func (m *mockDeps) Stats(context.Context) model.LearningReport {
	return model.LearningReport{Stats: model.Stats{Accuracy: model.NoAccuracy}, AccuracyCurve: []float64{}, GlobalThreshold: 0.6}
}

func (m *mockDeps) Export(context.Context) model.Export {
	return model.Export{ExportDate: time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)}
}

func (m *mockDeps) ResetLearning(context.Context) error {
	m.resets = append(m.resets, "learning")
	return nil
}

func (m *mockDeps) ResetAll(context.Context) error {
	m.resets = append(m.resets, "all")
	return nil
}

func (m *mockDeps) Settings(context.Context) model.Settings { return m.settings }

func (m *mockDeps) UpdateSettings(_ context.Context, s model.Settings) (model.Settings, error) {
	if m.updateErr != nil {
		return model.Settings{}, m.updateErr
	}
	m.settings = s
	return s, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any { return m.stats }

func newMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}}).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

const aliceFrame = `{"frame_id":"f-1","detections":[{"box":{"x":1,"y":2,"width":3,"height":4},"descriptor":[0.1,0.2,0.3],"expressions":{"happy":0.9}}]}`

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(newMockDeps())

		Convey("Then the health endpoint serves metrics", func() {
			w := do(mux, "GET", "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the status endpoint serves service stats", func() {
			w := do(mux, "GET", "/status", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("Then unknown paths are not found", func() {
			So(do(mux, "GET", "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are rejected", func() {
			So(do(mux, "DELETE", "/frames", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Then a nil mux panics", func() {
			So(func() { api.NewServer(newMockDeps(), &mockStatsProvider{}).Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}

func TestFrames(t *testing.T) {
	Convey("Given the frames endpoints", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When a valid frame is posted", func() {
			w := do(mux, "POST", "/frames", aliceFrame)

			Convey("Then it is accepted and converted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(decode(w)["frame_id"], ShouldEqual, "f-1")
				So(deps.submitted, ShouldHaveLength, 1)
				det := deps.submitted[0].Detections[0]
				So(det.Descriptor, ShouldResemble, model.Descriptor{0.1, 0.2, 0.3})
				So(det.Box.Width, ShouldEqual, 3.0)
				So(det.Expressions["happy"], ShouldEqual, 0.9)
			})

			Convey("And posting it again is a duplicate", func() {
				w := do(mux, "POST", "/frames", aliceFrame)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["duplicate"], ShouldEqual, true)
			})
		})

		Convey("When a frame without faces is posted", func() {
			w := do(mux, "POST", "/frames", `{"frame_id":"empty","detections":[]}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)
		})

		Convey("When the body is malformed", func() {
			w := do(mux, "POST", "/frames", `{"frame_id":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("When a detection has no descriptor", func() {
			w := do(mux, "POST", "/frames", `{"detections":[{"descriptor":[]}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("When the queue is full", func() {
			deps.submitErr = fmt.Errorf("enqueue frame f-1: %w", queue.ErrFull)
			w := do(mux, "POST", "/frames", aliceFrame)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decode(w)["code"], ShouldEqual, "backpressure")
		})

		Convey("When the service is not running", func() {
			deps.submitErr = errs.New("service.submit", errs.ErrResourceUnavailable)
			So(do(mux, "POST", "/frames", aliceFrame).Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When a frame is ticked synchronously", func() {
			deps.tickResult = model.Result{Predicted: "Alice", Confidence: 0.9, Distance: 0.1, Threshold: 0.6}
			deps.tickState = session.AwaitingFeedback
			w := do(mux, "POST", "/frames/sync", aliceFrame)

			Convey("Then the result and distance are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["state"], ShouldEqual, "awaiting_feedback")
				So(body["distance"], ShouldEqual, 0.1)
				So(body["result"].(map[string]any)["predicted"], ShouldEqual, "Alice")
			})
		})

		Convey("When a sync tick runs against an empty store", func() {
			deps.tickResult = model.Result{Predicted: model.Unknown, Distance: math.Inf(1)}
			deps.tickState = session.AwaitingFeedback
			w := do(mux, "POST", "/frames/sync", aliceFrame)

			Convey("Then the infinite distance is omitted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				_, ok := decode(w)["distance"]
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the face model is unavailable", func() {
			deps.tickErr = errs.Wrap("session.tick", errs.ErrResourceUnavailable, errors.New("model missing"))
			w := do(mux, "POST", "/frames/sync", aliceFrame)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(w)["code"], ShouldEqual, "unavailable")
		})
	})
}

func TestFeedback(t *testing.T) {
	Convey("Given the feedback endpoint", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When confirming", func() {
			w := do(mux, "POST", "/feedback", `{"type":"confirmed"}`)

			Convey("Then the outcome is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastFeedback, ShouldEqual, model.Confirmed)
				body := decode(w)
				So(body["threshold"].(map[string]any)["value"], ShouldEqual, 0.58)
			})
		})

		Convey("When correcting with the legacy type name", func() {
			w := do(mux, "POST", "/feedback", `{"type":"incorrect","actual_name":"Bob"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastFeedback, ShouldEqual, model.Corrected)
			So(deps.lastActual, ShouldEqual, "Bob")
		})

		Convey("When correcting without a name", func() {
			w := do(mux, "POST", "/feedback", `{"type":"corrected","actual_name":"  "}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.lastFeedback, ShouldEqual, model.FeedbackType(""))
		})

		Convey("When the type is unknown", func() {
			So(do(mux, "POST", "/feedback", `{"type":"maybe"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When nothing awaits feedback", func() {
			deps.feedbackErr = errs.New("session.confirm", errs.ErrNoOpenResult)
			w := do(mux, "POST", "/feedback", `{"type":"confirmed"}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decode(w)["code"], ShouldEqual, "no_open_result")
		})
	})
}

func TestPeople(t *testing.T) {
	Convey("Given the people endpoints", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When enrolling the current face", func() {
			w := do(mux, "POST", "/people", `{"name":"Alice"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)

			Convey("Then the listing omits descriptors", func() {
				w := do(mux, "GET", "/people", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"name":"Alice"`)
				So(w.Body.String(), ShouldNotContainSubstring, "descriptor")
			})
		})

		Convey("When no face is in view", func() {
			deps.enrollErr = errs.Input("session.enroll", "no face detected")
			So(do(mux, "POST", "/people", `{"name":"Alice"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When enrolling a descriptor", func() {
			w := do(mux, "POST", "/people/descriptor", `{"name":"Bob","descriptor":[0.5,0.5,0.5]}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			So(deps.people[0].Descriptor, ShouldResemble, model.Descriptor{0.5, 0.5, 0.5})
		})

		Convey("When the descriptor has the wrong dimension", func() {
			deps.enrollErr = errs.Wrap("descriptors.enroll", errs.ErrConfiguration, errors.New("dimension 3, want 128"))
			So(do(mux, "POST", "/people/descriptor", `{"name":"Bob","descriptor":[0.5,0.5,0.5]}`).Code,
				ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("When the name is missing", func() {
			So(do(mux, "POST", "/people/descriptor", `{"descriptor":[0.5]}`).Code, ShouldEqual, http.StatusBadRequest)
			So(deps.people, ShouldBeEmpty)
		})
	})
}

func TestLearningEndpoints(t *testing.T) {
	Convey("Given the learning endpoints", t, func() {
		deps := newMockDeps()
		deps.history = []model.Feedback{{ID: "a"}, {ID: "b"}}
		mux := newMux(deps)

		Convey("When reading history without a limit", func() {
			w := do(mux, "GET", "/feedback", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.historyLimit, ShouldEqual, 0)
		})

		Convey("When reading history with a limit", func() {
			So(do(mux, "GET", "/feedback?limit=25", "").Code, ShouldEqual, http.StatusOK)
			So(deps.historyLimit, ShouldEqual, 25)
		})

		Convey("When the limit is invalid", func() {
			So(do(mux, "GET", "/feedback?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/feedback?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When reading stats with no feedback", func() {
			w := do(mux, "GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["accuracy"], ShouldEqual, -1.0)
			So(body["globalThreshold"], ShouldEqual, 0.6)
		})

		Convey("When exporting", func() {
			w := do(mux, "GET", "/export", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "face-recognition-data-2024-03-09.json")
			So(decode(w), ShouldContainKey, "feedbackDatabase")
		})

		Convey("When resetting", func() {
			So(do(mux, "POST", "/reset/learning", "").Code, ShouldEqual, http.StatusNoContent)
			So(do(mux, "POST", "/reset/all", "").Code, ShouldEqual, http.StatusNoContent)
			So(deps.resets, ShouldResemble, []string{"learning", "all"})
		})
	})
}

func TestSettings(t *testing.T) {
	Convey("Given the settings endpoints", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When reading settings", func() {
			w := do(mux, "GET", "/settings", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["confidenceThreshold"], ShouldEqual, 0.6)
		})

		Convey("When updating one field", func() {
			w := do(mux, "PUT", "/settings", `{"showExpressions":false}`)

			Convey("Then the others are kept", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.settings.ShowExpressions, ShouldBeFalse)
				So(deps.settings.ConfidenceThreshold, ShouldEqual, 0.6)
				So(deps.settings.AdaptiveLearning, ShouldBeTrue)
			})
		})

		Convey("When the body is empty", func() {
			So(do(mux, "PUT", "/settings", `{}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the service rejects the value", func() {
			deps.updateErr = errs.Input("service.settings", "confidenceThreshold must be within [0,1]")
			So(do(mux, "PUT", "/settings", `{"confidenceThreshold":2}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
