// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/okian/visage/internal/domain/model"
	"github.com/okian/visage/internal/domain/session"
)

// maxBodyBytes bounds request bodies. A 128-d descriptor is ~3KB of JSON.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SubmitFrame queues a frame. duplicate reports a recently seen id.
	SubmitFrame(ctx context.Context, f model.Frame) (id string, duplicate bool, err error)
	Tick(ctx context.Context, f model.Frame) (model.Result, session.State, error)
	Current(ctx context.Context) model.SessionSnapshot

	Feedback(ctx context.Context, typ model.FeedbackType, actual string) (session.Outcome, error)
	EnrollCurrent(ctx context.Context, name string) (model.Person, error)
	EnrollDescriptor(ctx context.Context, name string, d model.Descriptor) (model.Person, error)
	People(ctx context.Context) []model.Person

	History(ctx context.Context, limit int) []model.Feedback
	Stats(ctx context.Context) model.LearningReport
	Export(ctx context.Context) model.Export
	ResetLearning(ctx context.Context) error
	ResetAll(ctx context.Context) error

	Settings(ctx context.Context) model.Settings
	UpdateSettings(ctx context.Context, s model.Settings) (model.Settings, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statusHandler   *StatusHandler
	framesHandler   *FramesHandler
	sessionHandler  *SessionHandler
	peopleHandler   *PeopleHandler
	learningHandler *LearningHandler
	settingsHandler *SettingsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statusHandler:   NewStatusHandler(statsProvider),
		framesHandler:   NewFramesHandler(deps),
		sessionHandler:  NewSessionHandler(deps),
		peopleHandler:   NewPeopleHandler(deps),
		learningHandler: NewLearningHandler(deps),
		settingsHandler: NewSettingsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))

	mux.HandleFunc("POST /frames", MetricsMiddleware(s.framesHandler.HandlePostFrame, "frames"))
	mux.HandleFunc("POST /frames/sync", MetricsMiddleware(s.framesHandler.HandleSyncFrame, "frames_sync"))

	mux.HandleFunc("GET /session", MetricsMiddleware(s.sessionHandler.HandleGetSession, "session"))
	mux.HandleFunc("POST /feedback", MetricsMiddleware(s.sessionHandler.HandlePostFeedback, "feedback"))

	mux.HandleFunc("GET /people", MetricsMiddleware(s.peopleHandler.HandleListPeople, "people"))
	mux.HandleFunc("POST /people", MetricsMiddleware(s.peopleHandler.HandleEnrollCurrent, "people"))
	mux.HandleFunc("POST /people/descriptor", MetricsMiddleware(s.peopleHandler.HandleEnrollDescriptor, "people_descriptor"))

	mux.HandleFunc("GET /feedback", MetricsMiddleware(s.learningHandler.HandleHistory, "feedback_history"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.learningHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /export", MetricsMiddleware(s.learningHandler.HandleExport, "export"))
	mux.HandleFunc("POST /reset/learning", MetricsMiddleware(s.learningHandler.HandleResetLearning, "reset_learning"))
	mux.HandleFunc("POST /reset/all", MetricsMiddleware(s.learningHandler.HandleResetAll, "reset_all"))

	mux.HandleFunc("GET /settings", MetricsMiddleware(s.settingsHandler.HandleGetSettings, "settings"))
	mux.HandleFunc("PUT /settings", MetricsMiddleware(s.settingsHandler.HandlePutSettings, "settings"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// validDescriptor rejects empty descriptors and non-finite components.
func validDescriptor(d []float64) error {
	if len(d) == 0 {
		return errors.New("descriptor must not be empty")
	}
	for i, v := range d {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("descriptor[%d] is not finite", i)
		}
	}
	return nil
}

func requireName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("missing name")
	}
	return nil
}
