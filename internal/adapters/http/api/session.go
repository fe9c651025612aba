package api

import (
	"net/http"

	"github.com/okian/visage/internal/domain/model"
)

type feedbackRequest struct {
	Type       string `json:"type"`
	ActualName string `json:"actual_name"`
}

type feedbackResponse struct {
	Feedback  model.Feedback `json:"feedback"`
	Stats     model.Stats    `json:"stats"`
	Threshold *thresholdView `json:"threshold,omitempty"`
	Enrolled  *model.Person  `json:"enrolled,omitempty"`
}

type thresholdView struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// SessionHandler exposes the recognition session and its feedback.
type SessionHandler struct {
	deps Dependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Dependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleGetSession handles GET /session requests.
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Current(r.Context()))
}

// HandlePostFeedback handles POST /feedback requests.
func (h *SessionHandler) HandlePostFeedback(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_feedback"
	var req feedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	typ, err := model.ParseFeedbackType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	if typ == model.Corrected {
		if err := requireName(req.ActualName); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
			return
		}
	}

	out, err := h.deps.Feedback(r.Context(), typ, req.ActualName)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	resp := feedbackResponse{Feedback: out.Feedback, Stats: out.Stats, Enrolled: out.Enrolled}
	if out.Adjustment != nil {
		resp.Threshold = &thresholdView{Name: out.Adjustment.Name, Value: out.Adjustment.Value}
	}
	writeJSON(w, http.StatusOK, resp)
}
