package api

import (
	"errors"
	"net/http"
	"strconv"
)

// LearningHandler exposes the feedback ledger, statistics, export and resets.
type LearningHandler struct {
	deps Dependencies
}

// NewLearningHandler creates a new learning handler.
func NewLearningHandler(deps Dependencies) *LearningHandler {
	return &LearningHandler{deps: deps}
}

// HandleHistory handles GET /feedback?limit=N requests. The service applies
// the default page size and the cap.
func (h *LearningHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.feedback_history"
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, errors.New("limit must be a positive integer")))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.deps.History(r.Context(), limit))
}

// HandleStats handles GET /stats requests.
func (h *LearningHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Stats(r.Context()))
}

// HandleExport handles GET /export requests with a download disposition.
func (h *LearningHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	exp := h.deps.Export(r.Context())
	w.Header().Set("Content-Disposition",
		`attachment; filename="face-recognition-data-`+exp.ExportDate.UTC().Format("2006-01-02")+`.json"`)
	writeJSON(w, http.StatusOK, exp)
}

// HandleResetLearning handles POST /reset/learning requests.
func (h *LearningHandler) HandleResetLearning(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.ResetLearning(r.Context()); err != nil {
		writeServiceError(w, "api.reset_learning", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleResetAll handles POST /reset/all requests.
func (h *LearningHandler) HandleResetAll(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.ResetAll(r.Context()); err != nil {
		writeServiceError(w, "api.reset_all", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
