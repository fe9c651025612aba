package api

import (
	"errors"
	"net/http"

	"github.com/okian/visage/internal/domain/model"
)

// settingsRequest uses pointers so a PUT may change a single field.
type settingsRequest struct {
	ConfidenceThreshold *float64 `json:"confidenceThreshold"`
	ShowExpressions     *bool    `json:"showExpressions"`
	AdaptiveLearning    *bool    `json:"adaptiveLearning"`
}

func (s settingsRequest) merge(cur model.Settings) (model.Settings, error) {
	if s.ConfidenceThreshold == nil && s.ShowExpressions == nil && s.AdaptiveLearning == nil {
		return cur, errors.New("no settings supplied")
	}
	if s.ConfidenceThreshold != nil {
		cur.ConfidenceThreshold = *s.ConfidenceThreshold
	}
	if s.ShowExpressions != nil {
		cur.ShowExpressions = *s.ShowExpressions
	}
	if s.AdaptiveLearning != nil {
		cur.AdaptiveLearning = *s.AdaptiveLearning
	}
	return cur, nil
}

// SettingsHandler reads and updates operator settings.
type SettingsHandler struct {
	deps Dependencies
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(deps Dependencies) *SettingsHandler {
	return &SettingsHandler{deps: deps}
}

// HandleGetSettings handles GET /settings requests.
func (h *SettingsHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Settings(r.Context()))
}

// HandlePutSettings handles PUT /settings requests.
func (h *SettingsHandler) HandlePutSettings(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_settings"
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	next, err := req.merge(h.deps.Settings(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	saved, err := h.deps.UpdateSettings(r.Context(), next)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
