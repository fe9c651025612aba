package api

import (
	"net/http"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatusHandler handles service status requests.
type StatusHandler struct {
	statsProvider StatsProvider
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(statsProvider StatsProvider) *StatusHandler {
	return &StatusHandler{statsProvider: statsProvider}
}

// HandleStatus handles GET /status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.statsProvider.GetStats())
}
