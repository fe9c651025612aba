package api

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/okian/visage/internal/domain/model"
)

// frameRequest mirrors the OpenAPI schema for POST /frames.
type frameRequest struct {
	FrameID    string             `json:"frame_id"`
	Detections []detectionRequest `json:"detections"`
}

type detectionRequest struct {
	Box         model.Box          `json:"box"`
	Descriptor  []float64          `json:"descriptor"`
	Expressions map[string]float64 `json:"expressions"`
}

func (f frameRequest) validate() error {
	for i, d := range f.Detections {
		if err := validDescriptor(d.Descriptor); err != nil {
			return fmt.Errorf("detections[%d]: %w", i, err)
		}
	}
	return nil
}

func (f frameRequest) frame() model.Frame {
	out := model.Frame{ID: f.FrameID, ReceivedAt: time.Now()}
	if len(f.Detections) > 0 {
		out.Detections = make([]model.Detection, 0, len(f.Detections))
	}
	for _, d := range f.Detections {
		out.Detections = append(out.Detections, model.Detection{
			Box:         d.Box,
			Descriptor:  model.Descriptor(d.Descriptor),
			Expressions: d.Expressions,
		})
	}
	return out
}

type ackResponse struct {
	Status    string `json:"status"`
	FrameID   string `json:"frame_id"`
	Duplicate bool   `json:"duplicate"`
}

// tickResponse carries the result of a synchronous tick. Distance is null
// when nobody is enrolled.
type tickResponse struct {
	State    string        `json:"state"`
	Result   *model.Result `json:"result,omitempty"`
	Distance *float64      `json:"distance,omitempty"`
}

// FramesHandler handles frame intake.
type FramesHandler struct {
	deps Dependencies
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(deps Dependencies) *FramesHandler {
	return &FramesHandler{deps: deps}
}

func (h *FramesHandler) decode(w http.ResponseWriter, r *http.Request, op string) (model.Frame, bool) {
	var req frameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return model.Frame{}, false
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return model.Frame{}, false
	}
	return req.frame(), true
}

// HandlePostFrame handles POST /frames requests.
func (h *FramesHandler) HandlePostFrame(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_frame"
	f, ok := h.decode(w, r, op)
	if !ok {
		return
	}
	id, duplicate, err := h.deps.SubmitFrame(r.Context(), f)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", FrameID: id, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", FrameID: id})
}

// HandleSyncFrame handles POST /frames/sync requests.
func (h *FramesHandler) HandleSyncFrame(w http.ResponseWriter, r *http.Request) {
	const op = "api.sync_frame"
	f, ok := h.decode(w, r, op)
	if !ok {
		return
	}
	res, state, err := h.deps.Tick(r.Context(), f)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	resp := tickResponse{State: state.String()}
	if len(f.Detections) > 0 {
		resp.Result = &res
		if !math.IsInf(res.Distance, 0) {
			d := res.Distance
			resp.Distance = &d
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
