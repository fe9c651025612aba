package api

import (
	"net/http"
	"time"

	"github.com/okian/visage/internal/domain/model"
)

type enrollRequest struct {
	Name       string    `json:"name"`
	Descriptor []float64 `json:"descriptor,omitempty"`
}

// personView omits the descriptor from listings.
type personView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	DateAdded time.Time `json:"dateAdded"`
}

func viewOf(p model.Person) personView {
	return personView{ID: p.ID, Name: p.Name, DateAdded: p.DateAdded}
}

// PeopleHandler handles enrollment and listing of known people.
type PeopleHandler struct {
	deps Dependencies
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(deps Dependencies) *PeopleHandler {
	return &PeopleHandler{deps: deps}
}

// HandleListPeople handles GET /people requests.
func (h *PeopleHandler) HandleListPeople(w http.ResponseWriter, r *http.Request) {
	people := h.deps.People(r.Context())
	out := make([]personView, 0, len(people))
	for _, p := range people {
		out = append(out, viewOf(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleEnrollCurrent handles POST /people requests, enrolling the face
// currently in view.
func (h *PeopleHandler) HandleEnrollCurrent(w http.ResponseWriter, r *http.Request) {
	const op = "api.enroll_current"
	var req enrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	if err := requireName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	p, err := h.deps.EnrollCurrent(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(p))
}

// HandleEnrollDescriptor handles POST /people/descriptor requests.
func (h *PeopleHandler) HandleEnrollDescriptor(w http.ResponseWriter, r *http.Request) {
	const op = "api.enroll_descriptor"
	var req enrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	if err := requireName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	if err := validDescriptor(req.Descriptor); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	p, err := h.deps.EnrollDescriptor(r.Context(), req.Name, model.Descriptor(req.Descriptor))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(p))
}
