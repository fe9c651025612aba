package api

import (
	"errors"
	"net/http"

	"github.com/okian/visage/internal/adapters/mq/queue"
	"github.com/okian/visage/pkg/errs"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
)

// badRequest wraps a validation failure for op.
func badRequest(op string, err error) error {
	return errs.Wrap(op, ErrBadRequest, err)
}

// writeServiceError maps a service error onto an HTTP status and code.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errs.IsInput(err), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, errs.ErrNoOpenResult):
		writeError(w, http.StatusConflict, "no_open_result", err)
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", errs.Wrap(op, ErrBackpressure, err))
	case errs.IsUnavailable(err), errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errs.IsConfiguration(err):
		writeError(w, http.StatusUnprocessableEntity, "configuration", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", errs.Wrap(op, nil, err))
	}
}
