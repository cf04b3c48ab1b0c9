package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/unibike/campus-bikeshare/internal/engine"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeEngineError maps the engine's expected outcomes to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, engine.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrInsufficientBalance):
		status = http.StatusPaymentRequired
	case errors.Is(err, engine.ErrAlreadyRenting),
		errors.Is(err, engine.ErrBikeUnavailable),
		errors.Is(err, engine.ErrReservationConflict),
		errors.Is(err, engine.ErrCapacityExceeded),
		errors.Is(err, engine.ErrConflict):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}
