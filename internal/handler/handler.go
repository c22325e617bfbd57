// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dojoverse/dojo/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps the domain error taxonomy to HTTP statuses so
// clients can render precise messages. Errors outside the taxonomy get
// the fallback status (400 for request-shaped operations, 500 for
// reads).
func writeServiceError(w http.ResponseWriter, err error, fallback int) {
	status := fallback

	var fieldErr *model.FieldNotAllowedError
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrNoSession):
		status = http.StatusUnauthorized
	case errors.Is(err, model.ErrOrganizerMismatch),
		errors.Is(err, model.ErrAuthorMismatch),
		errors.Is(err, model.ErrOrganizerCannotRegister):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrEventFull),
		errors.Is(err, model.ErrAlreadyRegistered),
		errors.Is(err, model.ErrNotRegistered),
		errors.Is(err, model.ErrIllegalTransition),
		errors.Is(err, model.ErrCapacityBelowRoster):
		status = http.StatusConflict
	case errors.Is(err, model.ErrInvalidWindow), errors.As(err, &fieldErr):
		status = http.StatusBadRequest
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, msg)
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
