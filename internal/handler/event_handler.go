package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dojoverse/dojo/internal/model"
	"github.com/dojoverse/dojo/internal/service"
	"github.com/dojoverse/dojo/internal/session"
)

// EventHandler holds all HTTP handlers for the event API.
type EventHandler struct {
	svc *service.EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

func caller(r *http.Request) string {
	userID, _ := session.UserFromContext(r.Context())
	return userID
}

// CreateEvent handles POST /events
// The session user becomes the organizer.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), caller(r), req)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
// Optional filters: ?organizer=<id> and ?active=true.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	organizer := r.URL.Query().Get("organizer")
	activeOnly := r.URL.Query().Get("active") == "true"

	events, err := h.svc.ListEvents(r.Context(), organizer, activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// ListAttending handles GET /events/attending
// Returns active events the session user is registered for.
func (h *EventHandler) ListAttending(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListAttending(r.Context(), caller(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PATCH /events/{id}
// Applies a partial update; only the organizer may call it, and only
// the mutable allow-list fields are accepted.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var fields map[string]json.RawMessage
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.UpdateEvent(r.Context(), chi.URLParam(r, "id"), caller(r), fields); err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "event updated"})
}

// CancelEvent handles POST /events/{id}/cancel
func (h *EventHandler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelEvent(r.Context(), chi.URLParam(r, "id"), caller(r)); err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "event cancelled"})
}

// DeleteEvent handles DELETE /events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEvent(r.Context(), chi.URLParam(r, "id"), caller(r)); err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "event deleted"})
}

// Register handles POST /events/{id}/register
// Registers the session user for the event.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Register(r.Context(), chi.URLParam(r, "id"), caller(r)); err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"msg": "registered"})
}

// Unregister handles POST /events/{id}/unregister
// Removes the session user from the event's roster.
func (h *EventHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unregister(r.Context(), chi.URLParam(r, "id"), caller(r)); err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "unregistered"})
}

// Roster handles GET /events/{id}/roster
func (h *EventHandler) Roster(w http.ResponseWriter, r *http.Request) {
	roster, err := h.svc.Roster(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

// IsRegistered handles GET /events/{id}/registered
// Reports whether the session user is on the roster.
func (h *EventHandler) IsRegistered(w http.ResponseWriter, r *http.Request) {
	registered, err := h.svc.IsRegistered(r.Context(), chi.URLParam(r, "id"), caller(r))
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"registered": registered})
}

// Sweep handles POST /events/sweep
// Advances all expired active events to complete.
func (h *EventHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	completed, failed, err := h.svc.SweepStatuses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"completed": completed, "failed": failed})
}
