// Package service implements business logic, authorization, and
// orchestration between HTTP handlers and the store layer.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dojoverse/dojo/internal/model"
)

// EventService orchestrates the event lifecycle: creation, queries,
// roster registration, status transitions and the expiry sweep.
type EventService struct {
	store EventStore
	log   zerolog.Logger
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(store EventStore, log zerolog.Logger) *EventService {
	return &EventService{store: store, log: log}
}

// CreateEvent validates the request and creates an active event with an
// empty roster, owned by organizer. Validation of capacity and the time
// window happens here, not in the store.
func (s *EventService) CreateEvent(ctx context.Context, organizer string, req model.CreateEventRequest) (*model.Event, error) {
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return nil, fmt.Errorf("event content is required")
	}
	if req.Capacity <= 0 {
		return nil, fmt.Errorf("capacity must be a positive integer")
	}
	if req.Capacity > 100_000 {
		return nil, fmt.Errorf("capacity cannot exceed 100,000")
	}
	if !req.End.After(req.Start) {
		return nil, model.ErrInvalidWindow
	}
	return s.store.Create(ctx, organizer, req)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, model.ErrNotFound
	}
	return s.store.GetByID(ctx, id)
}

// ListEvents returns events, optionally restricted to one organizer
// and/or to active status, most recently modified first.
func (s *EventService) ListEvents(ctx context.Context, organizer string, activeOnly bool) ([]model.Event, error) {
	switch {
	case organizer != "" && activeOnly:
		return s.store.ListActiveByOrganizer(ctx, organizer)
	case organizer != "":
		return s.store.ListByOrganizer(ctx, organizer)
	case activeOnly:
		return s.store.ListActive(ctx)
	default:
		return s.store.List(ctx)
	}
}

// ListAttending returns the active events whose roster contains userID.
func (s *EventService) ListAttending(ctx context.Context, userID string) ([]model.Event, error) {
	return s.store.ListActiveByAttendee(ctx, userID)
}

// Register adds userID to the event's roster. The store enforces, in
// order: not full, not already registered, not the organizer.
func (s *EventService) Register(ctx context.Context, eventID, userID string) error {
	return s.store.Register(ctx, eventID, userID)
}

// Unregister removes userID from the event's roster. Users can only
// unregister themselves; the handler passes the session identity.
func (s *EventService) Unregister(ctx context.Context, eventID, userID string) error {
	return s.store.Unregister(ctx, eventID, userID)
}

// Roster returns the ordered attendee identifiers for the event.
func (s *EventService) Roster(ctx context.Context, eventID string) ([]string, error) {
	ev, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return ev.Roster, nil
}

// IsRegistered reports whether userID is on the event's roster.
func (s *EventService) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	ev, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return false, err
	}
	return ev.IsRegistered(userID), nil
}

// eventUpdateFields is the allow-list of mutable event fields. Updates
// naming any other field fail with FieldNotAllowedError.
var eventUpdateFields = map[string]struct{}{
	"content":  {},
	"roster":   {},
	"options":  {},
	"capacity": {},
	"start":    {},
	"end":      {},
	"status":   {},
}

// UpdateEvent applies a partial update on behalf of caller, who must be
// the organizer. The raw field set is checked against the allow-list
// here; the store re-validates the invariant-sensitive parts (status
// edges, window, capacity vs roster) under its per-event lock.
func (s *EventService) UpdateEvent(ctx context.Context, eventID, caller string, fields map[string]json.RawMessage) error {
	if err := s.assertOrganizer(ctx, caller, eventID); err != nil {
		return err
	}
	upd, err := parseEventUpdate(fields)
	if err != nil {
		return err
	}
	return s.store.Update(ctx, eventID, upd)
}

func parseEventUpdate(fields map[string]json.RawMessage) (model.EventUpdate, error) {
	var upd model.EventUpdate
	for key, raw := range fields {
		if _, ok := eventUpdateFields[key]; !ok {
			return model.EventUpdate{}, &model.FieldNotAllowedError{Field: key}
		}
		var err error
		switch key {
		case "content":
			var v string
			if err = json.Unmarshal(raw, &v); err == nil {
				upd.Content = &v
			}
		case "roster":
			var v []string
			if err = json.Unmarshal(raw, &v); err == nil {
				upd.Roster = &v
			}
		case "options":
			v := json.RawMessage(append([]byte(nil), raw...))
			upd.Options = &v
		case "capacity":
			var v int
			if err = json.Unmarshal(raw, &v); err == nil {
				if v <= 0 {
					return model.EventUpdate{}, fmt.Errorf("capacity must be a positive integer")
				}
				upd.Capacity = &v
			}
		case "start":
			var v time.Time
			if err = json.Unmarshal(raw, &v); err == nil {
				upd.Start = &v
			}
		case "end":
			var v time.Time
			if err = json.Unmarshal(raw, &v); err == nil {
				upd.End = &v
			}
		case "status":
			var v model.Status
			if err = json.Unmarshal(raw, &v); err == nil {
				if !v.Valid() {
					return model.EventUpdate{}, fmt.Errorf("unknown status %q", v)
				}
				upd.Status = &v
			}
		}
		if err != nil {
			return model.EventUpdate{}, fmt.Errorf("invalid %s field: %w", key, err)
		}
	}
	return upd, nil
}

// CancelEvent moves an active event to cancelled on behalf of its
// organizer. Cancelling an event that is already complete or cancelled
// fails with ErrIllegalTransition.
func (s *EventService) CancelEvent(ctx context.Context, eventID, caller string) error {
	if err := s.assertOrganizer(ctx, caller, eventID); err != nil {
		return err
	}
	return s.store.SetStatus(ctx, eventID, model.StatusCancelled)
}

// DeleteEvent permanently removes the event on behalf of its organizer.
func (s *EventService) DeleteEvent(ctx context.Context, eventID, caller string) error {
	if err := s.assertOrganizer(ctx, caller, eventID); err != nil {
		return err
	}
	return s.store.Delete(ctx, eventID)
}

// SweepStatuses advances every active event whose end has passed to
// complete. The qualifying set is collected first, then each transition
// is applied independently: one event's failure is logged and counted
// but does not abort the rest. Running the sweep twice in a row is a
// no-op the second time.
func (s *EventService) SweepStatuses(ctx context.Context) (completed, failed int, err error) {
	ids, err := s.store.ListExpiredActive(ctx, time.Now().UTC())
	if err != nil {
		return 0, 0, fmt.Errorf("list expired events: %w", err)
	}

	for _, id := range ids {
		if err := s.store.SetStatus(ctx, id, model.StatusComplete); err != nil {
			failed++
			s.log.Error().Err(err).Str("event_id", id).Msg("sweep: complete transition failed")
			continue
		}
		completed++
	}
	return completed, failed, nil
}

// assertOrganizer fails with ErrNotFound if the event is gone and
// ErrOrganizerMismatch if caller did not create it.
func (s *EventService) assertOrganizer(ctx context.Context, caller, eventID string) error {
	ev, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if ev.Organizer != caller {
		return model.ErrOrganizerMismatch
	}
	return nil
}
