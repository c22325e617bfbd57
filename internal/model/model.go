// Package model defines the core domain types for the social backend:
// events with capacity-bounded rosters, posts, comments and tags.
package model

import (
	"encoding/json"
	"slices"
	"time"
)

// Status is the lifecycle state of an event.
type Status string

const (
	StatusActive    Status = "active"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusComplete || s == StatusCancelled
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled
}

// CanTransition reports whether the edge s -> to is allowed. The only
// legal edges are active -> complete and active -> cancelled.
func (s Status) CanTransition(to Status) bool {
	return s == StatusActive && (to == StatusComplete || to == StatusCancelled)
}

// Event represents a capacity-bounded, time-windowed gathering owned by
// an organizer. The organizer is never a roster member.
type Event struct {
	ID        string          `json:"id"`
	Organizer string          `json:"organizer"`
	Content   string          `json:"content"`
	Capacity  int             `json:"capacity"`
	Roster    []string        `json:"roster"`
	Start     time.Time       `json:"start"`
	End       time.Time       `json:"end"`
	Status    Status          `json:"status"`
	Options   json.RawMessage `json:"options,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Remaining returns the number of available roster slots.
func (e *Event) Remaining() int {
	return e.Capacity - len(e.Roster)
}

// IsFull returns true when no slots remain.
func (e *Event) IsFull() bool {
	return len(e.Roster) >= e.Capacity
}

// IsRegistered reports whether userID is on the roster. Membership is an
// explicit containment scan over canonical identifier strings.
func (e *Event) IsRegistered(userID string) bool {
	return slices.Contains(e.Roster, userID)
}

// ValidateRegistration checks the three admission rules for adding
// userID to the roster, in order: the event must not be full, the user
// must not already be a member, and the user must not be the organizer.
// Both the Postgres store and the in-memory store call this under their
// respective per-event exclusion, so the checks are atomic with the
// append that follows.
func ValidateRegistration(e *Event, userID string) error {
	if e.IsFull() {
		return ErrEventFull
	}
	if e.IsRegistered(userID) {
		return ErrAlreadyRegistered
	}
	if e.Organizer == userID {
		return ErrOrganizerCannotRegister
	}
	return nil
}

// RemoveFromRoster returns a copy of roster with userID removed,
// preserving the relative order of the remaining members. The second
// return value is false when userID was not a member.
func RemoveFromRoster(roster []string, userID string) ([]string, bool) {
	i := slices.Index(roster, userID)
	if i < 0 {
		return roster, false
	}
	out := make([]string, 0, len(roster)-1)
	out = append(out, roster[:i]...)
	out = append(out, roster[i+1:]...)
	return out, true
}

// EventUpdate is a partial update of an event's mutable fields. Nil
// fields are left untouched.
type EventUpdate struct {
	Content  *string
	Roster   *[]string
	Options  *json.RawMessage
	Capacity *int
	Start    *time.Time
	End      *time.Time
	Status   *Status
}

// Apply merges the update into ev and re-validates the event
// invariants on the merged state. Stores must call it while holding
// exclusive access to the event row so the validation and the write are
// atomic.
func (u EventUpdate) Apply(ev *Event) error {
	if u.Status != nil {
		if !ev.Status.CanTransition(*u.Status) {
			return ErrIllegalTransition
		}
		ev.Status = *u.Status
	}
	if u.Content != nil {
		ev.Content = *u.Content
	}
	if u.Options != nil {
		ev.Options = *u.Options
	}
	if u.Capacity != nil {
		ev.Capacity = *u.Capacity
	}
	if u.Start != nil {
		ev.Start = *u.Start
	}
	if u.End != nil {
		ev.End = *u.End
	}
	if u.Roster != nil {
		ev.Roster = slices.Clone(*u.Roster)
	}

	if !ev.End.After(ev.Start) {
		return ErrInvalidWindow
	}
	if len(ev.Roster) > ev.Capacity {
		return ErrCapacityBelowRoster
	}
	seen := make(map[string]struct{}, len(ev.Roster))
	for _, member := range ev.Roster {
		if member == ev.Organizer {
			return ErrOrganizerCannotRegister
		}
		if _, dup := seen[member]; dup {
			return ErrAlreadyRegistered
		}
		seen[member] = struct{}{}
	}
	return nil
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Content  string          `json:"content"`
	Capacity int             `json:"capacity"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Options  json.RawMessage `json:"options,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
