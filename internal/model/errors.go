package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoSession is returned when a request carries no resolvable session.
var ErrNoSession = errors.New("no active session")

// ErrEventFull is returned when an event's roster is at capacity.
var ErrEventFull = errors.New("event is already full")

// ErrAlreadyRegistered is returned when a roster member registers twice.
var ErrAlreadyRegistered = errors.New("user is already registered for this event")

// ErrNotRegistered is returned when unregistering a non-member.
var ErrNotRegistered = errors.New("user is not registered for this event")

// ErrOrganizerCannotRegister is returned when an organizer attempts to
// join their own roster.
var ErrOrganizerCannotRegister = errors.New("organizer cannot register for their own event")

// ErrOrganizerMismatch is returned when a caller performs an
// organizer-only action on someone else's event.
var ErrOrganizerMismatch = errors.New("user is not the organizer of this event")

// ErrAuthorMismatch is returned when a caller mutates someone else's
// post, comment or tag.
var ErrAuthorMismatch = errors.New("user is not the author")

// ErrIllegalTransition is returned for a status change that is not one
// of the allowed edges (active->complete, active->cancelled).
var ErrIllegalTransition = errors.New("illegal status transition")

// ErrCapacityBelowRoster is returned when an update would shrink
// capacity below the current roster size.
var ErrCapacityBelowRoster = errors.New("capacity cannot be below current roster size")

// ErrInvalidWindow is returned when an event window would not satisfy
// end > start.
var ErrInvalidWindow = errors.New("event end must be after start")

// FieldNotAllowedError is returned when a partial update touches a
// field outside the mutable allow-list.
type FieldNotAllowedError struct {
	Field string
}

func (e *FieldNotAllowedError) Error() string {
	return fmt.Sprintf("cannot update %q field", e.Field)
}
