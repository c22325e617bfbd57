// Package testkit provides in-memory store implementations for tests.
// They satisfy the service store interfaces and run the same model
// validation as the Postgres stores, with a mutex standing in for the
// row-level locks.
package testkit

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dojoverse/dojo/internal/model"
)

// MemEventStore is an in-memory service.EventStore.
type MemEventStore struct {
	mu     sync.Mutex
	events map[string]*model.Event
	seq    map[string]int64
	next   int64

	// FailSetStatus makes SetStatus fail for specific event ids, for
	// exercising sweep failure isolation.
	FailSetStatus map[string]error
}

// NewMemEventStore constructs an empty MemEventStore.
func NewMemEventStore() *MemEventStore {
	return &MemEventStore{
		events: make(map[string]*model.Event),
		seq:    make(map[string]int64),
	}
}

func (s *MemEventStore) touch(id string) {
	s.next++
	s.seq[id] = s.next
	s.events[id].UpdatedAt = time.Now().UTC()
}

func cloneEvent(e *model.Event) *model.Event {
	c := *e
	c.Roster = slices.Clone(e.Roster)
	c.Options = slices.Clone(e.Options)
	return &c
}

// Create inserts a new active event with an empty roster.
func (s *MemEventStore) Create(_ context.Context, organizer string, req model.CreateEventRequest) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	e := &model.Event{
		ID:        uuid.New().String(),
		Organizer: organizer,
		Content:   req.Content,
		Capacity:  req.Capacity,
		Roster:    []string{},
		Start:     req.Start,
		End:       req.End,
		Status:    model.StatusActive,
		Options:   req.Options,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.events[e.ID] = e
	s.touch(e.ID)
	return cloneEvent(e), nil
}

// GetByID returns the event or model.ErrNotFound.
func (s *MemEventStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (s *MemEventStore) list(match func(*model.Event) bool) []model.Event {
	ids := make([]string, 0, len(s.events))
	for id, e := range s.events {
		if match(e) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return s.seq[ids[i]] > s.seq[ids[j]] })

	out := make([]model.Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, *cloneEvent(s.events[id]))
	}
	return out
}

// List returns all events, most recently modified first.
func (s *MemEventStore) List(context.Context) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(*model.Event) bool { return true }), nil
}

// ListActive returns all active events.
func (s *MemEventStore) ListActive(context.Context) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(e *model.Event) bool { return e.Status == model.StatusActive }), nil
}

// ListByOrganizer returns all events owned by organizer.
func (s *MemEventStore) ListByOrganizer(_ context.Context, organizer string) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(e *model.Event) bool { return e.Organizer == organizer }), nil
}

// ListActiveByOrganizer returns active events owned by organizer.
func (s *MemEventStore) ListActiveByOrganizer(_ context.Context, organizer string) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(e *model.Event) bool {
		return e.Organizer == organizer && e.Status == model.StatusActive
	}), nil
}

// ListActiveByAttendee returns active events whose roster contains userID.
func (s *MemEventStore) ListActiveByAttendee(_ context.Context, userID string) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(e *model.Event) bool {
		return e.Status == model.StatusActive && slices.Contains(e.Roster, userID)
	}), nil
}

// ListExpiredActive returns ids of active events whose end has passed.
func (s *MemEventStore) ListExpiredActive(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, e := range s.events {
		if e.Status == model.StatusActive && e.End.Before(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Register validates and appends userID to the roster atomically.
func (s *MemEventStore) Register(_ context.Context, eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return model.ErrNotFound
	}
	if err := model.ValidateRegistration(e, userID); err != nil {
		return err
	}
	e.Roster = append(e.Roster, userID)
	s.touch(eventID)
	return nil
}

// Unregister removes userID from the roster, preserving order.
func (s *MemEventStore) Unregister(_ context.Context, eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return model.ErrNotFound
	}
	roster, found := model.RemoveFromRoster(e.Roster, userID)
	if !found {
		return model.ErrNotRegistered
	}
	e.Roster = roster
	s.touch(eventID)
	return nil
}

// SetStatus validates the transition edge and applies it.
func (s *MemEventStore) SetStatus(_ context.Context, eventID string, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.FailSetStatus[eventID]; ok {
		return err
	}
	e, found := s.events[eventID]
	if !found {
		return model.ErrNotFound
	}
	if !e.Status.CanTransition(status) {
		return model.ErrIllegalTransition
	}
	e.Status = status
	s.touch(eventID)
	return nil
}

// Update merges the partial update and re-validates invariants.
func (s *MemEventStore) Update(_ context.Context, eventID string, upd model.EventUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return model.ErrNotFound
	}
	merged := cloneEvent(e)
	if err := upd.Apply(merged); err != nil {
		return err
	}
	s.events[eventID] = merged
	s.touch(eventID)
	return nil
}

// Delete removes the event.
func (s *MemEventStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.events, id)
	delete(s.seq, id)
	return nil
}
