// Package repository implements all database queries for the social
// backend. It uses pgx directly (no ORM) for transparency and
// performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dojoverse/dojo/internal/model"
)

const eventColumns = `id, organizer, content, capacity, roster, start_at, end_at, status, options, created_at, updated_at`

// EventRepository handles persistence for events. All roster and status
// mutations run inside a transaction that locks the event row with
// SELECT ... FOR UPDATE, so concurrent callers against the same event
// are serialised and the read-validate-write sequence is atomic.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	var options []byte
	err := row.Scan(
		&e.ID, &e.Organizer, &e.Content, &e.Capacity, &e.Roster,
		&e.Start, &e.End, &e.Status, &options, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Options = options
	if e.Roster == nil {
		e.Roster = []string{}
	}
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]model.Event, error) {
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Create inserts a new event in active status with an empty roster and
// returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, organizer string, req model.CreateEventRequest) (*model.Event, error) {
	now := time.Now().UTC()
	event := &model.Event{
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

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, event.Organizer, event.Content, event.Capacity, event.Roster,
		event.Start, event.End, event.Status, []byte(event.Options),
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// GetByID returns a single event or model.ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns all events, most recently modified first.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collectEvents(rows)
}

// ListActive returns all active events, most recently modified first.
func (r *EventRepository) ListActive(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE status = $1 ORDER BY updated_at DESC`,
		model.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active events: %w", err)
	}
	return collectEvents(rows)
}

// ListByOrganizer returns all events created by organizer.
func (r *EventRepository) ListByOrganizer(ctx context.Context, organizer string) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE organizer = $1 ORDER BY updated_at DESC`,
		organizer)
	if err != nil {
		return nil, fmt.Errorf("list events by organizer: %w", err)
	}
	return collectEvents(rows)
}

// ListActiveByOrganizer returns organizer's events that are still active.
func (r *EventRepository) ListActiveByOrganizer(ctx context.Context, organizer string) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE organizer = $1 AND status = $2
		 ORDER BY updated_at DESC`,
		organizer, model.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active events by organizer: %w", err)
	}
	return collectEvents(rows)
}

// ListActiveByAttendee returns active events whose roster contains
// userID. Membership is filtered store-side against the GIN index
// rather than by loading every event and scanning in memory.
func (r *EventRepository) ListActiveByAttendee(ctx context.Context, userID string) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE status = $1 AND $2 = ANY(roster)
		 ORDER BY updated_at DESC`,
		model.StatusActive, userID)
	if err != nil {
		return nil, fmt.Errorf("list events by attendee: %w", err)
	}
	return collectEvents(rows)
}

// ListExpiredActive returns the ids of active events whose end has
// passed, the qualifying set for the status sweep.
func (r *EventRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM events WHERE status = $1 AND end_at < $2`,
		model.StatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("list expired events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// lockEvent reads the event row under an exclusive row-level lock.
func lockEvent(ctx context.Context, tx pgx.Tx, id string) (*model.Event, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	return e, nil
}

// Register appends userID to the event's roster after validating, in
// order, that the event is not full, the user is not already a member,
// and the user is not the organizer. The row lock makes the checks and
// the append atomic against concurrent registrations.
func (r *EventRepository) Register(ctx context.Context, eventID, userID string) error {
	return r.withEventLock(ctx, eventID, func(ctx context.Context, tx pgx.Tx, ev *model.Event) error {
		if err := model.ValidateRegistration(ev, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE events SET roster = array_append(roster, $2), updated_at = $3 WHERE id = $1`,
			eventID, userID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("append to roster: %w", err)
		}
		return nil
	})
}

// Unregister removes userID from the roster, preserving the relative
// order of the remaining members.
func (r *EventRepository) Unregister(ctx context.Context, eventID, userID string) error {
	return r.withEventLock(ctx, eventID, func(ctx context.Context, tx pgx.Tx, ev *model.Event) error {
		roster, ok := model.RemoveFromRoster(ev.Roster, userID)
		if !ok {
			return model.ErrNotRegistered
		}
		_, err := tx.Exec(ctx,
			`UPDATE events SET roster = $2, updated_at = $3 WHERE id = $1`,
			eventID, roster, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("remove from roster: %w", err)
		}
		return nil
	})
}

// SetStatus transitions the event's status, validating the edge from
// the current status under the row lock. Illegal transitions fail with
// model.ErrIllegalTransition.
func (r *EventRepository) SetStatus(ctx context.Context, eventID string, status model.Status) error {
	return r.withEventLock(ctx, eventID, func(ctx context.Context, tx pgx.Tx, ev *model.Event) error {
		if !ev.Status.CanTransition(status) {
			return model.ErrIllegalTransition
		}
		_, err := tx.Exec(ctx,
			`UPDATE events SET status = $2, updated_at = $3 WHERE id = $1`,
			eventID, status, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
}

// Update applies a partial update under the row lock. The merged state
// is re-validated (status edge, window ordering, capacity vs roster,
// roster contents) before the write.
func (r *EventRepository) Update(ctx context.Context, eventID string, upd model.EventUpdate) error {
	return r.withEventLock(ctx, eventID, func(ctx context.Context, tx pgx.Tx, ev *model.Event) error {
		if err := upd.Apply(ev); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE events
			 SET content = $2, capacity = $3, roster = $4, start_at = $5,
			     end_at = $6, status = $7, options = $8, updated_at = $9
			 WHERE id = $1`,
			eventID, ev.Content, ev.Capacity, ev.Roster, ev.Start, ev.End,
			ev.Status, []byte(ev.Options), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		return nil
	})
}

// Delete permanently removes the event. No tombstone is kept.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// withEventLock runs fn inside a transaction holding the row lock for
// eventID, committing on success and rolling back on any error.
func (r *EventRepository) withEventLock(ctx context.Context, eventID string, fn func(context.Context, pgx.Tx, *model.Event) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ev, err := lockEvent(ctx, tx, eventID)
	if err != nil {
		return err
	}
	if err = fn(ctx, tx, ev); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
