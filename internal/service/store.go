package service

import (
	"context"
	"time"

	"github.com/dojoverse/dojo/internal/model"
)

// EventStore is the persistence surface the event service depends on.
// Implementations must make Register, Unregister, SetStatus and Update
// atomic per event: the validation each performs and the write that
// follows may not interleave with another mutation of the same event.
// The Postgres implementation does this with row-level locks; the
// in-memory test implementation with a mutex.
type EventStore interface {
	Create(ctx context.Context, organizer string, req model.CreateEventRequest) (*model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	ListActive(ctx context.Context) ([]model.Event, error)
	ListByOrganizer(ctx context.Context, organizer string) ([]model.Event, error)
	ListActiveByOrganizer(ctx context.Context, organizer string) ([]model.Event, error)
	ListActiveByAttendee(ctx context.Context, userID string) ([]model.Event, error)
	ListExpiredActive(ctx context.Context, now time.Time) ([]string, error)
	Register(ctx context.Context, eventID, userID string) error
	Unregister(ctx context.Context, eventID, userID string) error
	SetStatus(ctx context.Context, eventID string, status model.Status) error
	Update(ctx context.Context, eventID string, upd model.EventUpdate) error
	Delete(ctx context.Context, id string) error
}

// PostStore is the persistence surface for posts.
type PostStore interface {
	Create(ctx context.Context, author string, req model.CreatePostRequest) (*model.Post, error)
	GetByID(ctx context.Context, id string) (*model.Post, error)
	List(ctx context.Context) ([]model.Post, error)
	ListByAuthor(ctx context.Context, author string) ([]model.Post, error)
	Update(ctx context.Context, id string, upd model.PostUpdate) error
	AddComment(ctx context.Context, postID, commentID string) error
	AddTechnique(ctx context.Context, postID, tagID string) error
	Delete(ctx context.Context, id string) error
}

// CommentStore is the persistence surface for comments.
type CommentStore interface {
	Create(ctx context.Context, author, root, content string) (*model.Comment, error)
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	List(ctx context.Context) ([]model.Comment, error)
	ListByAuthor(ctx context.Context, author string) ([]model.Comment, error)
	ListByRoot(ctx context.Context, root string) ([]model.Comment, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
}

// TagStore is the persistence surface for technique tags.
type TagStore interface {
	Create(ctx context.Context, author, root, content string) (*model.Tag, error)
	GetByID(ctx context.Context, id string) (*model.Tag, error)
	List(ctx context.Context) ([]model.Tag, error)
	ListByAuthor(ctx context.Context, author string) ([]model.Tag, error)
	ListByRoot(ctx context.Context, root string) ([]model.Tag, error)
	Delete(ctx context.Context, id string) error
}
