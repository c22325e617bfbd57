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

const tagColumns = `id, author, content, root, created_at, updated_at`

// TagRepository handles persistence for technique tags.
type TagRepository struct {
	db *pgxpool.Pool
}

// NewTagRepository constructs a TagRepository.
func NewTagRepository(db *pgxpool.Pool) *TagRepository {
	return &TagRepository{db: db}
}

func scanTag(row pgx.Row) (*model.Tag, error) {
	var t model.Tag
	err := row.Scan(&t.ID, &t.Author, &t.Content, &t.Root, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTags(rows pgx.Rows) ([]model.Tag, error) {
	defer rows.Close()
	var tags []model.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

// Create inserts a new tag rooted at a post.
func (r *TagRepository) Create(ctx context.Context, author, root, content string) (*model.Tag, error) {
	now := time.Now().UTC()
	t := &model.Tag{
		ID:        uuid.New().String(),
		Author:    author,
		Content:   content,
		Root:      root,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO tags (`+tagColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Author, t.Content, t.Root, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	return t, nil
}

// GetByID returns a single tag or model.ErrNotFound.
func (r *TagRepository) GetByID(ctx context.Context, id string) (*model.Tag, error) {
	row := r.db.QueryRow(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = $1`, id)
	t, err := scanTag(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return t, nil
}

// List returns all tags, most recently modified first.
func (r *TagRepository) List(ctx context.Context) ([]model.Tag, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+tagColumns+` FROM tags ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return collectTags(rows)
}

// ListByAuthor returns all tags created by author.
func (r *TagRepository) ListByAuthor(ctx context.Context, author string) ([]model.Tag, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE author = $1 ORDER BY updated_at DESC`,
		author)
	if err != nil {
		return nil, fmt.Errorf("list tags by author: %w", err)
	}
	return collectTags(rows)
}

// ListByRoot returns all tags on a post.
func (r *TagRepository) ListByRoot(ctx context.Context, root string) ([]model.Tag, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE root = $1 ORDER BY updated_at DESC`,
		root)
	if err != nil {
		return nil, fmt.Errorf("list tags by root: %w", err)
	}
	return collectTags(rows)
}

// Delete permanently removes the tag.
func (r *TagRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
