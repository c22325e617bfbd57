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

const commentColumns = `id, author, content, root, created_at, updated_at`

// CommentRepository handles persistence for comments.
type CommentRepository struct {
	db *pgxpool.Pool
}

// NewCommentRepository constructs a CommentRepository.
func NewCommentRepository(db *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{db: db}
}

func scanComment(row pgx.Row) (*model.Comment, error) {
	var c model.Comment
	err := row.Scan(&c.ID, &c.Author, &c.Content, &c.Root, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectComments(rows pgx.Rows) ([]model.Comment, error) {
	defer rows.Close()
	var comments []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// Create inserts a new comment rooted at a post.
func (r *CommentRepository) Create(ctx context.Context, author, root, content string) (*model.Comment, error) {
	now := time.Now().UTC()
	comment := &model.Comment{
		ID:        uuid.New().String(),
		Author:    author,
		Content:   content,
		Root:      root,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO comments (`+commentColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		comment.ID, comment.Author, comment.Content, comment.Root,
		comment.CreatedAt, comment.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

// GetByID returns a single comment or model.ErrNotFound.
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	c, err := scanComment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// List returns all comments, most recently modified first.
func (r *CommentRepository) List(ctx context.Context) ([]model.Comment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+commentColumns+` FROM comments ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return collectComments(rows)
}

// ListByAuthor returns all comments by author.
func (r *CommentRepository) ListByAuthor(ctx context.Context, author string) ([]model.Comment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE author = $1 ORDER BY updated_at DESC`,
		author)
	if err != nil {
		return nil, fmt.Errorf("list comments by author: %w", err)
	}
	return collectComments(rows)
}

// ListByRoot returns all comments on a post.
func (r *CommentRepository) ListByRoot(ctx context.Context, root string) ([]model.Comment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE root = $1 ORDER BY updated_at DESC`,
		root)
	if err != nil {
		return nil, fmt.Errorf("list comments by root: %w", err)
	}
	return collectComments(rows)
}

// UpdateContent replaces the comment's content, the only mutable field.
func (r *CommentRepository) UpdateContent(ctx context.Context, id, content string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE comments SET content = $2, updated_at = $3 WHERE id = $1`,
		id, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete permanently removes the comment.
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
