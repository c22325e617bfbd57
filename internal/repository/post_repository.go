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

const postColumns = `id, author, content, comments, techniques, options, created_at, updated_at`

// PostRepository handles persistence for posts.
type PostRepository struct {
	db *pgxpool.Pool
}

// NewPostRepository constructs a PostRepository.
func NewPostRepository(db *pgxpool.Pool) *PostRepository {
	return &PostRepository{db: db}
}

func scanPost(row pgx.Row) (*model.Post, error) {
	var p model.Post
	var options []byte
	err := row.Scan(
		&p.ID, &p.Author, &p.Content, &p.Comments, &p.Techniques,
		&options, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Options = options
	if p.Comments == nil {
		p.Comments = []string{}
	}
	if p.Techniques == nil {
		p.Techniques = []string{}
	}
	return &p, nil
}

func collectPosts(rows pgx.Rows) ([]model.Post, error) {
	defer rows.Close()
	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// Create inserts a new post with empty comment and technique lists.
func (r *PostRepository) Create(ctx context.Context, author string, req model.CreatePostRequest) (*model.Post, error) {
	now := time.Now().UTC()
	post := &model.Post{
		ID:         uuid.New().String(),
		Author:     author,
		Content:    req.Content,
		Comments:   []string{},
		Techniques: []string{},
		Options:    req.Options,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO posts (`+postColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		post.ID, post.Author, post.Content, post.Comments, post.Techniques,
		[]byte(post.Options), post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return post, nil
}

// GetByID returns a single post or model.ErrNotFound.
func (r *PostRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

// List returns all posts, most recently modified first.
func (r *PostRepository) List(ctx context.Context) ([]model.Post, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return collectPosts(rows)
}

// ListByAuthor returns all posts by author.
func (r *PostRepository) ListByAuthor(ctx context.Context, author string) ([]model.Post, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+postColumns+` FROM posts WHERE author = $1 ORDER BY updated_at DESC`,
		author)
	if err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	return collectPosts(rows)
}

// Update applies a partial update to the post.
func (r *PostRepository) Update(ctx context.Context, id string, upd model.PostUpdate) error {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	upd.Apply(p)

	tag, err := r.db.Exec(ctx,
		`UPDATE posts
		 SET content = $2, comments = $3, techniques = $4, options = $5, updated_at = $6
		 WHERE id = $1`,
		id, p.Content, p.Comments, p.Techniques, []byte(p.Options), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// AddComment appends a comment reference to the post.
func (r *PostRepository) AddComment(ctx context.Context, postID, commentID string) error {
	return r.appendRef(ctx, postID, "comments", commentID)
}

// AddTechnique appends a tag reference to the post.
func (r *PostRepository) AddTechnique(ctx context.Context, postID, tagID string) error {
	return r.appendRef(ctx, postID, "techniques", tagID)
}

func (r *PostRepository) appendRef(ctx context.Context, postID, column, refID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE posts SET `+column+` = array_append(`+column+`, $2), updated_at = $3 WHERE id = $1`,
		postID, refID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append %s to post: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete permanently removes the post.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
