package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dojoverse/dojo/internal/model"
)

// FeedService orchestrates the author-gated CRUD concepts: posts, the
// comments rooted at them, and technique tags.
type FeedService struct {
	posts    PostStore
	comments CommentStore
	tags     TagStore
	log      zerolog.Logger
}

// NewFeedService constructs a FeedService with its dependencies.
func NewFeedService(posts PostStore, comments CommentStore, tags TagStore, log zerolog.Logger) *FeedService {
	return &FeedService{posts: posts, comments: comments, tags: tags, log: log}
}

// CreatePost creates a post owned by author.
func (s *FeedService) CreatePost(ctx context.Context, author string, req model.CreatePostRequest) (*model.Post, error) {
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return nil, fmt.Errorf("post content is required")
	}
	return s.posts.Create(ctx, author, req)
}

// GetPost returns a single post by ID.
func (s *FeedService) GetPost(ctx context.Context, id string) (*model.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// ListPosts returns posts, optionally restricted to one author.
func (s *FeedService) ListPosts(ctx context.Context, author string) ([]model.Post, error) {
	if author != "" {
		return s.posts.ListByAuthor(ctx, author)
	}
	return s.posts.List(ctx)
}

var postUpdateFields = map[string]struct{}{
	"content":    {},
	"options":    {},
	"comments":   {},
	"techniques": {},
}

// UpdatePost applies a partial update on behalf of caller, who must be
// the post's author. Fields outside the allow-list fail with
// FieldNotAllowedError.
func (s *FeedService) UpdatePost(ctx context.Context, postID, caller string, fields map[string]json.RawMessage) error {
	if err := s.assertPostAuthor(ctx, caller, postID); err != nil {
		return err
	}

	var upd model.PostUpdate
	for key, raw := range fields {
		if _, ok := postUpdateFields[key]; !ok {
			return &model.FieldNotAllowedError{Field: key}
		}
		var err error
		switch key {
		case "content":
			var v string
			if err = json.Unmarshal(raw, &v); err == nil {
				upd.Content = &v
			}
		case "options":
			v := json.RawMessage(append([]byte(nil), raw...))
			upd.Options = &v
		case "comments":
			var v []string
			if err = json.Unmarshal(raw, &v); err == nil {
				upd.Comments = &v
			}
		case "techniques":
			var v []string
			if err = json.Unmarshal(raw, &v); err == nil {
				upd.Techniques = &v
			}
		}
		if err != nil {
			return fmt.Errorf("invalid %s field: %w", key, err)
		}
	}
	return s.posts.Update(ctx, postID, upd)
}

// DeletePost removes the post on behalf of its author.
func (s *FeedService) DeletePost(ctx context.Context, postID, caller string) error {
	if err := s.assertPostAuthor(ctx, caller, postID); err != nil {
		return err
	}
	return s.posts.Delete(ctx, postID)
}

// CreateComment creates a comment rooted at a post and appends its id
// to the post's comment references. The reference append is best
// effort: the comment exists even if the post reference write fails.
func (s *FeedService) CreateComment(ctx context.Context, author, postID, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content is required")
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	comment, err := s.comments.Create(ctx, author, postID, content)
	if err != nil {
		return nil, err
	}
	if err := s.posts.AddComment(ctx, postID, comment.ID); err != nil {
		s.log.Error().Err(err).Str("post_id", postID).Str("comment_id", comment.ID).
			Msg("attach comment reference failed")
	}
	return comment, nil
}

// ListComments returns comments filtered by author or root post.
func (s *FeedService) ListComments(ctx context.Context, author, root string) ([]model.Comment, error) {
	switch {
	case author != "":
		return s.comments.ListByAuthor(ctx, author)
	case root != "":
		return s.comments.ListByRoot(ctx, root)
	default:
		return s.comments.List(ctx)
	}
}

// GetComment returns a single comment by ID.
func (s *FeedService) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	return s.comments.GetByID(ctx, id)
}

// UpdateComment replaces the comment's content on behalf of its author.
// Content is the only mutable comment field; anything else fails with
// FieldNotAllowedError.
func (s *FeedService) UpdateComment(ctx context.Context, commentID, caller string, fields map[string]json.RawMessage) error {
	if err := s.assertCommentAuthor(ctx, caller, commentID); err != nil {
		return err
	}

	content := ""
	for key, raw := range fields {
		if key != "content" {
			return &model.FieldNotAllowedError{Field: key}
		}
		if err := json.Unmarshal(raw, &content); err != nil {
			return fmt.Errorf("invalid content field: %w", err)
		}
	}
	return s.comments.UpdateContent(ctx, commentID, content)
}

// DeleteComment removes the comment on behalf of its author.
func (s *FeedService) DeleteComment(ctx context.Context, commentID, caller string) error {
	if err := s.assertCommentAuthor(ctx, caller, commentID); err != nil {
		return err
	}
	return s.comments.Delete(ctx, commentID)
}

// CreateTag creates a technique tag rooted at a post and appends its id
// to the post's technique references.
func (s *FeedService) CreateTag(ctx context.Context, author, postID, content string) (*model.Tag, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("tag content is required")
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	tag, err := s.tags.Create(ctx, author, postID, content)
	if err != nil {
		return nil, err
	}
	if err := s.posts.AddTechnique(ctx, postID, tag.ID); err != nil {
		s.log.Error().Err(err).Str("post_id", postID).Str("tag_id", tag.ID).
			Msg("attach technique reference failed")
	}
	return tag, nil
}

// ListTags returns tags filtered by author or root post.
func (s *FeedService) ListTags(ctx context.Context, author, root string) ([]model.Tag, error) {
	switch {
	case author != "":
		return s.tags.ListByAuthor(ctx, author)
	case root != "":
		return s.tags.ListByRoot(ctx, root)
	default:
		return s.tags.List(ctx)
	}
}

// DeleteTag removes the tag on behalf of its author.
func (s *FeedService) DeleteTag(ctx context.Context, tagID, caller string) error {
	tag, err := s.tags.GetByID(ctx, tagID)
	if err != nil {
		return err
	}
	if tag.Author != caller {
		return model.ErrAuthorMismatch
	}
	return s.tags.Delete(ctx, tagID)
}

func (s *FeedService) assertPostAuthor(ctx context.Context, caller, postID string) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.Author != caller {
		return model.ErrAuthorMismatch
	}
	return nil
}

func (s *FeedService) assertCommentAuthor(ctx context.Context, caller, commentID string) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.Author != caller {
		return model.ErrAuthorMismatch
	}
	return nil
}
