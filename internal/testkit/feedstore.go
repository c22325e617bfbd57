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

// MemPostStore is an in-memory service.PostStore.
type MemPostStore struct {
	mu    sync.Mutex
	posts map[string]*model.Post
	seq   map[string]int64
	next  int64
}

// NewMemPostStore constructs an empty MemPostStore.
func NewMemPostStore() *MemPostStore {
	return &MemPostStore{posts: make(map[string]*model.Post), seq: make(map[string]int64)}
}

func clonePost(p *model.Post) *model.Post {
	c := *p
	c.Comments = slices.Clone(p.Comments)
	c.Techniques = slices.Clone(p.Techniques)
	c.Options = slices.Clone(p.Options)
	return &c
}

func (s *MemPostStore) touch(id string) {
	s.next++
	s.seq[id] = s.next
	s.posts[id].UpdatedAt = time.Now().UTC()
}

// Create inserts a new post.
func (s *MemPostStore) Create(_ context.Context, author string, req model.CreatePostRequest) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	p := &model.Post{
		ID:         uuid.New().String(),
		Author:     author,
		Content:    req.Content,
		Comments:   []string{},
		Techniques: []string{},
		Options:    req.Options,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.posts[p.ID] = p
	s.touch(p.ID)
	return clonePost(p), nil
}

// GetByID returns the post or model.ErrNotFound.
func (s *MemPostStore) GetByID(_ context.Context, id string) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return clonePost(p), nil
}

func (s *MemPostStore) list(match func(*model.Post) bool) []model.Post {
	ids := make([]string, 0, len(s.posts))
	for id, p := range s.posts {
		if match(p) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return s.seq[ids[i]] > s.seq[ids[j]] })

	out := make([]model.Post, 0, len(ids))
	for _, id := range ids {
		out = append(out, *clonePost(s.posts[id]))
	}
	return out
}

// List returns all posts, most recently modified first.
func (s *MemPostStore) List(context.Context) ([]model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(*model.Post) bool { return true }), nil
}

// ListByAuthor returns all posts by author.
func (s *MemPostStore) ListByAuthor(_ context.Context, author string) ([]model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(p *model.Post) bool { return p.Author == author }), nil
}

// Update merges a partial update.
func (s *MemPostStore) Update(_ context.Context, id string, upd model.PostUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return model.ErrNotFound
	}
	upd.Apply(p)
	s.touch(id)
	return nil
}

// AddComment appends a comment reference.
func (s *MemPostStore) AddComment(_ context.Context, postID, commentID string) error {
	return s.appendRef(postID, commentID, true)
}

// AddTechnique appends a tag reference.
func (s *MemPostStore) AddTechnique(_ context.Context, postID, tagID string) error {
	return s.appendRef(postID, tagID, false)
}

func (s *MemPostStore) appendRef(postID, refID string, comment bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return model.ErrNotFound
	}
	if comment {
		p.Comments = append(p.Comments, refID)
	} else {
		p.Techniques = append(p.Techniques, refID)
	}
	s.touch(postID)
	return nil
}

// Delete removes the post.
func (s *MemPostStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.posts, id)
	delete(s.seq, id)
	return nil
}

// MemCommentStore is an in-memory service.CommentStore.
type MemCommentStore struct {
	mu       sync.Mutex
	comments map[string]*model.Comment
	seq      map[string]int64
	next     int64
}

// NewMemCommentStore constructs an empty MemCommentStore.
func NewMemCommentStore() *MemCommentStore {
	return &MemCommentStore{comments: make(map[string]*model.Comment), seq: make(map[string]int64)}
}

// Create inserts a new comment.
func (s *MemCommentStore) Create(_ context.Context, author, root, content string) (*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	c := &model.Comment{
		ID:        uuid.New().String(),
		Author:    author,
		Content:   content,
		Root:      root,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.comments[c.ID] = c
	s.next++
	s.seq[c.ID] = s.next
	out := *c
	return &out, nil
}

// GetByID returns the comment or model.ErrNotFound.
func (s *MemCommentStore) GetByID(_ context.Context, id string) (*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *MemCommentStore) list(match func(*model.Comment) bool) []model.Comment {
	ids := make([]string, 0, len(s.comments))
	for id, c := range s.comments {
		if match(c) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return s.seq[ids[i]] > s.seq[ids[j]] })

	out := make([]model.Comment, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.comments[id])
	}
	return out
}

// List returns all comments, most recently modified first.
func (s *MemCommentStore) List(context.Context) ([]model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(*model.Comment) bool { return true }), nil
}

// ListByAuthor returns comments by author.
func (s *MemCommentStore) ListByAuthor(_ context.Context, author string) ([]model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(c *model.Comment) bool { return c.Author == author }), nil
}

// ListByRoot returns comments rooted at a post.
func (s *MemCommentStore) ListByRoot(_ context.Context, root string) ([]model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(c *model.Comment) bool { return c.Root == root }), nil
}

// UpdateContent replaces the comment content.
func (s *MemCommentStore) UpdateContent(_ context.Context, id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return model.ErrNotFound
	}
	c.Content = content
	c.UpdatedAt = time.Now().UTC()
	s.next++
	s.seq[id] = s.next
	return nil
}

// Delete removes the comment.
func (s *MemCommentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.comments, id)
	delete(s.seq, id)
	return nil
}

// MemTagStore is an in-memory service.TagStore.
type MemTagStore struct {
	mu   sync.Mutex
	tags map[string]*model.Tag
	seq  map[string]int64
	next int64
}

// NewMemTagStore constructs an empty MemTagStore.
func NewMemTagStore() *MemTagStore {
	return &MemTagStore{tags: make(map[string]*model.Tag), seq: make(map[string]int64)}
}

// Create inserts a new tag.
func (s *MemTagStore) Create(_ context.Context, author, root, content string) (*model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	t := &model.Tag{
		ID:        uuid.New().String(),
		Author:    author,
		Content:   content,
		Root:      root,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tags[t.ID] = t
	s.next++
	s.seq[t.ID] = s.next
	out := *t
	return &out, nil
}

// GetByID returns the tag or model.ErrNotFound.
func (s *MemTagStore) GetByID(_ context.Context, id string) (*model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tags[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (s *MemTagStore) list(match func(*model.Tag) bool) []model.Tag {
	ids := make([]string, 0, len(s.tags))
	for id, t := range s.tags {
		if match(t) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return s.seq[ids[i]] > s.seq[ids[j]] })

	out := make([]model.Tag, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.tags[id])
	}
	return out
}

// List returns all tags, most recently modified first.
func (s *MemTagStore) List(context.Context) ([]model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(*model.Tag) bool { return true }), nil
}

// ListByAuthor returns tags by author.
func (s *MemTagStore) ListByAuthor(_ context.Context, author string) ([]model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(t *model.Tag) bool { return t.Author == author }), nil
}

// ListByRoot returns tags rooted at a post.
func (s *MemTagStore) ListByRoot(_ context.Context, root string) ([]model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(t *model.Tag) bool { return t.Root == root }), nil
}

// Delete removes the tag.
func (s *MemTagStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tags[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.tags, id)
	delete(s.seq, id)
	return nil
}
