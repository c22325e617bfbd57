package model

import (
	"encoding/json"
	"time"
)

// Post is an author-owned piece of content. Comments and Techniques
// hold ordered references to comment and tag identifiers; they are
// opaque foreign references with no integrity enforcement.
type Post struct {
	ID         string          `json:"id"`
	Author     string          `json:"author"`
	Content    string          `json:"content"`
	Comments   []string        `json:"comments"`
	Techniques []string        `json:"techniques"`
	Options    json.RawMessage `json:"options,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Comment is an author-owned reply rooted at a post.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Root      string    `json:"root"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tag is an author-owned label rooted at a post.
type Tag struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Root      string    `json:"root"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostUpdate is a partial update of a post's mutable fields.
type PostUpdate struct {
	Content    *string
	Options    *json.RawMessage
	Comments   *[]string
	Techniques *[]string
}

// Apply merges the update into p.
func (u PostUpdate) Apply(p *Post) {
	if u.Content != nil {
		p.Content = *u.Content
	}
	if u.Options != nil {
		p.Options = *u.Options
	}
	if u.Comments != nil {
		p.Comments = append([]string(nil), (*u.Comments)...)
	}
	if u.Techniques != nil {
		p.Techniques = append([]string(nil), (*u.Techniques)...)
	}
}

// CreatePostRequest is the payload for creating a post.
type CreatePostRequest struct {
	Content string          `json:"content"`
	Options json.RawMessage `json:"options,omitempty"`
}

// CreateCommentRequest is the payload for commenting on a post.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CreateTagRequest is the payload for tagging a post.
type CreateTagRequest struct {
	Content string `json:"content"`
}
