package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dojoverse/dojo/internal/model"
	"github.com/dojoverse/dojo/internal/service"
)

// FeedHandler holds the HTTP handlers for posts, comments and
// technique tags.
type FeedHandler struct {
	svc *service.FeedService
}

// NewFeedHandler constructs a FeedHandler.
func NewFeedHandler(svc *service.FeedService) *FeedHandler {
	return &FeedHandler{svc: svc}
}

// CreatePost handles POST /posts
func (h *FeedHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	post, err := h.svc.CreatePost(r.Context(), caller(r), req)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// ListPosts handles GET /posts with an optional ?author= filter.
func (h *FeedHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.ListPosts(r.Context(), r.URL.Query().Get("author"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	if posts == nil {
		posts = []model.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

// GetPost handles GET /posts/{id}
func (h *FeedHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// UpdatePost handles PATCH /posts/{id}
func (h *FeedHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var fields map[string]json.RawMessage
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.UpdatePost(r.Context(), chi.URLParam(r, "id"), caller(r), fields); err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "post updated"})
}

// DeletePost handles DELETE /posts/{id}
func (h *FeedHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePost(r.Context(), chi.URLParam(r, "id"), caller(r)); err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "post deleted"})
}

// CreateComment handles POST /posts/{id}/comments
func (h *FeedHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	comment, err := h.svc.CreateComment(r.Context(), caller(r), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// ListComments handles GET /comments with optional ?author= or ?root=
// filters.
func (h *FeedHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.ListComments(r.Context(),
		r.URL.Query().Get("author"), r.URL.Query().Get("root"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list comments")
		return
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

// GetComment handles GET /comments/{id}
func (h *FeedHandler) GetComment(w http.ResponseWriter, r *http.Request) {
	comment, err := h.svc.GetComment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// UpdateComment handles PATCH /comments/{id}
func (h *FeedHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	var fields map[string]json.RawMessage
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.UpdateComment(r.Context(), chi.URLParam(r, "id"), caller(r), fields); err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "comment updated"})
}

// DeleteComment handles DELETE /comments/{id}
func (h *FeedHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteComment(r.Context(), chi.URLParam(r, "id"), caller(r)); err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "comment deleted"})
}

// CreateTag handles POST /posts/{id}/techniques
func (h *FeedHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	tag, err := h.svc.CreateTag(r.Context(), caller(r), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// ListTags handles GET /techniques with optional ?author= or ?root=
// filters.
func (h *FeedHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context(),
		r.URL.Query().Get("author"), r.URL.Query().Get("root"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list techniques")
		return
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// DeleteTag handles DELETE /techniques/{id}
func (h *FeedHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTag(r.Context(), chi.URLParam(r, "id"), caller(r)); err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "technique deleted"})
}
