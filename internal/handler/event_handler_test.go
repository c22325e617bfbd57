package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoverse/dojo/internal/model"
	"github.com/dojoverse/dojo/internal/service"
	"github.com/dojoverse/dojo/internal/session"
	"github.com/dojoverse/dojo/internal/testkit"
)

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (s *memTokens) Save(_ context.Context, token, userID string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = userID
	return nil
}

func (s *memTokens) Lookup(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[token]
	if !ok {
		return "", model.ErrNoSession
	}
	return userID, nil
}

func (s *memTokens) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func newTestServer() *httptest.Server {
	log := zerolog.Nop()
	sessions := session.NewManager(&memTokens{tokens: make(map[string]string)}, time.Hour)

	eventSvc := service.NewEventService(testkit.NewMemEventStore(), log)
	feedSvc := service.NewFeedService(
		testkit.NewMemPostStore(), testkit.NewMemCommentStore(), testkit.NewMemTagStore(), log)

	r := Routes(
		NewAuthHandler(sessions),
		NewEventHandler(eventSvc),
		NewFeedHandler(feedSvc),
		sessions, log)
	return httptest.NewServer(r)
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func login(t *testing.T, srv *httptest.Server, userID string) string {
	t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	resp := doJSON(t, srv, http.MethodPost, "/login", "", map[string]string{"user_id": userID}, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func createEvent(t *testing.T, srv *httptest.Server, token string, capacity int) model.Event {
	t.Helper()
	now := time.Now().UTC()
	var ev model.Event
	resp := doJSON(t, srv, http.MethodPost, "/events", token, model.CreateEventRequest{
		Content:  "takedown clinic",
		Capacity: capacity,
		Start:    now.Add(time.Hour),
		End:      now.Add(2 * time.Hour),
	}, &ev)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return ev
}

func TestEvents_RequireSession(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp := doJSON(t, srv, http.MethodPost, "/events", "", map[string]string{}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEvents_CreateAndGet(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	token := login(t, srv, "org-1")
	ev := createEvent(t, srv, token, 10)
	assert.Equal(t, "org-1", ev.Organizer)
	assert.Equal(t, model.StatusActive, ev.Status)

	var got model.Event
	resp := doJSON(t, srv, http.MethodGet, "/events/"+ev.ID, "", nil, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ev.ID, got.ID)

	resp = doJSON(t, srv, http.MethodGet, "/events/does-not-exist", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEvents_RegistrationFlow(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	orgToken := login(t, srv, "org-1")
	aToken := login(t, srv, "user-a")
	bToken := login(t, srv, "user-b")

	ev := createEvent(t, srv, orgToken, 1)
	register := fmt.Sprintf("/events/%s/register", ev.ID)

	// Organizer self-registration is forbidden.
	resp := doJSON(t, srv, http.MethodPost, register, orgToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, register, aToken, nil, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Duplicate and over-capacity registrations are conflicts.
	resp = doJSON(t, srv, http.MethodPost, register, aToken, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = doJSON(t, srv, http.MethodPost, register, bToken, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var roster []string
	resp = doJSON(t, srv, http.MethodGet, "/events/"+ev.ID+"/roster", "", nil, &roster)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"user-a"}, roster)

	var reg struct {
		Registered bool `json:"registered"`
	}
	resp = doJSON(t, srv, http.MethodGet, "/events/"+ev.ID+"/registered", aToken, nil, &reg)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, reg.Registered)

	resp = doJSON(t, srv, http.MethodPost, "/events/"+ev.ID+"/unregister", aToken, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, srv, http.MethodPost, "/events/"+ev.ID+"/unregister", aToken, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestEvents_OrganizerOnlyActions(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	orgToken := login(t, srv, "org-1")
	otherToken := login(t, srv, "user-x")

	ev := createEvent(t, srv, orgToken, 5)

	resp := doJSON(t, srv, http.MethodPost, "/events/"+ev.ID+"/cancel", otherToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = doJSON(t, srv, http.MethodDelete, "/events/"+ev.ID, otherToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPatch, "/events/"+ev.ID, orgToken,
		map[string]any{"capacity": 7}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Fields outside the allow-list are rejected.
	resp = doJSON(t, srv, http.MethodPatch, "/events/"+ev.ID, orgToken,
		map[string]any{"organizer": "user-x"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, "/events/"+ev.ID+"/cancel", orgToken, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Cancelling a terminal event is a conflict.
	resp = doJSON(t, srv, http.MethodPost, "/events/"+ev.ID+"/cancel", orgToken, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestEvents_Sweep(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	token := login(t, srv, "org-1")
	now := time.Now().UTC()

	var ev model.Event
	resp := doJSON(t, srv, http.MethodPost, "/events", token, model.CreateEventRequest{
		Content:  "past seminar",
		Capacity: 5,
		Start:    now.Add(-2 * time.Hour),
		End:      now.Add(-time.Hour),
	}, &ev)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sweep struct {
		Completed int `json:"completed"`
		Failed    int `json:"failed"`
	}
	resp = doJSON(t, srv, http.MethodPost, "/events/sweep", "", nil, &sweep)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, sweep.Completed)

	var got model.Event
	doJSON(t, srv, http.MethodGet, "/events/"+ev.ID, "", nil, &got)
	assert.Equal(t, model.StatusComplete, got.Status)
}

func TestSession_Endpoints(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	token := login(t, srv, "user-a")

	var who struct {
		UserID string `json:"user_id"`
	}
	resp := doJSON(t, srv, http.MethodGet, "/session", token, nil, &who)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user-a", who.UserID)

	resp = doJSON(t, srv, http.MethodPost, "/logout", token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodGet, "/session", token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPosts_Flow(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	aToken := login(t, srv, "user-a")
	bToken := login(t, srv, "user-b")

	var post model.Post
	resp := doJSON(t, srv, http.MethodPost, "/posts", aToken,
		model.CreatePostRequest{Content: "berimbolo breakdown"}, &post)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var comment model.Comment
	resp = doJSON(t, srv, http.MethodPost, "/posts/"+post.ID+"/comments", bToken,
		model.CreateCommentRequest{Content: "nice"}, &comment)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got model.Post
	doJSON(t, srv, http.MethodGet, "/posts/"+post.ID, "", nil, &got)
	assert.Equal(t, []string{comment.ID}, got.Comments)

	// Only the author may delete.
	resp = doJSON(t, srv, http.MethodDelete, "/posts/"+post.ID, bToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = doJSON(t, srv, http.MethodDelete, "/posts/"+post.ID, aToken, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
