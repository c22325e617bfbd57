package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoverse/dojo/internal/model"
)

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: make(map[string]string)}
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

func TestManager_LoginLogout(t *testing.T) {
	m := NewManager(newMemTokens(), time.Hour)
	ctx := context.Background()

	token, err := m.LogIn(ctx, "user-a")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := m.UserID(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-a", userID)

	require.NoError(t, m.LogOut(ctx, token))
	_, err = m.UserID(ctx, token)
	assert.ErrorIs(t, err, model.ErrNoSession)
}

func TestManager_EmptyToken(t *testing.T) {
	m := NewManager(newMemTokens(), time.Hour)
	_, err := m.UserID(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrNoSession)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", TokenFromRequest(r))

	r.Header.Set("Authorization", "Basic abc123")
	assert.Empty(t, TokenFromRequest(r))
}

func TestRequireUser(t *testing.T) {
	m := NewManager(newMemTokens(), time.Hour)
	token, err := m.LogIn(context.Background(), "user-a")
	require.NoError(t, err)

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := m.RequireUser(next)

	// No token: rejected before the handler runs.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, seen)

	// Valid token: user id lands in the request context.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-a", seen)
}
