// Package session issues and resolves opaque bearer tokens. It is the
// identity boundary: whatever user identifier a token maps to is
// trusted verbatim by the rest of the system.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/dojoverse/dojo/internal/model"
)

// TokenStore maps session tokens to user identifiers.
type TokenStore interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

// RedisStore is a TokenStore backed by Redis with per-token TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(token string) string {
	return "session:" + token
}

// Save stores the token to user-id mapping with the given TTL.
func (s *RedisStore) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKey(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Lookup resolves a token to its user id, or ErrNoSession.
func (s *RedisStore) Lookup(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrNoSession
		}
		return "", fmt.Errorf("lookup session: %w", err)
	}
	return userID, nil
}

// Delete revokes a token. Deleting an unknown token is not an error.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Manager issues and resolves sessions over a TokenStore.
type Manager struct {
	store TokenStore
	ttl   time.Duration
}

// NewManager constructs a Manager. Tokens expire after ttl.
func NewManager(store TokenStore, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl}
}

// LogIn issues a fresh opaque token bound to userID.
func (m *Manager) LogIn(ctx context.Context, userID string) (string, error) {
	token := uuid.New().String()
	if err := m.store.Save(ctx, token, userID, m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// LogOut revokes the token.
func (m *Manager) LogOut(ctx context.Context, token string) error {
	return m.store.Delete(ctx, token)
}

// UserID resolves the token to the logged-in user, or ErrNoSession.
func (m *Manager) UserID(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", model.ErrNoSession
	}
	return m.store.Lookup(ctx, token)
}

type contextKey struct{}

// UserFromContext returns the user id injected by RequireUser.
func UserFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(contextKey{}).(string)
	return userID, ok
}

// TokenFromRequest extracts the bearer token from the Authorization
// header. Missing or malformed headers yield the empty string.
func TokenFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// RequireUser resolves the caller's session and injects the user id
// into the request context, rejecting unauthenticated requests with
// 401.
func (m *Manager) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.UserID(r.Context(), TokenFromRequest(r))
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"login required"}`))
			return
		}
		ctx := context.WithValue(r.Context(), contextKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
