package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dojoverse/dojo/internal/session"
)

// AuthHandler exposes the session boundary: login issues a bearer
// token, logout revokes it. Credential verification is out of scope;
// the caller-supplied identifier is trusted verbatim.
type AuthHandler struct {
	sessions *session.Manager
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(sessions *session.Manager) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

type loginRequest struct {
	UserID string `json:"user_id"`
}

type loginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// LogIn handles POST /login
// Issues a session token for the given user id, minting a fresh id when
// none is supplied.
func (h *AuthHandler) LogIn(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		req.UserID = uuid.New().String()
	}

	token, err := h.sessions.LogIn(r.Context(), req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, UserID: req.UserID})
}

// LogOut handles POST /logout
// Revokes the caller's session token.
func (h *AuthHandler) LogOut(w http.ResponseWriter, r *http.Request) {
	token := session.TokenFromRequest(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	if err := h.sessions.LogOut(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "logged out"})
}

// WhoAmI handles GET /session
// Returns the user id bound to the caller's session.
func (h *AuthHandler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	userID, ok := session.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID})
}
