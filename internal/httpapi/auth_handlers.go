package httpapi

import (
	"net/http"
	"strings"
	"time"

	"asiste.org/internal/identity"
	"asiste.org/internal/ids"
)

type sessionRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

const sessionTTL = 12 * time.Hour

// handleAuthToken issues a signed session token and sets the session cookie.
// The access core itself never issues credentials; this endpoint stands in
// for the identity collaborator in development and smoke tests.
func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !identity.Enabled() {
		writeError(w, r, http.StatusServiceUnavailable, "identity disabled")
		return
	}

	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(w, r, http.StatusBadRequest, "email is required")
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = ids.New()
	}

	user := identity.User{ID: userID, Email: email}
	token, err := identity.GenerateToken(user, sessionTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	expiresAt := time.Now().UTC().Add(sessionTTL)
	setSessionCookie(w, token, int(sessionTTL.Seconds()))
	a.audit(r.Context(), "auth.token.issued", map[string]any{
		"user_id":    userID,
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
	})
}
