package httpapi

import (
	"net/http"
	"strings"

	"asiste.org/internal/identity"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth attaches the authenticated user to the request context when a
// valid session token is presented, via the Authorization header or the
// session cookie. It never rejects: each handler decides what an
// unauthenticated request means (a neutral {role:null} for reads, a 401 for
// writes).
func (a *API) withAuth(next http.Handler) http.Handler {
	if !identity.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r.Header.Get(authHeader))
		if token == "" {
			token = cookieValue(r, sessionCookie)
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := identity.ParseAndValidate(token)
		if err != nil {
			// Invalid token degrades to an unauthenticated request.
			next.ServeHTTP(w, r)
			return
		}
		user := identity.User{ID: claims.Subject, Email: claims.Email}
		next.ServeHTTP(w, r.WithContext(identity.ContextWithUser(r.Context(), user)))
	})
}

func extractBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return ""
	}
	return strings.TrimSpace(header[len(bearer):])
}
