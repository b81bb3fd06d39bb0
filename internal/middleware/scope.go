package middleware

import (
	"net/http"

	"github.com/infomap/infomap/internal/auth"
)

// RequireActive rejects deactivated accounts and clears their session cookie.
// Must be applied after RequireSession.
func RequireActive(sessions *auth.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.UserFromContext(r.Context())
			if user == nil {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
				return
			}
			if !user.IsActive {
				sessions.ClearCookie(w)
				writeError(w, http.StatusForbidden, CodeAccountInactive, "Account is not active")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin restricts a route to active administrators.
// Must be applied after RequireSession.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.UserFromContext(r.Context())
			if user == nil {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
				return
			}
			if !user.IsAdmin || !user.IsActive {
				writeError(w, http.StatusForbidden, CodeForbidden, "Administrator access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
