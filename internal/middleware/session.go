package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/infomap/infomap/internal/auth"
	"github.com/infomap/infomap/internal/model"
)

// UserResolver maps a verified identity to its account.
type UserResolver interface {
	Resolve(ctx context.Context, id *model.Identity) (*model.User, error)
}

// SessionConfig holds configuration for the session middleware.
type SessionConfig struct {
	Logger   *slog.Logger
	Sessions *auth.SessionManager
	Users    UserResolver
}

// RequireSession rejects requests without a valid session cookie. On success
// the identity and the user record are stored in the request context.
func RequireSession(cfg SessionConfig) func(http.Handler) http.Handler {
	return session(cfg, true)
}

// OptionalSession loads the session when present and never rejects.
func OptionalSession(cfg SessionConfig) func(http.Handler) http.Handler {
	return session(cfg, false)
}

func session(cfg SessionConfig, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := cfg.Sessions.FromRequest(r)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidSession) {
					cfg.Logger.Warn("session rejected",
						slog.String("reason", "invalid_token"),
						slog.String("ip", r.RemoteAddr),
						slog.String("endpoint", r.Method+" "+r.URL.Path),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					cfg.Sessions.ClearCookie(w)
				}
				if required {
					writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			user, err := cfg.Users.Resolve(r.Context(), id)
			if err != nil {
				cfg.Logger.Error("failed to resolve session user",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
				return
			}

			ctx := auth.ContextWithIdentity(r.Context(), id)
			ctx = auth.ContextWithUser(ctx, user)
			r = r.WithContext(ctx)
			noteUser(r)
			next.ServeHTTP(w, r)
		})
	}
}
