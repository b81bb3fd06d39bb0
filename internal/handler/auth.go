package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/infomap/infomap/internal/auth"
	"github.com/infomap/infomap/internal/handler/dto"
	"github.com/infomap/infomap/internal/middleware"
)

// StateStore keeps OAuth state values between /login and /auth.
type StateStore interface {
	SaveOAuthState(ctx context.Context, state string) error
	ConsumeOAuthState(ctx context.Context, state string) (bool, error)
}

// AuthHandler runs the OAuth login flow and reports session state.
type AuthHandler struct {
	provider    auth.IdentityProvider
	states      StateStore
	sessions    *auth.SessionManager
	users       middleware.UserResolver
	frontendURL string
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	provider auth.IdentityProvider,
	states StateStore,
	sessions *auth.SessionManager,
	users middleware.UserResolver,
	frontendURL string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider:    provider,
		states:      states,
		sessions:    sessions,
		users:       users,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// Login handles GET /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeError(w, http.StatusServiceUnavailable, "AUTH_NOT_CONFIGURED", "Login is not configured")
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	if err := h.states.SaveOAuthState(r.Context(), state); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.sessions.SetStateCookie(w, state)
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET /auth, the OAuth redirect target.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeError(w, http.StatusServiceUnavailable, "AUTH_NOT_CONFIGURED", "Login is not configured")
		return
	}

	q := r.URL.Query()
	state := q.Get("state")
	bound := h.sessions.StateMatches(r, state)
	h.sessions.ClearStateCookie(w)

	if providerErr := q.Get("error"); providerErr != "" {
		h.logger.Warn("oauth provider returned an error", "error", providerErr)
		h.redirectFrontend(w, r, "login_failed")
		return
	}

	if !bound {
		h.logger.Warn("oauth state not bound to this browser",
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusBadRequest, "INVALID_STATE", "Invalid or expired login state")
		return
	}

	ok, err := h.states.ConsumeOAuthState(r.Context(), state)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_STATE", "Invalid or expired login state")
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "MISSING_CODE", "Authorization code is required")
		return
	}

	id, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn("oauth exchange failed",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusUnauthorized, "AUTH_FAILED", "Authentication failed")
		return
	}

	user, err := h.users.Resolve(r.Context(), id)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	if err := h.sessions.SetCookie(w, id); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("user_logged_in",
		"user_id", user.ID,
		"is_active", user.IsActive,
	)
	http.Redirect(w, r, h.frontendURL, http.StatusFound)
}

// Logout handles GET /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	http.Redirect(w, r, h.frontendURL, http.StatusFound)
}

// Me handles GET /me. Must be mounted behind OptionalSession.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	user := auth.UserFromContext(r.Context())
	if id == nil || user == nil {
		writeJSON(w, http.StatusOK, dto.MeResponse{Authenticated: false})
		return
	}
	writeJSON(w, http.StatusOK, dto.ToMeResponse(id, user))
}

func (h *AuthHandler) redirectFrontend(w http.ResponseWriter, r *http.Request, reason string) {
	target, err := url.Parse(h.frontendURL)
	if err != nil {
		http.Redirect(w, r, h.frontendURL, http.StatusFound)
		return
	}
	q := target.Query()
	q.Set("error", reason)
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}
