package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

const (
	// stateBytes is the entropy of an OAuth state value.
	stateBytes = 32
	// StateCookieTTL bounds how long a login may take to complete.
	StateCookieTTL = 10 * time.Minute
	// StateCookiePath scopes the binding cookie to the OAuth callback.
	StateCookiePath = "/auth"
)

// GenerateState returns a random URL-safe OAuth state value.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func stateDigest(state string) string {
	sum := sha256.Sum256([]byte(state))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// StateCookieName is the cookie binding a pending login to the browser that started it.
func (m *SessionManager) StateCookieName() string {
	return m.cookieName + "_state"
}

// SetStateCookie stores a digest of state in a short-lived cookie.
func (m *SessionManager) SetStateCookie(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.StateCookieName(),
		Value:    stateDigest(state),
		Path:     StateCookiePath,
		MaxAge:   int(StateCookieTTL.Seconds()),
		Expires:  m.now().Add(StateCookieTTL),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// StateMatches reports whether the request carries the binding cookie for state.
func (m *SessionManager) StateMatches(r *http.Request, state string) bool {
	if state == "" {
		return false
	}
	cookie, err := r.Cookie(m.StateCookieName())
	if err != nil || cookie.Value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(stateDigest(state))) == 1
}

// ClearStateCookie expires the binding cookie.
func (m *SessionManager) ClearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.StateCookieName(),
		Value:    "",
		Path:     StateCookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
