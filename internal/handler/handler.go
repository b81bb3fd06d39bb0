// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/infomap/infomap/internal/handler/dto"
	"github.com/infomap/infomap/internal/middleware"
	"github.com/infomap/infomap/internal/service"
	"github.com/infomap/infomap/internal/upstream"
)

// Handler serves the router fallbacks.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// pathParam returns the decoded value of a chi URL parameter. chi matches on
// r.URL.RawPath when it is set, so the segment is still escaped in that case.
func pathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.NewError(code, message))
}

// decodeJSON decodes a request body, rejecting unknown fields and bodies over the size limit.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}

// handleServiceError maps service and upstream errors to responses.
// Unknown errors are logged and reported as 500.
func handleServiceError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCountry):
		writeError(w, http.StatusBadRequest, "INVALID_COUNTRY", "Invalid country name")
	case errors.Is(err, service.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, "QUOTA_EXCEEDED", "Daily quota exceeded")
	case errors.Is(err, upstream.ErrNoSignal):
		writeError(w, http.StatusNotFound, "NO_SIGNAL", "No relevant news found for this query")
	case errors.Is(err, upstream.ErrMalformedResponse):
		writeError(w, http.StatusBadGateway, "SIGNAL_DECODE_FAILED", "Failed to decode news from the upstream provider")
	case errors.Is(err, upstream.ErrUpstreamTimeout):
		writeError(w, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "News provider timed out")
	case errors.Is(err, upstream.ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "News provider unavailable")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrHistoryNotFound):
		writeError(w, http.StatusNotFound, "HISTORY_NOT_FOUND", "History record not found")
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email address")
	case errors.Is(err, service.ErrInvalidQuota):
		writeError(w, http.StatusBadRequest, "INVALID_QUOTA", "Daily quota must not be negative")
	case errors.Is(err, service.ErrSelfModification):
		writeError(w, http.StatusBadRequest, "SELF_MODIFICATION", "You cannot deactivate or delete your own account")
	default:
		logger.Error("internal_error",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
