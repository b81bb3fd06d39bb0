package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/infomap/infomap/internal/auth"
	"github.com/infomap/infomap/internal/middleware"
	"github.com/infomap/infomap/internal/model"
	"github.com/infomap/infomap/internal/service"
)

// AccountService serves the caller's own quota and history.
type AccountService interface {
	QuotaStatus(ctx context.Context, user *model.User) (*service.QuotaStatus, error)
	RecentHistory(ctx context.Context, user *model.User) ([]model.QueryHistory, error)
	DeleteHistory(ctx context.Context, user *model.User, id string) error
}

// AccountHandler handles /quota and /history.
type AccountHandler struct {
	svc    AccountService
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, logger: logger}
}

// Quota handles GET /quota.
func (h *AccountHandler) Quota(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.QuotaStatus(r.Context(), auth.MustUserFromContext(r.Context()))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// History handles GET /history.
func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.RecentHistory(r.Context(), auth.MustUserFromContext(r.Context()))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// DeleteHistory handles DELETE /history/{id}.
func (h *AccountHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateHistoryID(id); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid history id")
		return
	}

	if err := h.svc.DeleteHistory(r.Context(), auth.MustUserFromContext(r.Context()), id); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
