package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/infomap/infomap/internal/auth"
	"github.com/infomap/infomap/internal/handler/dto"
	"github.com/infomap/infomap/internal/middleware"
	"github.com/infomap/infomap/internal/model"
	"github.com/infomap/infomap/internal/service"
)

// maxBulkEmails bounds one pre-authorization request.
const maxBulkEmails = 500

// AdminService is the account administration surface.
type AdminService interface {
	ListUsers(ctx context.Context) ([]model.UserWithUsage, error)
	CreateUsers(ctx context.Context, input service.CreateUsersInput) ([]string, error)
	SetQuota(ctx context.Context, email string, maxDailyQuota int) (*model.User, error)
	SetActive(ctx context.Context, actor *model.User, email string, active bool) (*model.User, error)
	DeleteUser(ctx context.Context, actor *model.User, email string) error
}

// AdminHandler provides the admin-only user management endpoints.
type AdminHandler struct {
	svc    AdminService
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger}
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUsers handles POST /admin/users.
func (h *AdminHandler) CreateUsers(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUsersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Emails) == 0 || len(req.Emails) > maxBulkEmails {
		writeError(w, http.StatusBadRequest, "INVALID_EMAILS", "Provide between 1 and 500 emails")
		return
	}

	created, err := h.svc.CreateUsers(r.Context(), service.CreateUsersInput{
		Emails:        req.Emails,
		MaxDailyQuota: req.MaxDailyQuota,
		IsActive:      req.IsActive,
	})
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("admin_users_created",
		"actor_id", auth.UserIDFromContext(r.Context()),
		"count", len(created),
	)
	writeJSON(w, http.StatusCreated, dto.CreateUsersResponse{Created: created, Count: len(created)})
}

// SetQuota handles POST /admin/quota.
func (h *AdminHandler) SetQuota(w http.ResponseWriter, r *http.Request) {
	var req dto.SetQuotaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MaxDailyQuota == nil {
		writeError(w, http.StatusBadRequest, "MISSING_QUOTA", "max_daily_quota is required")
		return
	}

	u, err := h.svc.SetQuota(r.Context(), req.Email, *req.MaxDailyQuota)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SetQuotaResponse{Email: u.Email, NewQuota: u.MaxDailyQuota})
}

// SetStatus handles PATCH /admin/user/status.
func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.SetStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "MISSING_STATUS", "is_active is required")
		return
	}

	u, err := h.svc.SetActive(r.Context(), auth.MustUserFromContext(r.Context()), req.Email, *req.IsActive)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SetStatusResponse{Email: u.Email, IsActive: u.IsActive})
}

// DeleteUser handles DELETE /admin/user/{email}.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	email, err := pathParam(r, "email")
	if err != nil || middleware.ValidateEmailParam(email) != nil {
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email address")
		return
	}

	if err := h.svc.DeleteUser(r.Context(), auth.MustUserFromContext(r.Context()), email); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("admin_user_deleted", "actor_id", auth.UserIDFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
