// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"github.com/infomap/infomap/internal/model"
	"github.com/infomap/infomap/internal/service"
)

// ErrorResponse represents an API error. Detail repeats Error for clients
// that read the older field.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// NewError builds an ErrorResponse.
func NewError(code, message string) ErrorResponse {
	return ErrorResponse{Error: message, Code: code, Detail: message}
}

// NewsResponse is the body of GET /news/{country}.
type NewsResponse struct {
	Country     string              `json:"country"`
	TimeFilter  model.TimeFilter    `json:"time_filter"`
	Topic       model.Topic         `json:"topic"`
	News        []model.NewsItem    `json:"news"`
	Trends      []string            `json:"trends"`
	Stats       *model.CountryStats `json:"stats"`
	FromCache   bool                `json:"from_cache"`
	Quota       *int                `json:"quota,omitempty"`
	Placeholder bool                `json:"placeholder,omitempty"`
}

// ToNewsResponse converts a gate result to its wire form.
func ToNewsResponse(res *service.NewsResult) *NewsResponse {
	news := res.Payload.News
	if news == nil {
		news = []model.NewsItem{}
	}
	trends := res.Payload.Trends
	if trends == nil {
		trends = []string{}
	}
	return &NewsResponse{
		Country:     res.Query.Country,
		TimeFilter:  res.Query.TimeFilter,
		Topic:       res.Query.Topic,
		News:        news,
		Trends:      trends,
		Stats:       res.Payload.Stats,
		FromCache:   res.FromCache,
		Quota:       res.Quota,
		Placeholder: res.Placeholder,
	}
}

// MeUser is the identity part of MeResponse.
type MeUser struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// MeResponse is the body of GET /me.
type MeResponse struct {
	Authenticated bool    `json:"authenticated"`
	User          *MeUser `json:"user,omitempty"`
	IsAdmin       *bool   `json:"is_admin,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// ToMeResponse describes an authenticated caller.
func ToMeResponse(id *model.Identity, user *model.User) *MeResponse {
	return &MeResponse{
		Authenticated: true,
		User:          &MeUser{Email: user.Email, Name: id.Name, Picture: id.Picture},
		IsAdmin:       &user.IsAdmin,
		IsActive:      &user.IsActive,
	}
}

// CreateUsersRequest is the body of POST /admin/users.
type CreateUsersRequest struct {
	Emails        []string `json:"emails"`
	MaxDailyQuota *int     `json:"max_daily_quota,omitempty"`
	IsActive      *bool    `json:"is_active,omitempty"`
}

// CreateUsersResponse lists the accounts that did not exist before.
type CreateUsersResponse struct {
	Created []string `json:"created"`
	Count   int      `json:"count"`
}

// SetQuotaRequest is the body of POST /admin/quota.
type SetQuotaRequest struct {
	Email         string `json:"email"`
	MaxDailyQuota *int   `json:"max_daily_quota"`
}

// SetQuotaResponse is returned after a quota change.
type SetQuotaResponse struct {
	Email    string `json:"email"`
	NewQuota int    `json:"new_quota"`
}

// SetStatusRequest is the body of PATCH /admin/user/status.
type SetStatusRequest struct {
	Email    string `json:"email"`
	IsActive *bool  `json:"is_active"`
}

// SetStatusResponse is returned after an activation change.
type SetStatusResponse struct {
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// ReadinessResponse is the body of GET /readyz.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
