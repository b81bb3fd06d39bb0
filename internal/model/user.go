// Package model defines domain entities for the application.
package model

import "time"

// User is an identity known to the service.
// Users are created lazily on first login and managed by administrators.
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	IsAdmin       bool      `json:"is_admin"`
	IsActive      bool      `json:"is_active"`
	MaxDailyQuota int       `json:"max_daily_quota"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UserWithUsage is a user together with the request count for one civil date.
// Used by the admin listing.
type UserWithUsage struct {
	User
	Date       string `json:"date"`
	TodayCount int    `json:"today_count"`
}

// Identity is the verified identity returned by the OAuth provider
// and carried in the session cookie.
type Identity struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}
