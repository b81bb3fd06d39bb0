package service

import "errors"

// Service errors.
var (
	ErrInvalidCountry   = errors.New("invalid country name")
	ErrQuotaExceeded    = errors.New("daily quota exceeded")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidQuota     = errors.New("daily quota must not be negative")
	ErrSelfModification = errors.New("administrators cannot deactivate or delete their own account")
	ErrHistoryNotFound  = errors.New("history record not found")
)
