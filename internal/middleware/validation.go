package middleware

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Validation limits.
const (
	// MaxEmailLength is the maximum length for an email path parameter.
	MaxEmailLength = 254
)

// Validation errors.
var (
	ErrHistoryIDInvalid = errors.New("history id is not a valid ULID")
	ErrEmailInvalid     = errors.New("email is invalid")
)

// ValidateHistoryID checks that id is a canonical ULID.
func ValidateHistoryID(id string) error {
	if _, err := ulid.ParseStrict(id); err != nil {
		return ErrHistoryIDInvalid
	}
	return nil
}

// ValidateEmailParam checks an email taken from a URL path.
func ValidateEmailParam(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > MaxEmailLength {
		return ErrEmailInvalid
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrEmailInvalid
	}
	return nil
}
