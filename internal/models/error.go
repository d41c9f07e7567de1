package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnavailable    = errors.New("storage unavailable")
	ErrInternalServer = errors.New("internal server error")

	// Reference decoding errors
	ErrInvalidReference = errors.New("invalid file reference")

	// Verification errors
	ErrLinkInvalid      = errors.New("verification link invalid or expired")
	ErrAlreadyConsumed  = errors.New("verification token already consumed")
	ErrTokenExpired     = errors.New("verification token expired")
	ErrIdentityMismatch = errors.New("verification link belongs to another user")
)
