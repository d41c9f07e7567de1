package models

import (
	"time"
)

// VerificationToken represents a single-use access verification token.
// The plaintext token only ever appears inside the challenge deep-link;
// the store keeps its SHA-256 hash.
type VerificationToken struct {
	ID         string     `json:"id"`
	UserID     int64      `json:"user_id"`
	TokenHash  string     `json:"-"` // Never expose token hash
	IssuedAt   time.Time  `json:"issued_at"`
	ValidUntil time.Time  `json:"valid_until"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// IsExpired checks if the token has expired at the given instant
func (t *VerificationToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ValidUntil)
}

// IsConsumed checks if the token has already been redeemed
func (t *VerificationToken) IsConsumed() bool {
	return t.ConsumedAt != nil
}

// GrantsAccess reports whether this token currently verifies its user:
// redeemed and not yet past the midnight-UTC boundary it was issued under.
func (t *VerificationToken) GrantsAccess(now time.Time) bool {
	return t.IsConsumed() && !t.IsExpired(now)
}
