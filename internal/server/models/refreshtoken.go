package models

import "time"

// RefreshToken is the persisted form of a renewal credential. Only the salted
// hash of the plaintext is kept; LookupPrefix narrows the verification scan.
type RefreshToken struct {
	ID           string
	UserID       string
	TokenHash    string
	LookupPrefix string
	IssuedAt     time.Time
	// ExpiresAt is nil for a token that never expires.
	ExpiresAt *time.Time
	Revoked   bool
}

// Expired reports whether the token's expiry lies at or before now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}
