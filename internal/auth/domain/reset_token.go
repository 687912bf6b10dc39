package domain

import "time"

// ResetToken is a single-use password-reset grant. Lifecycle is
// requested -> consumed or requested -> expired, terminal either way: once
// Consumed is set it never becomes usable again, regardless of remaining
// TTL.
type ResetToken struct {
	ID        string
	UserID    string
	TokenHash string // base64url SHA-256 fingerprint of the opaque token
	ExpiresAt time.Time
	Consumed  bool
	CreatedAt time.Time
}
