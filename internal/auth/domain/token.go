package domain

import "time"

// RefreshToken is the stored record backing a refresh JWT. The token string
// itself is never persisted; only its SHA-256 fingerprint is, which is what
// makes rotation and revocation-on-logout possible.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // base64url SHA-256 fingerprint of the token string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session is the result of a successful login: the principal plus a fresh
// access/refresh token pair.
type Session struct {
	Principal    Principal
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration // access token lifetime
}

// RefreshedSession is the result of a successful refresh. RefreshToken is
// the rotated token; the one presented is dead once this is returned.
type RefreshedSession struct {
	Principal    Principal
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}
