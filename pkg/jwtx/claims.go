// Package jwtx implements the signed-token codec: claims layout, signing,
// and validation for access and refresh tokens.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType tags a token with the operation class it may be used for. A
// token is only ever accepted by the operation matching its type.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the structured data embedded in every signed token.
type Claims struct {
	jwt.RegisteredClaims

	// TokenType distinguishes access tokens from refresh tokens so one can
	// never be replayed where the other is expected.
	TokenType TokenType `json:"typ"`

	// Roles are the subject's authority claims at issuance time. Only
	// meaningful on access tokens; refresh consumers must re-derive roles
	// from the credential store.
	Roles []string `json:"roles,omitempty"`
}

// NewClaims builds claims for a token of the given type. Expiry is always
// issuedAt + ttl, never an absolute timestamp chosen by the caller.
func NewClaims(
	subject string,
	roles []string,
	typ TokenType,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
		TokenType: typ,
		Roles:     roles,
	}
}

// newJTI returns a URL-safe random identifier for the "jti" claim.
func newJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
