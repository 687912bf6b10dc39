package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired reports a token validated at or after its expiry instant.
	ErrExpired = errors.New("jwtx: token expired")

	// ErrMalformed reports a token that cannot be parsed, carries an unknown
	// kid, or fails signature verification. Treated upstream as a possible
	// tampering event.
	ErrMalformed = errors.New("jwtx: malformed token")

	// ErrTypeMismatch reports a structurally valid token presented to an
	// operation expecting the other token type.
	ErrTypeMismatch = errors.New("jwtx: token type mismatch")
)

// Codec issues and validates signed tokens. The zero leeway default means a
// token is valid strictly before its expiry instant and expired at it.
type Codec struct {
	signer Signer
	keys   *KeySet
	issuer string
	leeway time.Duration

	now func() time.Time
}

// CodecOption customises a Codec.
type CodecOption func(*Codec)

// WithLeeway allows a clock-skew grace window when validating exp/nbf.
func WithLeeway(d time.Duration) CodecOption {
	return func(c *Codec) { c.leeway = d }
}

// WithClock overrides the time source. Only used by tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// NewCodec builds a codec signing with signer and verifying against keys.
// The signer's own public key must already be present in keys (or added by
// the caller) for round-trips to validate.
func NewCodec(signer Signer, keys *KeySet, issuer string, opts ...CodecOption) *Codec {
	c := &Codec{
		signer: signer,
		keys:   keys,
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs a token for subject with the given roles, type, and TTL.
// Expiry is computed here as issuedAt + ttl.
func (c *Codec) Issue(subject string, roles []string, typ TokenType, ttl time.Duration) (string, error) {
	claims := NewClaims(subject, roles, typ, ttl, c.issuer, c.now().UTC())
	token, err := c.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign token: %w", err)
	}
	return token, nil
}

// Validate parses and verifies a token, then checks that its type claim
// matches want. Failures are always one of ErrExpired, ErrMalformed, or
// ErrTypeMismatch.
func (c *Codec) Validate(token string, want TokenType) (Claims, error) {
	claims, err := c.parse(token, true)
	if err != nil {
		return Claims{}, err
	}

	if claims.Issuer != c.issuer {
		return Claims{}, ErrMalformed
	}
	if claims.TokenType != want {
		return Claims{}, ErrTypeMismatch
	}

	return claims, nil
}

// Authorities extracts the role claims from a token, checking the signature
// but not expiry. Only safe to call on a token that has already passed
// Validate; it exists so authorization checks downstream of validation do
// not re-litigate expiry.
func (c *Codec) Authorities(token string) ([]string, error) {
	claims, err := c.parse(token, false)
	if err != nil {
		return nil, err
	}
	return claims.Roles, nil
}

func (c *Codec) parse(token string, validateTime bool) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{AlgorithmEdDSA, AlgorithmRS256}),
		jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }),
		jwt.WithLeeway(c.leeway),
	}
	if !validateTime {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		return c.keys.Get(kid)
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrMalformed
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrMalformed
	}
	return *claims, nil
}
