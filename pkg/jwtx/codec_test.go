package jwtx

import (
	"testing"
	"time"

	"github.com/lockplane/authd/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, opts ...CodecOption) *Codec {
	t.Helper()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	signer, err := NewSigner(AlgorithmEdDSA, "test-key", pemKey)
	require.NoError(t, err)

	keys := NewKeySet()
	keys.AddSigner(signer)

	return NewCodec(signer, keys, "authd-test", opts...)
}

func TestIssueValidateRoundTrip(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	token, err := codec.Issue("alice", []string{"user", "admin"}, TokenTypeAccess, time.Minute)
	require.NoError(t, err)

	claims, err := codec.Validate(token, TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, []string{"user", "admin"}, claims.Roles)
	require.Equal(t, TokenTypeAccess, claims.TokenType)
	require.Equal(t, claims.IssuedAt.Add(time.Minute), claims.ExpiresAt.Time)
}

func TestValidateExpiryBoundary(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	at := now
	codec := newTestCodec(t, WithClock(func() time.Time { return at }))

	token, err := codec.Issue("alice", nil, TokenTypeAccess, time.Minute)
	require.NoError(t, err)

	// One tick before expiry still validates.
	at = now.Add(time.Minute - time.Second)
	_, err = codec.Validate(token, TokenTypeAccess)
	require.NoError(t, err)

	// Exactly at expiry fails.
	at = now.Add(time.Minute)
	_, err = codec.Validate(token, TokenTypeAccess)
	require.ErrorIs(t, err, ErrExpired)

	// And stays failed after.
	at = now.Add(time.Hour)
	_, err = codec.Validate(token, TokenTypeAccess)
	require.ErrorIs(t, err, ErrExpired)
}

func TestValidateLeewayWidensWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	at := now
	codec := newTestCodec(t,
		WithClock(func() time.Time { return at }),
		WithLeeway(5*time.Second),
	)

	token, err := codec.Issue("alice", nil, TokenTypeAccess, time.Minute)
	require.NoError(t, err)

	at = now.Add(time.Minute + 4*time.Second)
	_, err = codec.Validate(token, TokenTypeAccess)
	require.NoError(t, err)

	at = now.Add(time.Minute + 6*time.Second)
	_, err = codec.Validate(token, TokenTypeAccess)
	require.ErrorIs(t, err, ErrExpired)
}

func TestValidateTypeIsolation(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	refresh, err := codec.Issue("alice", nil, TokenTypeRefresh, time.Hour)
	require.NoError(t, err)
	access, err := codec.Issue("alice", []string{"user"}, TokenTypeAccess, time.Hour)
	require.NoError(t, err)

	_, err = codec.Validate(refresh, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTypeMismatch)

	_, err = codec.Validate(access, TokenTypeRefresh)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestValidateRejectsMalformed(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	_, err := codec.Validate("not.a.jwt", TokenTypeAccess)
	require.ErrorIs(t, err, ErrMalformed)

	_, err = codec.Validate("", TokenTypeAccess)
	require.ErrorIs(t, err, ErrMalformed)

	// A token signed by a different key fails signature verification.
	other := newTestCodec(t)
	token, err := other.Issue("alice", nil, TokenTypeAccess, time.Minute)
	require.NoError(t, err)

	_, err = codec.Validate(token, TokenTypeAccess)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestValidateRejectsForeignIssuer(t *testing.T) {
	t.Parallel()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := NewSigner(AlgorithmEdDSA, "shared-key", pemKey)
	require.NoError(t, err)

	keys := NewKeySet()
	keys.AddSigner(signer)

	ours := NewCodec(signer, keys, "authd")
	theirs := NewCodec(signer, keys, "someone-else")

	token, err := theirs.Issue("alice", nil, TokenTypeAccess, time.Minute)
	require.NoError(t, err)

	_, err = ours.Validate(token, TokenTypeAccess)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestAuthoritiesSkipsExpiryButNotSignature(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	at := now
	codec := newTestCodec(t, WithClock(func() time.Time { return at }))

	token, err := codec.Issue("alice", []string{"admin"}, TokenTypeAccess, time.Minute)
	require.NoError(t, err)

	// Roles extractable even after expiry.
	at = now.Add(time.Hour)
	roles, err := codec.Authorities(token)
	require.NoError(t, err)
	require.Equal(t, []string{"admin"}, roles)

	// But a tampered token is still rejected.
	_, err = codec.Authorities(token + "x")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestRS256SignerRoundTrip(t *testing.T) {
	t.Parallel()

	pemKey, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)

	signer, err := NewSigner(AlgorithmRS256, "rsa-key", pemKey)
	require.NoError(t, err)

	keys := NewKeySet()
	keys.AddSigner(signer)
	codec := NewCodec(signer, keys, "authd-test")

	token, err := codec.Issue("bob", []string{"user"}, TokenTypeAccess, time.Minute)
	require.NoError(t, err)

	claims, err := codec.Validate(token, TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, "bob", claims.Subject)
}
