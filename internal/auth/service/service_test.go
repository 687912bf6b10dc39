package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lockplane/authd/internal/auth/domain"
	"github.com/lockplane/authd/internal/auth/store"
	"github.com/lockplane/authd/internal/auth/store/drivers/sqlite"
	"github.com/lockplane/authd/pkg/cryptox"
	"github.com/lockplane/authd/pkg/idx"
	"github.com/lockplane/authd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "authd-test-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper.key"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// captureNotifier records reset tokens instead of sending them.
type captureNotifier struct {
	to    []string
	token []string
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, to, token string) error {
	n.to = append(n.to, to)
	n.token = append(n.token, token)
	return nil
}

type fixture struct {
	store    store.Store
	codec    *jwtx.Codec
	auth     *Authenticator
	sessions *SessionService
	resets   *ResetService
	notifier *captureNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSigner(jwtx.AlgorithmEdDSA, "test-key", pemKey)
	require.NoError(t, err)
	keys := jwtx.NewKeySet()
	keys.AddSigner(signer)
	codec := jwtx.NewCodec(signer, keys, "authd-test")

	auth, err := NewAuthenticator(s)
	require.NoError(t, err)

	notifier := &captureNotifier{}

	return &fixture{
		store: s,
		codec: codec,
		auth:  auth,
		sessions: &SessionService{
			Codec:      codec,
			Store:      s,
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
		},
		resets: &ResetService{
			Store:    s,
			Notifier: notifier,
			TokenTTL: time.Hour,
		},
		notifier: notifier,
	}
}

func (f *fixture) seedUser(t *testing.T, username, password string, roles ...domain.Role) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		Roles:        roles,
	}
	require.NoError(t, f.store.Users().CreateUser(context.Background(), u))
	return u
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "alice@example.com", "correct horse battery", domain.RoleUser)

	t.Run("correct password", func(t *testing.T) {
		user, err := f.auth.Authenticate(ctx, "alice@example.com", "correct horse battery")
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", user.Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.auth.Authenticate(ctx, "alice@example.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown username looks identical", func(t *testing.T) {
		_, err := f.auth.Authenticate(ctx, "nobody@example.com", "whatever")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthenticateHooks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "alice@example.com", "pw-alice", domain.RoleUser)

	type attempt struct {
		username string
		ok       bool
	}
	var seen []attempt
	auth, err := NewAuthenticator(f.store, func(_ context.Context, username string, ok bool) {
		seen = append(seen, attempt{username, ok})
	})
	require.NoError(t, err)

	_, _ = auth.Authenticate(ctx, "alice@example.com", "pw-alice")
	_, _ = auth.Authenticate(ctx, "alice@example.com", "bad")
	_, _ = auth.Authenticate(ctx, "ghost", "bad")

	require.Equal(t, []attempt{
		{"alice@example.com", true},
		{"alice@example.com", false},
		{"ghost", false},
	}, seen)
}

func TestLoginAndIntrospect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.seedUser(t, "alice@example.com", "pw", domain.RoleAdmin, domain.RoleUser)

	sess, err := f.sessions.Login(ctx, u)
	require.NoError(t, err)
	require.NotEmpty(t, sess.AccessToken)
	require.NotEmpty(t, sess.RefreshToken)
	require.Equal(t, 15*time.Minute, sess.ExpiresIn)

	p, err := f.sessions.Introspect(ctx, sess.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, p.ID)
	require.ElementsMatch(t, []domain.Role{domain.RoleAdmin, domain.RoleUser}, p.Roles)

	t.Run("refresh token rejected as access", func(t *testing.T) {
		_, err := f.sessions.Introspect(ctx, sess.RefreshToken)
		require.ErrorIs(t, err, jwtx.ErrTypeMismatch)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := f.sessions.Introspect(ctx, "not.a.token")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestRefreshRotation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.seedUser(t, "alice@example.com", "pw", domain.RoleUser)

	sess, err := f.sessions.Login(ctx, u)
	require.NoError(t, err)

	rotated, err := f.sessions.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, sess.RefreshToken, rotated.RefreshToken)
	require.NotEmpty(t, rotated.AccessToken)

	t.Run("spent token cannot be replayed", func(t *testing.T) {
		_, err := f.sessions.Refresh(ctx, sess.RefreshToken)
		require.ErrorIs(t, err, ErrRefreshRevoked)
	})

	t.Run("rotated token chains forward", func(t *testing.T) {
		_, err := f.sessions.Refresh(ctx, rotated.RefreshToken)
		require.NoError(t, err)
	})
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.seedUser(t, "alice@example.com", "pw", domain.RoleUser)

	sess, err := f.sessions.Login(ctx, u)
	require.NoError(t, err)

	_, err = f.sessions.Refresh(ctx, sess.AccessToken)
	require.ErrorIs(t, err, jwtx.ErrTypeMismatch)
}

func TestRefreshRederivesRoles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.seedUser(t, "alice@example.com", "pw", domain.RoleUser)

	sess, err := f.sessions.Login(ctx, u)
	require.NoError(t, err)

	// Promotion lands on the next refresh, not on outstanding access tokens.
	require.NoError(t, f.store.Users().UpdateRoles(ctx, u.ID, []domain.Role{domain.RoleAdmin, domain.RoleUser}))

	rotated, err := f.sessions.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)

	p, err := f.sessions.Introspect(ctx, rotated.AccessToken)
	require.NoError(t, err)
	require.ElementsMatch(t, []domain.Role{domain.RoleAdmin, domain.RoleUser}, p.Roles)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.seedUser(t, "alice@example.com", "pw", domain.RoleUser)

	sess, err := f.sessions.Login(ctx, u)
	require.NoError(t, err)

	require.NoError(t, f.sessions.Logout(ctx, sess.RefreshToken))

	_, err = f.sessions.Refresh(ctx, sess.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshRevoked)

	t.Run("logout is idempotent", func(t *testing.T) {
		require.NoError(t, f.sessions.Logout(ctx, sess.RefreshToken))
	})

	t.Run("logout of garbage is a no-op", func(t *testing.T) {
		require.NoError(t, f.sessions.Logout(ctx, "not.a.token"))
	})
}

func TestResetFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.seedUser(t, "alice@example.com", "old password", domain.RoleUser)

	sess, err := f.sessions.Login(ctx, u)
	require.NoError(t, err)

	require.NoError(t, f.resets.RequestReset(ctx, "alice@example.com"))
	require.Len(t, f.notifier.token, 1)
	token := f.notifier.token[0]
	require.Equal(t, []string{"alice@example.com"}, f.notifier.to)

	require.NoError(t, f.resets.ValidateToken(ctx, token))

	require.NoError(t, f.resets.ResetPassword(ctx, token, "new password"))

	t.Run("password changed", func(t *testing.T) {
		_, err := f.auth.Authenticate(ctx, "alice@example.com", "old password")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = f.auth.Authenticate(ctx, "alice@example.com", "new password")
		require.NoError(t, err)
	})

	t.Run("outstanding sessions revoked", func(t *testing.T) {
		_, err := f.sessions.Refresh(ctx, sess.RefreshToken)
		require.ErrorIs(t, err, ErrRefreshRevoked)
	})

	t.Run("token is single use", func(t *testing.T) {
		require.ErrorIs(t, f.resets.ResetPassword(ctx, token, "another password"), ErrInvalidResetToken)
		require.ErrorIs(t, f.resets.ValidateToken(ctx, token), ErrInvalidResetToken)
	})
}

func TestResetUnknownAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Same success as a real account; nothing delivered, nothing leaked.
	require.NoError(t, f.resets.RequestReset(ctx, "nobody@example.com"))
	require.Empty(t, f.notifier.token)
}

func TestResetTokenExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "alice@example.com", "pw", domain.RoleUser)

	f.resets.TokenTTL = -time.Minute
	require.NoError(t, f.resets.RequestReset(ctx, "alice@example.com"))
	require.Len(t, f.notifier.token, 1)

	require.ErrorIs(t, f.resets.ValidateToken(ctx, f.notifier.token[0]), ErrInvalidResetToken)
	require.ErrorIs(t, f.resets.ResetPassword(ctx, f.notifier.token[0], "pw2"), ErrInvalidResetToken)
}

func TestBootstrapEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	boot := &BootstrapService{
		Store:         f.store,
		AdminUsername: "admin@example.com",
		AdminPassword: "bootstrap password",
	}
	require.NoError(t, boot.EnsureAdmin(ctx))

	admin, err := f.auth.Authenticate(ctx, "admin@example.com", "bootstrap password")
	require.NoError(t, err)
	require.Equal(t, []domain.Role{domain.RoleAdmin}, admin.Roles)

	t.Run("second run is a no-op", func(t *testing.T) {
		require.NoError(t, boot.EnsureAdmin(ctx))
	})

	t.Run("skips populated database", func(t *testing.T) {
		f2 := newFixture(t)
		f2.seedUser(t, "existing@example.com", "pw", domain.RoleUser)
		require.NoError(t, (&BootstrapService{
			Store:         f2.store,
			AdminUsername: "admin@example.com",
			AdminPassword: "x",
		}).EnsureAdmin(ctx))

		_, err := f2.store.Users().GetUserByUsername(ctx, "admin@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestHousekeepingSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.seedUser(t, "alice@example.com", "pw", domain.RoleUser)

	require.NoError(t, f.store.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: "stale-fp",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}))

	hk := &HousekeepingService{Store: f.store, Interval: time.Millisecond}
	hk.sweep(ctx)

	_, err := f.store.RefreshTokens().GetRefreshTokenByHash(ctx, "stale-fp")
	require.ErrorIs(t, err, store.ErrNotFound)
}
