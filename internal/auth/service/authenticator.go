// Package service holds the credential-lifecycle business logic: password
// authentication, session issuance and rotation, and single-use password
// reset. HTTP is a thin layer above; stores and mail are injected below.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lockplane/authd/internal/auth/domain"
	"github.com/lockplane/authd/internal/auth/store"
	"github.com/lockplane/authd/pkg/cryptox"
	"github.com/lockplane/authd/pkg/slogx"
)

// ErrInvalidCredentials is the single failure an authenticator reports for
// wrong password AND unknown username. Callers must not distinguish the two.
var ErrInvalidCredentials = errors.New("invalid_credentials")

// LoginHook is invoked after every authentication attempt with the outcome.
// Used for audit trails and lockout counters; a panicking hook is recovered
// and logged, never surfaced to the caller.
type LoginHook func(ctx context.Context, username string, ok bool)

// Authenticator verifies username/password credentials against the store.
type Authenticator struct {
	Store store.Store
	Hooks []LoginHook

	// decoyHash is a throwaway argon2id hash verified when the username does
	// not exist, so unknown-user and wrong-password attempts cost the same.
	decoyHash string
}

// NewAuthenticator builds an authenticator, pre-computing the decoy hash
// used to equalize timing for unknown usernames.
func NewAuthenticator(s store.Store, hooks ...LoginHook) (*Authenticator, error) {
	decoy, err := cryptox.HashPassword("decoy-password-never-matches")
	if err != nil {
		return nil, fmt.Errorf("authenticator: decoy hash: %w", err)
	}
	return &Authenticator{Store: s, Hooks: hooks, decoyHash: decoy}, nil
}

// Authenticate verifies the credentials and returns the matching user.
// Unknown usernames and wrong passwords are indistinguishable: both burn an
// argon2 verification and both return ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	user, err := a.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same work a real verification would.
			_ = cryptox.VerifyPassword(password, a.decoyHash)
			a.notify(ctx, username, false)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("authenticator: lookup user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			a.notify(ctx, username, false)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("authenticator: verify password: %w", err)
	}

	a.notify(ctx, username, true)
	return user, nil
}

func (a *Authenticator) notify(ctx context.Context, username string, ok bool) {
	for _, hook := range a.Hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slogx.FromContext(ctx).Error("login hook panicked",
						slog.Any("panic", r))
				}
			}()
			hook(ctx, username, ok)
		}()
	}
}
