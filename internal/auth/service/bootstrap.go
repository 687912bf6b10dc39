package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lockplane/authd/internal/auth/domain"
	"github.com/lockplane/authd/internal/auth/store"
	"github.com/lockplane/authd/pkg/cryptox"
	"github.com/lockplane/authd/pkg/idx"
	"github.com/lockplane/authd/pkg/slogx"
)

// BootstrapService seeds the initial admin account on an empty database so
// a fresh deployment is usable without manual SQL.
type BootstrapService struct {
	Store store.Store

	AdminUsername string
	AdminPassword string
}

// EnsureAdmin creates the configured admin user when the user table is
// empty. On a populated database it does nothing, so it is safe to run on
// every startup.
func (s *BootstrapService) EnsureAdmin(ctx context.Context) error {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: check users: %w", err)
	}
	if !empty {
		return nil
	}

	hash, err := cryptox.HashPassword(s.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap: hash admin password: %w", err)
	}

	admin := domain.User{
		ID:           idx.New().String(),
		Username:     s.AdminUsername,
		PasswordHash: hash,
		Roles:        []domain.Role{domain.RoleAdmin},
	}
	if err := s.Store.Users().CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("bootstrap: create admin: %w", err)
	}

	slogx.FromContext(ctx).Info("seeded initial admin account",
		slog.String("user_id", admin.ID),
		slog.String("username", admin.Username))
	return nil
}
