package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lockplane/authd/internal/auth/domain"
	"github.com/lockplane/authd/internal/auth/mail"
	"github.com/lockplane/authd/internal/auth/store"
	"github.com/lockplane/authd/pkg/cryptox"
	"github.com/lockplane/authd/pkg/idx"
	"github.com/lockplane/authd/pkg/slogx"
)

// ErrInvalidResetToken is the single failure reported for an unknown,
// expired, or already-consumed reset token. Callers cannot tell which.
var ErrInvalidResetToken = errors.New("invalid_reset_token")

// ResetService runs the single-use password-reset flow: request a token,
// optionally pre-validate it, then consume it to set a new password.
type ResetService struct {
	Store    store.Store
	Notifier mail.Notifier
	TokenTTL time.Duration
}

// RequestReset issues a reset token for the account named by username and
// hands it to the notifier. The response is identical whether or not the
// account exists: callers learn nothing about the account base, and the
// work done is equalized by minting a token either way.
func (s *ResetService) RequestReset(ctx context.Context, username string) error {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return fmt.Errorf("reset: generate token: %w", err)
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Info("password reset requested for unknown account")
			return nil
		}
		return fmt.Errorf("reset: lookup user: %w", err)
	}

	rec := domain.ResetToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: time.Now().UTC().Add(s.TokenTTL),
	}
	if err := s.Store.ResetTokens().CreateResetToken(ctx, rec); err != nil {
		return fmt.Errorf("reset: store token: %w", err)
	}

	if err := s.Notifier.SendPasswordReset(ctx, user.Username, token); err != nil {
		// Delivery failure must not leak account existence to the caller.
		slogx.FromContext(ctx).Error("password reset delivery failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}
	return nil
}

// ValidateToken checks a reset token without consuming it, so a reset form
// can reject a dead link before asking for a new password.
func (s *ResetService) ValidateToken(ctx context.Context, token string) error {
	hash := cryptox.FingerprintToken(token)
	if _, err := s.Store.ResetTokens().GetActiveResetTokenByHash(ctx, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("reset: lookup token: %w", err)
	}
	return nil
}

// ResetPassword spends a reset token and sets the account's new password.
// Consumption, the password update, and bulk revocation of the user's
// refresh tokens commit atomically; concurrent presentations of the same
// token race on the conditional consume and exactly one wins.
func (s *ResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash := cryptox.FingerprintToken(token)

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("reset: hash password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		rec, err := tx.ResetTokens().GetActiveResetTokenByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidResetToken
			}
			return err
		}
		if err := tx.ResetTokens().ConsumeResetToken(ctx, hash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidResetToken
			}
			return err
		}
		if err := tx.Users().UpdatePasswordHash(ctx, rec.UserID, newHash); err != nil {
			return err
		}
		// A password reset invalidates every outstanding session.
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, rec.UserID)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("reset: consume token: %w", err)
	}
	return nil
}
