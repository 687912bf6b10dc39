package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lockplane/authd/internal/auth/domain"
	"github.com/lockplane/authd/internal/auth/store"
	"github.com/lockplane/authd/pkg/cryptox"
	"github.com/lockplane/authd/pkg/idx"
	"github.com/lockplane/authd/pkg/jwtx"
)

// ErrRefreshRevoked reports a refresh token that is structurally valid but
// no longer active: already rotated, revoked by logout, or never recorded.
var ErrRefreshRevoked = errors.New("refresh_token_revoked")

// SessionService issues, refreshes, introspects, and revokes token pairs.
//
// Refresh tokens are signed JWTs like access tokens, but each one is also
// recorded in the store by fingerprint. The signature check gives type
// isolation and tamper rejection; the store record gives rotation
// at-most-once and revocation on logout.
type SessionService struct {
	Codec      *jwtx.Codec
	Store      store.Store
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Login authenticates nothing itself: the caller must pass a user that an
// Authenticator has already verified. It mints a fresh access/refresh pair
// and records the refresh fingerprint.
func (s *SessionService) Login(ctx context.Context, user domain.User) (domain.Session, error) {
	access, refresh, err := s.issuePair(ctx, user)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		Principal:    user.Principal(),
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.AccessTTL,
	}, nil
}

// Refresh exchanges a live refresh token for a new pair, retiring the old
// token. Rotation is atomic: the conditional revoke and the insert of the
// replacement happen in one transaction, so a token can be spent once even
// under concurrent presentation. Roles on the new access token come from
// the store, not from the old token, so role changes take effect here.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (domain.RefreshedSession, error) {
	claims, err := s.Codec.Validate(refreshToken, jwtx.TokenTypeRefresh)
	if err != nil {
		return domain.RefreshedSession{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RefreshedSession{}, ErrRefreshRevoked
		}
		return domain.RefreshedSession{}, fmt.Errorf("session: lookup user: %w", err)
	}

	newRefresh, err := s.Codec.Issue(user.ID, nil, jwtx.TokenTypeRefresh, s.RefreshTTL)
	if err != nil {
		return domain.RefreshedSession{}, err
	}

	hash := cryptox.FingerprintToken(refreshToken)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, hash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrRefreshRevoked
			}
			return err
		}
		return s.recordRefresh(ctx, tx, user.ID, newRefresh)
	})
	if err != nil {
		if errors.Is(err, ErrRefreshRevoked) {
			return domain.RefreshedSession{}, ErrRefreshRevoked
		}
		return domain.RefreshedSession{}, fmt.Errorf("session: rotate refresh token: %w", err)
	}

	access, err := s.Codec.Issue(user.ID, domain.RoleStrings(user.Roles), jwtx.TokenTypeAccess, s.AccessTTL)
	if err != nil {
		return domain.RefreshedSession{}, err
	}

	return domain.RefreshedSession{
		Principal:    user.Principal(),
		AccessToken:  access,
		RefreshToken: newRefresh,
		ExpiresIn:    s.AccessTTL,
	}, nil
}

// Logout revokes the presented refresh token. Revoking an already-dead or
// unknown token is not an error: logout is idempotent.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	if _, err := s.Codec.Validate(refreshToken, jwtx.TokenTypeRefresh); err != nil {
		// A token we never signed (or that expired) holds no session worth
		// revoking. Treat it as already logged out.
		return nil
	}

	hash := cryptox.FingerprintToken(refreshToken)
	if err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("session: revoke refresh token: %w", err)
	}
	return nil
}

// Introspect validates an access token and returns the principal it grants.
// Identity comes from the token claims alone; no store round trip.
func (s *SessionService) Introspect(_ context.Context, accessToken string) (domain.Principal, error) {
	claims, err := s.Codec.Validate(accessToken, jwtx.TokenTypeAccess)
	if err != nil {
		return domain.Principal{}, err
	}

	roles, err := domain.ParseRoles(claims.Roles)
	if err != nil {
		return domain.Principal{}, jwtx.ErrMalformed
	}

	return domain.Principal{
		ID:    claims.Subject,
		Roles: roles,
	}, nil
}

func (s *SessionService) issuePair(ctx context.Context, user domain.User) (access, refresh string, err error) {
	access, err = s.Codec.Issue(user.ID, domain.RoleStrings(user.Roles), jwtx.TokenTypeAccess, s.AccessTTL)
	if err != nil {
		return "", "", err
	}

	refresh, err = s.Codec.Issue(user.ID, nil, jwtx.TokenTypeRefresh, s.RefreshTTL)
	if err != nil {
		return "", "", err
	}

	if err := s.recordRefresh(ctx, s.Store, user.ID, refresh); err != nil {
		return "", "", fmt.Errorf("session: record refresh token: %w", err)
	}
	return access, refresh, nil
}

func (s *SessionService) recordRefresh(ctx context.Context, st store.Store, userID, token string) error {
	return st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: time.Now().UTC().Add(s.RefreshTTL),
	})
}
