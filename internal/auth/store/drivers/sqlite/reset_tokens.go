package sqlite

import (
	"context"
	"time"

	"github.com/lockplane/authd/internal/auth/domain"
)

type resetTokensRepo struct {
	q dbtx
}

func (r *resetTokensRepo) CreateResetToken(ctx context.Context, t domain.ResetToken) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO reset_tokens (id, user_id, token_hash, expires_at, consumed, created_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt.UTC(), time.Now().UTC())
	return err
}

func (r *resetTokensRepo) GetActiveResetTokenByHash(
	ctx context.Context,
	hash string,
) (domain.ResetToken, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, consumed, created_at
		 FROM reset_tokens
		 WHERE token_hash = ? AND consumed = 0 AND expires_at > ?`,
		hash, time.Now().UTC())

	var t domain.ResetToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Consumed, &t.CreatedAt)
	if err != nil {
		return domain.ResetToken{}, mapNotFound(err)
	}
	return t, nil
}

// ConsumeResetToken is the at-most-once guard for the reset flow: the
// conditional update means only one of any number of concurrent consumers
// can observe consumed = 0 and win.
func (r *resetTokensRepo) ConsumeResetToken(ctx context.Context, hash string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE reset_tokens SET consumed = 1
		 WHERE token_hash = ? AND consumed = 0 AND expires_at > ?`,
		hash, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

func (r *resetTokensRepo) DeleteExpiredResetTokens(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM reset_tokens WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
