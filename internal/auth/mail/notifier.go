// Package mail delivers password-reset tokens to users. The service layer
// only sees the Notifier interface; deployments pick SMTP or, for dev and
// tests, the log-only notifier.
package mail

import (
	"context"
	"log/slog"

	"github.com/lockplane/authd/pkg/slogx"
)

// Notifier sends a password-reset token to its recipient out of band.
// Implementations must not leak the token into logs or error messages.
type Notifier interface {
	SendPasswordReset(ctx context.Context, to string, token string) error
}

// LogNotifier writes reset notifications to the structured log instead of
// sending mail. Meant for local development only: it logs the token, which
// a real deployment must never do.
type LogNotifier struct{}

func (LogNotifier) SendPasswordReset(ctx context.Context, to string, token string) error {
	slogx.FromContext(ctx).Warn("password reset token issued (log notifier, dev only)",
		slog.String("to", to),
		slog.String("token", token),
	)
	return nil
}
