package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// SMTPNotifier sends password-reset mail over plain SMTP with optional
// PLAIN auth. Addr is host:port; From is the envelope and header sender.
// ResetURL, when set, is a printf-style template receiving the token and
// turning it into a clickable link; otherwise the raw token is mailed.
type SMTPNotifier struct {
	Addr     string
	From     string
	Username string
	Password string
	ResetURL string
}

func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, to string, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body := n.buildMessage(to, token)

	var auth smtp.Auth
	if n.Username != "" {
		host, _, err := net.SplitHostPort(n.Addr)
		if err != nil {
			return fmt.Errorf("smtp addr: %w", err)
		}
		auth = smtp.PlainAuth("", n.Username, n.Password, host)
	}

	if err := smtp.SendMail(n.Addr, auth, n.From, []string{to}, body); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) buildMessage(to string, token string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Password reset\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("A password reset was requested for your account.\r\n\r\n")
	if n.ResetURL != "" {
		fmt.Fprintf(&b, "Reset your password here: "+n.ResetURL+"\r\n", token)
	} else {
		fmt.Fprintf(&b, "Your reset token: %s\r\n", token)
	}
	b.WriteString("\r\nIf you did not request this, you can ignore this message.\r\n")
	return []byte(b.String())
}
