package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Config holds SMTP relay settings
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FrontendURL string
}

// SMTPMailer sends account verification email through a plain SMTP relay
type SMTPMailer struct {
	cfg    Config
	logger *slog.Logger
}

// NewSMTPMailer creates a mailer for the configured relay
func NewSMTPMailer(cfg Config, logger *slog.Logger) *SMTPMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// SendVerification delivers the verification link for a freshly registered
// account. Registration does not fail when the relay is down; the caller
// logs and continues.
func (m *SMTPMailer) SendVerification(ctx context.Context, email, token string) error {
	verificationURL := fmt.Sprintf("%s/verify-email?token=%s", strings.TrimRight(m.cfg.FrontendURL, "/"), token)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", email)
	b.WriteString("Subject: Verify Your Email\r\n")
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "<p>Thank you for signing up! Please verify your email by opening the link below.</p><p><a href=%q>Verify Email</a></p><p>If the link does not work, copy and paste it into your browser:</p><p>%s</p>", verificationURL, verificationURL)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.cfg.From, []string{email}, []byte(b.String()))
	}()

	select {
	case err := <-done:
		if err != nil {
			m.logger.Error("verification email failed",
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("send verification email: %w", err)
		}
		m.logger.Info("verification email sent", slog.String("email", email))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
