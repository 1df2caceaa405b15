package notify

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

// EmailConfig configures the SMTP sender.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the envelope sender, e.g. "Acme <no-reply@acme.example>".
	From string
	// Subject for code emails.
	Subject string
}

// EmailSender delivers codes over SMTP.
type EmailSender struct {
	config EmailConfig
	dialer *gomail.Dialer
}

// NewEmailSender builds an SMTP [Sender].
func NewEmailSender(cfg EmailConfig) *EmailSender {
	if cfg.Subject == "" {
		cfg.Subject = "Your sign-in code"
	}
	return &EmailSender{
		config: cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send implements [Sender].
func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.From)
	m.SetHeader("To", msg.Recipient)
	m.SetHeader("Subject", s.config.Subject)
	m.SetBody("text/plain", fmt.Sprintf(
		"Your sign-in code is %s. It expires in %d minutes.\n\nIf you did not request this code, you can ignore this message.",
		msg.Code, int(msg.ExpiresIn.Minutes()),
	))

	return s.dialer.DialAndSend(m)
}
