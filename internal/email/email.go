// Package email sends transactional mail over SMTP. When mail is disabled in
// configuration, a logging no-op sender is used so callers stay unconditional.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	gomail "gopkg.in/gomail.v2"

	"github.com/felix-phuctran/base-be-go/internal/config"
)

// Sender delivers transactional messages to a single recipient.
type Sender interface {
	SendVerification(ctx context.Context, to, name, code string) error
	SendWelcome(ctx context.Context, to, name string) error
	SendCustom(ctx context.Context, to, subject, htmlBody string) error
}

var verificationTmpl = template.Must(template.New("verification").Parse(`
<p>Hi {{.Name}},</p>
<p>Use the following code to verify your account:</p>
<p><strong>{{.Code}}</strong></p>
<p>If you did not request this, you can ignore this message.</p>
`))

var welcomeTmpl = template.Must(template.New("welcome").Parse(`
<p>Hi {{.Name}},</p>
<p>Your account has been verified. Welcome aboard!</p>
`))

// SMTPSender sends mail through a configured SMTP relay.
type SMTPSender struct {
	cfg    *config.EmailConfig
	dialer *gomail.Dialer
	logger *slog.Logger
}

// NewSMTPSender builds a sender from SMTP configuration.
func NewSMTPSender(cfg *config.EmailConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}
}

func (s *SMTPSender) SendVerification(ctx context.Context, to, name, code string) error {
	body, err := render(verificationTmpl, map[string]string{"Name": name, "Code": code})
	if err != nil {
		return err
	}
	return s.send(ctx, to, "Verify your account", body)
}

func (s *SMTPSender) SendWelcome(ctx context.Context, to, name string) error {
	body, err := render(welcomeTmpl, map[string]string{"Name": name})
	if err != nil {
		return err
	}
	return s.send(ctx, to, "Welcome!", body)
}

func (s *SMTPSender) SendCustom(ctx context.Context, to, subject, htmlBody string) error {
	return s.send(ctx, to, subject, htmlBody)
}

func (s *SMTPSender) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	s.logger.Info("email sent", slog.String("to", to), slog.String("subject", subject))
	return nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// NopSender logs would-be deliveries instead of sending. Used when mail is
// disabled and in tests.
type NopSender struct {
	logger *slog.Logger
}

func NewNopSender(logger *slog.Logger) *NopSender {
	return &NopSender{logger: logger}
}

func (s *NopSender) SendVerification(ctx context.Context, to, name, code string) error {
	s.logger.Debug("email disabled, skipping verification mail", slog.String("to", to))
	return nil
}

func (s *NopSender) SendWelcome(ctx context.Context, to, name string) error {
	s.logger.Debug("email disabled, skipping welcome mail", slog.String("to", to))
	return nil
}

func (s *NopSender) SendCustom(ctx context.Context, to, subject, htmlBody string) error {
	s.logger.Debug("email disabled, skipping mail", slog.String("to", to), slog.String("subject", subject))
	return nil
}

// NewSender returns an SMTP sender when mail is enabled, a NopSender
// otherwise.
func NewSender(cfg *config.EmailConfig, logger *slog.Logger) Sender {
	if cfg != nil && cfg.Enabled {
		return NewSMTPSender(cfg, logger)
	}
	return NewNopSender(logger)
}
