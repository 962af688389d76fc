package email

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

type smtpSender struct {
	dialer *gomail.Dialer
	config Config
}

// NewSMTPSender creates an SMTP-backed email sender for deployments that
// relay through their own mail infrastructure instead of Postmark.
func NewSMTPSender(cfg Config) (EmailSender, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("%w: SMTPHost is required", ErrInvalidConfig)
	}
	if cfg.SMTPPort <= 0 {
		return nil, fmt.Errorf("%w: SMTPPort must be positive", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" || !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}

	return &smtpSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		config: cfg,
	}, nil
}

// SendEmail implements EmailSender over SMTP.
// gomail dials per send; the queue's retry policy covers transient SMTP
// failures, so no connection pooling is done here.
func (s *smtpSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SenderEmail)
	m.SetHeader("To", params.SendTo)
	m.SetHeader("Subject", params.Subject)
	if s.config.SupportEmail != "" {
		m.SetHeader("Reply-To", s.config.SupportEmail)
	}
	m.SetBody("text/html", params.BodyHTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	return nil
}
