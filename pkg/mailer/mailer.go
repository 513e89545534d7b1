package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"crm-system/pkg/config"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type MailerInterface interface {
	Send(ctx context.Context, msg Message) error
	Enabled() bool
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPMailer struct {
	dialer dialer
	from   string
	logger *zap.Logger
}

// NewMailer returns an SMTP mailer, or a log-only mailer when SMTP_HOST is unset.
func NewMailer(cfg config.SMTPConfig, logger *zap.Logger) MailerInterface {
	if cfg.Host == "" {
		logger.Info("SMTP is not configured, reminder emails will only be logged")
		return &LogMailer{logger: logger}
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

func (m *SMTPMailer) Enabled() bool { return true }

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	m.logger.Debug("Mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

type LogMailer struct {
	logger *zap.Logger
}

func (m *LogMailer) Enabled() bool { return false }

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("Mail (not sent, SMTP disabled)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
