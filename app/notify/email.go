// Package notify delivers failure notifications to the operator mailbox over
// SMTP with STARTTLS.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

// SMTPConfig is the mail surface the notifier depends on.
type SMTPConfig struct {
	Host     string
	Port     int
	Sender   string
	Receiver string
	Password string
}

// Mailer emails operators about files that failed validation. It implements
// intake.Notifier.
type Mailer struct {
	sender   string
	receiver string
	dialer   *gomail.Dialer
	logger   *zap.Logger
}

func NewMailer(cfg SMTPConfig, logger *zap.Logger) *Mailer {
	return &Mailer{
		sender:   cfg.Sender,
		receiver: cfg.Receiver,
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Sender, cfg.Password),
		logger:   logger.With(zap.String("component", "notify")),
	}
}

// NotifyFailure sends one email carrying the file's display name and a
// human-readable reason. Secret field values never appear in the body; the
// validator already redacts them from its error messages.
func (m *Mailer) NotifyFailure(ctx context.Context, fileName, reason string) error {
	m.logger.Info("sending error email", zap.String("file", fileName))

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", m.receiver)
	msg.SetHeader("Subject", fmt.Sprintf("File Validation Error: %s", fileName))
	msg.SetBody("text/plain", fmt.Sprintf(
		"The file %s failed validation.\n\nError: %s\n\nTimestamp: %s\n",
		fileName, reason, time.Now().Format("2006-01-02 15:04:05")))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send error email: %w", err)
	}

	m.logger.Info("error email sent", zap.String("to", m.receiver))
	return nil
}
