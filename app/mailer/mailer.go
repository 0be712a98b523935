package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-accounts/config"
)

type Message struct {
	To      []string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the mailer selected by cfg.Backend.
func New(cfg config.MailConfig) (Mailer, error) {
	switch cfg.Backend {
	case config.MailBackendSMTP:
		return NewSMTPMailer(cfg), nil
	case config.MailBackendLog, "":
		return NewLogMailer(cfg.From), nil
	default:
		return nil, fmt.Errorf("unsupported mail backend %q", cfg.Backend)
	}
}

// LogMailer writes outgoing messages to the log instead of delivering them.
type LogMailer struct {
	from string
}

func NewLogMailer(from string) *LogMailer {
	return &LogMailer{from: from}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"from":    m.from,
		"to":      strings.Join(msg.To, ","),
		"subject": msg.Subject,
		"body":    msg.Body,
	}).Info("Email message")
	return nil
}
