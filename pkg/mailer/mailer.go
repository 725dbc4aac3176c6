package mailer

import (
	"context"
	"net/mail"
	"strings"

	"github.com/innointernhub/backend/pkg/config"
	"github.com/innointernhub/backend/pkg/logger"
)

// Message is a single transactional email.
type Message struct {
	To          mail.Address
	Subject     string
	TextContent string
	HTMLContent string
}

// HasRecipient reports whether the message can be delivered at all.
func (m Message) HasRecipient() bool {
	return strings.TrimSpace(m.To.Address) != ""
}

// HasContent reports whether a body was supplied.
func (m Message) HasContent() bool {
	return m.TextContent != "" || m.HTMLContent != ""
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New picks SendGrid when an API key is configured and falls back to logging otherwise.
func New(cfg config.SendgridConfig, appName string, logg *logger.Logger) Mailer {
	if cfg.Enabled() {
		return NewSendgrid(cfg, appName)
	}
	return NewLogMailer(logg)
}

// LogMailer writes messages to the structured log instead of sending them.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

func (l *LogMailer) Send(ctx context.Context, msg Message) error {
	if !msg.HasRecipient() {
		return ErrNoRecipient
	}
	if l.logg == nil {
		return nil
	}
	ctx = l.logg.WithFields(ctx, map[string]any{
		"to":      msg.To.Address,
		"subject": msg.Subject,
	})
	l.logg.Info(ctx, "email suppressed (sendgrid disabled)")
	return nil
}
