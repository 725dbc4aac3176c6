package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/innointernhub/backend/pkg/config"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

var (
	ErrNoRecipient = errors.New("email has no recipient")
	ErrNoContent   = errors.New("email has no content")
)

type sendFunc func(ctx context.Context, req rest.Request) (*rest.Response, error)

// Sendgrid sends mail through the SendGrid v3 API.
type Sendgrid struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	send       sendFunc
}

var _ Mailer = (*Sendgrid)(nil)

func NewSendgrid(cfg config.SendgridConfig, appName string) *Sendgrid {
	return &Sendgrid{
		key:        cfg.APIKey,
		from:       sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		subjPrefix: "[" + appName + "] ",
		send: func(_ context.Context, req rest.Request) (*rest.Response, error) {
			return sendgrid.API(req)
		},
	}
}

func (s *Sendgrid) Send(ctx context.Context, msg Message) error {
	if !msg.HasRecipient() {
		return ErrNoRecipient
	}
	if !msg.HasContent() {
		return ErrNoContent
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := s.send(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (s *Sendgrid) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	p.AddTos(sgEmail(msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)

	if msg.TextContent != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func sgEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}
