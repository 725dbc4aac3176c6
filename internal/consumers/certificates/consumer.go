package certificates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/enums"
	"github.com/innointernhub/backend/pkg/logger"
	"github.com/innointernhub/backend/pkg/mailer"
	"github.com/innointernhub/backend/pkg/outbox"
	"github.com/innointernhub/backend/pkg/outbox/idempotency"
	"github.com/innointernhub/backend/pkg/outbox/payloads"
	"github.com/innointernhub/backend/pkg/outbox/registry"
)

// Each side effect keeps its own idempotency mark so a redelivery only
// retries the steps that failed.
const (
	consumerPoints       = "certificate-points"
	consumerNotification = "certificate-notification"
	consumerEmail        = "certificate-email"
	consumerDeliveries   = "certificate-worker"

	studentCertificatesLink = "/dashboard/student/certificates"
)

type idempotencyRunner interface {
	Run(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) error
}

type deliveryCounter interface {
	CountDelivery(ctx context.Context, consumer, messageKey string) (int64, error)
}

type pointsAwarder interface {
	IncrementPoints(ctx context.Context, id uuid.UUID, delta int) error
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type userStore interface {
	pointsAwarder
	userFinder
}

type notificationCreator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// EventRecorder counts handled events by type and result.
type EventRecorder interface {
	IncEvent(eventType, result string)
}

// Deps groups the collaborators the consumer fans side effects out to.
type Deps struct {
	Users         userStore
	Notifications notificationCreator
	Mailer        mailer.Mailer
	Idempotency   idempotencyRunner
	Deliveries    deliveryCounter
	Logger        *logger.Logger
	Metrics       EventRecorder
	PublicURL     string
	PlatformName  string
	MaxDeliveries int
}

// Consumer applies the side effects of certificate events: points, in-app
// notifications and email.
type Consumer struct {
	decoders      *registry.DecoderRegistry
	users         pointsAwarder
	finder        userFinder
	notifications notificationCreator
	mail          mailer.Mailer
	idempotency   idempotencyRunner
	deliveries    deliveryCounter
	logg          *logger.Logger
	metrics       EventRecorder
	publicURL     string
	platformName  string
	maxDeliveries int
}

// NewDecoders registers the payload decoders for every certificate event version.
func NewDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventCertificateIssued, 1, registry.JSONDecoder[payloads.CertificateIssuedEvent]())
	decoders.Register(enums.EventCertificateRevoked, 1, registry.JSONDecoder[payloads.CertificateRevokedEvent]())
	return decoders
}

func NewConsumer(deps Deps) (*Consumer, error) {
	if deps.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if deps.Notifications == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if deps.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if deps.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.MaxDeliveries > 0 && deps.Deliveries == nil {
		return nil, fmt.Errorf("delivery counter required when max deliveries is set")
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	platform := strings.TrimSpace(deps.PlatformName)
	if platform == "" {
		platform = "InnoInternHUB"
	}
	return &Consumer{
		decoders:      NewDecoders(),
		users:         deps.Users,
		finder:        deps.Users,
		notifications: deps.Notifications,
		mail:          deps.Mailer,
		idempotency:   deps.Idempotency,
		deliveries:    deps.Deliveries,
		logg:          deps.Logger,
		metrics:       metrics,
		publicURL:     strings.TrimRight(strings.TrimSpace(deps.PublicURL), "/"),
		platformName:  platform,
		maxDeliveries: deps.MaxDeliveries,
	}, nil
}

// Run receives messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context, subscription *pubsub.Subscriber) error {
	if subscription == nil {
		return fmt.Errorf("certificate subscription required")
	}
	return subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logCtx := c.logg.WithField(ctx, "message_id", msg.ID)
		err := c.Handle(ctx, msg.Data)
		switch {
		case err == nil:
			msg.Ack()
		case isPermanent(err):
			c.logg.Error(logCtx, "dropping undecodable certificate event", err)
			msg.Ack()
		case c.exhausted(logCtx, msg):
			c.logg.Error(logCtx, "certificate event side effects abandoned after max deliveries", err)
			msg.Ack()
		default:
			c.logg.Warn(logCtx, "certificate event side effects failed; requesting redelivery")
			msg.Nack()
		}
	})
}

// exhausted reports whether a failing message has used up its deliveries.
// Pub/Sub only fills DeliveryAttempt under a dead-letter policy, so the
// count is otherwise kept in Redis.
func (c *Consumer) exhausted(ctx context.Context, msg *pubsub.Message) bool {
	if c.maxDeliveries <= 0 {
		return false
	}
	if msg.DeliveryAttempt != nil {
		return *msg.DeliveryAttempt >= c.maxDeliveries
	}
	if c.deliveries == nil {
		return false
	}
	count, err := c.deliveries.CountDelivery(ctx, consumerDeliveries, deliveryKey(msg))
	if err != nil {
		c.logg.Error(ctx, "failed to count certificate event delivery", err)
		return false
	}
	return count >= int64(c.maxDeliveries)
}

func deliveryKey(msg *pubsub.Message) string {
	if id := strings.TrimSpace(msg.Attributes["event_id"]); id != "" {
		return id
	}
	return msg.ID
}

// Handle decodes one published envelope and applies its side effects. A
// nil error means every step either succeeded now or already had.
func (c *Consumer) Handle(ctx context.Context, data []byte) error {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.metrics.IncEvent("unknown", "invalid")
		return registry.NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	eventType := enums.OutboxEventType(envelope.EventType)
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.metrics.IncEvent(string(eventType), "invalid")
		return registry.NewNonRetryableError(fmt.Errorf("parse event id: %w", err))
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   eventID.String(),
		"event_type": envelope.EventType,
	})

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.metrics.IncEvent(string(eventType), "invalid")
		return err
	}

	switch event := payload.(type) {
	case *payloads.CertificateIssuedEvent:
		err = c.handleIssued(logCtx, eventID, event)
	case *payloads.CertificateRevokedEvent:
		err = c.handleRevoked(logCtx, eventID, event)
	default:
		c.metrics.IncEvent(string(eventType), "invalid")
		return registry.NewNonRetryableError(fmt.Errorf("unexpected payload %T", payload))
	}

	if err != nil {
		c.metrics.IncEvent(string(eventType), "error")
		c.logg.Error(logCtx, "certificate event handling failed", err)
		return err
	}
	c.metrics.IncEvent(string(eventType), "ok")
	c.logg.Info(logCtx, "certificate event handled")
	return nil
}

func (c *Consumer) handleIssued(ctx context.Context, eventID uuid.UUID, event *payloads.CertificateIssuedEvent) error {
	if event.StudentID == uuid.Nil {
		return registry.NewNonRetryableError(fmt.Errorf("student id missing"))
	}
	var errs error
	if event.AwardPoints > 0 {
		errs = multierr.Append(errs, c.step(ctx, consumerPoints, eventID, func(ctx context.Context) error {
			return c.users.IncrementPoints(ctx, event.StudentID, event.AwardPoints)
		}))
	}
	errs = multierr.Append(errs, c.step(ctx, consumerNotification, eventID, func(ctx context.Context) error {
		return c.notifications.Create(ctx, &models.Notification{
			UserID:  event.StudentID,
			Type:    enums.NotificationTypeCertificateIssued,
			Title:   "Certificate Issued!",
			Message: fmt.Sprintf("Your certificate for \"%s\" is ready for download.", event.ProjectTitle),
			Link:    stringPtr(studentCertificatesLink),
		})
	}))
	errs = multierr.Append(errs, c.step(ctx, consumerEmail, eventID, func(ctx context.Context) error {
		return c.sendIssuedEmail(ctx, event)
	}))
	return errs
}

func (c *Consumer) handleRevoked(ctx context.Context, eventID uuid.UUID, event *payloads.CertificateRevokedEvent) error {
	if event.StudentID == uuid.Nil {
		return registry.NewNonRetryableError(fmt.Errorf("student id missing"))
	}
	message := strings.TrimSpace(event.Reason)
	if message == "" {
		message = fmt.Sprintf("Your certificate for \"%s\" has been revoked.", event.ProjectTitle)
	}
	return c.step(ctx, consumerNotification, eventID, func(ctx context.Context) error {
		return c.notifications.Create(ctx, &models.Notification{
			UserID:  event.StudentID,
			Type:    enums.NotificationTypeCertificateRevoked,
			Title:   "Certificate Revoked",
			Message: message,
			Link:    stringPtr(studentCertificatesLink),
		})
	})
}

func (c *Consumer) sendIssuedEmail(ctx context.Context, event *payloads.CertificateIssuedEvent) error {
	student, err := c.finder.FindByID(ctx, event.StudentID)
	if err != nil {
		return fmt.Errorf("load student: %w", err)
	}
	name := strings.TrimSpace(student.Name)
	if name == "" {
		name = event.StudentName
	}
	verifyURL := c.publicURL + "/verify/" + event.CertificateNo
	msg := mailer.Message{
		To:      mail.Address{Name: name, Address: student.Email},
		Subject: fmt.Sprintf("Your %s certificate for %s", c.platformName, event.ProjectTitle),
		TextContent: fmt.Sprintf(
			"Hi %s,\n\nCongratulations on completing \"%s\". Your certificate %s is ready in your dashboard: %s%s\n\nAnyone can verify it at %s\n",
			name, event.ProjectTitle, event.CertificateNo, c.publicURL, studentCertificatesLink, verifyURL,
		),
	}
	err = c.mail.Send(ctx, msg)
	if errors.Is(err, mailer.ErrNoRecipient) {
		c.logg.Warn(ctx, "student has no email address; skipping certificate email")
		return nil
	}
	return err
}

// step runs fn at most once per event for the named side effect.
func (c *Consumer) step(ctx context.Context, name string, eventID uuid.UUID, fn func(context.Context) error) error {
	err := c.idempotency.Run(ctx, name, eventID, fn)
	if errors.Is(err, idempotency.ErrAlreadyProcessed) {
		c.logg.Info(c.logg.WithField(ctx, "step", name), "side effect already applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func isPermanent(err error) bool {
	var nonRetryable registry.NonRetryableError
	return errors.As(err, &nonRetryable)
}

func stringPtr(value string) *string {
	return &value
}

type nopRecorder struct{}

func (nopRecorder) IncEvent(string, string) {}
