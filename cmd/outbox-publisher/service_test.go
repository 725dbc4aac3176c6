package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/innointernhub/backend/pkg/config"
	"github.com/innointernhub/backend/pkg/db"
	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/enums"
	"github.com/innointernhub/backend/pkg/logger"
	"github.com/innointernhub/backend/pkg/migrate"
	"github.com/innointernhub/backend/pkg/outbox"
	"github.com/innointernhub/backend/pkg/outbox/payloads"
	"github.com/innointernhub/backend/pkg/outbox/registry"
)

func issuedEvent(t *testing.T, eventID string, attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventCertificateIssued,
		AggregateType: enums.AggregateCertificate,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, eventID),
		AttemptCount:  attempts,
	}
}

func resolvedIssued() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "certificate-events",
			EventType:     enums.EventCertificateIssued,
			AggregateType: enums.AggregateCertificate,
		},
		Envelope: outbox.PayloadEnvelope{Version: 1, OccurredAt: time.Now()},
		Payload:  &payloads.CertificateIssuedEvent{},
	}
}

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			issuedEvent(t, "event-one", 0),
			issuedEvent(t, "event-two", 0),
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	recorder := &fakeRecorder{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedIssued()}, &fakeDLQRepo{}, nil)
	service.metrics = recorder

	claimed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if claimed != 2 {
		t.Fatalf("expected 2 claimed rows, got %d", claimed)
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("unexpected failed rows: %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("unexpected published rows: %v", repo.published)
	}
	if recorder.counts[resultRetry] != 1 || recorder.counts[resultPublished] != 1 {
		t.Fatalf("unexpected metrics: %v", recorder.counts)
	}
}

func TestServicePublishSetsAttributes(t *testing.T) {
	event := issuedEvent(t, "attrs", 0)
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, &fakeRepo{events: []models.OutboxEvent{event}}, pub, &fakeRegistry{resolved: resolvedIssued()}, &fakeDLQRepo{}, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.sent))
	}
	attrs := pub.sent[0].Attributes
	if attrs["event_type"] != string(enums.EventCertificateIssued) || attrs["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
	if attrs["event_id"] != event.ID.String() || attrs["version"] != "1" {
		t.Fatalf("unexpected envelope attributes: %v", attrs)
	}
	if !bytes.Equal(pub.sent[0].Data, event.Payload) {
		t.Fatalf("message body must be the stored envelope")
	}
}

func TestServiceProcessBatchWritesDLQOnNonRetryable(t *testing.T) {
	event := issuedEvent(t, "nonretryable", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, &fakePublisher{}, &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}, dlqRepo, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID || !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq entry does not match event")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected row pinned terminal")
	}
}

func TestServiceProcessBatchWritesDLQOnMaxAttempts(t *testing.T) {
	event := issuedEvent(t, "max-attempts", 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("transient")}}}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedIssued()}, dlqRepo, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	if dlqRepo.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", dlqRepo.entries[0].ErrorReason)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("terminal rows must not also be marked failed")
	}
}

func TestServiceMissingPublisherIsTerminal(t *testing.T) {
	event := issuedEvent(t, "no-topic", 0)
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, &fakeRepo{events: []models.OutboxEvent{event}}, nil, &fakeRegistry{resolved: resolvedIssued()}, dlqRepo, nil)
	service.publisherFactory = func(string) publisher { return nil }

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(dlqRepo.entries) != 1 || dlqRepo.entries[0].ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("expected non-retryable dlq entry, got %+v", dlqRepo.entries)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{Config: &config.Config{}, Logger: logger.Nop()})
	if err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestNextBackoffCaps(t *testing.T) {
	base := 100 * time.Millisecond
	if got := nextBackoff(0, base, time.Second); got != 200*time.Millisecond {
		t.Fatalf("unexpected first backoff %s", got)
	}
	if got := nextBackoff(800*time.Millisecond, base, time.Second); got != time.Second {
		t.Fatalf("expected cap, got %s", got)
	}
	for range 20 {
		if got := withJitter(base); got < base || got >= base+jitterWindow {
			t.Fatalf("jitter out of range: %s", got)
		}
	}
}

func TestServicePublishesRealOutboxRows(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	require.NoError(t, migrate.ApplySQLiteSchema(conn))

	client := db.NewFromGorm(conn)
	repo := outbox.NewRepository(conn)
	emitter := outbox.NewService(repo, logger.Nop())
	certID := uuid.New()
	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := emitter.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventCertificateIssued,
			AggregateType: enums.AggregateCertificate,
			AggregateID:   certID,
			Data: payloads.CertificateIssuedEvent{
				CertificateID: certID,
				CertificateNo: "IIH-MJUOHS00-7QF2M0XD",
				StudentID:     uuid.New(),
				StudentName:   "Asha Rao",
				ProjectID:     uuid.New(),
				ProjectTitle:  "Solar Tracker",
				AwardPoints:   100,
			},
		}); err != nil {
			return err
		}
		// Wrong aggregate type: the registry rejects it and it goes to the DLQ.
		return repo.Insert(tx, models.OutboxEvent{
			EventType:     enums.EventCertificateRevoked,
			AggregateType: enums.OutboxAggregateType("project"),
			AggregateID:   uuid.New(),
			Payload:       mustEnvelopePayload(t, "bad"),
		})
	}))

	eventRegistry, err := registry.NewEventRegistry(config.PubSubConfig{CertificateTopic: "certificate-events"})
	require.NoError(t, err)
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	dlqRepo := outbox.NewDLQRepository(conn)
	service, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: config.OutboxConfig{BatchSize: 10, MaxAttempts: 3}},
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               client,
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         eventRegistry,
		DLQRepository:    dlqRepo,
		PublisherFactory: func(topic string) publisher { require.Equal(t, "certificate-events", topic); return pub },
	})
	require.NoError(t, err)

	claimed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, claimed)
	require.Len(t, pub.sent, 1)
	require.Equal(t, certID.String(), pub.sent[0].Attributes["aggregate_id"])

	var pending int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("published_at IS NULL AND attempt_count < ?", 3).Count(&pending).Error)
	require.Zero(t, pending)

	var dlqCount int64
	require.NoError(t, conn.Model(&models.OutboxDLQ{}).Count(&dlqCount).Error)
	require.Equal(t, int64(1), dlqCount)

	claimed, err = service.processBatch(context.Background())
	require.NoError(t, err)
	require.Zero(t, claimed)
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, resolver registryResolver, dlq dlqRepository, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	service, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         resolver,
		PublisherFactory: func(string) publisher { return pub },
		DLQRepository:    dlq,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error {
	return nil
}

func (f *fakePubSubClient) Publisher(string) *gcppubsub.Publisher {
	return nil
}

type fakePublisher struct {
	results []publishResult
	sent    []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	return &resolved, f.err
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeRecorder struct {
	counts map[string]int
}

func (f *fakeRecorder) IncPublish(_ string, result string) {
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[result]++
}
