package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/testutil"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

func orderEvent(t *testing.T, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, `{"order_ref":"ORD-1"}`),
		AttemptCount:  attempts,
	}
}

func resolvedFor(topic string) *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: topic, AggregateType: enums.AggregateOrder},
		Envelope:   outbox.PayloadEnvelope{EventID: uuid.NewString(), OccurredAt: time.Now()},
		Payload:    &payloads.OrderCreatedEvent{},
	}
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{
		orderEvent(t, enums.EventOrderCreated, 0),
		orderEvent(t, enums.EventOrderStatusChanged, 0),
	}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: errors.New("transient")},
		fakePublishResult{},
	}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedFor("orders")}, &fakeDLQRepo{}, nil)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, []uuid.UUID{repo.events[0].ID}, repo.failed)
	assert.Equal(t, []uuid.UUID{repo.events[1].ID}, repo.published)
}

func TestProcessBatchEmptyReportsIdle(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestProcessBatchDeadLettersNonRetryable(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCreated, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQRepo{}
	reg := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	service := newTestService(t, repo, &fakePublisher{}, reg, dlq, nil)

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, event.ID, dlq.entries[0].EventID)
	assert.JSONEq(t, string(event.Payload), string(dlq.entries[0].Payload))
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, dlq.entries[0].ErrorReason)
	assert.Equal(t, []uuid.UUID{event.ID}, repo.deadLettered)
}

func TestProcessBatchDeadLettersAtMaxAttempts(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCreated, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("transient")}}}
	dlq := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedFor("orders")}, dlq, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, dlq.entries[0].ErrorReason)
	assert.Empty(t, repo.failed)
}

func TestProcessBatchDeadLettersMissingPublisher(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCreated, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQRepo{}
	service := newTestService(t, repo, nil, &fakeRegistry{resolved: resolvedFor("orders")}, dlq, nil)
	service.publisherFactory = func(string) publisher { return nil }

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, dlq.entries[0].ErrorReason)
}

func TestProcessBatchAgainstDatabase(t *testing.T) {
	conn := testutil.OpenSQLite(t)
	client := db.NewFromGorm(conn)
	repo := outbox.NewRepository(conn)

	good := orderEvent(t, enums.EventOrderCreated, 0)
	good.CreatedAt = time.Now().Add(-time.Minute)
	unknown := orderEvent(t, enums.OutboxEventType("mystery"), 0)
	require.NoError(t, conn.Create(&good).Error)
	require.NoError(t, conn.Create(&unknown).Error)

	eventRegistry, err := registry.NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders"})
	require.NoError(t, err)

	var topics []string
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service, err := NewService(ServiceParams{
		Outbox:     config.OutboxConfig{BatchSize: 10, MaxAttempts: 3},
		Logger:     logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:         client,
		PubSub:     &fakePubSubClient{},
		Repository: repo,
		Registry:   eventRegistry,
		PublisherFactory: func(topic string) publisher {
			topics = append(topics, topic)
			return pub
		},
		DLQRepository: outbox.NewDLQRepository(conn),
	})
	require.NoError(t, err)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, []string{"orders"}, topics)

	assert.Equal(t, int64(2), testutil.Count(t, conn, "outbox_events", "published_at IS NOT NULL"))
	assert.Equal(t, int64(1), testutil.Count(t, conn, "outbox_dlq", "event_id = ?", unknown.ID.String()))

	processed, err = service.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)

	service := newTestService(t, &fakeRepo{}, nil, &fakeRegistry{}, &fakeDLQRepo{}, &config.OutboxConfig{})
	assert.Equal(t, defaultBatchSize, service.batchSize)
	assert.Equal(t, defaultMaxAttempts, service.maxAttempts)
	assert.Equal(t, time.Duration(defaultPollMs)*time.Millisecond, service.pollInterval)
}

func TestBackoffHelpers(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, time.Second, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(8*time.Second, time.Second, maxBackoff))
	assert.Equal(t, time.Second, nextBackoff(0, 500*time.Millisecond, maxBackoff))

	d := withJitter(time.Second)
	assert.GreaterOrEqual(t, d, time.Second)
	assert.Less(t, d, time.Second+jitterWindow)
	assert.Zero(t, withJitter(0))
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, dlq dlqRepository, override *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{BatchSize: 2, PollIntervalMS: 100, MaxAttempts: 5}
	if override != nil {
		outboxCfg = *override
	}
	service, err := NewService(ServiceParams{
		Outbox:           outboxCfg,
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         reg,
		PublisherFactory: func(string) publisher { return pub },
		DLQRepository:    dlq,
	})
	require.NoError(t, err)
	return service
}

func mustEnvelopePayload(tb testing.TB, data string) json.RawMessage {
	tb.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(data),
	})
	require.NoError(tb, err)
	return payload
}

type fakeRepo struct {
	events       []models.OutboxEvent
	published    []uuid.UUID
	failed       []uuid.UUID
	deadLettered []uuid.UUID
}

func (f *fakeRepo) FetchPendingTx(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkDeadLettered(tx *gorm.DB, id uuid.UUID, err error) error {
	f.deadLettered = append(f.deadLettered, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error { return nil }

func (f *fakePubSubClient) Publisher(name string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results []publishResult
}

func (f *fakePublisher) Publish(context.Context, *gcppubsub.Message) publishResult {
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
	resolved.Envelope.EventID = event.ID.String()
	return &resolved, f.err
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
