package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mailer"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type noopReceiver struct{}

func (noopReceiver) Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error {
	return nil
}

type memoryIdempotency struct {
	seen      map[string]bool
	checkErr  error
	deleteErr error
	deleted   int
}

func (m *memoryIdempotency) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if m.checkErr != nil {
		return false, m.checkErr
	}
	key := consumer + ":" + eventID.String()
	if m.seen[key] {
		return true, nil
	}
	m.seen[key] = true
	return false, nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	m.deleted++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.seen, consumer+":"+eventID.String())
	return nil
}

type recordingMailer struct {
	sent []mailer.OrderConfirmation
	err  error
}

func (r *recordingMailer) SendOrderConfirmation(ctx context.Context, msg mailer.OrderConfirmation) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func newTestConsumer(t *testing.T, idem *memoryIdempotency, m *recordingMailer) *Consumer {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard})
	c, err := NewConsumer(noopReceiver{}, idem, m, logg)
	require.NoError(t, err)
	return c
}

func orderCreatedMessage(t *testing.T, eventID uuid.UUID) []byte {
	t.Helper()
	data, err := json.Marshal(payloads.OrderCreatedEvent{
		OrderID:       uuid.New(),
		OrderRef:      "ORD-1",
		Amount:        decimal.RequireFromString("1500"),
		Currency:      "LKR",
		Status:        enums.OrderStatusPaid,
		PaymentMethod: enums.PaymentMethodPayHere,
		IsGuestOrder:  true,
		CustomerName:  "Saman Kumara",
		Email:         "saman@example.com",
		Items:         []payloads.OrderItemSnapshot{{ProductID: "P1", Name: "Door bell wireless", UnitPrice: decimal.RequireFromString("1500"), Quantity: 1}},
		CreatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: eventID.String(), OccurredAt: time.Now().UTC(), Data: data})
	require.NoError(t, err)
	return body
}

var orderCreatedAttrs = map[string]string{"event_type": string(enums.EventOrderCreated)}

func TestConsumerSendsConfirmationOnce(t *testing.T) {
	idem := &memoryIdempotency{seen: map[string]bool{}}
	m := &recordingMailer{}
	c := newTestConsumer(t, idem, m)
	eventID := uuid.New()
	body := orderCreatedMessage(t, eventID)

	assert.False(t, c.process(context.Background(), "m1", orderCreatedAttrs, body).nack)
	assert.False(t, c.process(context.Background(), "m2", orderCreatedAttrs, body).nack)

	require.Len(t, m.sent, 1)
	assert.Equal(t, "saman@example.com", m.sent[0].To)
	assert.Equal(t, "ORD-1", m.sent[0].OrderRef)
	assert.Equal(t, "paid", m.sent[0].Status)
	require.Len(t, m.sent[0].Lines, 1)
}

func TestConsumerNacksAndReleasesOnMailFailure(t *testing.T) {
	idem := &memoryIdempotency{seen: map[string]bool{}}
	c := newTestConsumer(t, idem, &recordingMailer{err: errors.New("smtp down")})

	result := c.process(context.Background(), "m1", orderCreatedAttrs, orderCreatedMessage(t, uuid.New()))
	assert.True(t, result.nack)
	assert.Equal(t, 1, idem.deleted)
	assert.Empty(t, idem.seen)
}

func TestConsumerLogsFailedMarkerRelease(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "notifications-test", Output: buf, Format: "json"})
	idem := &memoryIdempotency{seen: map[string]bool{}, deleteErr: errors.New("redis down")}
	c, err := NewConsumer(noopReceiver{}, idem, &recordingMailer{err: errors.New("smtp down")}, logg)
	require.NoError(t, err)

	result := c.process(context.Background(), "m1", orderCreatedAttrs, orderCreatedMessage(t, uuid.New()))
	assert.True(t, result.nack)
	assert.Equal(t, 1, idem.deleted)
	assert.Contains(t, buf.String(), "failed to release idempotency marker")
	assert.Contains(t, buf.String(), "redis down")
}

func TestConsumerNacksOnIdempotencyFailure(t *testing.T) {
	idem := &memoryIdempotency{seen: map[string]bool{}, checkErr: errors.New("redis down")}
	m := &recordingMailer{}
	c := newTestConsumer(t, idem, m)

	assert.True(t, c.process(context.Background(), "m1", orderCreatedAttrs, orderCreatedMessage(t, uuid.New())).nack)
	assert.Empty(t, m.sent)
}

func TestConsumerAcksIgnoredAndMalformedMessages(t *testing.T) {
	m := &recordingMailer{}
	c := newTestConsumer(t, &memoryIdempotency{seen: map[string]bool{}}, m)
	ctx := context.Background()

	statusChanged := map[string]string{"event_type": string(enums.EventOrderStatusChanged)}
	assert.False(t, c.process(ctx, "m1", statusChanged, orderCreatedMessage(t, uuid.New())).nack)
	assert.False(t, c.process(ctx, "m2", orderCreatedAttrs, []byte("{broken")).nack)
	assert.False(t, c.process(ctx, "m3", orderCreatedAttrs, []byte(`{"eventId":"nope","data":{}}`)).nack)
	assert.Empty(t, m.sent)
}

func TestNewConsumerRequiresDependencies(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard})
	_, err := NewConsumer(nil, &memoryIdempotency{}, &recordingMailer{}, logg)
	assert.Error(t, err)
	_, err = NewConsumer(noopReceiver{}, nil, &recordingMailer{}, logg)
	assert.Error(t, err)
	_, err = NewConsumer(noopReceiver{}, &memoryIdempotency{}, nil, logg)
	assert.Error(t, err)
	_, err = NewConsumer(noopReceiver{}, &memoryIdempotency{}, mailer.New(config.MailConfig{}, logg), nil)
	assert.Error(t, err)
}
