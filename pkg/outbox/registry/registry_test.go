package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func newRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	r, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: " orders-topic "})
	require.NoError(t, err)
	return r
}

func envelopeFor(t *testing.T, version int, data any) (json.RawMessage, uuid.UUID) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	id := uuid.New()
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    version,
		EventID:    id.String(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return body, id
}

func TestResolveOrderCreated(t *testing.T) {
	orderID := uuid.New()
	body, eventID := envelopeFor(t, outbox.EnvelopeVersion, payloads.OrderCreatedEvent{
		OrderID:  orderID,
		OrderRef: "ORD-1",
		Amount:   decimal.RequireFromString("1500.00"),
		Status:   enums.OrderStatusPaid,
	})

	resolved, err := newRegistry(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       body,
	})
	require.NoError(t, err)

	assert.Equal(t, "orders-topic", resolved.Descriptor.Topic)
	assert.Equal(t, eventID, resolved.EventID)
	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, "ORD-1", payload.OrderRef)
	assert.True(t, payload.Amount.Equal(decimal.NewFromInt(1500)))
}

func TestResolveStatusChanged(t *testing.T) {
	body, _ := envelopeFor(t, outbox.EnvelopeVersion, payloads.OrderStatusChangedEvent{
		OrderRef: "ORD-2",
		From:     enums.OrderStatusPending,
		To:       enums.OrderStatusCanceled,
	})

	resolved, err := newRegistry(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       body,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCanceled, resolved.Payload.(*payloads.OrderStatusChangedEvent).To)
}

func TestResolveRejectsBadRowsPermanently(t *testing.T) {
	empty, _ := envelopeFor(t, outbox.EnvelopeVersion, map[string]any{})
	null, _ := envelopeFor(t, outbox.EnvelopeVersion, nil)
	future, _ := envelopeFor(t, outbox.EnvelopeVersion+1, map[string]any{})

	order := func(payload json.RawMessage) models.OutboxEvent {
		return models.OutboxEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       payload,
		}
	}
	unknown := order(empty)
	unknown.EventType = "order_exploded"
	mismatch := order(empty)
	mismatch.AggregateType = "cart"
	noAggregate := order(empty)
	noAggregate.AggregateID = uuid.Nil

	tests := map[string]models.OutboxEvent{
		"unknown event":        unknown,
		"aggregate mismatch":   mismatch,
		"missing aggregate id": noAggregate,
		"null data":            order(null),
		"newer envelope":       order(future),
		"broken envelope":      order(json.RawMessage(`{"data":`)),
	}
	for name, event := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := newRegistry(t).Resolve(event)
			var permanentErr NonRetryableError
			assert.ErrorAs(t, err, &permanentErr)
		})
	}
}

func TestNewEventRegistryRequiresOrdersTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: " "})
	assert.ErrorIs(t, err, errOrdersTopicRequired)
}

func TestLookup(t *testing.T) {
	desc, ok := newRegistry(t).Lookup(enums.EventOrderStatusChanged)
	require.True(t, ok)
	assert.Equal(t, enums.AggregateOrder, desc.AggregateType)

	_, ok = newRegistry(t).Lookup("nope")
	assert.False(t, ok)
}
