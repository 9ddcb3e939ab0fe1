package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

const auditConsumerName = "order-audit"

var errMalformedEvent = outbox.ErrBadEnvelope

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer appends one audit row per order event to BigQuery.
type Consumer struct {
	subscription receiver
	client       tableInserter
	table        string
	manager      idempotencyChecker
	logg         *logger.Logger
}

func NewConsumer(subscription receiver, client tableInserter, table string, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("order audit subscription required")
	}
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("bigquery table name required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		client:       client,
		table:        strings.TrimSpace(table),
		manager:      manager,
		logg:         logg,
	}, nil
}

// Run receives messages until ctx is canceled. Malformed events are acked;
// insert failures are nacked for redelivery.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		eventType := enums.OutboxEventType(msg.Attributes["event_type"])
		envelope, _, err := outbox.DecodeEnvelope(msg.Data)
		if err != nil {
			c.logg.Error(c.logg.WithField(ctx, "message_id", msg.ID), "failed to decode envelope", err)
			msg.Ack()
			return
		}
		if err := c.Process(ctx, eventType, envelope); err != nil && !errors.Is(err, errMalformedEvent) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Process writes the audit row for a supported event.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})
	if eventType != enums.EventOrderCreated && eventType != enums.EventOrderStatusChanged {
		return nil
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return fmt.Errorf("%w: event id: %v", errMalformedEvent, err)
	}
	row, err := buildRow(eventType, envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to build audit row", err)
		return err
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, auditConsumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already exported")
		return nil
	}

	if err := c.client.InsertRows(ctx, c.table, []any{row}); err != nil {
		c.logg.Error(logCtx, "failed to insert audit row", err)
		if delErr := c.manager.Delete(ctx, auditConsumerName, eventID); delErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency marker", delErr)
		}
		return err
	}
	c.logg.Info(c.logg.WithOrderRef(logCtx, row.OrderRef), "order audit row exported")
	return nil
}

type orderAuditRow struct {
	EventID        string             `bigquery:"event_id"`
	EventType      string             `bigquery:"event_type"`
	OccurredAt     time.Time          `bigquery:"occurred_at"`
	OrderID        string             `bigquery:"order_id"`
	OrderRef       string             `bigquery:"order_ref"`
	Status         string             `bigquery:"status"`
	PreviousStatus *string            `bigquery:"previous_status"`
	Amount         *string            `bigquery:"amount"`
	Currency       *string            `bigquery:"currency"`
	PaymentMethod  *string            `bigquery:"payment_method"`
	PaymentID      *string            `bigquery:"payment_id"`
	IsGuestOrder   *bool              `bigquery:"is_guest_order"`
	Payload        cbigquery.NullJSON `bigquery:"payload"`
}

// InsertID dedupes redelivered events on the BigQuery side.
func (r *orderAuditRow) InsertID() string { return r.EventID }

func buildRow(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (*orderAuditRow, error) {
	row := &orderAuditRow{
		EventID:    envelope.EventID,
		EventType:  string(eventType),
		OccurredAt: envelope.OccurredAt,
		Payload:    cbigquery.NullJSON{JSONVal: string(envelope.Data), Valid: len(envelope.Data) > 0},
	}

	switch eventType {
	case enums.EventOrderCreated:
		var event payloads.OrderCreatedEvent
		if err := envelope.DecodeData(&event); err != nil {
			return nil, err
		}
		amount := event.Amount.StringFixed(2)
		method := string(event.PaymentMethod)
		guest := event.IsGuestOrder
		row.OrderID = event.OrderID.String()
		row.OrderRef = event.OrderRef
		row.Status = string(event.Status)
		row.Amount = &amount
		row.Currency = &event.Currency
		row.PaymentMethod = &method
		row.IsGuestOrder = &guest
	case enums.EventOrderStatusChanged:
		var event payloads.OrderStatusChangedEvent
		if err := envelope.DecodeData(&event); err != nil {
			return nil, err
		}
		from := string(event.From)
		row.OrderID = event.OrderID.String()
		row.OrderRef = event.OrderRef
		row.Status = string(event.To)
		row.PreviousStatus = &from
		row.PaymentID = event.PaymentID
	}
	return row, nil
}
