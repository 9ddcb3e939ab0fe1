package notifications

import (
	"context"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mailer"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

const orderEmailConsumer = "order-confirmation-email"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer sends an order confirmation for every order_created event. Mail
// delivery is best effort and never affects the order itself.
type Consumer struct {
	subscription receiver
	idempotency  idempotencyChecker
	mailer       mailer.Mailer
	logg         *logger.Logger
}

// NewConsumer builds an order confirmation consumer.
func NewConsumer(subscription receiver, manager idempotencyChecker, m mailer.Mailer, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("order email subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if m == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		idempotency:  manager,
		mailer:       m,
		logg:         logg,
	}, nil
}

// Run receives messages until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes, msg.Data).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	nack bool
}

func (c *Consumer) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) processResult {
	eventType := attrs["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventOrderCreated) {
		return processResult{}
	}

	envelope, eventID, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{}
	}

	var payload payloads.OrderCreatedEvent
	if err := envelope.DecodeData(&payload); err != nil {
		c.logg.Error(logCtx, "failed to parse order payload", err)
		return processResult{}
	}
	logCtx = c.logg.WithOrderRef(logCtx, payload.OrderRef)
	if strings.TrimSpace(payload.Email) == "" {
		c.logg.Warn(logCtx, "order has no contact email")
		return processResult{}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderEmailConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "confirmation already sent")
		return processResult{}
	}

	if err := c.mailer.SendOrderConfirmation(ctx, confirmationFromEvent(payload)); err != nil {
		c.logg.Error(logCtx, "order confirmation failed", err)
		if err := c.idempotency.Delete(ctx, orderEmailConsumer, eventID); err != nil {
			c.logg.Error(logCtx, "failed to release idempotency marker", err)
		}
		return processResult{nack: true}
	}
	c.logg.Info(logCtx, "order confirmation sent")
	return processResult{}
}

func confirmationFromEvent(event payloads.OrderCreatedEvent) mailer.OrderConfirmation {
	lines := make([]mailer.ConfirmationLine, 0, len(event.Items))
	for _, item := range event.Items {
		lines = append(lines, mailer.ConfirmationLine{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return mailer.OrderConfirmation{
		To:            event.Email,
		CustomerName:  event.CustomerName,
		OrderRef:      event.OrderRef,
		Amount:        event.Amount,
		Currency:      event.Currency,
		PaymentMethod: string(event.PaymentMethod),
		Status:        string(event.Status),
		Lines:         lines,
	}
}
