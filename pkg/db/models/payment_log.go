package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PaymentLog is an append-only audit row for canceled and charged-back notifications.
type PaymentLog struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderRef        string            `gorm:"column:order_ref;not null;index"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null"`
	StatusCode      string            `gorm:"column:status_code;not null"`
	PaymentID       string            `gorm:"column:payment_id"`
	GatewayAmount   string            `gorm:"column:gateway_amount"`
	GatewayCurrency string            `gorm:"column:gateway_currency"`
	RawPayload      map[string]string `gorm:"column:raw_payload;type:jsonb;serializer:json;not null"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
}
