package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderItemSnapshot is the purchased line as recorded on the order.
type OrderItemSnapshot struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// OrderCreatedEvent carries enough of the order for confirmation mail and
// audit export without a read-back.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderRef      string              `json:"order_ref"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	IsGuestOrder  bool                `json:"is_guest_order"`
	CustomerID    *uuid.UUID          `json:"customer_id,omitempty"`
	CustomerName  string              `json:"customer_name"`
	Email         string              `json:"email"`
	Items         []OrderItemSnapshot `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderStatusChangedEvent is emitted for every pending -> terminal transition
// of an existing order.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	OrderRef  string            `json:"order_ref"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	PaymentID *string           `json:"payment_id,omitempty"`
	ChangedAt time.Time         `json:"changed_at"`
}
