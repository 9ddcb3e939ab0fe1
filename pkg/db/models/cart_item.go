package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line of a customer's persisted cart. At most one row exists
// per (customer_id, product_id).
type CartItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:ux_cart_items_customer_product"`
	ProductID  string          `gorm:"column:product_id;not null;uniqueIndex:ux_cart_items_customer_product"`
	Name       string          `gorm:"column:name;not null"`
	Quantity   int             `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Weight     decimal.Decimal `gorm:"column:weight;type:numeric(10,3);not null"`
	Subtotal   decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
