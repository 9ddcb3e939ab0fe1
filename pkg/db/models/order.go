package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is the root of the order aggregate. OrderRef is the externally visible
// identifier and doubles as the payment session key.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderRef      string              `gorm:"column:order_ref;not null;uniqueIndex"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      string              `gorm:"column:currency;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	IsGuestOrder  bool                `gorm:"column:is_guest_order;not null"`
	PaymentID     *string             `gorm:"column:payment_id"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Items        []OrderItem    `gorm:"foreignKey:OrderID;references:ID"`
	Addresses    []OrderAddress `gorm:"foreignKey:OrderID;references:ID"`
	Guest        *GuestCustomer `gorm:"foreignKey:OrderID;references:ID"`
	CustomerLink *CustomerOrder `gorm:"foreignKey:OrderID;references:ID"`
}

// Address returns the address of the requested type, if loaded.
func (o Order) Address(kind enums.AddressType) *OrderAddress {
	for i := range o.Addresses {
		if o.Addresses[i].Type == kind {
			return &o.Addresses[i]
		}
	}
	return nil
}

// ItemsTotal sums price*quantity over the loaded items.
func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}
