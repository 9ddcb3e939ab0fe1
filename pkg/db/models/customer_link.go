package models

import (
	"time"

	"github.com/google/uuid"
)

// GuestCustomer is the point-in-time contact snapshot of a guest order.
type GuestCustomer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	FirstName string    `gorm:"column:first_name;not null"`
	LastName  string    `gorm:"column:last_name"`
	Email     string    `gorm:"column:email;not null"`
	Phone     *string   `gorm:"column:phone"`
	Company   *string   `gorm:"column:company"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// CustomerOrder links an order to a registered customer account.
type CustomerOrder struct {
	OrderID    uuid.UUID `gorm:"column:order_id;type:uuid;primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index"`
	Email      string    `gorm:"column:email"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
