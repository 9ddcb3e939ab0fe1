package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderAddress is a shipping or billing address owned by one order.
type OrderAddress struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	Type       enums.AddressType `gorm:"column:type;type:text;not null"`
	Street1    string            `gorm:"column:street1;not null"`
	Street2    *string           `gorm:"column:street2"`
	City       string            `gorm:"column:city;not null"`
	State      *string           `gorm:"column:state"`
	PostalCode *string           `gorm:"column:postal_code"`
	Country    string            `gorm:"column:country;not null"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
