package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PaymentSession holds the proposed order of a checkout until the gateway
// reports its outcome. OrderRef is the primary key.
type PaymentSession struct {
	OrderRef  string         `gorm:"column:order_ref;primaryKey"`
	Payload   SessionPayload `gorm:"column:payload;type:jsonb;serializer:json;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// SessionPayload is the full order proposal stored with a payment session.
type SessionPayload struct {
	Customer        SessionCustomer     `json:"customer"`
	ShippingAddress SessionAddress      `json:"shippingAddress"`
	BillingAddress  SessionAddress      `json:"billingAddress"`
	Items           []SessionItem       `json:"items"`
	Amount          decimal.Decimal     `json:"amount"`
	Currency        string              `json:"currency"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod"`
}

type SessionCustomer struct {
	CustomerID *string `json:"customerId,omitempty"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName,omitempty"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone,omitempty"`
	Company    *string `json:"company,omitempty"`
}

type SessionAddress struct {
	Street1    string  `json:"street1"`
	Street2    *string `json:"street2,omitempty"`
	City       string  `json:"city"`
	State      *string `json:"state,omitempty"`
	PostalCode *string `json:"postalCode,omitempty"`
	Country    string  `json:"country"`
}

type SessionItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}
