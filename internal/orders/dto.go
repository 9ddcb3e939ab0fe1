package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// CustomerInfo identifies who placed the order. A non-nil CustomerID makes the
// order an account order; otherwise the contact fields become a guest snapshot.
type CustomerInfo struct {
	CustomerID *uuid.UUID
	FirstName  string
	LastName   string
	Email      string
	Phone      *string
	Company    *string
}

// IsGuest reports whether the order is placed without an account.
func (c CustomerInfo) IsGuest() bool {
	return c.CustomerID == nil || *c.CustomerID == uuid.Nil
}

// AddressInput is a shipping or billing address supplied at order time.
type AddressInput struct {
	Street1    string
	Street2    *string
	City       string
	State      *string
	PostalCode *string
	Country    string
}

func (a AddressInput) isZero() bool {
	return a.Street1 == "" && a.City == "" && a.Country == ""
}

// ItemInput is one purchased product snapshot.
type ItemInput struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// CreateOrderInput carries everything the aggregate builder persists in one transaction.
// A zero BillingAddress is replaced with the shipping address.
type CreateOrderInput struct {
	OrderRef        string
	Customer        CustomerInfo
	ShippingAddress AddressInput
	BillingAddress  AddressInput
	Items           []ItemInput
	Amount          decimal.Decimal
	Currency        string
	PaymentMethod   enums.PaymentMethod
	InitialStatus   enums.OrderStatus
	PaymentID       *string
}

// TransitionResult describes the outcome of a status transition request.
type TransitionResult struct {
	OrderRef string            `json:"order_ref"`
	From     enums.OrderStatus `json:"from"`
	Status   enums.OrderStatus `json:"status"`
	Changed  bool              `json:"changed"`
}

// OrderSummary is the list representation of an order.
type OrderSummary struct {
	OrderRef      string              `json:"order_ref"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	TotalItems    int                 `json:"total_items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderItemDTO is a purchased line as returned to clients.
type OrderItemDTO struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// AddressDTO is an order address as returned to clients.
type AddressDTO struct {
	Street1    string  `json:"street1"`
	Street2    *string `json:"street2,omitempty"`
	City       string  `json:"city"`
	State      *string `json:"state,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	Country    string  `json:"country"`
}

// CustomerDTO is the contact block of an order.
type CustomerDTO struct {
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	FirstName  string     `json:"first_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	Email      string     `json:"email,omitempty"`
	Phone      *string    `json:"phone,omitempty"`
	Company    *string    `json:"company,omitempty"`
}

// OrderDetail is the full aggregate view of one order.
type OrderDetail struct {
	OrderSummary
	IsGuestOrder    bool           `json:"is_guest_order"`
	PaymentID       *string        `json:"payment_id,omitempty"`
	Customer        CustomerDTO    `json:"customer"`
	ShippingAddress *AddressDTO    `json:"shipping_address,omitempty"`
	BillingAddress  *AddressDTO    `json:"billing_address,omitempty"`
	Items           []OrderItemDTO `json:"items"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func summaryFromModel(order models.Order) OrderSummary {
	total := 0
	for _, item := range order.Items {
		total += item.Quantity
	}
	return OrderSummary{
		OrderRef:      order.OrderRef,
		Amount:        order.Amount,
		Currency:      order.Currency,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		TotalItems:    total,
		CreatedAt:     order.CreatedAt,
	}
}

// DetailFromModel maps a loaded order aggregate into its client view.
func DetailFromModel(order models.Order) OrderDetail {
	detail := OrderDetail{
		OrderSummary:    summaryFromModel(order),
		IsGuestOrder:    order.IsGuestOrder,
		PaymentID:       order.PaymentID,
		ShippingAddress: addressDTO(order.Address(enums.AddressTypeShipping)),
		BillingAddress:  addressDTO(order.Address(enums.AddressTypeBilling)),
		Items:           make([]OrderItemDTO, 0, len(order.Items)),
		UpdatedAt:       order.UpdatedAt,
	}
	switch {
	case order.Guest != nil:
		detail.Customer = CustomerDTO{
			FirstName: order.Guest.FirstName,
			LastName:  order.Guest.LastName,
			Email:     order.Guest.Email,
			Phone:     order.Guest.Phone,
			Company:   order.Guest.Company,
		}
	case order.CustomerLink != nil:
		id := order.CustomerLink.CustomerID
		detail.Customer = CustomerDTO{CustomerID: &id, Email: order.CustomerLink.Email}
	}
	for _, item := range order.Items {
		detail.Items = append(detail.Items, OrderItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		})
	}
	return detail
}

func addressDTO(addr *models.OrderAddress) *AddressDTO {
	if addr == nil {
		return nil
	}
	return &AddressDTO{
		Street1:    addr.Street1,
		Street2:    addr.Street2,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
	}
}

// InputFromSession rebuilds the order proposal stored with a payment session.
func InputFromSession(orderRef string, payload models.SessionPayload, status enums.OrderStatus, paymentID *string) (CreateOrderInput, error) {
	customer := CustomerInfo{
		FirstName: payload.Customer.FirstName,
		LastName:  payload.Customer.LastName,
		Email:     payload.Customer.Email,
		Phone:     payload.Customer.Phone,
		Company:   payload.Customer.Company,
	}
	if payload.Customer.CustomerID != nil && *payload.Customer.CustomerID != "" {
		id, err := uuid.Parse(*payload.Customer.CustomerID)
		if err != nil {
			return CreateOrderInput{}, err
		}
		customer.CustomerID = &id
	}
	items := make([]ItemInput, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, ItemInput{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	method := payload.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodPayHere
	}
	return CreateOrderInput{
		OrderRef:        orderRef,
		Customer:        customer,
		ShippingAddress: AddressInput(payload.ShippingAddress),
		BillingAddress:  AddressInput(payload.BillingAddress),
		Items:           items,
		Amount:          payload.Amount,
		Currency:        payload.Currency,
		PaymentMethod:   method,
		InitialStatus:   status,
		PaymentID:       paymentID,
	}, nil
}
