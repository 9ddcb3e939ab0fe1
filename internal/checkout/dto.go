package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/payhere"
)

// Contact is the customer contact block of a checkout.
type Contact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	Company   *string
}

// Item is one line the customer is buying.
type Item struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Input is a checkout request. CustomerID is set when the caller is signed in.
type Input struct {
	OrderRef        string
	CustomerID      *uuid.UUID
	Contact         Contact
	ShippingAddress orders.AddressInput
	BillingAddress  *orders.AddressInput
	Items           []Item
	Amount          decimal.Decimal
	Currency        string
	PaymentMethod   enums.PaymentMethod
}

func (in Input) sessionPayload() models.SessionPayload {
	var customerID *string
	if in.CustomerID != nil && *in.CustomerID != uuid.Nil {
		id := in.CustomerID.String()
		customerID = &id
	}
	items := make([]models.SessionItem, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, models.SessionItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return models.SessionPayload{
		Customer: models.SessionCustomer{
			CustomerID: customerID,
			FirstName:  in.Contact.FirstName,
			LastName:   in.Contact.LastName,
			Email:      in.Contact.Email,
			Phone:      in.Contact.Phone,
			Company:    in.Contact.Company,
		},
		ShippingAddress: models.SessionAddress(in.ShippingAddress),
		BillingAddress:  models.SessionAddress(*in.BillingAddress),
		Items:           items,
		Amount:          in.Amount,
		Currency:        in.Currency,
		PaymentMethod:   in.PaymentMethod,
	}
}

func (in Input) orderInput(status enums.OrderStatus) orders.CreateOrderInput {
	items := make([]orders.ItemInput, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, orders.ItemInput(item))
	}
	return orders.CreateOrderInput{
		OrderRef: in.OrderRef,
		Customer: orders.CustomerInfo{
			CustomerID: in.CustomerID,
			FirstName:  in.Contact.FirstName,
			LastName:   in.Contact.LastName,
			Email:      in.Contact.Email,
			Phone:      in.Contact.Phone,
			Company:    in.Contact.Company,
		},
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  *in.BillingAddress,
		Items:           items,
		Amount:          in.Amount,
		Currency:        in.Currency,
		PaymentMethod:   in.PaymentMethod,
		InitialStatus:   status,
	}
}

func (in Input) checkoutRequest() payhere.CheckoutRequest {
	items := make([]payhere.CheckoutItem, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, payhere.CheckoutItem{Name: item.Name, Quantity: item.Quantity})
	}
	var phone, street2 string
	if in.Contact.Phone != nil {
		phone = *in.Contact.Phone
	}
	if in.ShippingAddress.Street2 != nil {
		street2 = *in.ShippingAddress.Street2
	}
	return payhere.CheckoutRequest{
		OrderRef: in.OrderRef,
		Items:    items,
		Amount:   in.Amount,
		Currency: in.Currency,
		Customer: payhere.CheckoutCustomer{
			FirstName: in.Contact.FirstName,
			LastName:  in.Contact.LastName,
			Email:     in.Contact.Email,
			Phone:     phone,
		},
		Address: payhere.CheckoutAddress{
			Street1: in.ShippingAddress.Street1,
			Street2: street2,
			City:    in.ShippingAddress.City,
			Country: in.ShippingAddress.Country,
		},
	}
}
