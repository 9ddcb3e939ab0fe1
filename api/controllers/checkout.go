package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/payhere"
)

// CheckoutService starts gateway and offline checkouts.
type CheckoutService interface {
	InitiatePayment(ctx context.Context, input checkoutsvc.Input) (*payhere.RedirectPayload, error)
	PlaceOfflineOrder(ctx context.Context, input checkoutsvc.Input) (*orders.OrderDetail, error)
}

// CheckoutPayHere opens a payment session and returns the signed hosted checkout fields.
func CheckoutPayHere(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		input, err := decodeCheckout(r, enums.PaymentMethodPayHere)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload, err := svc.InitiatePayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

// CheckoutOffline places a pending cash-on-delivery or bank-transfer order.
func CheckoutOffline(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		input, err := decodeCheckout(r, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !input.PaymentMethod.IsOffline() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment_method must be cash_on_delivery or bank_transfer"))
			return
		}

		detail, err := svc.PlaceOfflineOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, detail)
	}
}

type checkoutRequest struct {
	OrderRef        string                `json:"order_ref" validate:"omitempty,max=64"`
	Customer        checkoutCustomer      `json:"customer"`
	ShippingAddress checkoutAddress       `json:"shipping_address"`
	BillingAddress  *checkoutAddress      `json:"billing_address,omitempty"`
	Items           []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	Amount          decimal.Decimal       `json:"amount" validate:"gt=0"`
	Currency        string                `json:"currency" validate:"omitempty,len=3"`
	PaymentMethod   string                `json:"payment_method" validate:"omitempty,oneof=payhere cash_on_delivery bank_transfer"`
}

type checkoutCustomer struct {
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"omitempty,max=100"`
	Email     string  `json:"email" validate:"required,email"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Company   *string `json:"company,omitempty" validate:"omitempty,max=100"`
}

type checkoutAddress struct {
	Street1    string  `json:"street1" validate:"required,max=200"`
	Street2    *string `json:"street2,omitempty" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"required,max=100"`
	State      *string `json:"state,omitempty" validate:"omitempty,max=100"`
	PostalCode *string `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	Country    string  `json:"country" validate:"required,max=100"`
}

type checkoutItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,max=64"`
	Name      string          `json:"name" validate:"required,max=200"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gte=0"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
}

func decodeCheckout(r *http.Request, method enums.PaymentMethod) (checkoutsvc.Input, error) {
	var payload checkoutRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return checkoutsvc.Input{}, err
	}

	input := checkoutsvc.Input{
		OrderRef: validators.SanitizeString(payload.OrderRef, 64),
		Contact: checkoutsvc.Contact{
			FirstName: validators.SanitizeString(payload.Customer.FirstName, 100),
			LastName:  validators.SanitizeString(payload.Customer.LastName, 100),
			Email:     validators.SanitizeString(payload.Customer.Email, 254),
			Phone:     payload.Customer.Phone,
			Company:   payload.Customer.Company,
		},
		ShippingAddress: payload.ShippingAddress.toInput(),
		Amount:          payload.Amount,
		Currency:        payload.Currency,
		PaymentMethod:   enums.PaymentMethod(payload.PaymentMethod),
	}
	if method != "" {
		if input.PaymentMethod != "" && input.PaymentMethod != method {
			return checkoutsvc.Input{}, pkgerrors.New(pkgerrors.CodeValidation, "payment_method must be "+string(method))
		}
		input.PaymentMethod = method
	}
	if payload.BillingAddress != nil {
		billing := payload.BillingAddress.toInput()
		input.BillingAddress = &billing
	}
	for _, item := range payload.Items {
		input.Items = append(input.Items, checkoutsvc.Item{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	raw := middleware.CustomerIDFromContext(r.Context())
	if raw != "" {
		customerID, err := uuid.Parse(raw)
		if err != nil {
			return checkoutsvc.Input{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid customer id")
		}
		input.CustomerID = &customerID
	}
	return input, nil
}

func (a checkoutAddress) toInput() orders.AddressInput {
	return orders.AddressInput{
		Street1:    a.Street1,
		Street2:    a.Street2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}
