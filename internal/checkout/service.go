package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/paymentsessions"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/payhere"
)

type redirectSigner interface {
	BuildRedirectPayload(req payhere.CheckoutRequest) payhere.RedirectPayload
	Currency() string
}

type sessionOpener interface {
	OpenSession(ctx context.Context, orderRef string, payload models.SessionPayload) error
	GetPaymentStatus(ctx context.Context, orderRef string) (*paymentsessions.StatusView, error)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error)
}

// Service starts checkouts: gateway redirects for online payment and
// immediate pending orders for offline payment methods.
type Service interface {
	InitiatePayment(ctx context.Context, input Input) (*payhere.RedirectPayload, error)
	PlaceOfflineOrder(ctx context.Context, input Input) (*orders.OrderDetail, error)
}

// ServiceParams groups the collaborators of the checkout service.
type ServiceParams struct {
	Signer       redirectSigner
	Sessions     sessionOpener
	Orders       orderCreator
	Logger       *logger.Logger
	StrictTotals bool
}

type service struct {
	signer       redirectSigner
	sessions     sessionOpener
	orders       orderCreator
	logg         *logger.Logger
	strictTotals bool
	newRef       func() string
}

func NewService(params ServiceParams) (Service, error) {
	if params.Signer == nil {
		return nil, fmt.Errorf("payment signer required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("payment session manager required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	return &service{
		signer:       params.Signer,
		sessions:     params.Sessions,
		orders:       params.Orders,
		logg:         params.Logger,
		strictTotals: params.StrictTotals,
		newRef:       uuid.NewString,
	}, nil
}

// InitiatePayment stores the proposed order as a payment session and returns
// the signed fields for the hosted checkout form. No order exists until the
// gateway confirms payment. A reference that already has an order is refused.
func (s *service) InitiatePayment(ctx context.Context, input Input) (*payhere.RedirectPayload, error) {
	if err := s.normalize(&input); err != nil {
		return nil, err
	}
	if input.PaymentMethod != enums.PaymentMethodPayHere {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method must be payhere")
	}

	status, err := s.existing(ctx, input.OrderRef)
	if err != nil {
		return nil, err
	}
	if status != nil && status.OrderCreated {
		return nil, s.refConflict(ctx, input.OrderRef, "order already exists for reference", status)
	}

	if err := s.sessions.OpenSession(ctx, input.OrderRef, input.sessionPayload()); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open payment session")
	}

	payload := s.signer.BuildRedirectPayload(input.checkoutRequest())
	if s.logg != nil {
		logCtx := s.logg.WithOrderRef(ctx, input.OrderRef)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"amount":   payload.Amount,
			"currency": payload.Currency,
			"items":    len(input.Items),
		})
		s.logg.Info(logCtx, "checkout initiated")
	}
	return &payload, nil
}

// PlaceOfflineOrder creates a pending order for cash-on-delivery or bank
// transfer. A reference with an open gateway session or an order is refused.
func (s *service) PlaceOfflineOrder(ctx context.Context, input Input) (*orders.OrderDetail, error) {
	if err := s.normalize(&input); err != nil {
		return nil, err
	}
	if !input.PaymentMethod.IsOffline() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method must be offline")
	}

	status, err := s.existing(ctx, input.OrderRef)
	if err != nil {
		return nil, err
	}
	if status != nil {
		msg := "payment session already open for reference"
		if status.OrderCreated {
			msg = "order already exists for reference"
		}
		return nil, s.refConflict(ctx, input.OrderRef, msg, status)
	}

	order, err := s.orders.CreateOrder(ctx, input.orderInput(enums.OrderStatusPending))
	if err != nil {
		return nil, err
	}
	detail := orders.DetailFromModel(*order)
	return &detail, nil
}

// existing reports what already lives under orderRef, or nil when nothing does.
func (s *service) existing(ctx context.Context, orderRef string) (*paymentsessions.StatusView, error) {
	status, err := s.sessions.GetPaymentStatus(ctx, orderRef)
	if err == nil {
		return status, nil
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, nil
	}
	if pkgerrors.As(err) != nil {
		return nil, err
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order reference")
}

func (s *service) refConflict(ctx context.Context, orderRef, msg string, status *paymentsessions.StatusView) error {
	if s.logg != nil {
		logCtx := s.logg.WithOrderRef(ctx, orderRef)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"payment_status": string(status.Status),
			"order_created":  status.OrderCreated,
		})
		s.logg.Warn(logCtx, "checkout refused for existing reference")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, msg).
		WithDetails(map[string]any{
			"order_ref":      orderRef,
			"payment_status": string(status.Status),
		})
}

func (s *service) normalize(input *Input) error {
	input.OrderRef = strings.TrimSpace(input.OrderRef)
	if input.OrderRef == "" {
		input.OrderRef = s.newRef()
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = enums.PaymentMethodPayHere
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if input.Currency == "" {
		input.Currency = s.signer.Currency()
	}
	if err := validateContact(input.Contact); err != nil {
		return err
	}
	if err := validateAddress("shipping", input.ShippingAddress); err != nil {
		return err
	}
	if input.BillingAddress == nil {
		billing := input.ShippingAddress
		input.BillingAddress = &billing
	} else if err := validateAddress("billing", *input.BillingAddress); err != nil {
		return err
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout requires at least one item")
	}

	total := decimal.Zero
	for idx, item := range input.Items {
		if strings.TrimSpace(item.ProductID) == "" || strings.TrimSpace(item.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id and name required").
				WithDetails(map[string]any{"index": idx})
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive").
				WithDetails(map[string]any{"index": idx})
		}
		if item.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item price must not be negative").
				WithDetails(map[string]any{"index": idx})
		}
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if s.strictTotals && !total.Equal(input.Amount) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount does not match item totals").
			WithDetails(map[string]any{
				"amount":      input.Amount.StringFixed(2),
				"items_total": total.StringFixed(2),
			})
	}
	return nil
}

func validateContact(contact Contact) error {
	if strings.TrimSpace(contact.FirstName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer first name required")
	}
	if strings.TrimSpace(contact.Email) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email required")
	}
	return nil
}

func validateAddress(kind string, addr orders.AddressInput) error {
	if strings.TrimSpace(addr.Street1) == "" || strings.TrimSpace(addr.City) == "" || strings.TrimSpace(addr.Country) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, kind+" address incomplete")
	}
	return nil
}
