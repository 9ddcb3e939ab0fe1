package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const maxOrderRefLength = 64

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the order aggregate operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	TransitionStatus(ctx context.Context, orderRef string, target enums.OrderStatus, paymentID *string) (*TransitionResult, error)
	GetStatus(ctx context.Context, orderRef string) (enums.OrderStatus, error)
	GetByRef(ctx context.Context, orderRef string) (*OrderDetail, error)
	GetCustomerOrder(ctx context.Context, customerID uuid.UUID, orderRef string) (*OrderDetail, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
}

// ServiceParams groups the collaborators of the order service.
type ServiceParams struct {
	Repo            Repository
	TxRunner        txRunner
	Outbox          outboxPublisher
	Logger          *logger.Logger
	StrictTotals    bool
	DefaultCurrency string
}

type service struct {
	repo         Repository
	tx           txRunner
	outbox       outboxPublisher
	logg         *logger.Logger
	strictTotals bool
	currency     string
	now          func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.DefaultCurrency))
	if currency == "" {
		currency = "LKR"
	}
	return &service{
		repo:         params.Repo,
		tx:           params.TxRunner,
		outbox:       params.Outbox,
		logg:         params.Logger,
		strictTotals: params.StrictTotals,
		currency:     currency,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateOrder writes the order, its customer link, both addresses and every item
// in one transaction, together with the order_created outbox event.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := s.validateCreate(&input); err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		ID:            uuid.New(),
		OrderRef:      input.OrderRef,
		Amount:        input.Amount,
		Currency:      input.Currency,
		Status:        input.InitialStatus,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: input.InitialStatus.PaymentStatus(),
		IsGuestOrder:  input.Customer.IsGuest(),
		PaymentID:     input.PaymentID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var (
		guest *models.GuestCustomer
		link  *models.CustomerOrder
	)
	if order.IsGuestOrder {
		guest = &models.GuestCustomer{
			ID:        uuid.New(),
			OrderID:   order.ID,
			FirstName: input.Customer.FirstName,
			LastName:  input.Customer.LastName,
			Email:     input.Customer.Email,
			Phone:     input.Customer.Phone,
			Company:   input.Customer.Company,
			CreatedAt: now,
		}
	} else {
		link = &models.CustomerOrder{
			OrderID:    order.ID,
			CustomerID: *input.Customer.CustomerID,
			Email:      input.Customer.Email,
			CreatedAt:  now,
		}
	}
	addresses := []models.OrderAddress{
		buildAddress(order.ID, enums.AddressTypeShipping, input.ShippingAddress, now),
		buildAddress(order.ID, enums.AddressTypeBilling, input.BillingAddress, now),
	}
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			CreatedAt: now,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "order_ref") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order reference already exists").
					WithDetails(map[string]any{"order_ref": input.OrderRef})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		if guest != nil {
			if err := repo.CreateGuestCustomer(ctx, guest); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert guest customer")
			}
		} else {
			if err := repo.CreateCustomerLink(ctx, link); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert customer link")
			}
		}
		if err := repo.CreateAddresses(ctx, addresses); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order addresses")
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order items")
		}
		return s.outbox.Emit(ctx, tx, orderCreatedEvent(order, input, items))
	})
	if err != nil {
		return nil, err
	}

	order.Items = items
	order.Addresses = addresses
	order.Guest = guest
	order.CustomerLink = link

	if s.logg != nil {
		logCtx := s.logg.WithOrderRef(ctx, order.OrderRef)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"status":         order.Status,
			"payment_method": order.PaymentMethod,
			"is_guest":       order.IsGuestOrder,
			"items":          len(items),
		})
		s.logg.Info(logCtx, "order created")
	}
	return order, nil
}

// IsDuplicateOrder reports whether err is the conflict returned for an existing order reference.
func IsDuplicateOrder(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeConflict)
}

func (s *service) validateCreate(input *CreateOrderInput) error {
	input.OrderRef = strings.TrimSpace(input.OrderRef)
	if input.OrderRef == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}
	if len(input.OrderRef) > maxOrderRefLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "order reference too long")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	for idx, item := range input.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id required").
				WithDetails(map[string]any{"index": idx})
		}
		if strings.TrimSpace(item.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item name required").
				WithDetails(map[string]any{"index": idx})
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive").
				WithDetails(map[string]any{"index": idx, "product_id": item.ProductID})
		}
		if item.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item price must not be negative").
				WithDetails(map[string]any{"index": idx, "product_id": item.ProductID})
		}
	}
	if input.Amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	if s.strictTotals {
		expected := decimal.Zero
		for _, item := range input.Items {
			expected = expected.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		if !expected.Equal(input.Amount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount does not match item totals").
				WithDetails(map[string]any{
					"amount":      input.Amount.StringFixed(2),
					"items_total": expected.StringFixed(2),
				})
		}
	}
	if err := validateAddress("shipping", input.ShippingAddress); err != nil {
		return err
	}
	if input.BillingAddress.isZero() {
		input.BillingAddress = input.ShippingAddress
	} else if err := validateAddress("billing", input.BillingAddress); err != nil {
		return err
	}

	if input.Customer.IsGuest() {
		input.Customer.CustomerID = nil
		if strings.TrimSpace(input.Customer.FirstName) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "customer first name required")
		}
		if strings.TrimSpace(input.Customer.Email) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "customer email required")
		}
	}

	if input.PaymentMethod == "" {
		input.PaymentMethod = enums.PaymentMethodPayHere
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.InitialStatus == "" {
		input.InitialStatus = enums.OrderStatusPending
	}
	if !input.InitialStatus.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if input.Currency == "" {
		input.Currency = s.currency
	}
	return nil
}

func validateAddress(kind string, addr AddressInput) error {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(addr.Street1) == "" {
		missing = append(missing, "street1")
	}
	if strings.TrimSpace(addr.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(addr.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, kind+" address incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

func buildAddress(orderID uuid.UUID, kind enums.AddressType, addr AddressInput, now time.Time) models.OrderAddress {
	return models.OrderAddress{
		ID:         uuid.New(),
		OrderID:    orderID,
		Type:       kind,
		Street1:    addr.Street1,
		Street2:    addr.Street2,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		CreatedAt:  now,
	}
}

func orderCreatedEvent(order *models.Order, input CreateOrderInput, items []models.OrderItem) outbox.DomainEvent {
	snapshot := make([]payloads.OrderItemSnapshot, 0, len(items))
	for _, item := range items {
		snapshot = append(snapshot, payloads.OrderItemSnapshot{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	name := strings.TrimSpace(input.Customer.FirstName + " " + input.Customer.LastName)
	data := payloads.OrderCreatedEvent{
		OrderID:       order.ID,
		OrderRef:      order.OrderRef,
		Amount:        order.Amount,
		Currency:      order.Currency,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		IsGuestOrder:  order.IsGuestOrder,
		CustomerID:    input.Customer.CustomerID,
		CustomerName:  name,
		Email:         input.Customer.Email,
		Items:         snapshot,
		CreatedAt:     order.CreatedAt,
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorFor(input.Customer.CustomerID, "customer"),
		Data:          data,
		OccurredAt:    order.CreatedAt,
	}
}

func actorFor(customerID *uuid.UUID, role string) *outbox.ActorRef {
	if customerID == nil && role == "" {
		return nil
	}
	return &outbox.ActorRef{CustomerID: customerID, Role: role}
}

// TransitionStatus moves a pending order to a terminal status. Re-applying the
// current status is a no-op; any other change of a terminal order is rejected.
func (s *service) TransitionStatus(ctx context.Context, orderRef string, target enums.OrderStatus, paymentID *string) (*TransitionResult, error) {
	orderRef = strings.TrimSpace(orderRef)
	if orderRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}
	if !target.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target status must be terminal")
	}

	var result *TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		state, err := repo.FindStatusByRef(ctx, orderRef)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order status")
		}

		now := s.now()
		affected, err := repo.UpdateStatusIfPending(ctx, orderRef, target, paymentID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if affected == 0 {
			current, err := repo.FindStatusByRef(ctx, orderRef)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order status")
			}
			if current.Status == target {
				result = &TransitionResult{OrderRef: orderRef, From: current.Status, Status: current.Status}
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status is terminal").
				WithDetails(map[string]any{"status": current.Status, "requested": target})
		}

		result = &TransitionResult{OrderRef: orderRef, From: state.Status, Status: target, Changed: true}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   state.ID,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:   state.ID,
				OrderRef:  orderRef,
				From:      state.Status,
				To:        target,
				PaymentID: paymentID,
				ChangedAt: now,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	if result.Changed && s.logg != nil {
		logCtx := s.logg.WithOrderRef(ctx, orderRef)
		logCtx = s.logg.WithFields(logCtx, map[string]any{"from": result.From, "to": result.Status})
		s.logg.Info(logCtx, "order status changed")
	}
	return result, nil
}

func (s *service) GetStatus(ctx context.Context, orderRef string) (enums.OrderStatus, error) {
	state, err := s.repo.FindStatusByRef(ctx, orderRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order status")
	}
	return state.Status, nil
}

func (s *service) GetByRef(ctx context.Context, orderRef string) (*OrderDetail, error) {
	order, err := s.loadOrder(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	detail := DetailFromModel(*order)
	return &detail, nil
}

// GetCustomerOrder returns the order only when it is linked to customerID.
func (s *service) GetCustomerOrder(ctx context.Context, customerID uuid.UUID, orderRef string) (*OrderDetail, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	order, err := s.loadOrder(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	if order.CustomerLink == nil || order.CustomerLink.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	detail := DetailFromModel(*order)
	return &detail, nil
}

func (s *service) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if _, err := pagination.Decode(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows))}
	for _, row := range rows {
		list.Orders = append(list.Orders, summaryFromModel(row))
	}
	if next != nil {
		list.NextCursor = next.Encode()
	}
	return list, nil
}

func (s *service) loadOrder(ctx context.Context, orderRef string) (*models.Order, error) {
	orderRef = strings.TrimSpace(orderRef)
	if orderRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}
	order, err := s.repo.FindByRef(ctx, orderRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
