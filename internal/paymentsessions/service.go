package paymentsessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type orderStatusReader interface {
	GetStatus(ctx context.Context, orderRef string) (enums.OrderStatus, error)
}

// StatusView answers a client polling for the outcome of a checkout.
type StatusView struct {
	OrderRef     string              `json:"order_ref"`
	Status       enums.PaymentStatus `json:"status"`
	OrderCreated bool                `json:"order_created"`
}

// Manager owns the lifecycle of payment sessions.
type Manager interface {
	OpenSession(ctx context.Context, orderRef string, payload models.SessionPayload) error
	GetSession(ctx context.Context, orderRef string) (*models.SessionPayload, error)
	GetPaymentStatus(ctx context.Context, orderRef string) (*StatusView, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type manager struct {
	repo   Repository
	orders orderStatusReader
	logg   *logger.Logger
	now    func() time.Time
}

// NewManager builds a payment session manager.
func NewManager(repo Repository, orders orderStatusReader, logg *logger.Logger) (Manager, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment session repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order status reader required")
	}
	return &manager{
		repo:   repo,
		orders: orders,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// OpenSession stores payload under orderRef. Re-opening a session replaces the
// stored payload; the latest checkout attempt wins.
func (m *manager) OpenSession(ctx context.Context, orderRef string, payload models.SessionPayload) error {
	orderRef = strings.TrimSpace(orderRef)
	if orderRef == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}
	if len(payload.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "session requires at least one item")
	}
	now := m.now()
	session := &models.PaymentSession{
		OrderRef:  orderRef,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.repo.Upsert(ctx, session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment session")
	}
	if m.logg != nil {
		logCtx := m.logg.WithOrderRef(ctx, orderRef)
		logCtx = m.logg.WithField(logCtx, "amount", payload.Amount.StringFixed(2))
		m.logg.Info(logCtx, "payment session opened")
	}
	return nil
}

func (m *manager) GetSession(ctx context.Context, orderRef string) (*models.SessionPayload, error) {
	orderRef = strings.TrimSpace(orderRef)
	if orderRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}
	session, err := m.repo.FindByRef(ctx, orderRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment session")
	}
	return &session.Payload, nil
}

// GetPaymentStatus prefers the materialized order, then an open session
// (reported as pending), and reports not found when neither exists.
func (m *manager) GetPaymentStatus(ctx context.Context, orderRef string) (*StatusView, error) {
	orderRef = strings.TrimSpace(orderRef)
	if orderRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}

	status, err := m.orders.GetStatus(ctx, orderRef)
	if err == nil {
		return &StatusView{OrderRef: orderRef, Status: status.PaymentStatus(), OrderCreated: true}, nil
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	if _, err := m.GetSession(ctx, orderRef); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, err
	}
	return &StatusView{OrderRef: orderRef, Status: enums.PaymentStatusPending}, nil
}

func (m *manager) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := m.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment sessions")
	}
	return deleted, nil
}
