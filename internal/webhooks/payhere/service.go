package payherewebhook

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/payhere"
)

const gatewayName = "payhere"

// Outcome classifies how a notification was handled.
type Outcome string

const (
	OutcomePaid             Outcome = "verified_paid"
	OutcomeReplayed         Outcome = "replayed"
	OutcomeDuplicatePayment Outcome = "duplicate_payment"
	OutcomePending          Outcome = "pending"
	OutcomeCanceled         Outcome = "canceled"
	OutcomeChargedBack      Outcome = "charged_back"
	OutcomeUnknownStatus    Outcome = "unknown_status"
	OutcomeAmountMismatch   Outcome = "amount_mismatch"
	OutcomeRejected         Outcome = "rejected"
	OutcomeSessionNotFound  Outcome = "session_not_found"
	OutcomeInvalidSignature Outcome = "invalid_signature"
	OutcomeError            Outcome = "error"
)

// Ack is the acknowledgment returned to the gateway.
type Ack struct {
	Outcome Outcome
	Message string
}

// HTTPStatus maps the outcome to the status code sent back to the gateway.
// Only signature failures are rejected; every recognised outcome is a 200.
func (a Ack) HTTPStatus() int {
	if a.Outcome == OutcomeInvalidSignature {
		return http.StatusUnauthorized
	}
	return http.StatusOK
}

type signatureVerifier interface {
	Verify(n payhere.Notification) bool
}

type sessionReader interface {
	GetSession(ctx context.Context, orderRef string) (*models.SessionPayload, error)
}

type orderWriter interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error)
	TransitionStatus(ctx context.Context, orderRef string, target enums.OrderStatus, paymentID *string) (*orders.TransitionResult, error)
	GetByRef(ctx context.Context, orderRef string) (*orders.OrderDetail, error)
}

// ServiceParams groups the collaborators of the notification processor.
type ServiceParams struct {
	Verifier    signatureVerifier
	Sessions    sessionReader
	Orders      orderWriter
	PaymentLogs PaymentLogRepository
	Metrics     *metrics.WebhookMetrics
	Logger      *logger.Logger
}

// Service processes gateway payment notifications.
type Service struct {
	verifier signatureVerifier
	sessions sessionReader
	orders   orderWriter
	logs     PaymentLogRepository
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Verifier == nil {
		return nil, fmt.Errorf("signature verifier required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("payment session reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.PaymentLogs == nil {
		return nil, fmt.Errorf("payment log repository required")
	}
	return &Service{
		verifier: params.Verifier,
		sessions: params.Sessions,
		orders:   params.Orders,
		logs:     params.PaymentLogs,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// HandleNotification verifies n and applies it. A returned error means the
// notification could not be processed and the gateway should retry.
func (s *Service) HandleNotification(ctx context.Context, n payhere.Notification) (Ack, error) {
	start := s.now()
	ack, err := s.handle(ctx, n)
	if err != nil {
		ack = Ack{Outcome: OutcomeError, Message: "processing failed"}
	}
	s.metrics.IncOutcome(gatewayName, string(ack.Outcome))
	s.metrics.ObserveDuration(gatewayName, s.now().Sub(start))

	if s.logg != nil {
		logCtx := s.logg.WithOrderRef(ctx, n.OrderID)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"payment_id":  n.PaymentID,
			"status_code": n.StatusCode,
			"outcome":     ack.Outcome,
		})
		switch {
		case err != nil:
			s.logg.Error(logCtx, "payment notification failed", err)
		case ack.Outcome == OutcomeInvalidSignature,
			ack.Outcome == OutcomeUnknownStatus,
			ack.Outcome == OutcomeAmountMismatch,
			ack.Outcome == OutcomeRejected,
			ack.Outcome == OutcomeDuplicatePayment,
			ack.Outcome == OutcomeSessionNotFound:
			s.logg.Warn(logCtx, "payment notification not applied")
		default:
			s.logg.Info(logCtx, "payment notification processed")
		}
	}
	return ack, err
}

func (s *Service) handle(ctx context.Context, n payhere.Notification) (Ack, error) {
	if !s.verifier.Verify(n) {
		return Ack{Outcome: OutcomeInvalidSignature, Message: "invalid signature"}, nil
	}

	payload, err := s.sessions.GetSession(ctx, n.OrderID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return Ack{Outcome: OutcomeSessionNotFound, Message: "order not found"}, nil
		}
		return Ack{}, err
	}

	target, known := payhere.MapStatusCode(n.StatusCode)
	if !known {
		return Ack{Outcome: OutcomeUnknownStatus, Message: "status ignored"}, nil
	}

	switch target {
	case enums.OrderStatusPaid:
		return s.materialize(ctx, n, *payload)
	case enums.OrderStatusCanceled, enums.OrderStatusChargedBack:
		return s.recordFailure(ctx, n, target)
	default:
		return Ack{Outcome: OutcomePending, Message: "pending"}, nil
	}
}

// materialize turns the stored proposal into a paid order. The order_ref
// uniqueness constraint arbitrates concurrent or replayed deliveries; a
// second payment against an existing order is logged, not swallowed.
func (s *Service) materialize(ctx context.Context, n payhere.Notification, payload models.SessionPayload) (Ack, error) {
	if !amountMatches(n, payload) {
		return Ack{Outcome: OutcomeAmountMismatch, Message: "amount mismatch"}, nil
	}

	input, err := orders.InputFromSession(n.OrderID, payload, enums.OrderStatusPaid, optional(n.PaymentID))
	if err != nil {
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode session payload")
	}
	if _, err := s.orders.CreateOrder(ctx, input); err != nil {
		switch {
		case orders.IsDuplicateOrder(err):
			return s.checkReplay(ctx, n)
		case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
			return Ack{Outcome: OutcomeRejected, Message: "order rejected"}, nil
		default:
			return Ack{}, err
		}
	}
	return Ack{Outcome: OutcomePaid, Message: "ok"}, nil
}

// checkReplay separates a redelivery of the payment that created the order
// from a different payment captured for the same reference.
func (s *Service) checkReplay(ctx context.Context, n payhere.Notification) (Ack, error) {
	existing, err := s.orders.GetByRef(ctx, n.OrderID)
	if err != nil {
		return Ack{}, err
	}
	paymentID := strings.TrimSpace(n.PaymentID)
	amount, amountErr := decimal.NewFromString(strings.TrimSpace(n.Amount))
	samePayment := existing.PaymentID != nil && *existing.PaymentID == paymentID
	if samePayment && amountErr == nil && amount.Equal(existing.Amount) {
		return Ack{Outcome: OutcomeReplayed, Message: "ok"}, nil
	}

	if err := s.writeLog(ctx, n, enums.OrderStatusPaid); err != nil {
		return Ack{}, err
	}
	if s.logg != nil {
		stored := ""
		if existing.PaymentID != nil {
			stored = *existing.PaymentID
		}
		logCtx := s.logg.WithOrderRef(ctx, n.OrderID)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"payment_id":       paymentID,
			"order_payment_id": stored,
			"gateway_amount":   n.Amount,
			"order_amount":     existing.Amount.StringFixed(2),
			"order_status":     existing.Status,
		})
		s.logg.Warn(logCtx, "payment captured for existing order")
	}
	return Ack{Outcome: OutcomeDuplicatePayment, Message: "ok"}, nil
}

// recordFailure appends the audit row and closes any pending order for the
// reference. Terminal orders are left untouched.
func (s *Service) recordFailure(ctx context.Context, n payhere.Notification, target enums.OrderStatus) (Ack, error) {
	if err := s.writeLog(ctx, n, target); err != nil {
		return Ack{}, err
	}

	if _, err := s.orders.TransitionStatus(ctx, n.OrderID, target, optional(n.PaymentID)); err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) && !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			return Ack{}, err
		}
	}

	outcome := OutcomeCanceled
	if target == enums.OrderStatusChargedBack {
		outcome = OutcomeChargedBack
	}
	return Ack{Outcome: outcome, Message: "ok"}, nil
}

func (s *Service) writeLog(ctx context.Context, n payhere.Notification, status enums.OrderStatus) error {
	entry := &models.PaymentLog{
		ID:              uuid.New(),
		OrderRef:        n.OrderID,
		Status:          status,
		StatusCode:      n.StatusCode,
		PaymentID:       n.PaymentID,
		GatewayAmount:   n.Amount,
		GatewayCurrency: n.Currency,
		RawPayload:      rawFields(n),
		CreatedAt:       s.now(),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write payment log")
	}
	return nil
}

func amountMatches(n payhere.Notification, payload models.SessionPayload) bool {
	amount, err := decimal.NewFromString(strings.TrimSpace(n.Amount))
	if err != nil || !amount.Equal(payload.Amount) {
		return false
	}
	if payload.Currency == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(n.Currency), payload.Currency)
}

func rawFields(n payhere.Notification) map[string]string {
	if len(n.Fields) > 0 {
		return n.Fields
	}
	return map[string]string{
		payhere.FieldMerchantID: n.MerchantID,
		payhere.FieldOrderID:    n.OrderID,
		payhere.FieldPaymentID:  n.PaymentID,
		payhere.FieldAmount:     n.Amount,
		payhere.FieldCurrency:   n.Currency,
		payhere.FieldStatusCode: n.StatusCode,
		payhere.FieldMD5Sig:     n.MD5Sig,
	}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
