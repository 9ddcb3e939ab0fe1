package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// AdminOrderService exposes the order operations available to administrators.
type AdminOrderService interface {
	GetByRef(ctx context.Context, orderRef string) (*internalorders.OrderDetail, error)
	TransitionStatus(ctx context.Context, orderRef string, target enums.OrderStatus, paymentID *string) (*internalorders.TransitionResult, error)
}

type adminStatusRequest struct {
	Status    string  `json:"status" validate:"required,oneof=paid canceled charged_back"`
	PaymentID *string `json:"payment_id,omitempty" validate:"omitempty,max=64"`
}

// AdminOrderDetail returns any order by reference.
func AdminOrderDetail(svc AdminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderRef := strings.TrimSpace(chi.URLParam(r, "orderRef"))
		if orderRef == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order reference required"))
			return
		}

		detail, err := svc.GetByRef(r.Context(), orderRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// AdminTransitionOrderStatus moves a pending order to a terminal status, e.g.
// confirming a bank transfer or canceling an unpaid cash-on-delivery order.
func AdminTransitionOrderStatus(svc AdminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderRef := strings.TrimSpace(chi.URLParam(r, "orderRef"))
		if orderRef == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order reference required"))
			return
		}

		var payload adminStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		result, err := svc.TransitionStatus(r.Context(), orderRef, target, payload.PaymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithOrderRef(r.Context(), orderRef)
			ctx = logg.WithFields(ctx, map[string]any{"from": result.From, "status": result.Status, "changed": result.Changed})
			logg.Info(ctx, "admin order status transition")
		}
		responses.WriteSuccess(w, result)
	}
}
