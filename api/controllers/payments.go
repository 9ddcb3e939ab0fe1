package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/paymentsessions"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// PaymentStatusReader answers checkout status polls.
type PaymentStatusReader interface {
	GetPaymentStatus(ctx context.Context, orderRef string) (*paymentsessions.StatusView, error)
}

// PaymentStatus reports the payment state of an order reference to the
// polling client after a gateway redirect.
func PaymentStatus(svc PaymentStatusReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment session service unavailable"))
			return
		}

		orderRef := strings.TrimSpace(chi.URLParam(r, "orderRef"))
		if orderRef == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order reference required"))
			return
		}

		view, err := svc.GetPaymentStatus(r.Context(), orderRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
