package webhooks

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	payherewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/payhere"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/payhere"
)

// PayHereNotificationService applies verified gateway notifications.
type PayHereNotificationService interface {
	HandleNotification(ctx context.Context, n payhere.Notification) (payherewebhook.Ack, error)
}

// PayHereNotify handles the gateway's server-to-server payment notification.
// The response body is a plain-text acknowledgment; any non-200 makes the
// gateway redeliver.
func PayHereNotify(svc PayHereNotificationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteText(w, http.StatusServiceUnavailable, "unavailable")
			return
		}

		notification, err := payhere.ParseNotification(r)
		if err != nil {
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "payhere notification malformed")
			}
			responses.WriteText(w, http.StatusBadRequest, "malformed notification")
			return
		}

		ack, err := svc.HandleNotification(ctx, notification)
		if err != nil {
			status := pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).HTTPStatus
			if status < http.StatusInternalServerError {
				status = http.StatusInternalServerError
			}
			responses.WriteText(w, status, "retry")
			return
		}
		responses.WriteText(w, ack.HTTPStatus(), ack.Message)
	}
}
