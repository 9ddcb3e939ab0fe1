package webhooks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	payherewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/payhere"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/payhere"
)

type stubNotificationService struct {
	ack      payherewebhook.Ack
	err      error
	received payhere.Notification
}

func (s *stubNotificationService) HandleNotification(ctx context.Context, n payhere.Notification) (payherewebhook.Ack, error) {
	s.received = n
	return s.ack, s.err
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payhere/notify", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPayHereNotifyAcknowledgesProcessedNotification(t *testing.T) {
	svc := &stubNotificationService{ack: payherewebhook.Ack{Outcome: payherewebhook.OutcomePaid, Message: "ok"}}
	values := url.Values{
		payhere.FieldMerchantID: {"1211149"},
		payhere.FieldOrderID:    {"ORD-1"},
		payhere.FieldAmount:     {"1500.00"},
		payhere.FieldStatusCode: {"2"},
	}

	w := httptest.NewRecorder()
	PayHereNotify(svc, nil).ServeHTTP(w, formRequest(values))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "ORD-1", svc.received.OrderID)
	assert.Equal(t, "1500.00", svc.received.Amount)
}

func TestPayHereNotifyRejectsInvalidSignature(t *testing.T) {
	svc := &stubNotificationService{ack: payherewebhook.Ack{Outcome: payherewebhook.OutcomeInvalidSignature, Message: "invalid signature"}}

	w := httptest.NewRecorder()
	PayHereNotify(svc, nil).ServeHTTP(w, formRequest(url.Values{payhere.FieldOrderID: {"ORD-1"}}))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPayHereNotifyReturnsRetryableStatusOnFailure(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"dependency": {err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db"), "load"), status: http.StatusServiceUnavailable},
		"untyped":    {err: errors.New("boom"), status: http.StatusInternalServerError},
		"business":   {err: pkgerrors.New(pkgerrors.CodeValidation, "bad"), status: http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubNotificationService{err: tc.err}
			w := httptest.NewRecorder()
			PayHereNotify(svc, nil).ServeHTTP(w, formRequest(url.Values{payhere.FieldOrderID: {"ORD-1"}}))
			require.Equal(t, tc.status, w.Code)
		})
	}
}

func TestPayHereNotifyRejectsMalformedBody(t *testing.T) {
	svc := &stubNotificationService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payhere/notify", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	PayHereNotify(svc, nil).ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.received.OrderID)
}
