package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/paymentsessions"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubAdminOrders struct {
	target    enums.OrderStatus
	paymentID *string
	err       error
}

func (s *stubAdminOrders) GetByRef(ctx context.Context, orderRef string) (*internalorders.OrderDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.OrderDetail{OrderSummary: internalorders.OrderSummary{OrderRef: orderRef}}, nil
}

func (s *stubAdminOrders) TransitionStatus(ctx context.Context, orderRef string, target enums.OrderStatus, paymentID *string) (*internalorders.TransitionResult, error) {
	s.target = target
	s.paymentID = paymentID
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.TransitionResult{OrderRef: orderRef, From: enums.OrderStatusPending, Status: target, Changed: true}, nil
}

func adminRouter(svc AdminOrderService) chi.Router {
	r := chi.NewRouter()
	r.Get("/orders/{orderRef}", AdminOrderDetail(svc, nil))
	r.Post("/orders/{orderRef}/status", AdminTransitionOrderStatus(svc, nil))
	return r
}

func TestAdminTransitionOrderStatus(t *testing.T) {
	svc := &stubAdminOrders{}
	rec := httptest.NewRecorder()
	adminRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/ORD-1/status", strings.NewReader(`{"status":"paid","payment_id":"bank-123"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.OrderStatusPaid, svc.target)
	require.NotNil(t, svc.paymentID)
	assert.Equal(t, "bank-123", *svc.paymentID)
	assert.Contains(t, rec.Body.String(), `"changed":true`)
}

func TestAdminTransitionOrderStatusErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"pending target", `{"status":"pending"}`, nil, http.StatusBadRequest},
		{"unknown field", `{"status":"paid","extra":1}`, nil, http.StatusBadRequest},
		{"terminal order", `{"status":"canceled"}`, pkgerrors.New(pkgerrors.CodeStateConflict, "order status is terminal"), http.StatusUnprocessableEntity},
		{"missing order", `{"status":"canceled"}`, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			adminRouter(&stubAdminOrders{err: tc.err}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/ORD-1/status", strings.NewReader(tc.body)))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAdminOrderDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	adminRouter(&stubAdminOrders{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/ORD-7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"order_ref":"ORD-7"`)
}

type stubStatusReader struct {
	view *paymentsessions.StatusView
	err  error
}

func (s stubStatusReader) GetPaymentStatus(ctx context.Context, orderRef string) (*paymentsessions.StatusView, error) {
	return s.view, s.err
}

func TestPaymentStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/payments/{orderRef}/status", PaymentStatus(stubStatusReader{view: &paymentsessions.StatusView{OrderRef: "ORD-1", Status: enums.PaymentStatusPending}}, nil))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/ORD-1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)

	r = chi.NewRouter()
	r.Get("/payments/{orderRef}/status", PaymentStatus(stubStatusReader{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}, nil))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/nope/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{}}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Storefront-Env"))

	rec = httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{err: assert.AnError}}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"down"`)

	rec = httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
