package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubOrderService struct {
	customerID uuid.UUID
	params     pagination.Params
	orderRef   string
}

func (s *stubOrderService) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	s.customerID = customerID
	s.params = params
	return &internalorders.OrderList{
		Orders:     []internalorders.OrderSummary{{OrderRef: "ORD-2"}, {OrderRef: "ORD-1"}},
		NextCursor: "next",
	}, nil
}

func (s *stubOrderService) GetCustomerOrder(ctx context.Context, customerID uuid.UUID, orderRef string) (*internalorders.OrderDetail, error) {
	s.customerID = customerID
	s.orderRef = orderRef
	if orderRef == "ORD-OTHER" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return &internalorders.OrderDetail{OrderSummary: internalorders.OrderSummary{OrderRef: orderRef}}, nil
}

func newRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	r.Get("/orders", List(svc, nil))
	r.Get("/orders/{orderRef}", Detail(svc, nil))
	return r
}

func withCustomer(req *http.Request, id uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithCustomerID(req.Context(), id.String()))
}

func TestListRequiresCustomer(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubOrderService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListPassesPagination(t *testing.T) {
	svc := &stubOrderService{}
	customerID := uuid.New()

	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, withCustomer(httptest.NewRequest(http.MethodGet, "/orders?limit=10&cursor=abc", nil), customerID))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, customerID, svc.customerID)
	assert.Equal(t, pagination.Params{Limit: 10, Cursor: "abc"}, svc.params)
	assert.Contains(t, rec.Body.String(), `"next_cursor":"next"`)
}

func TestListRejectsBadLimit(t *testing.T) {
	for _, limit := range []string{"0", "500", "ten"} {
		rec := httptest.NewRecorder()
		newRouter(&stubOrderService{}).ServeHTTP(rec, withCustomer(httptest.NewRequest(http.MethodGet, "/orders?limit="+limit, nil), uuid.New()))
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
}

func TestDetailScopesToCustomer(t *testing.T) {
	svc := &stubOrderService{}
	customerID := uuid.New()

	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, withCustomer(httptest.NewRequest(http.MethodGet, "/orders/ORD-1", nil), customerID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ORD-1", svc.orderRef)
	assert.Equal(t, customerID, svc.customerID)

	rec = httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, withCustomer(httptest.NewRequest(http.MethodGet, "/orders/ORD-OTHER", nil), customerID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
