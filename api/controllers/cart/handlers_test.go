package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubCartService struct {
	added     []cartsvc.AddInput
	updated   map[string]int
	removed   []string
	synced    []cartsvc.AddInput
	ordered   []cartsvc.OrderedItem
	cleared   bool
	customer  uuid.UUID
	removeErr error
}

func (s *stubCartService) cart(customerID uuid.UUID) *cartsvc.Cart {
	return &cartsvc.Cart{CustomerID: customerID, Items: []cartsvc.Line{}, Subtotal: decimal.Zero}
}

func (s *stubCartService) GetItems(ctx context.Context, customerID uuid.UUID) (*cartsvc.Cart, error) {
	s.customer = customerID
	return s.cart(customerID), nil
}

func (s *stubCartService) Add(ctx context.Context, customerID uuid.UUID, input cartsvc.AddInput) (*cartsvc.Cart, error) {
	s.added = append(s.added, input)
	return s.cart(customerID), nil
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, customerID uuid.UUID, productID string, quantity int) (*cartsvc.Cart, error) {
	if s.updated == nil {
		s.updated = map[string]int{}
	}
	s.updated[productID] = quantity
	return s.cart(customerID), nil
}

func (s *stubCartService) Remove(ctx context.Context, customerID uuid.UUID, productID string) (*cartsvc.Cart, error) {
	if s.removeErr != nil {
		return nil, s.removeErr
	}
	s.removed = append(s.removed, productID)
	return s.cart(customerID), nil
}

func (s *stubCartService) Clear(ctx context.Context, customerID uuid.UUID) error {
	s.cleared = true
	return nil
}

func (s *stubCartService) Sync(ctx context.Context, customerID uuid.UUID, items []cartsvc.AddInput) (*cartsvc.Cart, error) {
	s.synced = items
	return s.cart(customerID), nil
}

func (s *stubCartService) RemoveOrdered(ctx context.Context, customerID uuid.UUID, ordered []cartsvc.OrderedItem) (*cartsvc.Cart, error) {
	s.ordered = ordered
	return s.cart(customerID), nil
}

func newRouter(svc cartsvc.Service) chi.Router {
	r := chi.NewRouter()
	r.Get("/cart", Get(svc, nil))
	r.Post("/cart", Add(svc, nil))
	r.Delete("/cart", Clear(svc, nil))
	r.Patch("/cart/items/{productId}", UpdateItem(svc, nil))
	r.Delete("/cart/items/{productId}", RemoveItem(svc, nil))
	r.Put("/cart/sync", Sync(svc, nil))
	r.Post("/cart/remove-ordered", RemoveOrdered(svc, nil))
	r.Post("/public/cart/reconcile", GuestReconcile(nil))
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, customerID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if customerID != uuid.Nil {
		req = req.WithContext(middleware.WithCustomerID(req.Context(), customerID.String()))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCartRoutesRequireCustomer(t *testing.T) {
	rec := do(t, newRouter(&stubCartService{}), http.MethodGet, "/cart", "", uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartAddDecodesLine(t *testing.T) {
	svc := &stubCartService{}
	customerID := uuid.New()
	rec := do(t, newRouter(svc), http.MethodPost, "/cart",
		`{"product_id":" p-1 ","name":"Tea","quantity":2,"unit_price":"4.50","weight":"0.25"}`, customerID)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.added, 1)
	assert.Equal(t, "p-1", svc.added[0].ProductID)
	assert.Equal(t, 2, svc.added[0].Quantity)
	assert.True(t, svc.added[0].UnitPrice.Equal(decimal.RequireFromString("4.5")))
}

func TestCartAddRejectsInvalidLine(t *testing.T) {
	svc := &stubCartService{}
	rec := do(t, newRouter(svc), http.MethodPost, "/cart", `{"product_id":"p-1","name":"Tea","quantity":0,"unit_price":"1"}`, uuid.New())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.added)
}

func TestCartItemRoutes(t *testing.T) {
	svc := &stubCartService{}
	customerID := uuid.New()
	router := newRouter(svc)

	rec := do(t, router, http.MethodPatch, "/cart/items/p-9", `{"quantity":0}`, customerID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, svc.updated["p-9"])

	rec = do(t, router, http.MethodDelete, "/cart/items/p-9", "", customerID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"p-9"}, svc.removed)

	svc.removeErr = pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	rec = do(t, router, http.MethodDelete, "/cart/items/missing", "", customerID)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodDelete, "/cart", "", customerID)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, svc.cleared)
}

func TestCartSyncAndRemoveOrdered(t *testing.T) {
	svc := &stubCartService{}
	customerID := uuid.New()
	router := newRouter(svc)

	rec := do(t, router, http.MethodPut, "/cart/sync",
		`{"items":[{"product_id":"a","name":"A","quantity":1,"unit_price":"2"},{"product_id":"b","name":"B","quantity":3,"unit_price":"1"}]}`, customerID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, svc.synced, 2)

	rec = do(t, router, http.MethodPost, "/cart/remove-ordered", `{"items":[{"product_id":"a","quantity":1}]}`, customerID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []cartsvc.OrderedItem{{ProductID: "a", Quantity: 1}}, svc.ordered)

	rec = do(t, router, http.MethodPost, "/cart/remove-ordered", `{"items":[]}`, customerID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuestReconcileHandsBackRemainingLines(t *testing.T) {
	body := `{
		"lines":[
			{"product_id":"a","name":"A","quantity":3,"unit_price":"2.00","weight":"0","subtotal":"6.00"},
			{"product_id":"b","name":"B","quantity":1,"unit_price":"5.00","weight":"0","subtotal":"5.00"}
		],
		"ordered":[{"product_id":"a","quantity":1},{"product_id":"b","quantity":1},{"product_id":"zzz","quantity":4}]
	}`
	rec := do(t, newRouter(&stubCartService{}), http.MethodPost, "/public/cart/reconcile", body, uuid.Nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data guestCartResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, "a", resp.Data.Items[0].ProductID)
	assert.Equal(t, 2, resp.Data.Items[0].Quantity)
	assert.True(t, resp.Data.Items[0].Subtotal.Equal(decimal.RequireFromString("4")))
	assert.Equal(t, 2, resp.Data.TotalQuantity)
	assert.True(t, resp.Data.Subtotal.Equal(decimal.RequireFromString("4")))
}
