package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Cart is a customer's cart with derived totals.
type Cart struct {
	CustomerID    uuid.UUID       `json:"customer_id"`
	Items         []Line          `json:"items"`
	TotalQuantity int             `json:"total_quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// AddInput describes a product being put into the cart.
type AddInput struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Weight    decimal.Decimal
}

// Service manages persisted carts of signed-in customers.
type Service interface {
	GetItems(ctx context.Context, customerID uuid.UUID) (*Cart, error)
	Add(ctx context.Context, customerID uuid.UUID, input AddInput) (*Cart, error)
	UpdateQuantity(ctx context.Context, customerID uuid.UUID, productID string, quantity int) (*Cart, error)
	Remove(ctx context.Context, customerID uuid.UUID, productID string) (*Cart, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
	Sync(ctx context.Context, customerID uuid.UUID, items []AddInput) (*Cart, error)
	RemoveOrdered(ctx context.Context, customerID uuid.UUID, ordered []OrderedItem) (*Cart, error)
}

// ServiceParams groups the collaborators of the cart service. Cache is optional.
type ServiceParams struct {
	Repo     Repository
	TxRunner txRunner
	Cache    Cache
	Logger   *logger.Logger
}

type service struct {
	repo  Repository
	tx    txRunner
	cache Cache
	logg  *logger.Logger
	sfg   singleflight.Group

	genMu sync.Mutex
	gens  map[string]uint64
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:  params.Repo,
		tx:    params.TxRunner,
		cache: params.Cache,
		logg:  params.Logger,
		gens:  make(map[string]uint64),
	}, nil
}

// GetItems reads through the cache. Concurrent misses for one customer share
// a single database load.
func (s *service) GetItems(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	key := customerID.String()
	v, err, _ := s.sfg.Do(key, func() (any, error) {
		if s.cache != nil {
			lines, err := s.cache.Get(ctx, key)
			if err == nil {
				return lines, nil
			}
			if !errors.Is(err, ErrCacheMiss) {
				s.warn(ctx, customerID, "cart cache read failed", err)
			}
		}
		return s.load(ctx, customerID)
	})
	if err != nil {
		return nil, err
	}
	return buildCart(customerID, v.([]Line)), nil
}

// load reads the cart from the database and fills the cache. A fill that
// raced an invalidation is removed again so stale lines never outlive it.
func (s *service) load(ctx context.Context, customerID uuid.UUID) ([]Line, error) {
	key := customerID.String()
	gen := s.generation(key)

	items, err := s.repo.List(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, lineFromModel(item))
	}
	if s.cache == nil || s.generation(key) != gen {
		return lines, nil
	}
	if err := s.cache.Set(ctx, key, lines); err != nil {
		s.warn(ctx, customerID, "cart cache write failed", err)
		return lines, nil
	}
	if s.generation(key) != gen {
		s.evict(ctx, customerID)
	}
	return lines, nil
}

func (s *service) generation(key string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[key]
}

// Add puts the product in the cart or increments the quantity already there.
func (s *service) Add(ctx context.Context, customerID uuid.UUID, input AddInput) (*Cart, error) {
	input, err := normalizeAdd(input)
	if err != nil {
		return nil, err
	}

	add := func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			existing, err := repo.Find(ctx, customerID, input.ProductID)
			if err != nil {
				return err
			}
			if existing != nil {
				quantity := existing.Quantity + input.Quantity
				_, err := repo.SetQuantity(ctx, customerID, input.ProductID, quantity, existing.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))))
				return err
			}
			return repo.Create(ctx, newCartItem(customerID, input))
		})
	}

	err = add()
	if db.IsUniqueViolation(err, "") {
		// lost an insert race with a concurrent add; the row exists now
		err = add()
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	return s.afterMutation(ctx, customerID)
}

// UpdateQuantity sets the quantity of a line. Zero removes it.
func (s *service) UpdateQuantity(ctx context.Context, customerID uuid.UUID, productID string, quantity int) (*Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if quantity == 0 {
		return s.Remove(ctx, customerID, productID)
	}

	item, err := s.repo.Find(ctx, customerID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	subtotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	if _, err := s.repo.SetQuantity(ctx, customerID, productID, quantity, subtotal); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return s.afterMutation(ctx, customerID)
}

func (s *service) Remove(ctx context.Context, customerID uuid.UUID, productID string) (*Cart, error) {
	affected, err := s.repo.Delete(ctx, customerID, strings.TrimSpace(productID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.afterMutation(ctx, customerID)
}

func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	if err := s.repo.DeleteAll(ctx, customerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	s.invalidate(ctx, customerID)
	return nil
}

// Sync replaces the whole cart with items. Repeated product ids are merged.
func (s *service) Sync(ctx context.Context, customerID uuid.UUID, items []AddInput) (*Cart, error) {
	merged := make([]AddInput, 0, len(items))
	index := map[string]int{}
	for idx, raw := range items {
		item, err := normalizeAdd(raw)
		if err != nil {
			return nil, pkgerrors.As(err).WithDetails(map[string]any{"index": idx})
		}
		if pos, ok := index[item.ProductID]; ok {
			merged[pos].Quantity += item.Quantity
			merged[pos].Name = item.Name
			merged[pos].UnitPrice = item.UnitPrice
			merged[pos].Weight = item.Weight
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteAll(ctx, customerID); err != nil {
			return err
		}
		for _, item := range merged {
			if err := repo.Create(ctx, newCartItem(customerID, item)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync cart")
	}
	return s.afterMutation(ctx, customerID)
}

// RemoveOrdered subtracts purchased quantities from the customer's cart.
func (s *service) RemoveOrdered(ctx context.Context, customerID uuid.UUID, ordered []OrderedItem) (*Cart, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return Reconcile(ctx, customerLines{repo: s.repo.WithTx(tx), customerID: customerID}, ordered)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconcile cart")
	}
	if s.logg != nil {
		logCtx := s.logg.WithCustomerID(ctx, customerID.String())
		logCtx = s.logg.WithField(logCtx, "ordered_lines", len(ordered))
		s.logg.Info(logCtx, "cart reconciled with order")
	}
	return s.afterMutation(ctx, customerID)
}

// afterMutation returns the freshly written cart. It never joins a load that
// started before the write.
func (s *service) afterMutation(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	s.invalidate(ctx, customerID)
	lines, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return buildCart(customerID, lines), nil
}

// invalidate bumps the customer's cache generation and drops the cached cart.
func (s *service) invalidate(ctx context.Context, customerID uuid.UUID) {
	key := customerID.String()
	s.genMu.Lock()
	s.gens[key]++
	s.genMu.Unlock()
	s.sfg.Forget(key)
	s.evict(ctx, customerID)
}

func (s *service) evict(ctx context.Context, customerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, customerID.String()); err != nil {
		s.warn(ctx, customerID, "cart cache invalidate failed", err)
	}
}

func (s *service) warn(ctx context.Context, customerID uuid.UUID, msg string, err error) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithCustomerID(ctx, customerID.String())
	logCtx = s.logg.WithField(logCtx, "error", err.Error())
	s.logg.Warn(logCtx, msg)
}

func normalizeAdd(input AddInput) (AddInput, error) {
	input.ProductID = strings.TrimSpace(input.ProductID)
	input.Name = strings.TrimSpace(input.Name)
	if input.ProductID == "" || input.Name == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "product id and name required")
	}
	if input.Quantity <= 0 {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.UnitPrice.IsNegative() || input.Weight.IsNegative() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "price and weight must not be negative")
	}
	return input, nil
}

func newCartItem(customerID uuid.UUID, input AddInput) *models.CartItem {
	now := time.Now().UTC()
	return &models.CartItem{
		ID:         uuid.New(),
		CustomerID: customerID,
		ProductID:  input.ProductID,
		Name:       input.Name,
		Quantity:   input.Quantity,
		UnitPrice:  input.UnitPrice,
		Weight:     input.Weight,
		Subtotal:   input.UnitPrice.Mul(decimal.NewFromInt(int64(input.Quantity))),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func buildCart(customerID uuid.UUID, lines []Line) *Cart {
	cart := &Cart{CustomerID: customerID, Items: lines, Subtotal: decimal.Zero}
	if cart.Items == nil {
		cart.Items = []Line{}
	}
	for _, line := range lines {
		cart.TotalQuantity += line.Quantity
		cart.Subtotal = cart.Subtotal.Add(line.Subtotal)
	}
	return cart
}
