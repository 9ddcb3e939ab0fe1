package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists cart lines keyed by (customer_id, product_id).
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error)
	Find(ctx context.Context, customerID uuid.UUID, productID string) (*models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	SetQuantity(ctx context.Context, customerID uuid.UUID, productID string, quantity int, subtotal decimal.Decimal) (int64, error)
	Delete(ctx context.Context, customerID uuid.UUID, productID string) (int64, error)
	DeleteAll(ctx context.Context, customerID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the cart repository to the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Order("product_id ASC").
		Find(&items).Error
	return items, err
}

// Find returns nil without error when the product is not in the cart.
func (r *repository) Find(ctx context.Context, customerID uuid.UUID, productID string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) Create(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) SetQuantity(ctx context.Context, customerID uuid.UUID, productID string, quantity int, subtotal decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		Updates(map[string]any{
			"quantity":   quantity,
			"subtotal":   subtotal,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) Delete(ctx context.Context, customerID uuid.UUID, productID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteAll(ctx context.Context, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&models.CartItem{}).Error
}

// customerLines adapts one customer's persisted cart to the reconciliation
// store.
type customerLines struct {
	repo       Repository
	customerID uuid.UUID
}

func (c customerLines) FindLine(ctx context.Context, productID string) (*Line, error) {
	item, err := c.repo.Find(ctx, c.customerID, productID)
	if err != nil || item == nil {
		return nil, err
	}
	line := lineFromModel(*item)
	return &line, nil
}

func (c customerLines) DeleteLine(ctx context.Context, productID string) error {
	_, err := c.repo.Delete(ctx, c.customerID, productID)
	return err
}

func (c customerLines) SetQuantity(ctx context.Context, productID string, quantity int, subtotal decimal.Decimal) error {
	_, err := c.repo.SetQuantity(ctx, c.customerID, productID, quantity, subtotal)
	return err
}

func lineFromModel(item models.CartItem) Line {
	return Line{
		ProductID: item.ProductID,
		Name:      item.Name,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		Weight:    item.Weight,
		Subtotal:  item.Subtotal,
	}
}
