package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts only the order row; children are written explicitly.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateGuestCustomer(ctx context.Context, guest *models.GuestCustomer) error {
	return r.db.WithContext(ctx).Create(guest).Error
}

func (r *repository) CreateCustomerLink(ctx context.Context, link *models.CustomerOrder) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) CreateAddresses(ctx context.Context, addresses []models.OrderAddress) error {
	if len(addresses) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&addresses).Error
}

// CreateItems inserts items one statement at a time so a failing row leaves
// the caller's transaction to roll back everything written before it.
func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	for i := range items {
		if err := r.db.WithContext(ctx).Create(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) FindByRef(ctx context.Context, orderRef string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.created_at ASC").Order("order_items.id ASC")
		}).
		Preload("Addresses").
		Preload("Guest").
		Preload("CustomerLink").
		Where("order_ref = ?", orderRef).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindStatusByRef(ctx context.Context, orderRef string) (*OrderState, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Select("id", "order_ref", "status").
		Where("order_ref = ?", orderRef).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &OrderState{ID: order.ID, OrderRef: order.OrderRef, Status: order.Status}, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, nil, err
	}

	var rows []models.Order
	err = r.db.WithContext(ctx).
		Model(&models.Order{}).
		Joins("JOIN customer_orders ON customer_orders.order_id = orders.id").
		Where("customer_orders.customer_id = ?", customerID).
		Scopes(pagination.Keyset("orders", cursor, params.Size())).
		Preload("Items").
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	rows, next := pagination.Split(rows, params.Size(), func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return rows, next, nil
}

// UpdateStatusIfPending moves a pending order to target. The WHERE clause is the
// state-machine gate: zero affected rows means the order is missing or terminal.
func (r *repository) UpdateStatusIfPending(ctx context.Context, orderRef string, target enums.OrderStatus, paymentID *string, at time.Time) (int64, error) {
	updates := map[string]any{
		"status":         target,
		"payment_status": target.PaymentStatus(),
		"updated_at":     at,
	}
	if paymentID != nil && *paymentID != "" {
		updates["payment_id"] = *paymentID
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_ref = ? AND status = ?", orderRef, enums.OrderStatusPending).
		Updates(updates)
	return res.RowsAffected, res.Error
}
