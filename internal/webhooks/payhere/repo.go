package payherewebhook

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// PaymentLogRepository appends audit rows for failed or reversed payments.
type PaymentLogRepository interface {
	Create(ctx context.Context, entry *models.PaymentLog) error
	ListByOrderRef(ctx context.Context, orderRef string) ([]models.PaymentLog, error)
}

type paymentLogRepository struct {
	db *gorm.DB
}

// NewPaymentLogRepository builds a payment log repository bound to the provided DB.
func NewPaymentLogRepository(db *gorm.DB) PaymentLogRepository {
	return &paymentLogRepository{db: db}
}

func (r *paymentLogRepository) Create(ctx context.Context, entry *models.PaymentLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *paymentLogRepository) ListByOrderRef(ctx context.Context, orderRef string) ([]models.PaymentLog, error) {
	var rows []models.PaymentLog
	err := r.db.WithContext(ctx).
		Where("order_ref = ?", orderRef).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
