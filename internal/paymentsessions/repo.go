package paymentsessions

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists payment sessions keyed by order reference.
type Repository interface {
	Upsert(ctx context.Context, session *models.PaymentSession) error
	FindByRef(ctx context.Context, orderRef string) (*models.PaymentSession, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment session repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Upsert inserts the session or replaces the stored payload of an existing one.
func (r *repository) Upsert(ctx context.Context, session *models.PaymentSession) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_ref"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(session).Error
}

func (r *repository) FindByRef(ctx context.Context, orderRef string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	err := r.db.WithContext(ctx).
		Where("order_ref = ?", orderRef).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteOlderThan removes sessions not touched since cutoff.
func (r *repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&models.PaymentSession{})
	return res.RowsAffected, res.Error
}
