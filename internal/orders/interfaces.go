package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository exposes the persistence operations behind the order aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateGuestCustomer(ctx context.Context, guest *models.GuestCustomer) error
	CreateCustomerLink(ctx context.Context, link *models.CustomerOrder) error
	CreateAddresses(ctx context.Context, addresses []models.OrderAddress) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByRef(ctx context.Context, orderRef string) (*models.Order, error)
	FindStatusByRef(ctx context.Context, orderRef string) (*OrderState, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	UpdateStatusIfPending(ctx context.Context, orderRef string, target enums.OrderStatus, paymentID *string, at time.Time) (int64, error)
}

// OrderState is the slim projection used by status checks and transitions.
type OrderState struct {
	ID       uuid.UUID
	OrderRef string
	Status   enums.OrderStatus
}
