package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	"github.com/agricdeck/agricdeck-backend/pkg/kwik"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, params ListParams) ([]models.Order, error)
	ListForFarmer(ctx context.Context, farmerID uuid.UUID, params ListParams) ([]models.Order, error)
	UpdateStatusGuarded(ctx context.Context, orderID uuid.UUID, from []enums.OrderStatus, updates map[string]any) (int64, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	DeleteCartItems(ctx context.Context, buyerID uuid.UUID, productIDs []uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// InventoryService reserves and releases product stock inside the
// caller's transaction.
type InventoryService interface {
	CheckAvailability(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty decimal.Decimal) (*models.Product, error)
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty decimal.Decimal) error
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty decimal.Decimal) error
}

// WalletService credits farmer earnings on delivery.
type WalletService interface {
	Credit(ctx context.Context, tx *gorm.DB, farmerID uuid.UUID, amount decimal.Decimal, description string, orderID *uuid.UUID) error
}

// TransactionRecorder appends payment transaction rows, used here to
// record refund intent when a paid order is rejected.
type TransactionRecorder interface {
	Create(ctx context.Context, record *models.PaymentTransaction) (*models.PaymentTransaction, error)
	WithTx(tx *gorm.DB) TransactionRecorder
}

// LogisticsClient books deliveries and prices delivery fees. Failures
// never block order flow; they degrade to defaults or order notes.
type LogisticsClient interface {
	GetDeliveryQuote(ctx context.Context, pickup, delivery kwik.Location) (*kwik.Quote, error)
	CreateDeliveryOrder(ctx context.Context, pickup, delivery kwik.Location, pickupContact, deliveryContact kwik.Contact, orderReference string) (*kwik.DeliveryOrder, error)
}
