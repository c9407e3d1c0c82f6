package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
)

// Repository is the persistence surface for payment reconciliation. It
// spans transactions and the payment columns of orders because both move
// inside the same database transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateTransaction(ctx context.Context, record *models.PaymentTransaction) (*models.PaymentTransaction, error)
	FindTransactionByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error)
	// UpdateTransactionGuarded applies updates only while the row is in
	// one of the given statuses and reports how many rows matched.
	UpdateTransactionGuarded(ctx context.Context, id uuid.UUID, from []enums.TransactionStatus, updates map[string]any) (int64, error)
	ListTransactionsForUser(ctx context.Context, userID uuid.UUID, params ListParams) ([]models.PaymentTransaction, error)
	ListTransactions(ctx context.Context, params ListParams) ([]models.PaymentTransaction, error)

	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	// UpdateOrderPaymentGuarded flips payment columns only from
	// non-terminal payment states.
	UpdateOrderPaymentGuarded(ctx context.Context, orderID uuid.UUID, from []enums.PaymentStatus, updates map[string]any) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
