package withdrawals

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
)

// Repository is the persistence surface for payout requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, withdrawal *models.Withdrawal) (*models.Withdrawal, error)
	Find(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	// UpdateGuarded applies updates only while the row is in one of the
	// given statuses and reports how many rows matched.
	UpdateGuarded(ctx context.Context, id uuid.UUID, from []enums.TransactionStatus, updates map[string]any) (int64, error)
	ListForFarmer(ctx context.Context, farmerID uuid.UUID, params ListParams) ([]models.Withdrawal, error)
	List(ctx context.Context, params ListParams) ([]models.Withdrawal, error)
}

// WalletService is the wallet capability processing consumes. The debit
// runs inside the approval transaction and re-checks the balance itself.
type WalletService interface {
	Balance(ctx context.Context, farmerID uuid.UUID) (decimal.Decimal, error)
	Debit(ctx context.Context, tx *gorm.DB, farmerID uuid.UUID, amount decimal.Decimal, description string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
