package payments

import (
	"context"

	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/internal/orders"
	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
)

// recorder adapts transaction-row writes to the shape the orders service
// consumes for refund and earnings records.
type recorder struct {
	db *gorm.DB
}

// NewRecorder exposes payment transaction writes as an
// orders.TransactionRecorder.
func NewRecorder(db *gorm.DB) orders.TransactionRecorder {
	return recorder{db: db}
}

func (r recorder) Create(ctx context.Context, record *models.PaymentTransaction) (*models.PaymentTransaction, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r recorder) WithTx(tx *gorm.DB) orders.TransactionRecorder {
	return recorder{db: tx}
}
