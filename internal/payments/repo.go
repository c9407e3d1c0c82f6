package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed payments repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) CreateTransaction(ctx context.Context, record *models.PaymentTransaction) (*models.PaymentTransaction, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repository) FindTransactionByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error) {
	var record models.PaymentTransaction
	err := r.db.WithContext(ctx).Where("gateway_reference = ?", reference).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) UpdateTransactionGuarded(ctx context.Context, id uuid.UUID, from []enums.TransactionStatus, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repository) ListTransactionsForUser(ctx context.Context, userID uuid.UUID, params ListParams) ([]models.PaymentTransaction, error) {
	params = params.normalized()
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	return r.list(query, params)
}

func (r *repository) ListTransactions(ctx context.Context, params ListParams) ([]models.PaymentTransaction, error) {
	params = params.normalized()
	return r.list(r.db.WithContext(ctx), params)
}

func (r *repository) list(query *gorm.DB, params ListParams) ([]models.PaymentTransaction, error) {
	if params.Type != nil {
		query = query.Where("type = ?", *params.Type)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	var records []models.PaymentTransaction
	err := query.
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) UpdateOrderPaymentGuarded(ctx context.Context, orderID uuid.UUID, from []enums.PaymentStatus, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status IN ?", orderID, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}
