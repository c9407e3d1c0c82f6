package withdrawals

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

// NewRepository builds the gorm-backed withdrawals repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, withdrawal *models.Withdrawal) (*models.Withdrawal, error) {
	if err := r.db.WithContext(ctx).Create(withdrawal).Error; err != nil {
		return nil, err
	}
	return withdrawal, nil
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&withdrawal).Error
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

func (r *repository) UpdateGuarded(ctx context.Context, id uuid.UUID, from []enums.TransactionStatus, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repository) ListForFarmer(ctx context.Context, farmerID uuid.UUID, params ListParams) ([]models.Withdrawal, error) {
	return r.list(ctx, params, "farmer_id = ?", farmerID)
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.Withdrawal, error) {
	return r.list(ctx, params)
}

func (r *repository) list(ctx context.Context, params ListParams, conds ...any) ([]models.Withdrawal, error) {
	params = params.normalized()
	query := r.db.WithContext(ctx)
	if len(conds) > 0 {
		query = query.Where(conds[0], conds[1:]...)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	var withdrawals []models.Withdrawal
	err := query.
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&withdrawals).Error
	if err != nil {
		return nil, err
	}
	return withdrawals, nil
}
