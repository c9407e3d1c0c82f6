package disputes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed disputes repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dispute *models.Dispute) (*models.Dispute, error) {
	if err := r.db.WithContext(ctx).Create(dispute).Error; err != nil {
		return nil, err
	}
	return dispute, nil
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListForParty(ctx context.Context, userID uuid.UUID, params ListParams) ([]models.Dispute, error) {
	return r.list(ctx, params, "raised_by_id = ? OR disputed_user_id = ?", userID, userID)
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.Dispute, error) {
	return r.list(ctx, params)
}

func (r *repository) list(ctx context.Context, params ListParams, conds ...any) ([]models.Dispute, error) {
	params = params.normalized()
	query := r.db.WithContext(ctx)
	if len(conds) > 0 {
		query = query.Where(conds[0], conds[1:]...)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	var disputes []models.Dispute
	err := query.
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&disputes).Error
	if err != nil {
		return nil, err
	}
	return disputes, nil
}
