package disputes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
)

// Repository is the persistence surface for disputes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dispute *models.Dispute) (*models.Dispute, error)
	Find(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListForParty(ctx context.Context, userID uuid.UUID, params ListParams) ([]models.Dispute, error)
	List(ctx context.Context, params ListParams) ([]models.Dispute, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
