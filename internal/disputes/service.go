package disputes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/internal/orders"
	"github.com/agricdeck/agricdeck-backend/pkg/db"
	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

// disputableFrom are the order states a dispute may be raised in.
var disputableFrom = []enums.OrderStatus{
	enums.OrderStatusPending,
	enums.OrderStatusAccepted,
	enums.OrderStatusPreparing,
	enums.OrderStatusShipped,
	enums.OrderStatusInTransit,
}

// Service couples disputes to the order state machine: opening one
// freezes the order, resolution records the outcome but leaves the
// order's fate to an explicit admin action.
type Service struct {
	repo   Repository
	orders orders.Repository
	tx     txRunner
	logg   *logger.Logger
}

func NewService(repo Repository, ordersRepo orders.Repository, tx txRunner, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("disputes repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, orders: ordersRepo, tx: tx, logg: logg}, nil
}

// Open raises a dispute and moves the order to disputed in one
// transaction. Only a party to the order may raise one, at most once per
// order.
func (s *Service) Open(ctx context.Context, input OpenInput) (*models.Dispute, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.RaisedByID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid dispute type")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}

	var dispute *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		repo := s.repo.WithTx(tx)

		order, err := ordersRepo.Find(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		var disputedUserID uuid.UUID
		switch input.RaisedByID {
		case order.BuyerID:
			disputedUserID = order.FarmerID
		case order.FarmerID:
			disputedUserID = order.BuyerID
		default:
			return pkgerrors.New(pkgerrors.CodeForbidden, "only a party to the order can raise a dispute")
		}

		if order.Status.IsTerminal() || order.Status == enums.OrderStatusDisputed {
			return pkgerrors.New(pkgerrors.CodeConflict, "order cannot be disputed").
				WithDetails(map[string]any{"status": order.Status})
		}
		if _, err := repo.FindByOrder(ctx, order.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already has a dispute")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing dispute")
		}

		created := &models.Dispute{
			ID:             uuid.New(),
			OrderID:        order.ID,
			RaisedByID:     input.RaisedByID,
			DisputedUserID: disputedUserID,
			Type:           input.Type,
			Status:         enums.DisputeStatusOpen,
			Description:    strings.TrimSpace(input.Description),
		}
		if _, err := repo.Create(ctx, created); err != nil {
			// The unique index backstops the existence check under
			// concurrent opens.
			if db.IsUniqueViolation(err, "order_id") {
				return pkgerrors.New(pkgerrors.CodeConflict, "order already has a dispute")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute")
		}

		rows, err := ordersRepo.UpdateStatusGuarded(ctx, order.ID, disputableFrom,
			map[string]any{"status": enums.OrderStatusDisputed})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "freeze order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "order state changed; dispute not opened")
		}

		dispute = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, dispute.OrderID.String())
	s.logg.Info(ctx, "dispute opened")
	return dispute, nil
}

// Resolve records the admin's outcome. The order stays disputed until an
// admin cancels it or support acts on it separately.
func (s *Service) Resolve(ctx context.Context, input ResolveInput) (*models.Dispute, error) {
	if input.DisputeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.Resolution) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution required")
	}

	dispute, err := s.repo.Find(ctx, input.DisputeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
	}
	if dispute.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "dispute already resolved").
			WithDetails(map[string]any{"status": dispute.Status})
	}

	now := time.Now().UTC()
	err = s.repo.Update(ctx, dispute.ID, map[string]any{
		"status":      enums.DisputeStatusResolved,
		"resolution":  strings.TrimSpace(input.Resolution),
		"handled_by":  input.AdminID,
		"handled_at":  now,
		"resolved_at": now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve dispute")
	}

	ctx = s.logg.WithOrderID(ctx, dispute.OrderID.String())
	s.logg.Info(ctx, "dispute resolved")
	return s.repo.Find(ctx, dispute.ID)
}

// Get returns the dispute when the actor is a party to it or an admin.
func (s *Service) Get(ctx context.Context, disputeID, actorID uuid.UUID, role enums.UserRole) (*models.Dispute, error) {
	dispute, err := s.repo.Find(ctx, disputeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
	}
	if role != enums.UserRoleAdmin && dispute.RaisedByID != actorID && dispute.DisputedUserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
	}
	return dispute, nil
}

// ListMine returns disputes where the actor is either party.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, params ListParams) ([]models.Dispute, error) {
	disputes, err := s.repo.ListForParty(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list disputes")
	}
	return disputes, nil
}

// ListAll returns all disputes for admin review.
func (s *Service) ListAll(ctx context.Context, params ListParams) ([]models.Dispute, error) {
	disputes, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list disputes")
	}
	return disputes, nil
}
