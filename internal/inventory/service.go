// Package inventory owns stock reservation and release. All mutations
// are single guarded UPDATEs so concurrent orders can never drive
// available quantity negative.
package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
)

// Service exposes reservation primitives. Methods operate on the
// caller's transaction so a reservation commits or rolls back with the
// order transition that triggered it.
type Service struct{}

// NewService builds the inventory service.
func NewService() *Service {
	return &Service{}
}

// CheckAvailability loads the product and verifies the requested
// quantity could be reserved right now. Read-only; the authoritative
// check happens in Reserve's guarded UPDATE.
func (s *Service) CheckAvailability(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty decimal.Decimal) (*models.Product, error) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var product models.Product
	if err := tx.WithContext(ctx).Where("id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if product.Status != enums.ProductStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is not available for purchase").
			WithDetails(map[string]any{"product_id": productID, "status": product.Status})
	}
	if product.AvailableQuantity.LessThan(qty) {
		return nil, insufficientStock(productID, product.AvailableQuantity, qty)
	}
	return &product, nil
}

// Reserve decrements available stock for an accepted order line. The
// quantity guard in the WHERE clause is the concurrency control: of two
// racing reservations that together exceed stock, exactly one commits.
func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET available_quantity = available_quantity - ?,
			status = CASE WHEN available_quantity - ? <= 0 THEN 'sold_out' ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND available_quantity >= ?
	`, qty, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
	}
	if res.RowsAffected == 0 {
		var product models.Product
		err := tx.WithContext(ctx).Select("available_quantity").Where("id = ?", productID).First(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product after failed reserve")
		}
		return insufficientStock(productID, product.AvailableQuantity, qty)
	}
	return nil
}

// Release returns previously reserved stock, e.g. when a paid order is
// rejected or cancelled after acceptance. A sold out product becomes
// purchasable again.
func (s *Service) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET available_quantity = available_quantity + ?,
			status = CASE WHEN status = 'sold_out' THEN 'active' ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// Restock raises both available and total quantity for a farmer's own
// product. Unlike Release this moves the lifetime high-water mark.
func (s *Service) Restock(ctx context.Context, tx *gorm.DB, farmerID, productID uuid.UUID, qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET available_quantity = available_quantity + ?,
			total_quantity = total_quantity + ?,
			status = CASE WHEN status = 'sold_out' THEN 'active' ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND farmer_id = ?
	`, qty, qty, productID, farmerID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restock product")
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := tx.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&exists).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product after failed restock")
		}
		if exists == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to farmer")
	}
	return nil
}

func insufficientStock(productID uuid.UUID, available, requested decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"product_id": productID,
			"available":  available.String(),
			"requested":  requested.String(),
		})
}
