package products

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/api/middleware"
	"github.com/agricdeck/agricdeck-backend/api/responses"
	"github.com/agricdeck/agricdeck-backend/api/validators"
	"github.com/agricdeck/agricdeck-backend/internal/inventory"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type restockRequest struct {
	Quantity string `json:"quantity" validate:"required"`
}

// Restock tops up available stock on a product the farmer owns.
func Restock(inv *inventory.Service, tx txRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if inv == nil || tx == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "productId"))
		productID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var req restockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		qty, err := decimal.NewFromString(req.Quantity)
		if err != nil || !qty.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive number"))
			return
		}

		farmerID := middleware.UserIDFromContext(r.Context())
		err = tx.WithTx(r.Context(), func(txDB *gorm.DB) error {
			return inv.Restock(r.Context(), txDB, farmerID, productID, qty)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"product_id": productID.String(),
			"restocked":  qty.String(),
		})
	}
}
