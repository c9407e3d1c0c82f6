package payments

import (
	"github.com/google/uuid"

	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
)

// InitiateInput starts a checkout for an order the buyer owns.
type InitiateInput struct {
	OrderID uuid.UUID
	BuyerID uuid.UUID
	Gateway string
}

// InitiateResult is the checkout handle handed back to the client.
type InitiateResult struct {
	Reference   string                     `json:"reference"`
	CheckoutURL string                     `json:"checkout_url"`
	AccessCode  string                     `json:"access_code,omitempty"`
	Gateway     string                     `json:"gateway"`
	Transaction *models.PaymentTransaction `json:"transaction"`
}

// ReconcileResult reports the settled state after reconciliation. Known
// is false when the reference does not belong to this system; callers
// acknowledge such events without error.
type ReconcileResult struct {
	Known       bool
	Transaction *models.PaymentTransaction
	Order       *models.Order
}

// ListParams pages transaction history.
type ListParams struct {
	Type   *enums.TransactionType
	Status *enums.TransactionStatus
	Limit  int
	Offset int
}

func (p ListParams) normalized() ListParams {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
