package withdrawals

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agricdeck/agricdeck-backend/pkg/enums"
)

// RequestInput is a farmer's payout request with destination bank
// details captured as given.
type RequestInput struct {
	FarmerID      uuid.UUID
	Amount        decimal.Decimal
	BankName      string
	BankCode      string
	AccountNumber string
	AccountName   string
}

// ProcessInput is an admin decision on a pending withdrawal.
type ProcessInput struct {
	WithdrawalID uuid.UUID
	AdminID      uuid.UUID
	Approve      bool
	Gateway      string
	Notes        string
}

// ListParams pages withdrawal history.
type ListParams struct {
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
