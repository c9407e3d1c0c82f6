package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agricdeck/agricdeck-backend/pkg/enums"
)

// Withdrawal is a farmer payout request. The wallet is debited exactly
// once, when the payout gateway confirms the transfer, never at request
// time.
type Withdrawal struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	FarmerID         uuid.UUID               `gorm:"column:farmer_id;type:uuid;not null;index"`
	Amount           decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Status           enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	BankName         string                  `gorm:"column:bank_name;not null"`
	BankCode         string                  `gorm:"column:bank_code;not null"`
	AccountNumber    string                  `gorm:"column:account_number;not null"`
	AccountName      string                  `gorm:"column:account_name;not null"`
	Gateway          *string                 `gorm:"column:gateway"`
	GatewayReference *string                 `gorm:"column:gateway_reference;uniqueIndex"`
	GatewayResponse  *string                 `gorm:"column:gateway_response;type:text"`
	AdminNotes       *string                 `gorm:"column:admin_notes"`
	ProcessedBy      *uuid.UUID              `gorm:"column:processed_by;type:uuid"`
	ProcessedAt      *time.Time              `gorm:"column:processed_at"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
