package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agricdeck/agricdeck-backend/pkg/enums"
)

// PaymentTransaction is one row per attempted monetary movement. The
// gateway reference is the idempotency key for reconciliation; a terminal
// status never regresses.
type PaymentTransaction struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          *uuid.UUID              `gorm:"column:order_id;type:uuid;index"`
	UserID           uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Type             enums.TransactionType   `gorm:"column:type;type:text;not null"`
	Status           enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Amount           decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         string                  `gorm:"column:currency;not null;default:'NGN'"`
	Gateway          *string                 `gorm:"column:gateway"`
	GatewayReference *string                 `gorm:"column:gateway_reference;uniqueIndex"`
	GatewayResponse  *string                 `gorm:"column:gateway_response;type:text"`
	PaymentMethod    *string                 `gorm:"column:payment_method"`
	Description      *string                 `gorm:"column:description"`
	CompletedAt      *time.Time              `gorm:"column:completed_at"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
