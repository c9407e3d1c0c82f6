package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agricdeck/agricdeck-backend/pkg/enums"
)

// User is the local projection of a platform account. Identity and
// credentials live with the external auth service; this row carries the
// marketplace-facing fields, including the farmer wallet balance.
type User struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Email         string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	Role          enums.UserRole  `gorm:"column:role;type:text;not null;default:'buyer'"`
	FirstName     string          `gorm:"column:first_name;not null"`
	LastName      string          `gorm:"column:last_name;not null"`
	Phone         *string         `gorm:"column:phone"`
	FarmName      *string         `gorm:"column:farm_name"`
	FarmAddress   *string         `gorm:"column:farm_address"`
	WalletBalance decimal.Decimal `gorm:"column:wallet_balance;type:numeric(12,2);not null;default:0"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
