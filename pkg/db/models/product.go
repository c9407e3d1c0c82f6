package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agricdeck/agricdeck-backend/pkg/enums"
)

// Product represents a farmer's listing. AvailableQuantity is the
// reservable stock; TotalQuantity is the lifetime high-water mark raised
// only by explicit restocks.
type Product struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	FarmerID          uuid.UUID           `gorm:"column:farmer_id;type:uuid;not null;index"`
	Name              string              `gorm:"column:name;not null"`
	Description       *string             `gorm:"column:description"`
	Category          *string             `gorm:"column:category"`
	Unit              string              `gorm:"column:unit;not null"`
	PricePerUnit      decimal.Decimal     `gorm:"column:price_per_unit;type:numeric(12,2);not null"`
	AvailableQuantity decimal.Decimal     `gorm:"column:available_quantity;type:numeric(12,2);not null;default:0"`
	TotalQuantity     decimal.Decimal     `gorm:"column:total_quantity;type:numeric(12,2);not null;default:0"`
	Status            enums.ProductStatus `gorm:"column:status;type:text;not null;default:'active'"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
