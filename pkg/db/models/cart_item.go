package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is a buyer's staged quantity for a product. Order creation
// consumes the matching rows.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID   uuid.UUID       `gorm:"column:buyer_id;type:uuid;not null;index:idx_cart_buyer_product,unique"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index:idx_cart_buyer_product,unique"`
	Quantity  decimal.Decimal `gorm:"column:quantity;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
