package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agricdeck/agricdeck-backend/pkg/enums"
)

// Order is the buyer/farmer transaction record. Subtotal, commission and
// total are fixed at creation and never recomputed.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber      string              `gorm:"column:order_number;not null;uniqueIndex"`
	BuyerID          uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	FarmerID         uuid.UUID           `gorm:"column:farmer_id;type:uuid;not null;index"`
	Status           enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	DeliveryType     enums.DeliveryType  `gorm:"column:delivery_type;type:text;not null;default:'delivery'"`
	Subtotal         decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee      decimal.Decimal     `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	Commission       decimal.Decimal     `gorm:"column:commission;type:numeric(12,2);not null;default:0"`
	TotalAmount      decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentReference *string             `gorm:"column:payment_reference;uniqueIndex"`
	PaymentGateway   *string             `gorm:"column:payment_gateway"`
	PaymentMethod    *string             `gorm:"column:payment_method"`

	DeliveryAddress *string `gorm:"column:delivery_address"`
	DeliveryCity    *string `gorm:"column:delivery_city"`
	DeliveryState   *string `gorm:"column:delivery_state"`
	DeliveryPhone   *string `gorm:"column:delivery_phone"`
	PickupAddress   *string `gorm:"column:pickup_address"`
	PickupPhone     *string `gorm:"column:pickup_phone"`

	LogisticsPartner *string `gorm:"column:logistics_partner"`
	TrackingNumber   *string `gorm:"column:tracking_number"`
	ProviderOrderID  *string `gorm:"column:provider_order_id"`

	BuyerNotes  *string `gorm:"column:buyer_notes"`
	FarmerNotes *string `gorm:"column:farmer_notes"`
	AdminNotes  *string `gorm:"column:admin_notes"`

	AcceptedAt  *time.Time  `gorm:"column:accepted_at"`
	ShippedAt   *time.Time  `gorm:"column:shipped_at"`
	DeliveredAt *time.Time  `gorm:"column:delivered_at"`
	Items       []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is an immutable snapshot of a product line at order time.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Unit        string          `gorm:"column:unit;not null"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric(12,2);not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
