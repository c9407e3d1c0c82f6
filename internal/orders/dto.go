package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agricdeck/agricdeck-backend/pkg/enums"
)

// OrderItemInput is one requested product line at checkout.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// CreateOrderInput carries everything needed to place an order.
type CreateOrderInput struct {
	BuyerID      uuid.UUID
	Items        []OrderItemInput
	DeliveryType enums.DeliveryType

	DeliveryAddress string
	DeliveryCity    string
	DeliveryState   string
	DeliveryPhone   string
	BuyerNotes      string
}

// UpdateStatusInput is a farmer-driven lifecycle transition.
type UpdateStatusInput struct {
	OrderID  uuid.UUID
	FarmerID uuid.UUID
	Status   enums.OrderStatus
	Notes    string
}

// CancelInput cancels an order on behalf of the buyer or an admin.
type CancelInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	IsAdmin bool
	Reason  string
}

// ListParams is the shared limit/offset pagination contract.
type ListParams struct {
	Status *enums.OrderStatus
	Limit  int
	Offset int
}

func (p ListParams) normalized() ListParams {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
