package disputes

import (
	"github.com/google/uuid"

	"github.com/agricdeck/agricdeck-backend/pkg/enums"
)

// OpenInput raises a dispute on an order by one of its parties.
type OpenInput struct {
	OrderID     uuid.UUID
	RaisedByID  uuid.UUID
	Type        enums.DisputeType
	Description string
}

// ResolveInput is an admin's closing decision on a dispute.
type ResolveInput struct {
	DisputeID  uuid.UUID
	AdminID    uuid.UUID
	Resolution string
}

// ListParams pages dispute history.
type ListParams struct {
	Status *enums.DisputeStatus
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
