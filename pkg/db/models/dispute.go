package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agricdeck/agricdeck-backend/pkg/enums"
)

// Dispute suspends an order's normal transitions until an admin resolves
// it. At most one dispute exists per order, enforced by the unique index.
type Dispute struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	RaisedByID     uuid.UUID           `gorm:"column:raised_by_id;type:uuid;not null;index"`
	DisputedUserID uuid.UUID           `gorm:"column:disputed_user_id;type:uuid;not null;index"`
	Type           enums.DisputeType   `gorm:"column:type;type:text;not null"`
	Status         enums.DisputeStatus `gorm:"column:status;type:text;not null;default:'open'"`
	Description    string              `gorm:"column:description;type:text;not null"`
	Resolution     *string             `gorm:"column:resolution;type:text"`
	HandledBy      *uuid.UUID          `gorm:"column:handled_by;type:uuid"`
	HandledAt      *time.Time          `gorm:"column:handled_at"`
	ResolvedAt     *time.Time          `gorm:"column:resolved_at"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
