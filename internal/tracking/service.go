// Package tracking assembles a buyer-facing view of where an order is:
// the local status timeline plus, when a shipment exists, the logistics
// provider's live position.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/internal/orders"
	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
	"github.com/agricdeck/agricdeck-backend/pkg/kwik"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

// LogisticsClient is the tracking capability of the delivery provider.
type LogisticsClient interface {
	TrackDelivery(ctx context.Context, trackingNumber string) (*kwik.TrackingInfo, error)
}

// TimelineEntry is one reached milestone in an order's life.
type TimelineEntry struct {
	Status enums.OrderStatus `json:"status"`
	At     time.Time         `json:"at"`
}

// LogisticsStatus is the provider's live view of a shipment. When the
// provider cannot be reached ProviderError carries the reason and the
// live fields stay empty.
type LogisticsStatus struct {
	Partner         string `json:"partner"`
	TrackingNumber  string `json:"tracking_number"`
	Status          string `json:"status,omitempty"`
	CurrentLocation string `json:"current_location,omitempty"`
	ETAText         string `json:"eta,omitempty"`
	ProviderError   string `json:"provider_error,omitempty"`
}

// OrderTracking is the full tracking view for one order.
type OrderTracking struct {
	OrderID      uuid.UUID          `json:"order_id"`
	OrderNumber  string             `json:"order_number"`
	Status       enums.OrderStatus  `json:"status"`
	DeliveryType enums.DeliveryType `json:"delivery_type"`
	Timeline     []TimelineEntry    `json:"timeline"`
	Logistics    *LogisticsStatus   `json:"logistics,omitempty"`
}

// Service reads order state and enriches it with live logistics data.
type Service struct {
	orders    orders.Repository
	logistics LogisticsClient
	logg      *logger.Logger
}

// NewService builds the tracking service. The logistics client may be
// nil; shipment rows then report a provider error instead of live data.
func NewService(ordersRepo orders.Repository, logistics LogisticsClient, logg *logger.Logger) (*Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{orders: ordersRepo, logistics: logistics, logg: logg}, nil
}

// TrackOrder returns the tracking view for an order the actor may see.
// Logistics outages degrade to a provider-error stanza; the timeline is
// always served.
func (s *Service) TrackOrder(ctx context.Context, orderID, actorID uuid.UUID, role enums.UserRole) (*OrderTracking, error) {
	order, err := s.orders.Find(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if role != enums.UserRoleAdmin && order.BuyerID != actorID && order.FarmerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	view := &OrderTracking{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		Status:       order.Status,
		DeliveryType: order.DeliveryType,
		Timeline:     buildTimeline(order),
	}

	if order.TrackingNumber != nil && *order.TrackingNumber != "" {
		view.Logistics = s.liveStatus(ctx, order)
	}
	return view, nil
}

// TrackLogistics queries the provider for a raw tracking number.
func (s *Service) TrackLogistics(ctx context.Context, trackingNumber string) (*kwik.TrackingInfo, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required")
	}
	if s.logistics == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logistics provider not configured")
	}
	info, err := s.logistics.TrackDelivery(ctx, trackingNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "track delivery")
	}
	return info, nil
}

func (s *Service) liveStatus(ctx context.Context, order *models.Order) *LogisticsStatus {
	status := &LogisticsStatus{
		TrackingNumber: *order.TrackingNumber,
	}
	if order.LogisticsPartner != nil {
		status.Partner = *order.LogisticsPartner
	}
	if s.logistics == nil {
		status.ProviderError = "logistics provider not configured"
		return status
	}

	info, err := s.logistics.TrackDelivery(ctx, *order.TrackingNumber)
	if err != nil {
		s.logg.Warn(ctx, "logistics tracking unavailable for "+*order.TrackingNumber)
		status.ProviderError = err.Error()
		return status
	}
	status.Status = info.Status
	status.CurrentLocation = info.CurrentLocation
	status.ETAText = info.ETAText
	return status
}

func buildTimeline(order *models.Order) []TimelineEntry {
	timeline := []TimelineEntry{{Status: enums.OrderStatusPending, At: order.CreatedAt}}
	if order.AcceptedAt != nil {
		timeline = append(timeline, TimelineEntry{Status: enums.OrderStatusAccepted, At: *order.AcceptedAt})
	}
	if order.ShippedAt != nil {
		timeline = append(timeline, TimelineEntry{Status: enums.OrderStatusShipped, At: *order.ShippedAt})
	}
	if order.DeliveredAt != nil {
		timeline = append(timeline, TimelineEntry{Status: enums.OrderStatusDelivered, At: *order.DeliveredAt})
	}
	// Terminal or exceptional states that carry no dedicated stamp still
	// close the timeline with the row's last update.
	switch order.Status {
	case enums.OrderStatusRejected, enums.OrderStatusCancelled, enums.OrderStatusDisputed:
		timeline = append(timeline, TimelineEntry{Status: order.Status, At: order.UpdatedAt})
	}
	return timeline
}
