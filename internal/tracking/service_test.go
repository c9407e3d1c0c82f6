package tracking

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/internal/orders"
	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	"github.com/agricdeck/agricdeck-backend/pkg/kwik"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

type stubTracker struct {
	info *kwik.TrackingInfo
	err  error
}

func (s *stubTracker) TrackDelivery(ctx context.Context, trackingNumber string) (*kwik.TrackingInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.info, nil
}

type trackingEnv struct {
	db      *gorm.DB
	svc     *Service
	tracker *stubTracker
}

func setupTrackingTest(t *testing.T) *trackingEnv {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:tracking_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tracker := &stubTracker{
		info: &kwik.TrackingInfo{Status: "in_transit", CurrentLocation: "Ikeja hub", ETAText: "45 mins"},
	}
	logg := logger.New(logger.Options{ServiceName: "tracking-test", Output: io.Discard})
	svc, err := NewService(orders.NewRepository(conn), tracker, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &trackingEnv{db: conn, svc: svc, tracker: tracker}
}

func (e *trackingEnv) seedShippedOrder(t *testing.T) *models.Order {
	t.Helper()
	accepted := time.Now().UTC().Add(-2 * time.Hour)
	shipped := time.Now().UTC().Add(-time.Hour)
	tracking := "KWK-777"
	partner := "kwik"
	order := &models.Order{
		ID:               uuid.New(),
		OrderNumber:      "AGD-" + uuid.NewString()[:8],
		BuyerID:          uuid.New(),
		FarmerID:         uuid.New(),
		Status:           enums.OrderStatusInTransit,
		DeliveryType:     enums.DeliveryTypeDelivery,
		Subtotal:         decimal.NewFromInt(1000),
		TotalAmount:      decimal.NewFromInt(1500),
		AcceptedAt:       &accepted,
		ShippedAt:        &shipped,
		TrackingNumber:   &tracking,
		LogisticsPartner: &partner,
	}
	if err := e.db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestTrackOrder_TimelineAndLiveStatus(t *testing.T) {
	env := setupTrackingTest(t)
	order := env.seedShippedOrder(t)

	view, err := env.svc.TrackOrder(context.Background(), order.ID, order.BuyerID, enums.UserRoleBuyer)
	if err != nil {
		t.Fatalf("TrackOrder: %v", err)
	}
	if view.Status != enums.OrderStatusInTransit {
		t.Fatalf("status = %s, want in_transit", view.Status)
	}
	if len(view.Timeline) != 3 {
		t.Fatalf("timeline entries = %d, want 3", len(view.Timeline))
	}
	if view.Timeline[0].Status != enums.OrderStatusPending || view.Timeline[2].Status != enums.OrderStatusShipped {
		t.Fatalf("timeline out of order: %+v", view.Timeline)
	}
	if view.Logistics == nil {
		t.Fatalf("logistics stanza missing")
	}
	if view.Logistics.CurrentLocation != "Ikeja hub" {
		t.Fatalf("live location = %q", view.Logistics.CurrentLocation)
	}
	if view.Logistics.ProviderError != "" {
		t.Fatalf("unexpected provider error %q", view.Logistics.ProviderError)
	}
}

func TestTrackOrder_ProviderOutageDegrades(t *testing.T) {
	env := setupTrackingTest(t)
	env.tracker.err = errors.New("kwik timeout")
	order := env.seedShippedOrder(t)

	view, err := env.svc.TrackOrder(context.Background(), order.ID, order.BuyerID, enums.UserRoleBuyer)
	if err != nil {
		t.Fatalf("TrackOrder: %v", err)
	}
	if view.Logistics == nil || view.Logistics.ProviderError == "" {
		t.Fatalf("provider outage not surfaced: %+v", view.Logistics)
	}
	if view.Logistics.TrackingNumber != "KWK-777" {
		t.Fatalf("tracking number lost on outage")
	}
	if len(view.Timeline) == 0 {
		t.Fatalf("timeline missing on outage")
	}
}

func TestTrackOrder_NoShipmentNoLogisticsStanza(t *testing.T) {
	env := setupTrackingTest(t)
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: "AGD-" + uuid.NewString()[:8],
		BuyerID:     uuid.New(),
		FarmerID:    uuid.New(),
		Status:      enums.OrderStatusPending,
		Subtotal:    decimal.NewFromInt(500),
		TotalAmount: decimal.NewFromInt(500),
	}
	if err := env.db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	view, err := env.svc.TrackOrder(context.Background(), order.ID, order.BuyerID, enums.UserRoleBuyer)
	if err != nil {
		t.Fatalf("TrackOrder: %v", err)
	}
	if view.Logistics != nil {
		t.Fatalf("logistics stanza on unshipped order")
	}
	if len(view.Timeline) != 1 {
		t.Fatalf("timeline entries = %d, want 1", len(view.Timeline))
	}
}

func TestTrackOrder_HidesForeignOrders(t *testing.T) {
	env := setupTrackingTest(t)
	order := env.seedShippedOrder(t)

	if _, err := env.svc.TrackOrder(context.Background(), order.ID, uuid.New(), enums.UserRoleBuyer); err == nil {
		t.Fatalf("stranger could track order")
	}
	if _, err := env.svc.TrackOrder(context.Background(), order.ID, uuid.New(), enums.UserRoleAdmin); err != nil {
		t.Fatalf("admin TrackOrder: %v", err)
	}
}

func TestTrackLogistics_PassesThrough(t *testing.T) {
	env := setupTrackingTest(t)

	info, err := env.svc.TrackLogistics(context.Background(), "KWK-777")
	if err != nil {
		t.Fatalf("TrackLogistics: %v", err)
	}
	if info.Status != "in_transit" {
		t.Fatalf("status = %q", info.Status)
	}

	env.tracker.err = errors.New("kwik timeout")
	if _, err := env.svc.TrackLogistics(context.Background(), "KWK-777"); err == nil {
		t.Fatalf("provider error swallowed")
	}
}
