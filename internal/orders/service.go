package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/pkg/config"
	"github.com/agricdeck/agricdeck-backend/pkg/db"
	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
	"github.com/agricdeck/agricdeck-backend/pkg/kwik"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

// farmerTransitions maps each farmer-reachable target status to the
// states it may be entered from. Everything else is a conflict.
var farmerTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusAccepted:  {enums.OrderStatusPending},
	enums.OrderStatusRejected:  {enums.OrderStatusPending},
	enums.OrderStatusPreparing: {enums.OrderStatusAccepted},
	enums.OrderStatusShipped:   {enums.OrderStatusAccepted, enums.OrderStatusPreparing},
	enums.OrderStatusInTransit: {enums.OrderStatusShipped},
	enums.OrderStatusDelivered: {enums.OrderStatusShipped, enums.OrderStatusInTransit},
}

// Service drives the order lifecycle: creation, the status state
// machine, and the inventory/wallet/refund side effects each transition
// carries.
type Service struct {
	repo      Repository
	tx        txRunner
	inventory InventoryService
	wallet    WalletService
	txRecords TransactionRecorder
	logistics LogisticsClient
	platform  config.PlatformConfig
	logg      *logger.Logger

	newOrderNumber func() string
}

// NewService builds the orders service. The logistics client may be nil;
// delivery fees then fall back to the configured default and shipments
// are not booked automatically.
func NewService(repo Repository, tx txRunner, inventory InventoryService, wallet WalletService, txRecords TransactionRecorder, logistics LogisticsClient, platform config.PlatformConfig, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if txRecords == nil {
		return nil, fmt.Errorf("transaction recorder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:      repo,
		tx:        tx,
		inventory: inventory,
		wallet:    wallet,
		txRecords: txRecords,
		logistics: logistics,
		platform:  platform,
		logg:      logg,
		newOrderNumber: func() string {
			return generateReference(platform.OrderNumberPrefix, 4)
		},
	}, nil
}

// Create places an order: snapshots product prices, fixes commission and
// delivery fee at creation time, and consumes matching cart rows. Stock
// is validated here but only reserved when the farmer accepts.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if !input.DeliveryType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery type")
	}
	if input.DeliveryType == enums.DeliveryTypeDelivery && strings.TrimSpace(input.DeliveryAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required for doorstep delivery")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "each item needs a product and a positive quantity")
		}
	}

	productIDs := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.repo.FindProducts(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	var farmerID uuid.UUID
	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		if farmerID == uuid.Nil {
			farmerID = product.FarmerID
		} else if farmerID != product.FarmerID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "all items must come from a single farmer")
		}

		lineSubtotal := product.PricePerUnit.Mul(item.Quantity).Round(2)
		subtotal = subtotal.Add(lineSubtotal)
		items = append(items, models.OrderItem{
			ID:          uuid.New(),
			ProductID:   product.ID,
			ProductName: product.Name,
			Unit:        product.Unit,
			Quantity:    item.Quantity,
			UnitPrice:   product.PricePerUnit,
			Subtotal:    lineSubtotal,
		})
	}

	farmer, err := s.repo.FindUser(ctx, farmerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farmer")
	}

	// The fee quote hits an external API; price it before any
	// transaction is opened.
	deliveryFee := s.deliveryFee(ctx, input, farmer)
	commission := subtotal.Mul(s.platform.CommissionPercent).Div(decimal.NewFromInt(100)).Round(2)
	total := subtotal.Add(deliveryFee)

	// A colliding order number aborts the whole transaction on
	// postgres, so the retry runs in a fresh one with a fresh number.
	var order *models.Order
	for attempt := 0; attempt < 2; attempt++ {
		orderNumber := s.newOrderNumber()
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			// Stock is only reserved on acceptance, but an order for
			// stock that is already gone should fail fast here.
			for _, item := range input.Items {
				if _, err := s.inventory.CheckAvailability(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}

			created := &models.Order{
				ID:            uuid.New(),
				OrderNumber:   orderNumber,
				BuyerID:       input.BuyerID,
				FarmerID:      farmerID,
				Status:        enums.OrderStatusPending,
				DeliveryType:  input.DeliveryType,
				Subtotal:      subtotal,
				DeliveryFee:   deliveryFee,
				Commission:    commission,
				TotalAmount:   total,
				PaymentStatus: enums.PaymentStatusPending,
			}
			setOptional(&created.DeliveryAddress, input.DeliveryAddress)
			setOptional(&created.DeliveryCity, input.DeliveryCity)
			setOptional(&created.DeliveryState, input.DeliveryState)
			setOptional(&created.DeliveryPhone, input.DeliveryPhone)
			setOptional(&created.BuyerNotes, input.BuyerNotes)
			if input.DeliveryType == enums.DeliveryTypePickup {
				created.PickupAddress = farmer.FarmAddress
				created.PickupPhone = farmer.Phone
			}

			if _, err := repo.Create(ctx, created); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}

			itemRows := make([]models.OrderItem, len(items))
			copy(itemRows, items)
			for i := range itemRows {
				itemRows[i].OrderID = created.ID
			}
			if err := repo.CreateItems(ctx, itemRows); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
			}
			if err := repo.DeleteCartItems(ctx, input.BuyerID, productIDs); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart items")
			}

			created.Items = itemRows
			order = created
			return nil
		})
		if err == nil || !db.IsUniqueViolation(err, "order_number") {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order created")
	return order, nil
}

// UpdateStatus applies one farmer-driven state machine step. Acceptance
// reserves stock, rejection of a paid order records refund intent,
// shipment books logistics after commit, and delivery credits the
// farmer wallet, each atomically with its status flip.
func (s *Service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.FarmerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	allowedFrom, ok := farmerTransitions[input.Status]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status").
			WithDetails(map[string]any{"status": input.Status})
	}

	var (
		updated      *models.Order
		bookShipment bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.Find(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.FarmerID != input.FarmerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to farmer")
		}
		if order.Status == enums.OrderStatusDisputed {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is disputed; transitions are suspended")
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": input.Status}
		switch input.Status {
		case enums.OrderStatusAccepted:
			updates["accepted_at"] = now
		case enums.OrderStatusShipped:
			updates["shipped_at"] = now
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		}
		if note := strings.TrimSpace(input.Notes); note != "" {
			updates["farmer_notes"] = appendNote(order.FarmerNotes, note)
		}

		rows, err := repo.UpdateStatusGuarded(ctx, order.ID, allowedFrom, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if rows == 0 {
			// A concurrent request moved the order first.
			return pkgerrors.New(pkgerrors.CodeConflict, "order state changed; re-fetch and retry").
				WithDetails(map[string]any{"current_status": order.Status, "requested": input.Status})
		}

		switch input.Status {
		case enums.OrderStatusAccepted:
			for _, item := range order.Items {
				if err := s.inventory.Reserve(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}

		case enums.OrderStatusRejected:
			if order.PaymentStatus == enums.PaymentStatusPaid {
				if err := s.recordRefundIntent(ctx, tx, order); err != nil {
					return err
				}
			}

		case enums.OrderStatusShipped:
			bookShipment = order.DeliveryType == enums.DeliveryTypeDelivery &&
				order.TrackingNumber == nil && s.logistics != nil

		case enums.OrderStatusDelivered:
			if order.PaymentStatus == enums.PaymentStatusPaid {
				earnings := order.Subtotal.Sub(order.Commission)
				if err := s.wallet.Credit(ctx, tx, order.FarmerID, earnings, "order earnings for "+order.OrderNumber, &order.ID); err != nil {
					return err
				}
			}
		}

		updated, err = repo.Find(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, updated.ID.String())
	s.logg.Info(ctx, "order status updated to "+updated.Status.String())

	if bookShipment {
		// External call after the lock is released; its outcome is
		// committed in a fresh transaction that re-checks local state.
		s.bookDelivery(ctx, updated)
		if reloaded, err := s.repo.Find(ctx, updated.ID); err == nil {
			updated = reloaded
		}
	}
	return updated, nil
}

// Cancel voids a pending order (buyer) or a pending/disputed order
// (admin). Reserved stock is returned and paid orders get refund intent
// recorded.
func (s *Service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.Find(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		allowedFrom := []enums.OrderStatus{enums.OrderStatusPending}
		if input.IsAdmin {
			allowedFrom = append(allowedFrom, enums.OrderStatusDisputed)
		} else if order.BuyerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
		}

		updates := map[string]any{"status": enums.OrderStatusCancelled}
		if note := strings.TrimSpace(input.Reason); note != "" {
			if input.IsAdmin {
				updates["admin_notes"] = appendNote(order.AdminNotes, note)
			} else {
				updates["buyer_notes"] = appendNote(order.BuyerNotes, note)
			}
		}

		rows, err := repo.UpdateStatusGuarded(ctx, order.ID, allowedFrom, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
				WithDetails(map[string]any{"current_status": order.Status})
		}

		// Stock was reserved iff the order had been accepted.
		if order.AcceptedAt != nil {
			for _, item := range order.Items {
				if err := s.inventory.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			if err := s.recordRefundIntent(ctx, tx, order); err != nil {
				return err
			}
		}

		cancelled, err = repo.Find(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, cancelled.ID.String())
	s.logg.Info(ctx, "order cancelled")
	return cancelled, nil
}

// Get returns the order when the actor is a party to it or an admin.
func (s *Service) Get(ctx context.Context, orderID, actorID uuid.UUID, role enums.UserRole) (*models.Order, error) {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if role != enums.UserRoleAdmin && order.BuyerID != actorID && order.FarmerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// ListForBuyer returns the buyer's orders, newest first.
func (s *Service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params ListParams) ([]models.Order, error) {
	orders, err := s.repo.ListForBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer orders")
	}
	return orders, nil
}

// ListForFarmer returns the farmer's orders, newest first.
func (s *Service) ListForFarmer(ctx context.Context, farmerID uuid.UUID, params ListParams) ([]models.Order, error) {
	orders, err := s.repo.ListForFarmer(ctx, farmerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list farmer orders")
	}
	return orders, nil
}

func (s *Service) recordRefundIntent(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	description := "refund for rejected/cancelled order " + order.OrderNumber
	record := &models.PaymentTransaction{
		ID:          uuid.New(),
		OrderID:     &order.ID,
		UserID:      order.BuyerID,
		Type:        enums.TransactionTypeRefund,
		Status:      enums.TransactionStatusPending,
		Amount:      order.TotalAmount,
		Currency:    "NGN",
		Gateway:     order.PaymentGateway,
		Description: &description,
	}
	if _, err := s.txRecords.WithTx(tx).Create(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund intent")
	}
	updates := map[string]any{"payment_status": enums.PaymentStatusRefunded}
	if err := s.repo.WithTx(tx).Update(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order refunded")
	}
	return nil
}

// deliveryFee prices doorstep delivery via the logistics provider,
// falling back to the configured default. Pricing must never block
// order creation on an external outage.
func (s *Service) deliveryFee(ctx context.Context, input CreateOrderInput, farmer *models.User) decimal.Decimal {
	if input.DeliveryType != enums.DeliveryTypeDelivery {
		return decimal.Zero
	}
	if s.logistics == nil {
		return s.platform.DefaultDeliveryFee
	}

	pickup := kwik.Location{}
	if farmer.FarmAddress != nil {
		pickup.Address = *farmer.FarmAddress
	}
	dropoff := kwik.Location{
		Address: input.DeliveryAddress,
		City:    input.DeliveryCity,
		State:   input.DeliveryState,
	}

	quote, err := s.logistics.GetDeliveryQuote(ctx, pickup, dropoff)
	if err != nil || quote == nil || quote.Price.LessThanOrEqual(decimal.Zero) {
		s.logg.Warn(ctx, "delivery quote unavailable, using default fee")
		return s.platform.DefaultDeliveryFee
	}
	return quote.Price.Round(2)
}

// bookDelivery runs after a shipped transition committed. It calls the
// logistics provider without holding any order lock, then re-validates
// the order is still shipped before attaching the tracking handle and
// advancing to in transit. Provider failure only leaves a note.
func (s *Service) bookDelivery(ctx context.Context, order *models.Order) {
	pickup := kwik.Location{}
	pickupContact := kwik.Contact{}
	if farmer, err := s.repo.FindUser(ctx, order.FarmerID); err == nil {
		if farmer.FarmAddress != nil {
			pickup.Address = *farmer.FarmAddress
		}
		pickupContact.Name = farmer.FirstName + " " + farmer.LastName
		if farmer.Phone != nil {
			pickupContact.Phone = *farmer.Phone
		}
	}
	dropoff := kwik.Location{}
	if order.DeliveryAddress != nil {
		dropoff.Address = *order.DeliveryAddress
	}
	if order.DeliveryCity != nil {
		dropoff.City = *order.DeliveryCity
	}
	if order.DeliveryState != nil {
		dropoff.State = *order.DeliveryState
	}
	dropContact := kwik.Contact{}
	if order.DeliveryPhone != nil {
		dropContact.Phone = *order.DeliveryPhone
	}

	delivery, err := s.logistics.CreateDeliveryOrder(ctx, pickup, dropoff, pickupContact, dropContact, order.OrderNumber)
	if err != nil {
		s.logg.Error(ctx, "logistics booking failed", err)
		note := "logistics booking failed: " + err.Error()
		_ = s.repo.Update(ctx, order.ID, map[string]any{
			"farmer_notes": appendNote(order.FarmerNotes, note),
		})
		return
	}

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.UpdateStatusGuarded(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusShipped},
			map[string]any{
				"status":            enums.OrderStatusInTransit,
				"logistics_partner": "kwik",
				"tracking_number":   delivery.TrackingNumber,
				"provider_order_id": delivery.ProviderOrderID,
			})
		if err != nil {
			return err
		}
		if rows == 0 {
			// The order moved on (e.g. disputed) while the booking was
			// in flight; keep the local state authoritative.
			s.logg.Warn(ctx, "order state changed during logistics booking; tracking not attached")
		}
		return nil
	})
	if txErr != nil {
		s.logg.Error(ctx, "attaching tracking number failed", txErr)
	}
}

func appendNote(existing *string, note string) string {
	stamp := time.Now().UTC().Format("2006-01-02 15:04")
	line := "[" + stamp + "] " + note
	if existing == nil || *existing == "" {
		return line
	}
	return *existing + "\n" + line
}

func setOptional(dst **string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		v := trimmed
		*dst = &v
	}
}

// generateReference builds an uppercase hex reference like AGD-1A2B3C4D.
func generateReference(prefix string, byteLen int) string {
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a uuid-derived slice to keep the call total.
		copy(buf, uuid.New().NodeID())
	}
	return prefix + "-" + strings.ToUpper(hex.EncodeToString(buf))
}
