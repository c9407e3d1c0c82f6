package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
)

func setupRepoTest(t *testing.T) (*gorm.DB, Repository) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:ordersrepo_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}, &models.Order{}, &models.OrderItem{}, &models.CartItem{}))
	return conn, NewRepository(conn)
}

func seedOrder(t *testing.T, repo Repository, buyerID, farmerID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: "AGD-" + uuid.NewString()[:8],
		BuyerID:     buyerID,
		FarmerID:    farmerID,
		Status:      status,
		Subtotal:    decimal.NewFromInt(1000),
		TotalAmount: decimal.NewFromInt(1000),
	}
	_, err := repo.Create(context.Background(), order)
	require.NoError(t, err)
	return order
}

func TestUpdateStatusGuarded_OnlyMatchesAllowedStates(t *testing.T) {
	_, repo := setupRepoTest(t)
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New(), uuid.New(), enums.OrderStatusPending)

	rows, err := repo.UpdateStatusGuarded(ctx, order.ID,
		[]enums.OrderStatus{enums.OrderStatusAccepted, enums.OrderStatusPreparing},
		map[string]any{"status": enums.OrderStatusShipped})
	require.NoError(t, err)
	require.Zero(t, rows, "guard must not match a pending order")

	rows, err = repo.UpdateStatusGuarded(ctx, order.ID,
		[]enums.OrderStatus{enums.OrderStatusPending},
		map[string]any{"status": enums.OrderStatusAccepted})
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	reloaded, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusAccepted, reloaded.Status)
}

func TestFindByNumber_PreloadsItems(t *testing.T) {
	conn, repo := setupRepoTest(t)
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New(), uuid.New(), enums.OrderStatusPending)

	items := []models.OrderItem{{
		ID:          uuid.New(),
		OrderID:     order.ID,
		ProductID:   uuid.New(),
		ProductName: "Yam Tubers",
		Unit:        "tuber",
		Quantity:    decimal.NewFromInt(3),
		UnitPrice:   decimal.NewFromInt(250),
		Subtotal:    decimal.NewFromInt(750),
	}}
	require.NoError(t, repo.CreateItems(ctx, items))

	found, err := repo.FindByNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	require.Equal(t, "Yam Tubers", found.Items[0].ProductName)

	var count int64
	conn.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&count)
	require.EqualValues(t, 1, count)
}

func TestList_ScopesToOwnerAndPaginates(t *testing.T) {
	_, repo := setupRepoTest(t)
	ctx := context.Background()
	buyer := uuid.New()
	farmer := uuid.New()

	seedOrder(t, repo, buyer, farmer, enums.OrderStatusPending)
	seedOrder(t, repo, buyer, farmer, enums.OrderStatusDelivered)
	seedOrder(t, repo, uuid.New(), farmer, enums.OrderStatusPending)

	buyerOrders, err := repo.ListForBuyer(ctx, buyer, ListParams{})
	require.NoError(t, err)
	require.Len(t, buyerOrders, 2)

	farmerOrders, err := repo.ListForFarmer(ctx, farmer, ListParams{})
	require.NoError(t, err)
	require.Len(t, farmerOrders, 3)

	page, err := repo.ListForFarmer(ctx, farmer, ListParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
}

func TestDeleteCartItems_OnlyRemovesOrderedProducts(t *testing.T) {
	conn, repo := setupRepoTest(t)
	ctx := context.Background()
	buyer := uuid.New()
	ordered := uuid.New()
	kept := uuid.New()

	for _, productID := range []uuid.UUID{ordered, kept} {
		item := &models.CartItem{
			ID:        uuid.New(),
			BuyerID:   buyer,
			ProductID: productID,
			Quantity:  decimal.NewFromInt(1),
		}
		require.NoError(t, conn.Create(item).Error)
	}

	require.NoError(t, repo.DeleteCartItems(ctx, buyer, []uuid.UUID{ordered}))

	var remaining []models.CartItem
	conn.Where("buyer_id = ?", buyer).Find(&remaining)
	require.Len(t, remaining, 1)
	require.Equal(t, kept, remaining[0].ProductID)
}
