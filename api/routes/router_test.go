package routes

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sqlitedriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/internal/disputes"
	"github.com/agricdeck/agricdeck-backend/internal/inventory"
	"github.com/agricdeck/agricdeck-backend/internal/orders"
	"github.com/agricdeck/agricdeck-backend/internal/payments"
	"github.com/agricdeck/agricdeck-backend/internal/tracking"
	"github.com/agricdeck/agricdeck-backend/internal/wallet"
	"github.com/agricdeck/agricdeck-backend/internal/withdrawals"
	pkgauth "github.com/agricdeck/agricdeck-backend/pkg/auth"
	"github.com/agricdeck/agricdeck-backend/pkg/config"
	"github.com/agricdeck/agricdeck-backend/pkg/db"
	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	"github.com/agricdeck/agricdeck-backend/pkg/gateway"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
	"github.com/agricdeck/agricdeck-backend/pkg/paystack"
	"github.com/agricdeck/agricdeck-backend/pkg/redis"
)

const testPaystackSecret = "sk_test_router"

type routerGateway struct {
	verifyRes *gateway.VerifyResult
}

func (g *routerGateway) Name() string { return gateway.ProviderPaystack }

func (g *routerGateway) InitializePayment(ctx context.Context, email string, amount decimal.Decimal, reference string, metadata map[string]any) (*gateway.InitializeResult, error) {
	return &gateway.InitializeResult{
		CheckoutURL: "https://checkout.test/" + reference,
		Reference:   reference,
		RawResponse: `{"status":true}`,
	}, nil
}

func (g *routerGateway) VerifyPayment(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	if g.verifyRes == nil {
		return nil, errors.New("no verification configured")
	}
	return g.verifyRes, nil
}

func (g *routerGateway) CreateTransferRecipient(ctx context.Context, accountNumber, bankCode, accountName string) (*gateway.RecipientResult, error) {
	return &gateway.RecipientResult{RecipientCode: "RCP_test"}, nil
}

func (g *routerGateway) InitiateTransfer(ctx context.Context, recipientCode string, amount decimal.Decimal, reference, reason string) (*gateway.TransferResult, error) {
	return &gateway.TransferResult{GatewayReference: "TRF_test", Status: "success"}, nil
}

type routerEnv struct {
	db      *gorm.DB
	cfg     *config.Config
	router  http.Handler
	gateway *routerGateway
}

func setupRouterTest(t *testing.T) *routerEnv {
	t.Helper()

	conn, err := gorm.Open(sqlitedriver.Open("file:router_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{},
		&models.CartItem{}, &models.PaymentTransaction{}, &models.Withdrawal{}, &models.Dispute{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60},
		Platform: config.PlatformConfig{
			CommissionPercent:   decimal.RequireFromString("5.0"),
			MinWithdrawalAmount: decimal.NewFromInt(1000),
			DefaultDeliveryFee:  decimal.NewFromInt(500),
			OrderNumberPrefix:   "AGD",
			WithdrawalRefPrefix: "WD",
		},
		Paystack: config.PaystackConfig{SecretKey: testPaystackSecret, Timeout: time.Second},
	}

	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	dbClient := db.NewWithConn(conn)

	gw := &routerGateway{}
	registry := gateway.NewRegistry(gw)

	walletSvc, err := wallet.NewService(conn)
	if err != nil {
		t.Fatalf("wallet.NewService: %v", err)
	}
	inventorySvc := inventory.NewService()
	ordersRepo := orders.NewRepository(conn)

	ordersSvc, err := orders.NewService(ordersRepo, dbClient, inventorySvc, walletSvc,
		payments.NewRecorder(conn), nil, cfg.Platform, logg)
	if err != nil {
		t.Fatalf("orders.NewService: %v", err)
	}
	paymentsSvc, err := payments.NewService(payments.NewRepository(conn), registry, dbClient, cfg.Platform, logg)
	if err != nil {
		t.Fatalf("payments.NewService: %v", err)
	}
	withdrawalsSvc, err := withdrawals.NewService(withdrawals.NewRepository(conn), walletSvc, registry, dbClient, cfg.Platform, logg)
	if err != nil {
		t.Fatalf("withdrawals.NewService: %v", err)
	}
	disputesSvc, err := disputes.NewService(disputes.NewRepository(conn), ordersRepo, dbClient, logg)
	if err != nil {
		t.Fatalf("disputes.NewService: %v", err)
	}
	trackingSvc, err := tracking.NewService(ordersRepo, nil, logg)
	if err != nil {
		t.Fatalf("tracking.NewService: %v", err)
	}

	paystackClient, err := paystack.NewClient(cfg.Paystack, logg)
	if err != nil {
		t.Fatalf("paystack.NewClient: %v", err)
	}

	router := NewRouter(Deps{
		Config:             cfg,
		Logger:             logg,
		DB:                 dbClient,
		OrdersService:      ordersSvc,
		PaymentsService:    paymentsSvc,
		WithdrawalsService: withdrawalsSvc,
		DisputesService:    disputesSvc,
		TrackingService:    trackingSvc,
		InventoryService:   inventorySvc,
		PaystackClient:     paystackClient,
		WebhookGuard:       redis.NewWebhookGuard(nil, time.Hour),
	})

	return &routerEnv{db: conn, cfg: cfg, router: router, gateway: gw}
}

func (e *routerEnv) seedUser(t *testing.T, role enums.UserRole) *models.User {
	t.Helper()
	phone := "+2348000000001"
	address := "12 Farm Road, Epe"
	user := &models.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		Role:      role,
		FirstName: "Test",
		LastName:  "User",
		Phone:     &phone,
	}
	if role == enums.UserRoleFarmer {
		user.FarmAddress = &address
	}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (e *routerEnv) seedProduct(t *testing.T, farmerID uuid.UUID, price, qty int64) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:                uuid.New(),
		FarmerID:          farmerID,
		Name:              "Fresh Tomatoes",
		Unit:              "kg",
		PricePerUnit:      decimal.NewFromInt(price),
		AvailableQuantity: decimal.NewFromInt(qty),
		TotalQuantity:     decimal.NewFromInt(qty),
		Status:            enums.ProductStatusActive,
	}
	if err := e.db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func (e *routerEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(e.cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (e *routerEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func signPaystack(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testPaystackSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHealthEndpointsArePublic(t *testing.T) {
	env := setupRouterTest(t)

	resp := env.do(t, http.MethodGet, "/health/live", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Agricdeck-Env"); got != "test" {
		t.Fatalf("expected env header test got %q", got)
	}

	resp = env.do(t, http.MethodGet, "/health/ready", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestBuyerRoutesRejectMissingJWT(t *testing.T) {
	env := setupRouterTest(t)

	resp := env.do(t, http.MethodGet, "/api/v1/buyers/orders", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestBuyerRoutesRejectOtherRoles(t *testing.T) {
	env := setupRouterTest(t)
	farmer := env.seedUser(t, enums.UserRoleFarmer)

	resp := env.do(t, http.MethodGet, "/api/v1/buyers/orders", env.token(t, farmer), nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for farmer on buyer route got %d", resp.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := setupRouterTest(t)
	buyer := env.seedUser(t, enums.UserRoleBuyer)
	admin := env.seedUser(t, enums.UserRoleAdmin)

	resp := env.do(t, http.MethodGet, "/api/admin/v1/withdrawals", env.token(t, buyer), nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer on admin route got %d", resp.Code)
	}

	resp = env.do(t, http.MethodGet, "/api/admin/v1/withdrawals", env.token(t, admin), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestOrderFlowOverHTTP(t *testing.T) {
	env := setupRouterTest(t)
	farmer := env.seedUser(t, enums.UserRoleFarmer)
	buyer := env.seedUser(t, enums.UserRoleBuyer)
	product := env.seedProduct(t, farmer.ID, 400, 10)

	resp := env.do(t, http.MethodPost, "/api/v1/buyers/orders", env.token(t, buyer), map[string]any{
		"items": []map[string]any{
			{"product_id": product.ID.String(), "quantity": "5"},
		},
		"delivery_type":    "delivery",
		"delivery_address": "4 Market Street, Yaba",
		"delivery_city":    "Lagos",
		"delivery_state":   "Lagos",
		"delivery_phone":   "+2348000000002",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		Data models.Order `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if !created.Data.TotalAmount.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("expected total 2500 got %s", created.Data.TotalAmount)
	}

	resp = env.do(t, http.MethodPut, "/api/v1/farmers/orders/"+created.Data.ID.String()+"/status", env.token(t, farmer), map[string]any{
		"status": "accepted",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on accept got %d: %s", resp.Code, resp.Body.String())
	}

	var reloaded models.Product
	if err := env.db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if !reloaded.AvailableQuantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected stock 5 after accept got %s", reloaded.AvailableQuantity)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/buyers/orders/"+created.Data.ID.String(), env.token(t, buyer), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on detail got %d", resp.Code)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/tracking/orders/"+created.Data.ID.String(), env.token(t, buyer), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on tracking got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestFarmerRestockOverHTTP(t *testing.T) {
	env := setupRouterTest(t)
	farmer := env.seedUser(t, enums.UserRoleFarmer)
	product := env.seedProduct(t, farmer.ID, 400, 10)

	resp := env.do(t, http.MethodPost, "/api/v1/farmers/products/"+product.ID.String()+"/restock", env.token(t, farmer), map[string]any{
		"quantity": "15",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var reloaded models.Product
	if err := env.db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if !reloaded.AvailableQuantity.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected stock 25 got %s", reloaded.AvailableQuantity)
	}
}

func TestPaymentVerifyUnknownReference(t *testing.T) {
	env := setupRouterTest(t)
	buyer := env.seedUser(t, enums.UserRoleBuyer)

	resp := env.do(t, http.MethodPost, "/api/v1/payments/verify", env.token(t, buyer), map[string]any{
		"reference": "AGD-PAY-DOESNOTEXIST",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown reference got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.Status != "transaction_not_found" {
		t.Fatalf("expected transaction_not_found got %q", body.Data.Status)
	}
}

func TestPaystackWebhookRejectsBadSignature(t *testing.T) {
	env := setupRouterTest(t)
	payload := []byte(`{"event":"charge.success","data":{"reference":"AGD-PAY-X"}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(payload))
	req.Header.Set("x-paystack-signature", "forged")
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for forged signature got %d", resp.Code)
	}
}

func TestPaystackWebhookAcknowledgesUnknownReference(t *testing.T) {
	env := setupRouterTest(t)
	payload := []byte(`{"event":"charge.success","data":{"reference":"AGD-PAY-UNKNOWN"}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(payload))
	req.Header.Set("x-paystack-signature", signPaystack(payload))
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown reference got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestPaystackWebhookSettlesPayment(t *testing.T) {
	env := setupRouterTest(t)
	farmer := env.seedUser(t, enums.UserRoleFarmer)
	buyer := env.seedUser(t, enums.UserRoleBuyer)
	product := env.seedProduct(t, farmer.ID, 200, 20)

	resp := env.do(t, http.MethodPost, "/api/v1/buyers/orders", env.token(t, buyer), map[string]any{
		"items":            []map[string]any{{"product_id": product.ID.String(), "quantity": "10"}},
		"delivery_type":    "delivery",
		"delivery_address": "4 Market Street, Yaba",
		"delivery_city":    "Lagos",
		"delivery_state":   "Lagos",
		"delivery_phone":   "+2348000000002",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create order: %d %s", resp.Code, resp.Body.String())
	}
	var created struct {
		Data models.Order `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode order: %v", err)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/payments/initiate", env.token(t, buyer), map[string]any{
		"order_id": created.Data.ID.String(),
		"gateway":  "paystack",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("initiate payment: %d %s", resp.Code, resp.Body.String())
	}
	var initiated struct {
		Data struct {
			Reference string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &initiated); err != nil {
		t.Fatalf("decode initiate: %v", err)
	}

	env.gateway.verifyRes = &gateway.VerifyResult{
		Status:      gateway.VerificationSuccess,
		AmountPaid:  created.Data.TotalAmount,
		Currency:    "NGN",
		Channel:     "card",
		RawResponse: `{"status":"success"}`,
	}

	payload, _ := json.Marshal(map[string]any{
		"event": "charge.success",
		"data":  map[string]any{"reference": initiated.Data.Reference},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(payload))
	req.Header.Set("x-paystack-signature", signPaystack(payload))
	hookResp := httptest.NewRecorder()
	env.router.ServeHTTP(hookResp, req)
	if hookResp.Code != http.StatusOK {
		t.Fatalf("webhook: %d %s", hookResp.Code, hookResp.Body.String())
	}

	var order models.Order
	if err := env.db.First(&order, "id = ?", created.Data.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected order paid got %s", order.PaymentStatus)
	}
}

func TestDisputeFlowOverHTTP(t *testing.T) {
	env := setupRouterTest(t)
	farmer := env.seedUser(t, enums.UserRoleFarmer)
	buyer := env.seedUser(t, enums.UserRoleBuyer)
	admin := env.seedUser(t, enums.UserRoleAdmin)
	product := env.seedProduct(t, farmer.ID, 400, 10)

	resp := env.do(t, http.MethodPost, "/api/v1/buyers/orders", env.token(t, buyer), map[string]any{
		"items":            []map[string]any{{"product_id": product.ID.String(), "quantity": "2"}},
		"delivery_type":    "delivery",
		"delivery_address": "4 Market Street, Yaba",
		"delivery_city":    "Lagos",
		"delivery_state":   "Lagos",
		"delivery_phone":   "+2348000000002",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create order: %d %s", resp.Code, resp.Body.String())
	}
	var created struct {
		Data models.Order `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode order: %v", err)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/disputes", env.token(t, buyer), map[string]any{
		"order_id":    created.Data.ID.String(),
		"type":        "product_quality",
		"description": "half the crate arrived bruised",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("open dispute: %d %s", resp.Code, resp.Body.String())
	}
	var dispute struct {
		Data models.Dispute `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &dispute); err != nil {
		t.Fatalf("decode dispute: %v", err)
	}

	var order models.Order
	if err := env.db.First(&order, "id = ?", created.Data.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if order.Status != enums.OrderStatusDisputed {
		t.Fatalf("expected order disputed got %s", order.Status)
	}

	resp = env.do(t, http.MethodPut, "/api/admin/v1/disputes/"+dispute.Data.ID.String()+"/resolve", env.token(t, admin), map[string]any{
		"resolution": "refund approved after photo review",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("resolve dispute: %d %s", resp.Code, resp.Body.String())
	}
}

func TestWithdrawalFlowOverHTTP(t *testing.T) {
	env := setupRouterTest(t)
	farmer := env.seedUser(t, enums.UserRoleFarmer)
	admin := env.seedUser(t, enums.UserRoleAdmin)

	if err := env.db.Model(&models.User{}).Where("id = ?", farmer.ID).
		Update("wallet_balance", decimal.NewFromInt(5000)).Error; err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	resp := env.do(t, http.MethodPost, "/api/v1/farmers/withdrawals", env.token(t, farmer), map[string]any{
		"amount":         "3000",
		"bank_name":      "GTBank",
		"bank_code":      "058",
		"account_number": "0123456789",
		"account_name":   "Test Farmer",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("request withdrawal: %d %s", resp.Code, resp.Body.String())
	}
	var requested struct {
		Data models.Withdrawal `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &requested); err != nil {
		t.Fatalf("decode withdrawal: %v", err)
	}

	resp = env.do(t, http.MethodPut, "/api/admin/v1/withdrawals/"+requested.Data.ID.String()+"/process", env.token(t, admin), map[string]any{
		"approve": true,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("process withdrawal: %d %s", resp.Code, resp.Body.String())
	}

	var balance models.User
	if err := env.db.First(&balance, "id = ?", farmer.ID).Error; err != nil {
		t.Fatalf("reload farmer: %v", err)
	}
	if !balance.WalletBalance.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected balance 2000 got %s", balance.WalletBalance)
	}
}

func TestValidationErrorsSurfaceDetails(t *testing.T) {
	env := setupRouterTest(t)
	buyer := env.seedUser(t, enums.UserRoleBuyer)

	resp := env.do(t, http.MethodPost, "/api/v1/buyers/orders", env.token(t, buyer), map[string]any{
		"delivery_type": "delivery",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR got %q", body.Error.Code)
	}
	if len(body.Error.Details) == 0 {
		t.Fatal("expected field details on validation error")
	}
}
