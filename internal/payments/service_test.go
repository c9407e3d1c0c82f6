package payments

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/pkg/config"
	"github.com/agricdeck/agricdeck-backend/pkg/db"
	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
	"github.com/agricdeck/agricdeck-backend/pkg/gateway"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

type fakeGateway struct {
	name        string
	initRes     *gateway.InitializeResult
	initErr     error
	verifyRes   *gateway.VerifyResult
	verifyErr   error
	verifyCalls int
}

func (f *fakeGateway) Name() string { return f.name }

func (f *fakeGateway) InitializePayment(ctx context.Context, email string, amount decimal.Decimal, reference string, metadata map[string]any) (*gateway.InitializeResult, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	if f.initRes != nil {
		return f.initRes, nil
	}
	return &gateway.InitializeResult{
		CheckoutURL: "https://checkout.test/" + reference,
		AccessCode:  "acc_" + reference,
		Reference:   reference,
		RawResponse: `{"status":true}`,
	}, nil
}

func (f *fakeGateway) VerifyPayment(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyRes, nil
}

func (f *fakeGateway) CreateTransferRecipient(ctx context.Context, accountNumber, bankCode, accountName string) (*gateway.RecipientResult, error) {
	return nil, errors.New("not supported in payments tests")
}

func (f *fakeGateway) InitiateTransfer(ctx context.Context, recipientCode string, amount decimal.Decimal, reference, reason string) (*gateway.TransferResult, error) {
	return nil, errors.New("not supported in payments tests")
}

type paymentsEnv struct {
	db  *gorm.DB
	svc *Service
	gw  *fakeGateway
}

func setupPaymentsTest(t *testing.T) *paymentsEnv {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:payments_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Order{}, &models.PaymentTransaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	gw := &fakeGateway{
		name: gateway.ProviderPaystack,
		verifyRes: &gateway.VerifyResult{
			Status:      gateway.VerificationSuccess,
			AmountPaid:  decimal.NewFromInt(2500),
			Currency:    "NGN",
			Channel:     "card",
			RawResponse: `{"data":{"status":"success"}}`,
		},
	}
	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	platform := config.PlatformConfig{OrderNumberPrefix: "AGD"}

	svc, err := NewService(NewRepository(conn), gateway.NewRegistry(gw), db.NewWithConn(conn), platform, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &paymentsEnv{db: conn, svc: svc, gw: gw}
}

func (e *paymentsEnv) seedBuyer(t *testing.T) *models.User {
	t.Helper()
	buyer := &models.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		Role:      enums.UserRoleBuyer,
		FirstName: "Bisi",
		LastName:  "Buyer",
	}
	if err := e.db.Create(buyer).Error; err != nil {
		t.Fatalf("seed buyer: %v", err)
	}
	return buyer
}

func (e *paymentsEnv) seedOrder(t *testing.T, buyerID uuid.UUID, total int64) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: "AGD-" + uuid.NewString()[:8],
		BuyerID:     buyerID,
		FarmerID:    uuid.New(),
		Status:      enums.OrderStatusPending,
		Subtotal:    decimal.NewFromInt(total),
		TotalAmount: decimal.NewFromInt(total),
	}
	if err := e.db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func (e *paymentsEnv) initiate(t *testing.T, order *models.Order) *InitiateResult {
	t.Helper()
	res, err := e.svc.Initiate(context.Background(), InitiateInput{
		OrderID: order.ID,
		BuyerID: order.BuyerID,
		Gateway: gateway.ProviderPaystack,
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	return res
}

func assertErrCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *errors.Error with code %s, got %T: %v", want, err, err)
	}
	if appErr.Code() != want {
		t.Fatalf("expected code %s, got %s (%v)", want, appErr.Code(), err)
	}
}

func TestInitiate_CreatesReconcilableTrail(t *testing.T) {
	env := setupPaymentsTest(t)
	buyer := env.seedBuyer(t)
	order := env.seedOrder(t, buyer.ID, 2500)

	res := env.initiate(t, order)
	if !strings.HasPrefix(res.Reference, "AGD-PAY-") {
		t.Fatalf("unexpected reference %q", res.Reference)
	}
	if res.CheckoutURL == "" {
		t.Fatalf("checkout url missing")
	}

	var record models.PaymentTransaction
	if err := env.db.Where("gateway_reference = ?", res.Reference).First(&record).Error; err != nil {
		t.Fatalf("transaction row missing: %v", err)
	}
	if record.Status != enums.TransactionStatusPending {
		t.Fatalf("transaction status = %s, want pending", record.Status)
	}
	if !record.Amount.Equal(order.TotalAmount) {
		t.Fatalf("amount = %s, want %s", record.Amount, order.TotalAmount)
	}

	var fresh models.Order
	env.db.First(&fresh, "id = ?", order.ID)
	if fresh.PaymentStatus != enums.PaymentStatusProcessing {
		t.Fatalf("order payment status = %s, want processing", fresh.PaymentStatus)
	}
	if fresh.PaymentReference == nil || *fresh.PaymentReference != res.Reference {
		t.Fatalf("order payment reference not set")
	}
}

func TestInitiate_GatewayFailureMarksTransactionFailed(t *testing.T) {
	env := setupPaymentsTest(t)
	env.gw.initErr = errors.New("paystack down")
	buyer := env.seedBuyer(t)
	order := env.seedOrder(t, buyer.ID, 1000)

	_, err := env.svc.Initiate(context.Background(), InitiateInput{
		OrderID: order.ID,
		BuyerID: buyer.ID,
		Gateway: gateway.ProviderPaystack,
	})
	assertErrCode(t, err, pkgerrors.CodeDependency)

	var record models.PaymentTransaction
	if err := env.db.Where("order_id = ?", order.ID).First(&record).Error; err != nil {
		t.Fatalf("transaction row missing: %v", err)
	}
	if record.Status != enums.TransactionStatusFailed {
		t.Fatalf("transaction status = %s, want failed", record.Status)
	}
}

func TestInitiate_ForeignBuyerForbidden(t *testing.T) {
	env := setupPaymentsTest(t)
	buyer := env.seedBuyer(t)
	stranger := env.seedBuyer(t)
	order := env.seedOrder(t, buyer.ID, 1000)

	_, err := env.svc.Initiate(context.Background(), InitiateInput{
		OrderID: order.ID,
		BuyerID: stranger.ID,
		Gateway: gateway.ProviderPaystack,
	})
	assertErrCode(t, err, pkgerrors.CodeForbidden)
}

func TestInitiate_SettledOrderConflicts(t *testing.T) {
	env := setupPaymentsTest(t)
	buyer := env.seedBuyer(t)
	order := env.seedOrder(t, buyer.ID, 1000)
	env.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("payment_status", enums.PaymentStatusPaid)

	_, err := env.svc.Initiate(context.Background(), InitiateInput{
		OrderID: order.ID,
		BuyerID: buyer.ID,
		Gateway: gateway.ProviderPaystack,
	})
	assertErrCode(t, err, pkgerrors.CodeConflict)
}

func TestReconcile_UnknownReferenceIsNotAnError(t *testing.T) {
	env := setupPaymentsTest(t)

	res, err := env.svc.Reconcile(context.Background(), "AGD-PAY-DEADBEEF0000")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Known {
		t.Fatalf("unknown reference reported as known")
	}
	if env.gw.verifyCalls != 0 {
		t.Fatalf("verify called for unknown reference")
	}
}

func TestReconcile_SuccessSettlesOnce(t *testing.T) {
	env := setupPaymentsTest(t)
	buyer := env.seedBuyer(t)
	order := env.seedOrder(t, buyer.ID, 2500)
	init := env.initiate(t, order)

	ctx := context.Background()
	res, err := env.svc.Reconcile(ctx, init.Reference)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.Known {
		t.Fatalf("reference unknown")
	}
	if res.Transaction.Status != enums.TransactionStatusSuccess {
		t.Fatalf("transaction status = %s, want success", res.Transaction.Status)
	}
	if res.Transaction.CompletedAt == nil {
		t.Fatalf("completed_at not stamped")
	}
	if res.Order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("order payment status = %s, want paid", res.Order.PaymentStatus)
	}

	// Replays are no-ops that do not hit the gateway again.
	again, err := env.svc.Reconcile(ctx, init.Reference)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if again.Transaction.Status != enums.TransactionStatusSuccess {
		t.Fatalf("replay changed status to %s", again.Transaction.Status)
	}
	if env.gw.verifyCalls != 1 {
		t.Fatalf("verify called %d times, want 1", env.gw.verifyCalls)
	}
}

func TestReconcile_FailedVerificationMarksFailure(t *testing.T) {
	env := setupPaymentsTest(t)
	env.gw.verifyRes = &gateway.VerifyResult{
		Status:      gateway.VerificationFailed,
		RawResponse: `{"data":{"status":"failed"}}`,
	}
	buyer := env.seedBuyer(t)
	order := env.seedOrder(t, buyer.ID, 2500)
	init := env.initiate(t, order)

	res, err := env.svc.Reconcile(context.Background(), init.Reference)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Transaction.Status != enums.TransactionStatusFailed {
		t.Fatalf("transaction status = %s, want failed", res.Transaction.Status)
	}
	if res.Order.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("order payment status = %s, want failed", res.Order.PaymentStatus)
	}
}

func TestReconcile_UnderpaymentIsRejected(t *testing.T) {
	env := setupPaymentsTest(t)
	env.gw.verifyRes = &gateway.VerifyResult{
		Status:      gateway.VerificationSuccess,
		AmountPaid:  decimal.NewFromInt(100),
		RawResponse: `{"data":{"status":"success","amount":10000}}`,
	}
	buyer := env.seedBuyer(t)
	order := env.seedOrder(t, buyer.ID, 2500)
	init := env.initiate(t, order)

	res, err := env.svc.Reconcile(context.Background(), init.Reference)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Transaction.Status != enums.TransactionStatusFailed {
		t.Fatalf("underpaid transaction settled as %s", res.Transaction.Status)
	}
}

func TestReconcile_PendingVerificationLeavesTrailOpen(t *testing.T) {
	env := setupPaymentsTest(t)
	env.gw.verifyRes = &gateway.VerifyResult{Status: gateway.VerificationPending}
	buyer := env.seedBuyer(t)
	order := env.seedOrder(t, buyer.ID, 2500)
	init := env.initiate(t, order)

	res, err := env.svc.Reconcile(context.Background(), init.Reference)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Transaction.Status != enums.TransactionStatusPending {
		t.Fatalf("pending verification moved status to %s", res.Transaction.Status)
	}

	// A later settled verification can still land.
	env.gw.verifyRes = &gateway.VerifyResult{
		Status:     gateway.VerificationSuccess,
		AmountPaid: decimal.NewFromInt(2500),
	}
	res, err = env.svc.Reconcile(context.Background(), init.Reference)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Transaction.Status != enums.TransactionStatusSuccess {
		t.Fatalf("status = %s, want success", res.Transaction.Status)
	}
}

func TestApplyWebhookEvent_PaystackChargeSuccess(t *testing.T) {
	env := setupPaymentsTest(t)
	buyer := env.seedBuyer(t)
	order := env.seedOrder(t, buyer.ID, 2500)
	init := env.initiate(t, order)

	payload := []byte(`{"event":"charge.success","data":{"reference":"` + init.Reference + `"}}`)
	res, err := env.svc.ApplyWebhookEvent(context.Background(), gateway.ProviderPaystack, payload)
	if err != nil {
		t.Fatalf("ApplyWebhookEvent: %v", err)
	}
	if !res.Known || res.Transaction.Status != enums.TransactionStatusSuccess {
		t.Fatalf("webhook did not settle: %+v", res)
	}
}

func TestApplyWebhookEvent_IgnoresUntrackedEvents(t *testing.T) {
	env := setupPaymentsTest(t)

	payload := []byte(`{"event":"subscription.create","data":{"reference":"whatever"}}`)
	res, err := env.svc.ApplyWebhookEvent(context.Background(), gateway.ProviderPaystack, payload)
	if err != nil {
		t.Fatalf("ApplyWebhookEvent: %v", err)
	}
	if res.Known {
		t.Fatalf("untracked event reported as known")
	}
	if env.gw.verifyCalls != 0 {
		t.Fatalf("verify called for untracked event")
	}
}

func TestApplyWebhookEvent_FlutterwaveTxRef(t *testing.T) {
	env := setupPaymentsTest(t)
	env.gw.name = gateway.ProviderFlutterwave
	// Rebuild the service so the registry indexes the renamed gateway.
	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	svc, err := NewService(NewRepository(env.db), gateway.NewRegistry(env.gw), db.NewWithConn(env.db), config.PlatformConfig{OrderNumberPrefix: "AGD"}, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	env.svc = svc

	buyer := env.seedBuyer(t)
	order := env.seedOrder(t, buyer.ID, 2500)
	init, err := env.svc.Initiate(context.Background(), InitiateInput{
		OrderID: order.ID,
		BuyerID: buyer.ID,
		Gateway: gateway.ProviderFlutterwave,
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	payload := []byte(`{"event":"charge.completed","data":{"tx_ref":"` + init.Reference + `","status":"successful"}}`)
	res, err := env.svc.ApplyWebhookEvent(context.Background(), gateway.ProviderFlutterwave, payload)
	if err != nil {
		t.Fatalf("ApplyWebhookEvent: %v", err)
	}
	if !res.Known || res.Transaction.Status != enums.TransactionStatusSuccess {
		t.Fatalf("webhook did not settle: %+v", res)
	}
}

func TestListForUser_ScopesToOwner(t *testing.T) {
	env := setupPaymentsTest(t)
	buyer := env.seedBuyer(t)
	other := env.seedBuyer(t)
	env.initiate(t, env.seedOrder(t, buyer.ID, 1000))
	env.initiate(t, env.seedOrder(t, other.ID, 1000))

	records, err := env.svc.ListForUser(context.Background(), buyer.ID, ListParams{})
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(records) != 1 || records[0].UserID != buyer.ID {
		t.Fatalf("unexpected records: %d", len(records))
	}

	all, err := env.svc.ListAll(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
}
