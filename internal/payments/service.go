package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/pkg/config"
	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
	"github.com/agricdeck/agricdeck-backend/pkg/gateway"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

// reconcilableFrom are the order payment states a verification outcome
// may still move. paid and refunded never regress.
var reconcilableFrom = []enums.PaymentStatus{
	enums.PaymentStatusPending,
	enums.PaymentStatusProcessing,
	enums.PaymentStatusFailed,
}

// Service owns payment initiation and reconciliation. Reconcile is the
// single settlement path for both buyer-driven verification and webhook
// events, keyed by gateway reference.
type Service struct {
	repo     Repository
	registry *gateway.Registry
	tx       txRunner
	platform config.PlatformConfig
	logg     *logger.Logger
}

func NewService(repo Repository, registry *gateway.Registry, tx txRunner, platform config.PlatformConfig, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if registry == nil {
		return nil, fmt.Errorf("gateway registry required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, registry: registry, tx: tx, platform: platform, logg: logg}, nil
}

// Initiate opens a checkout session for the order's full amount. The
// pending transaction row is committed before the gateway is called so a
// crash mid-initiation leaves a reconcilable trail.
func (s *Service) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	gw, err := s.registry.Get(input.Gateway)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed").
			WithDetails(map[string]any{"status": order.Status})
	}
	if order.PaymentStatus == enums.PaymentStatusPaid || order.PaymentStatus == enums.PaymentStatusRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order payment is already settled").
			WithDetails(map[string]any{"payment_status": order.PaymentStatus})
	}

	buyer, err := s.repo.FindUser(ctx, order.BuyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}

	reference := generatePaymentReference(s.platform.OrderNumberPrefix)
	gatewayName := gw.Name()
	record := &models.PaymentTransaction{
		ID:               uuid.New(),
		OrderID:          &order.ID,
		UserID:           order.BuyerID,
		Type:             enums.TransactionTypePayment,
		Status:           enums.TransactionStatusPending,
		Amount:           order.TotalAmount,
		Currency:         "NGN",
		Gateway:          &gatewayName,
		GatewayReference: &reference,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateTransaction(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment transaction")
		}
		return repo.UpdateOrder(ctx, order.ID, map[string]any{
			"payment_reference": reference,
			"payment_gateway":   gatewayName,
		})
	})
	if err != nil {
		return nil, err
	}

	initRes, err := gw.InitializePayment(ctx, buyer.Email, order.TotalAmount, reference, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
	})
	if err != nil {
		failure := err.Error()
		_, _ = s.repo.UpdateTransactionGuarded(ctx, record.ID,
			[]enums.TransactionStatus{enums.TransactionStatusPending},
			map[string]any{
				"status":           enums.TransactionStatusFailed,
				"gateway_response": failure,
			})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initialize payment")
	}

	_, _ = s.repo.UpdateTransactionGuarded(ctx, record.ID,
		[]enums.TransactionStatus{enums.TransactionStatusPending},
		map[string]any{"gateway_response": initRes.RawResponse})
	_, _ = s.repo.UpdateOrderPaymentGuarded(ctx, order.ID,
		[]enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusFailed},
		map[string]any{"payment_status": enums.PaymentStatusProcessing})

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "payment initiated via "+gatewayName)

	return &InitiateResult{
		Reference:   reference,
		CheckoutURL: initRes.CheckoutURL,
		AccessCode:  initRes.AccessCode,
		Gateway:     gatewayName,
		Transaction: record,
	}, nil
}

// Reconcile settles a gateway reference against the provider's verify
// endpoint. It is safe to call any number of times from any trigger:
// unknown references report Known=false, terminal transactions are
// no-ops, and the pending-to-terminal flip is a guarded single update so
// concurrent calls settle exactly once.
func (s *Service) Reconcile(ctx context.Context, reference string) (*ReconcileResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	record, err := s.repo.FindTransactionByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ReconcileResult{Known: false}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment transaction")
	}
	if record.Status != enums.TransactionStatusPending {
		return s.currentState(ctx, record)
	}
	if record.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction has no gateway recorded")
	}
	gw, err := s.registry.Get(*record.Gateway)
	if err != nil {
		return nil, err
	}

	verify, err := gw.VerifyPayment(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify payment")
	}

	switch verify.Status {
	case gateway.VerificationPending:
		// The gateway has not settled yet; leave the trail untouched.
		return s.currentState(ctx, record)

	case gateway.VerificationSuccess:
		if verify.AmountPaid.LessThan(record.Amount) {
			s.logg.Warn(ctx, "payment amount mismatch on "+reference)
			return s.settle(ctx, record, enums.TransactionStatusFailed, enums.PaymentStatusFailed, verify)
		}
		return s.settle(ctx, record, enums.TransactionStatusSuccess, enums.PaymentStatusPaid, verify)

	default:
		return s.settle(ctx, record, enums.TransactionStatusFailed, enums.PaymentStatusFailed, verify)
	}
}

// ApplyWebhookEvent maps a provider event payload to a reconciliation.
// The reference from the payload only selects the transaction; the
// outcome always comes from the verify endpoint. Events this system does
// not track return handled=false with no error so the hook can be
// acknowledged.
func (s *Service) ApplyWebhookEvent(ctx context.Context, gatewayName string, payload []byte) (*ReconcileResult, error) {
	reference, ok, err := extractWebhookReference(gatewayName, payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &ReconcileResult{Known: false}, nil
	}
	s.logg.Info(ctx, "webhook event received for "+reference)
	return s.Reconcile(ctx, reference)
}

// WebhookReference pulls the payment reference out of a provider event
// payload without acting on it. Callers use it to key idempotency
// guards before handing the event to ApplyWebhookEvent or Reconcile.
func WebhookReference(gatewayName string, payload []byte) (string, bool, error) {
	return extractWebhookReference(gatewayName, payload)
}

// ListForUser returns the caller's transaction history, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, params ListParams) ([]models.PaymentTransaction, error) {
	records, err := s.repo.ListTransactionsForUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return records, nil
}

// ListAll returns transactions across all users for admin review.
func (s *Service) ListAll(ctx context.Context, params ListParams) ([]models.PaymentTransaction, error) {
	records, err := s.repo.ListTransactions(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return records, nil
}

func (s *Service) settle(ctx context.Context, record *models.PaymentTransaction, txStatus enums.TransactionStatus, orderStatus enums.PaymentStatus, verify *gateway.VerifyResult) (*ReconcileResult, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		updates := map[string]any{
			"status":           txStatus,
			"gateway_response": verify.RawResponse,
		}
		if verify.Channel != "" {
			updates["payment_method"] = verify.Channel
		}
		if txStatus == enums.TransactionStatusSuccess {
			updates["completed_at"] = time.Now().UTC()
		}
		rows, err := repo.UpdateTransactionGuarded(ctx, record.ID,
			[]enums.TransactionStatus{enums.TransactionStatusPending}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle transaction")
		}
		if rows == 0 {
			// A concurrent reconciliation won the flip; nothing to do.
			return nil
		}

		if record.OrderID != nil {
			orderUpdates := map[string]any{"payment_status": orderStatus}
			if _, err := repo.UpdateOrderPaymentGuarded(ctx, *record.OrderID, reconcilableFrom, orderUpdates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment status")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result, err := s.currentState(ctx, record)
	if err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "payment reconciled as "+result.Transaction.Status.String())
	return result, nil
}

func (s *Service) currentState(ctx context.Context, record *models.PaymentTransaction) (*ReconcileResult, error) {
	fresh, err := s.repo.FindTransactionByReference(ctx, *record.GatewayReference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload transaction")
	}
	result := &ReconcileResult{Known: true, Transaction: fresh}
	if fresh.OrderID != nil {
		order, err := s.repo.FindOrder(ctx, *fresh.OrderID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		result.Order = order
	}
	return result, nil
}

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

type flutterwaveEvent struct {
	Event string `json:"event"`
	Data  struct {
		TxRef  string `json:"tx_ref"`
		Status string `json:"status"`
	} `json:"data"`
}

func extractWebhookReference(gatewayName string, payload []byte) (string, bool, error) {
	switch strings.ToLower(strings.TrimSpace(gatewayName)) {
	case gateway.ProviderPaystack:
		var event paystackEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return "", false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
		}
		switch event.Event {
		case "charge.success", "charge.failed":
			return event.Data.Reference, event.Data.Reference != "", nil
		}
		return "", false, nil

	case gateway.ProviderFlutterwave:
		var event flutterwaveEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return "", false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
		}
		if event.Event == "charge.completed" {
			return event.Data.TxRef, event.Data.TxRef != "", nil
		}
		return "", false, nil
	}
	return "", false, pkgerrors.New(pkgerrors.CodeValidation, "unsupported webhook source").
		WithDetails(map[string]any{"gateway": gatewayName})
}

// generatePaymentReference builds a reference like AGD-PAY-0F1E2D3C4B5A.
func generatePaymentReference(prefix string) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		copy(buf, uuid.New().NodeID())
	}
	return prefix + "-PAY-" + strings.ToUpper(hex.EncodeToString(buf))
}
