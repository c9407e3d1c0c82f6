package withdrawals

import (
	"context"
	"crypto/rand"
	"encoding/hex"
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

// Service owns the payout pipeline: farmers request, admins decide, the
// wallet is debited only when the transfer gateway confirms.
type Service struct {
	repo     Repository
	wallet   WalletService
	registry *gateway.Registry
	tx       txRunner
	platform config.PlatformConfig
	logg     *logger.Logger
}

func NewService(repo Repository, wallet WalletService, registry *gateway.Registry, tx txRunner, platform config.PlatformConfig, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("withdrawals repository required")
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet service required")
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
	return &Service{repo: repo, wallet: wallet, registry: registry, tx: tx, platform: platform, logg: logg}, nil
}

// Request records a payout request. Nothing moves yet; the balance check
// here only rejects requests that could never be honoured.
func (s *Service) Request(ctx context.Context, input RequestInput) (*models.Withdrawal, error) {
	if input.FarmerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Amount.LessThan(s.platform.MinWithdrawalAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount below minimum withdrawal").
			WithDetails(map[string]any{"minimum": s.platform.MinWithdrawalAmount})
	}
	for _, field := range []string{input.BankName, input.BankCode, input.AccountNumber, input.AccountName} {
		if strings.TrimSpace(field) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "complete bank details required")
		}
	}

	balance, err := s.wallet.Balance(ctx, input.FarmerID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(input.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "wallet balance below requested amount").
			WithDetails(map[string]any{"balance": balance, "requested": input.Amount})
	}

	withdrawal := &models.Withdrawal{
		ID:            uuid.New(),
		FarmerID:      input.FarmerID,
		Amount:        input.Amount,
		Status:        enums.TransactionStatusPending,
		BankName:      strings.TrimSpace(input.BankName),
		BankCode:      strings.TrimSpace(input.BankCode),
		AccountNumber: strings.TrimSpace(input.AccountNumber),
		AccountName:   strings.TrimSpace(input.AccountName),
	}
	if _, err := s.repo.Create(ctx, withdrawal); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal")
	}

	ctx = s.logg.WithUserID(ctx, input.FarmerID.String())
	s.logg.Info(ctx, "withdrawal requested")
	return withdrawal, nil
}

// Process applies an admin decision. Approval registers the transfer
// with the payout gateway first; the wallet debit and the success flip
// then land in one transaction, so a gateway failure leaves the balance
// untouched and a balance shortfall rolls the flip back.
func (s *Service) Process(ctx context.Context, input ProcessInput) (*models.Withdrawal, error) {
	if input.WithdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	withdrawal, err := s.repo.Find(ctx, input.WithdrawalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal")
	}
	if withdrawal.Status != enums.TransactionStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "withdrawal already processed").
			WithDetails(map[string]any{"status": withdrawal.Status})
	}

	now := time.Now().UTC()
	stamps := map[string]any{
		"processed_by": input.AdminID,
		"processed_at": now,
	}
	if note := strings.TrimSpace(input.Notes); note != "" {
		stamps["admin_notes"] = note
	}

	if !input.Approve {
		stamps["status"] = enums.TransactionStatusCancelled
		if err := s.flipPending(ctx, withdrawal.ID, stamps); err != nil {
			return nil, err
		}
		return s.repo.Find(ctx, withdrawal.ID)
	}

	gatewayName := input.Gateway
	if gatewayName == "" {
		gatewayName = gateway.ProviderPaystack
	}
	gw, err := s.registry.Get(gatewayName)
	if err != nil {
		return nil, err
	}

	// The balance can still drain before the debit commits; this check
	// just avoids paying out an obviously unfunded request.
	balance, err := s.wallet.Balance(ctx, withdrawal.FarmerID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(withdrawal.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "wallet balance below withdrawal amount").
			WithDetails(map[string]any{"balance": balance, "requested": withdrawal.Amount})
	}

	recipient, err := gw.CreateTransferRecipient(ctx, withdrawal.AccountNumber, withdrawal.BankCode, withdrawal.AccountName)
	if err != nil {
		s.markFailed(ctx, withdrawal.ID, stamps, "recipient registration failed: "+err.Error())
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transfer recipient")
	}

	reference := generatePayoutReference(s.platform.WithdrawalRefPrefix)
	transfer, err := gw.InitiateTransfer(ctx, recipient.RecipientCode, withdrawal.Amount, reference, "wallet withdrawal")
	if err != nil {
		s.markFailed(ctx, withdrawal.ID, stamps, "transfer failed: "+err.Error())
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initiate transfer")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{
			"status":            enums.TransactionStatusSuccess,
			"gateway":           gw.Name(),
			"gateway_reference": transfer.GatewayReference,
			"gateway_response":  transfer.RawResponse,
		}
		for key, value := range stamps {
			updates[key] = value
		}
		rows, err := repo.UpdateGuarded(ctx, withdrawal.ID,
			[]enums.TransactionStatus{enums.TransactionStatusPending}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle withdrawal")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "withdrawal processed concurrently")
		}
		return s.wallet.Debit(ctx, tx, withdrawal.FarmerID, withdrawal.Amount, "withdrawal payout "+reference)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithUserID(ctx, withdrawal.FarmerID.String())
	s.logg.Info(ctx, "withdrawal paid out via "+gw.Name())
	return s.repo.Find(ctx, withdrawal.ID)
}

// ListForFarmer returns the farmer's withdrawal history, newest first.
func (s *Service) ListForFarmer(ctx context.Context, farmerID uuid.UUID, params ListParams) ([]models.Withdrawal, error) {
	withdrawals, err := s.repo.ListForFarmer(ctx, farmerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawals")
	}
	return withdrawals, nil
}

// ListAll returns withdrawals across all farmers for admin review.
func (s *Service) ListAll(ctx context.Context, params ListParams) ([]models.Withdrawal, error) {
	withdrawals, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawals")
	}
	return withdrawals, nil
}

func (s *Service) flipPending(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	rows, err := s.repo.UpdateGuarded(ctx, id,
		[]enums.TransactionStatus{enums.TransactionStatusPending}, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update withdrawal")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "withdrawal processed concurrently")
	}
	return nil
}

func (s *Service) markFailed(ctx context.Context, id uuid.UUID, stamps map[string]any, response string) {
	updates := map[string]any{
		"status":           enums.TransactionStatusFailed,
		"gateway_response": response,
	}
	for key, value := range stamps {
		updates[key] = value
	}
	if err := s.flipPending(ctx, id, updates); err != nil {
		s.logg.Error(ctx, "marking withdrawal failed", err)
	}
}

// generatePayoutReference builds a reference like WD-0F1E2D3C4B5A.
func generatePayoutReference(prefix string) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		copy(buf, uuid.New().NodeID())
	}
	return prefix + "-" + strings.ToUpper(hex.EncodeToString(buf))
}
