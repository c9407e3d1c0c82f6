// Package wallet owns the farmer balance ledger. Every balance change
// goes through Credit or Debit, each of which appends an immutable audit
// transaction in the same database transaction as the balance update, so
// the materialized balance always equals the sum of the ledger.
package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agricdeck/agricdeck-backend/pkg/db/models"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
)

// Service mutates and reads farmer wallets.
type Service struct {
	db *gorm.DB
}

// NewService builds the wallet service over the shared connection. Reads
// use it directly; Credit and Debit always operate on the caller's tx.
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("wallet db handle required")
	}
	return &Service{db: db}, nil
}

// Credit adds to the farmer's balance and appends the paired audit
// transaction. Used exactly once per order, on entry to delivered while
// paid.
func (s *Service) Credit(ctx context.Context, tx *gorm.DB, farmerID uuid.UUID, amount decimal.Decimal, description string, orderID *uuid.UUID) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE users
		SET wallet_balance = wallet_balance + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, amount, farmerID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "credit wallet")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "farmer not found")
	}

	return s.appendAudit(ctx, tx, farmerID, amount, enums.TransactionTypePayment, description, orderID)
}

// Debit removes from the farmer's balance, guarded so the balance can
// never go negative even when a withdrawal races an earlier one. Callers
// must only invoke this after the payout gateway confirmed the transfer.
func (s *Service) Debit(ctx context.Context, tx *gorm.DB, farmerID uuid.UUID, amount decimal.Decimal, description string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE users
		SET wallet_balance = wallet_balance - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND wallet_balance >= ?
	`, amount, farmerID, amount)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "debit wallet")
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := tx.WithContext(ctx).Model(&models.User{}).Where("id = ?", farmerID).Count(&exists).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load farmer after failed debit")
		}
		if exists == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "farmer not found")
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient wallet balance")
	}

	return s.appendAudit(ctx, tx, farmerID, amount, enums.TransactionTypeWithdrawal, description, nil)
}

// Balance reads the current materialized balance.
func (s *Service) Balance(ctx context.Context, farmerID uuid.UUID) (decimal.Decimal, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("wallet_balance").Where("id = ?", farmerID).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "farmer not found")
	}
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet balance")
	}
	return user.WalletBalance, nil
}

// StatementSum recomputes the balance from the audit trail: successful
// credits minus successful withdrawals. It must always equal Balance.
func (s *Service) StatementSum(ctx context.Context, farmerID uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := s.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(CASE WHEN type = ? THEN -amount ELSE amount END), 0) AS total
		FROM payment_transactions
		WHERE user_id = ? AND status = ? AND type IN (?, ?)
	`, enums.TransactionTypeWithdrawal, farmerID, enums.TransactionStatusSuccess,
		enums.TransactionTypePayment, enums.TransactionTypeWithdrawal).Scan(&row).Error
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum wallet statement")
	}
	return row.Total, nil
}

func (s *Service) appendAudit(ctx context.Context, tx *gorm.DB, farmerID uuid.UUID, amount decimal.Decimal, txType enums.TransactionType, description string, orderID *uuid.UUID) error {
	now := time.Now().UTC()
	record := &models.PaymentTransaction{
		ID:          uuid.New(),
		OrderID:     orderID,
		UserID:      farmerID,
		Type:        txType,
		Status:      enums.TransactionStatusSuccess,
		Amount:      amount,
		Currency:    "NGN",
		Description: &description,
		CompletedAt: &now,
	}
	if err := tx.WithContext(ctx).Create(record).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet transaction")
	}
	return nil
}
