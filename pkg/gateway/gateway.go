// Package gateway defines the payment-provider capability surface. One
// implementation exists per provider; call sites select through the
// Registry instead of branching on provider names.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider names as persisted on transactions and orders.
const (
	ProviderPaystack    = "paystack"
	ProviderFlutterwave = "flutterwave"
)

// InitializeResult is the checkout handle returned by payment initialization.
type InitializeResult struct {
	CheckoutURL string
	AccessCode  string
	Reference   string
	RawResponse string
}

// VerificationStatus is the provider-agnostic classification of a
// verification payload.
type VerificationStatus string

const (
	VerificationSuccess VerificationStatus = "success"
	VerificationFailed  VerificationStatus = "failed"
	VerificationPending VerificationStatus = "pending"
)

// VerifyResult reports the gateway's view of a payment reference.
type VerifyResult struct {
	Status      VerificationStatus
	AmountPaid  decimal.Decimal
	Currency    string
	PaidAt      string
	Channel     string
	RawResponse string
}

// RecipientResult is the handle for a registered transfer recipient.
type RecipientResult struct {
	RecipientCode string
	RawResponse   string
}

// TransferResult reports an initiated payout transfer.
type TransferResult struct {
	GatewayReference string
	Status           string
	RawResponse      string
}

// PaymentGateway is the capability interface every payment provider
// implements.
type PaymentGateway interface {
	Name() string
	InitializePayment(ctx context.Context, email string, amount decimal.Decimal, reference string, metadata map[string]any) (*InitializeResult, error)
	VerifyPayment(ctx context.Context, reference string) (*VerifyResult, error)
	CreateTransferRecipient(ctx context.Context, accountNumber, bankCode, accountName string) (*RecipientResult, error)
	InitiateTransfer(ctx context.Context, recipientCode string, amount decimal.Decimal, reference, reason string) (*TransferResult, error)
}
