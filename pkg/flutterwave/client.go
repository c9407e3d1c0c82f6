// Package flutterwave implements the payment gateway surface over the
// Flutterwave v3 REST API. Amounts cross the wire in naira.
package flutterwave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/agricdeck/agricdeck-backend/pkg/config"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
	"github.com/agricdeck/agricdeck-backend/pkg/gateway"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

var (
	errSecretKeyRequired = errors.New("flutterwave secret key is required")
	errLoggerRequired    = errors.New("flutterwave logger is required")
)

// Client calls the Flutterwave API with centralized auth, timeout and
// error mapping.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	secretKey   string
	callbackURL string
	verifHash   string
	logger      *logger.Logger
}

// NewClient validates the credentials and builds the wrapper.
func NewClient(cfg config.FlutterwaveConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:   secret,
		callbackURL: cfg.CallbackURL,
		verifHash:   cfg.VerifHash,
		logger:      logg,
	}, nil
}

// Name implements gateway.PaymentGateway.
func (c *Client) Name() string {
	return gateway.ProviderFlutterwave
}

// VerifyWebhookHash checks the verif-hash header against the configured
// secret hash. Flutterwave sends a static shared value, not an HMAC.
func (c *Client) VerifyWebhookHash(header string) bool {
	if c.verifHash == "" || header == "" {
		return false
	}
	return header == c.verifHash
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializePayment creates a hosted payment link for the tx_ref.
func (c *Client) InitializePayment(ctx context.Context, email string, amount decimal.Decimal, reference string, metadata map[string]any) (*gateway.InitializeResult, error) {
	payload := map[string]any{
		"tx_ref":   reference,
		"amount":   amount.String(),
		"currency": "NGN",
		"customer": map[string]any{"email": email},
	}
	if c.callbackURL != "" {
		payload["redirect_url"] = c.callbackURL
	}
	if len(metadata) > 0 {
		payload["meta"] = metadata
	}

	body, env, err := c.do(ctx, http.MethodPost, "/payments", payload)
	if err != nil {
		return nil, err
	}

	var data struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding flutterwave payment response")
	}

	return &gateway.InitializeResult{
		CheckoutURL: data.Link,
		Reference:   reference,
		RawResponse: body,
	}, nil
}

// VerifyPayment fetches the authoritative state of a tx_ref. Flutterwave
// reports "successful" for settled charges.
func (c *Client) VerifyPayment(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	path := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(reference)
	body, env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		Status      string          `json:"status"`
		Amount      decimal.Decimal `json:"amount"`
		Currency    string          `json:"currency"`
		CreatedAt   string          `json:"created_at"`
		PaymentType string          `json:"payment_type"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding flutterwave verify response")
	}

	return &gateway.VerifyResult{
		Status:      classifyStatus(data.Status),
		AmountPaid:  data.Amount,
		Currency:    data.Currency,
		PaidAt:      data.CreatedAt,
		Channel:     data.PaymentType,
		RawResponse: body,
	}, nil
}

// CreateTransferRecipient returns an inline recipient handle. Flutterwave
// transfers carry the bank account on the transfer call itself, so the
// handle just packs the account details for InitiateTransfer.
func (c *Client) CreateTransferRecipient(ctx context.Context, accountNumber, bankCode, accountName string) (*gateway.RecipientResult, error) {
	if strings.TrimSpace(accountNumber) == "" || strings.TrimSpace(bankCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank code and account number are required")
	}
	return &gateway.RecipientResult{
		RecipientCode: bankCode + ":" + accountNumber,
	}, nil
}

// InitiateTransfer moves money from the platform balance to a bank account.
func (c *Client) InitiateTransfer(ctx context.Context, recipientCode string, amount decimal.Decimal, reference, reason string) (*gateway.TransferResult, error) {
	bankCode, accountNumber, ok := strings.Cut(recipientCode, ":")
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed transfer recipient handle")
	}

	payload := map[string]any{
		"account_bank":   bankCode,
		"account_number": accountNumber,
		"amount":         amount.String(),
		"currency":       "NGN",
		"reference":      reference,
		"narration":      reason,
	}

	body, env, err := c.do(ctx, http.MethodPost, "/transfers", payload)
	if err != nil {
		return nil, err
	}

	var data struct {
		ID        int64  `json:"id"`
		Status    string `json:"status"`
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding flutterwave transfer response")
	}

	ref := data.Reference
	if ref == "" {
		ref = reference
	}
	return &gateway.TransferResult{GatewayReference: ref, Status: data.Status, RawResponse: body}, nil
}

func classifyStatus(status string) gateway.VerificationStatus {
	switch strings.ToLower(status) {
	case "successful":
		return gateway.VerificationSuccess
	case "failed", "cancelled":
		return gateway.VerificationFailed
	default:
		return gateway.VerificationPending
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (string, *envelope, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding flutterwave request")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building flutterwave request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling flutterwave")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading flutterwave response")
	}

	env := &envelope{}
	if err := json.Unmarshal(raw, env); err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding flutterwave envelope")
	}

	if resp.StatusCode >= http.StatusBadRequest || env.Status != "success" {
		return "", nil, pkgerrors.New(pkgerrors.CodeDependency, "flutterwave request failed").
			WithDetails(map[string]any{
				"http_status": resp.StatusCode,
				"message":     env.Message,
			})
	}

	return string(raw), env, nil
}

var _ gateway.PaymentGateway = (*Client)(nil)
