// Package paystack implements the payment gateway surface over the
// Paystack REST API. Amounts cross the wire in kobo.
package paystack

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
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

var kobo = decimal.NewFromInt(100)

// Client calls the Paystack API with centralized auth, timeout and error
// mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	logger     *logger.Logger
}

// NewClient validates the credentials and builds the wrapper.
func NewClient(cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  secret,
		logger:     logg,
	}, nil
}

// Name implements gateway.PaymentGateway.
func (c *Client) Name() string {
	return gateway.ProviderPaystack
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializePayment creates a checkout session for the reference.
func (c *Client) InitializePayment(ctx context.Context, email string, amount decimal.Decimal, reference string, metadata map[string]any) (*gateway.InitializeResult, error) {
	payload := map[string]any{
		"email":     email,
		"amount":    amount.Mul(kobo).IntPart(),
		"reference": reference,
		"currency":  "NGN",
	}
	if len(metadata) > 0 {
		payload["metadata"] = metadata
	}

	body, env, err := c.do(ctx, http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack initialize response")
	}

	return &gateway.InitializeResult{
		CheckoutURL: data.AuthorizationURL,
		AccessCode:  data.AccessCode,
		Reference:   data.Reference,
		RawResponse: body,
	}, nil
}

// VerifyPayment fetches the authoritative state of a reference. Paystack
// reports "success" for settled charges and amounts in kobo.
func (c *Client) VerifyPayment(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	path := "/transaction/verify/" + url.PathEscape(reference)
	body, env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		PaidAt   string `json:"paid_at"`
		Channel  string `json:"channel"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack verify response")
	}

	return &gateway.VerifyResult{
		Status:      classifyStatus(data.Status),
		AmountPaid:  decimal.NewFromInt(data.Amount).Div(kobo),
		Currency:    data.Currency,
		PaidAt:      data.PaidAt,
		Channel:     data.Channel,
		RawResponse: body,
	}, nil
}

// CreateTransferRecipient registers a NUBAN bank account for payouts.
func (c *Client) CreateTransferRecipient(ctx context.Context, accountNumber, bankCode, accountName string) (*gateway.RecipientResult, error) {
	payload := map[string]any{
		"type":           "nuban",
		"name":           accountName,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}

	body, env, err := c.do(ctx, http.MethodPost, "/transferrecipient", payload)
	if err != nil {
		return nil, err
	}

	var data struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack recipient response")
	}

	return &gateway.RecipientResult{RecipientCode: data.RecipientCode, RawResponse: body}, nil
}

// InitiateTransfer moves money from the platform balance to a recipient.
func (c *Client) InitiateTransfer(ctx context.Context, recipientCode string, amount decimal.Decimal, reference, reason string) (*gateway.TransferResult, error) {
	payload := map[string]any{
		"source":    "balance",
		"amount":    amount.Mul(kobo).IntPart(),
		"recipient": recipientCode,
		"reference": reference,
		"reason":    reason,
	}

	body, env, err := c.do(ctx, http.MethodPost, "/transfer", payload)
	if err != nil {
		return nil, err
	}

	var data struct {
		TransferCode string `json:"transfer_code"`
		Status       string `json:"status"`
		Reference    string `json:"reference"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack transfer response")
	}

	ref := data.Reference
	if ref == "" {
		ref = data.TransferCode
	}
	return &gateway.TransferResult{GatewayReference: ref, Status: data.Status, RawResponse: body}, nil
}

func classifyStatus(status string) gateway.VerificationStatus {
	switch strings.ToLower(status) {
	case "success":
		return gateway.VerificationSuccess
	case "failed", "abandoned", "reversed":
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
			return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding paystack request")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building paystack request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling paystack")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading paystack response")
	}

	env := &envelope{}
	if err := json.Unmarshal(raw, env); err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack envelope")
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Status {
		return "", nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack request failed").
			WithDetails(map[string]any{
				"http_status": resp.StatusCode,
				"message":     env.Message,
			})
	}

	return string(raw), env, nil
}

var _ gateway.PaymentGateway = (*Client)(nil)
