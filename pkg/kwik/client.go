// Package kwik wraps the Kwik delivery API used for doorstep fulfilment:
// fee quotes at order creation, delivery orders at shipment, and live
// tracking.
package kwik

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
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

var (
	errAPIKeyRequired = errors.New("kwik api key is required")
	errLoggerRequired = errors.New("kwik logger is required")
)

// Location is a pickup or dropoff point.
type Location struct {
	Address string `json:"address"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
}

// Contact identifies a person at a location.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Quote is a delivery fee estimate.
type Quote struct {
	Price   decimal.Decimal `json:"price"`
	ETAText string          `json:"eta"`
}

// DeliveryOrder is the handle returned when a shipment is booked.
type DeliveryOrder struct {
	TrackingNumber  string `json:"tracking_number"`
	ProviderOrderID string `json:"order_id"`
}

// TrackingInfo is the live state of a shipment.
type TrackingInfo struct {
	Status          string `json:"status"`
	CurrentLocation string `json:"current_location"`
	ETAText         string `json:"eta"`
}

// Client calls the Kwik API with centralized auth, timeout and error
// mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logger.Logger
}

// NewClient validates the credentials and builds the wrapper.
func NewClient(cfg config.KwikConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     key,
		logger:     logg,
	}, nil
}

// GetDeliveryQuote prices a pickup/dropoff pair.
func (c *Client) GetDeliveryQuote(ctx context.Context, pickup, delivery Location) (*Quote, error) {
	payload := map[string]any{
		"pickup":   pickup,
		"delivery": delivery,
	}
	quote := &Quote{}
	if err := c.do(ctx, http.MethodPost, "/quotes", payload, quote); err != nil {
		return nil, err
	}
	return quote, nil
}

// CreateDeliveryOrder books a shipment and returns the tracking handle.
func (c *Client) CreateDeliveryOrder(ctx context.Context, pickup, delivery Location, pickupContact, deliveryContact Contact, orderReference string) (*DeliveryOrder, error) {
	payload := map[string]any{
		"pickup":           pickup,
		"delivery":         delivery,
		"pickup_contact":   pickupContact,
		"delivery_contact": deliveryContact,
		"reference":        orderReference,
	}
	order := &DeliveryOrder{}
	if err := c.do(ctx, http.MethodPost, "/deliveries", payload, order); err != nil {
		return nil, err
	}
	return order, nil
}

// TrackDelivery reports the live state of a tracking number.
func (c *Client) TrackDelivery(ctx context.Context, trackingNumber string) (*TrackingInfo, error) {
	info := &TrackingInfo{}
	path := "/deliveries/track/" + url.PathEscape(trackingNumber)
	if err := c.do(ctx, http.MethodGet, path, nil, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding kwik request")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building kwik request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling kwik")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading kwik response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return pkgerrors.New(pkgerrors.CodeDependency, "kwik request failed").
			WithDetails(map[string]any{
				"http_status": resp.StatusCode,
				"body":        string(raw),
			})
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding kwik response")
		}
	}
	return nil
}
