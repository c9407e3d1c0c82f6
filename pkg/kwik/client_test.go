package kwik

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agricdeck/agricdeck-backend/pkg/config"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.KwikConfig{
		APIKey:  "kw_test",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestGetDeliveryQuote(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quotes" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer kw_test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"price": 750, "eta": "45 mins"})
	}))

	quote, err := client.GetDeliveryQuote(context.Background(),
		Location{Address: "12 Farm Road", City: "Ibadan"},
		Location{Address: "3 Market Street", City: "Lagos"},
	)
	if err != nil {
		t.Fatalf("GetDeliveryQuote: %v", err)
	}
	if !quote.Price.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("unexpected price %s", quote.Price)
	}
	if quote.ETAText != "45 mins" {
		t.Fatalf("unexpected eta %q", quote.ETAText)
	}
}

func TestCreateDeliveryOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload["reference"] != "AGD-1234ABCD" {
			t.Fatalf("order reference not forwarded: %v", payload["reference"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"tracking_number": "KWK-9988", "order_id": "kwik-order-1"})
	}))

	order, err := client.CreateDeliveryOrder(context.Background(),
		Location{Address: "12 Farm Road"},
		Location{Address: "3 Market Street"},
		Contact{Name: "Ada Farmer", Phone: "0801"},
		Contact{Name: "Bola Buyer", Phone: "0802"},
		"AGD-1234ABCD",
	)
	if err != nil {
		t.Fatalf("CreateDeliveryOrder: %v", err)
	}
	if order.TrackingNumber != "KWK-9988" {
		t.Fatalf("unexpected tracking number %q", order.TrackingNumber)
	}
}

func TestTrackDelivery(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deliveries/track/KWK-9988" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "in_transit", "current_location": "Berger", "eta": "20 mins"})
	}))

	info, err := client.TrackDelivery(context.Background(), "KWK-9988")
	if err != nil {
		t.Fatalf("TrackDelivery: %v", err)
	}
	if info.Status != "in_transit" || info.CurrentLocation != "Berger" {
		t.Fatalf("unexpected tracking info %+v", info)
	}
}

func TestProviderErrorMapsToDependency(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.GetDeliveryQuote(context.Background(), Location{}, Location{})
	if err == nil {
		t.Fatal("expected error")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}
}
