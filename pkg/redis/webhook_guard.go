package redis

import (
	"context"
	"time"
)

type webhookStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	WebhookEventKey(gateway, reference string) string
}

// WebhookGuard dedups gateway webhook deliveries. Reconciliation is
// idempotent on its own; the guard just short-circuits replays before
// they reach the database.
type WebhookGuard struct {
	store webhookStore
	ttl   time.Duration
}

// NewWebhookGuard builds a guard over the shared redis client.
func NewWebhookGuard(store webhookStore, ttl time.Duration) *WebhookGuard {
	return &WebhookGuard{store: store, ttl: ttl}
}

// FirstDelivery marks the (gateway, reference) pair as seen and reports
// whether this delivery is the first one. Callers should treat an error
// as a first delivery so a redis outage never drops an event.
func (g *WebhookGuard) FirstDelivery(ctx context.Context, gateway, reference string) (bool, error) {
	if g == nil || g.store == nil || reference == "" {
		return true, nil
	}
	first, err := g.store.SetNX(ctx, g.store.WebhookEventKey(gateway, reference), time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return true, err
	}
	return first, nil
}

// Release forgets a marked delivery so the gateway's retry is processed
// after a handler failure.
func (g *WebhookGuard) Release(ctx context.Context, gateway, reference string) error {
	if g == nil || g.store == nil || reference == "" {
		return nil
	}
	return g.store.Del(ctx, g.store.WebhookEventKey(gateway, reference))
}
