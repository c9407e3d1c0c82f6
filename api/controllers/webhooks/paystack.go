package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/agricdeck/agricdeck-backend/api/responses"
	"github.com/agricdeck/agricdeck-backend/internal/payments"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
	"github.com/agricdeck/agricdeck-backend/pkg/gateway"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

// ReconcileService settles a payment reference against the gateway of
// record. Webhook payloads only select the reference; the outcome comes
// from the verify endpoint.
type ReconcileService interface {
	Reconcile(ctx context.Context, reference string) (*payments.ReconcileResult, error)
}

type deliveryGuard interface {
	FirstDelivery(ctx context.Context, gatewayName, reference string) (bool, error)
	Release(ctx context.Context, gatewayName, reference string) error
}

type paystackVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

// Paystack handles paystack charge events. The gateway retries until it
// sees a 2xx, so every recognised event is acknowledged even when the
// reference is unknown.
func Paystack(svc ReconcileService, client paystackVerifier, guard deliveryGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "paystack client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get("x-paystack-signature")
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "paystack signature missing"))
			return
		}
		if !client.VerifyWebhookSignature(payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid paystack signature"))
			return
		}

		handleEvent(ctx, w, svc, guard, logg, gateway.ProviderPaystack, payload)
	}
}

func handleEvent(ctx context.Context, w http.ResponseWriter, svc ReconcileService, guard deliveryGuard, logg *logger.Logger, gatewayName string, payload []byte) {
	reference, ok, err := payments.WebhookReference(gatewayName, payload)
	if err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	if !ok {
		responses.WriteSuccess(w, map[string]string{"status": "ignored"})
		return
	}

	// When redis is down the guard reports first=true with an error.
	// Reconciliation is idempotent, so it runs anyway rather than
	// dropping the event.
	first, err := guard.FirstDelivery(ctx, gatewayName, reference)
	if err != nil && logg != nil {
		logg.Warn(ctx, "webhook idempotency check failed, proceeding: "+err.Error())
	}
	if !first {
		responses.WriteSuccess(w, map[string]string{"status": "duplicate"})
		return
	}

	result, err := svc.Reconcile(ctx, reference)
	if err != nil {
		_ = guard.Release(ctx, gatewayName, reference)
		responses.WriteError(ctx, logg, w, err)
		return
	}

	if !result.Known {
		responses.WriteSuccess(w, map[string]string{"status": "transaction_not_found"})
		return
	}

	if logg != nil {
		logg.Info(ctx, gatewayName+" webhook processed for "+reference)
	}
	responses.WriteSuccess(w, map[string]string{
		"status":    string(result.Transaction.Status),
		"reference": reference,
	})
}
