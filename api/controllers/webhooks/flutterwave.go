package webhooks

import (
	"io"
	"net/http"

	"github.com/agricdeck/agricdeck-backend/api/responses"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
	"github.com/agricdeck/agricdeck-backend/pkg/gateway"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

type flutterwaveVerifier interface {
	VerifyWebhookHash(header string) bool
}

// Flutterwave handles charge.completed events. Flutterwave authenticates
// hooks with a static verif-hash header rather than an HMAC over the
// body.
func Flutterwave(svc ReconcileService, client flutterwaveVerifier, guard deliveryGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "flutterwave client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		if !client.VerifyWebhookHash(r.Header.Get("verif-hash")) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid flutterwave verification hash"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		handleEvent(ctx, w, svc, guard, logg, gateway.ProviderFlutterwave, payload)
	}
}
