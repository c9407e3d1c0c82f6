package payments

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/agricdeck/agricdeck-backend/api/middleware"
	"github.com/agricdeck/agricdeck-backend/api/responses"
	"github.com/agricdeck/agricdeck-backend/api/validators"
	internalpayments "github.com/agricdeck/agricdeck-backend/internal/payments"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

type initiateRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
	Gateway string `json:"gateway" validate:"omitempty,oneof=paystack flutterwave"`
}

// Initiate opens a checkout session for an unpaid order.
func Initiate(svc *internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var req initiateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		result, err := svc.Initiate(r.Context(), internalpayments.InitiateInput{
			OrderID: orderID,
			BuyerID: middleware.UserIDFromContext(r.Context()),
			Gateway: req.Gateway,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type verifyRequest struct {
	Reference string `json:"reference" validate:"required,max=128"`
}

type verifyResponse struct {
	Status      string `json:"status"`
	Transaction any    `json:"transaction,omitempty"`
	Order       any    `json:"order,omitempty"`
}

// Verify reconciles a payment reference against the gateway of record.
// References that do not belong to this system are acknowledged rather
// than treated as errors.
func Verify(svc *internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var req verifyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Reconcile(r.Context(), strings.TrimSpace(req.Reference))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !result.Known {
			responses.WriteSuccess(w, verifyResponse{Status: "transaction_not_found"})
			return
		}

		responses.WriteSuccess(w, verifyResponse{
			Status:      string(result.Transaction.Status),
			Transaction: result.Transaction,
			Order:       result.Order,
		})
	}
}

// ListTransactions returns the caller's payment history. Admins see the
// platform-wide ledger.
func ListTransactions(svc *internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var list any
		if middleware.RoleFromContext(r.Context()) == enums.UserRoleAdmin {
			list, err = svc.ListAll(r.Context(), params)
		} else {
			list, err = svc.ListForUser(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func parseListParams(r *http.Request) (internalpayments.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
	if err != nil {
		return internalpayments.ListParams{}, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		return internalpayments.ListParams{}, err
	}

	params := internalpayments.ListParams{Limit: limit, Offset: offset}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		txType, err := enums.ParseTransactionType(raw)
		if err != nil {
			return internalpayments.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter")
		}
		params.Type = &txType
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseTransactionStatus(raw)
		if err != nil {
			return internalpayments.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &status
	}
	return params, nil
}
