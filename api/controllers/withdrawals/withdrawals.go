package withdrawals

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agricdeck/agricdeck-backend/api/middleware"
	"github.com/agricdeck/agricdeck-backend/api/responses"
	"github.com/agricdeck/agricdeck-backend/api/validators"
	internalwithdrawals "github.com/agricdeck/agricdeck-backend/internal/withdrawals"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

type requestWithdrawalBody struct {
	Amount        string `json:"amount" validate:"required"`
	BankName      string `json:"bank_name" validate:"required,max=100"`
	BankCode      string `json:"bank_code" validate:"required,max=10"`
	AccountNumber string `json:"account_number" validate:"required,max=20"`
	AccountName   string `json:"account_name" validate:"required,max=100"`
}

// Request records a payout request against the farmer's wallet balance.
func Request(svc *internalwithdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}

		var req requestWithdrawalBody
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a number"))
			return
		}

		withdrawal, err := svc.Request(r.Context(), internalwithdrawals.RequestInput{
			FarmerID:      middleware.UserIDFromContext(r.Context()),
			Amount:        amount,
			BankName:      req.BankName,
			BankCode:      req.BankCode,
			AccountNumber: req.AccountNumber,
			AccountName:   req.AccountName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, withdrawal)
	}
}

// List returns the authenticated farmer's withdrawal history.
func List(svc *internalwithdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForFarmer(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// AdminList returns the platform-wide withdrawal queue.
func AdminList(svc *internalwithdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAll(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

type processWithdrawalBody struct {
	Approve bool   `json:"approve"`
	Gateway string `json:"gateway" validate:"omitempty,oneof=paystack flutterwave"`
	Notes   string `json:"notes" validate:"omitempty,max=1000"`
}

// Process approves or rejects a pending withdrawal. Approval pays out
// through the transfer gateway and debits the wallet.
func Process(svc *internalwithdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "withdrawalId"))
		withdrawalID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid withdrawal id"))
			return
		}

		var req processWithdrawalBody
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withdrawal, err := svc.Process(r.Context(), internalwithdrawals.ProcessInput{
			WithdrawalID: withdrawalID,
			AdminID:      middleware.UserIDFromContext(r.Context()),
			Approve:      req.Approve,
			Gateway:      req.Gateway,
			Notes:        req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, withdrawal)
	}
}

func parseListParams(r *http.Request) (internalwithdrawals.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
	if err != nil {
		return internalwithdrawals.ListParams{}, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		return internalwithdrawals.ListParams{}, err
	}

	params := internalwithdrawals.ListParams{Limit: limit, Offset: offset}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseTransactionStatus(raw)
		if err != nil {
			return internalwithdrawals.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &status
	}
	return params, nil
}
