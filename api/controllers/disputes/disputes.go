package disputes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agricdeck/agricdeck-backend/api/middleware"
	"github.com/agricdeck/agricdeck-backend/api/responses"
	"github.com/agricdeck/agricdeck-backend/api/validators"
	internaldisputes "github.com/agricdeck/agricdeck-backend/internal/disputes"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

type openDisputeRequest struct {
	OrderID     string `json:"order_id" validate:"required,uuid"`
	Type        string `json:"type" validate:"required"`
	Description string `json:"description" validate:"required,max=2000"`
}

// Open raises a dispute on an order and freezes its lifecycle.
func Open(svc *internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		var req openDisputeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		disputeType, err := enums.ParseDisputeType(req.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispute type"))
			return
		}

		dispute, err := svc.Open(r.Context(), internaldisputes.OpenInput{
			OrderID:     orderID,
			RaisedByID:  middleware.UserIDFromContext(r.Context()),
			Type:        disputeType,
			Description: req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dispute)
	}
}

// List returns disputes where the caller is a party on either side.
func List(svc *internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListMine(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// Detail returns one dispute the caller may see.
func Detail(svc *internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		disputeID, err := parseDisputeID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Get(r.Context(), disputeID, middleware.UserIDFromContext(r.Context()), middleware.RoleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dispute)
	}
}

// AdminList returns the platform-wide dispute queue.
func AdminList(svc *internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
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

type resolveDisputeRequest struct {
	Resolution string `json:"resolution" validate:"required,max=2000"`
}

// Resolve records an admin's closing decision. The order stays disputed
// so any compensation is handled through the cancel and refund paths.
func Resolve(svc *internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		disputeID, err := parseDisputeID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req resolveDisputeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Resolve(r.Context(), internaldisputes.ResolveInput{
			DisputeID:  disputeID,
			AdminID:    middleware.UserIDFromContext(r.Context()),
			Resolution: req.Resolution,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dispute)
	}
}

func parseDisputeID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "disputeId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id is required")
	}
	disputeID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispute id")
	}
	return disputeID, nil
}

func parseListParams(r *http.Request) (internaldisputes.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
	if err != nil {
		return internaldisputes.ListParams{}, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		return internaldisputes.ListParams{}, err
	}

	params := internaldisputes.ListParams{Limit: limit, Offset: offset}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseDisputeStatus(raw)
		if err != nil {
			return internaldisputes.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &status
	}
	return params, nil
}
