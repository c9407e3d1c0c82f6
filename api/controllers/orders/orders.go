package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agricdeck/agricdeck-backend/api/middleware"
	"github.com/agricdeck/agricdeck-backend/api/responses"
	"github.com/agricdeck/agricdeck-backend/api/validators"
	internalorders "github.com/agricdeck/agricdeck-backend/internal/orders"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	pkgerrors "github.com/agricdeck/agricdeck-backend/pkg/errors"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
)

type createOrderRequest struct {
	Items        []createOrderItem `json:"items" validate:"required,min=1,dive"`
	DeliveryType string            `json:"delivery_type" validate:"required,oneof=delivery pickup"`

	DeliveryAddress string `json:"delivery_address" validate:"omitempty,max=500"`
	DeliveryCity    string `json:"delivery_city" validate:"omitempty,max=100"`
	DeliveryState   string `json:"delivery_state" validate:"omitempty,max=100"`
	DeliveryPhone   string `json:"delivery_phone" validate:"omitempty,max=32"`
	BuyerNotes      string `json:"buyer_notes" validate:"omitempty,max=1000"`
}

type createOrderItem struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  string `json:"quantity" validate:"required"`
}

// Create places an order for the authenticated buyer.
func Create(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deliveryType, err := enums.ParseDeliveryType(req.DeliveryType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery type"))
			return
		}

		items := make([]internalorders.OrderItemInput, 0, len(req.Items))
		for _, it := range req.Items {
			productID, err := uuid.Parse(it.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			qty, err := decimal.NewFromString(it.Quantity)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quantity"))
				return
			}
			items = append(items, internalorders.OrderItemInput{ProductID: productID, Quantity: qty})
		}

		order, err := svc.Create(r.Context(), internalorders.CreateOrderInput{
			BuyerID:         middleware.UserIDFromContext(r.Context()),
			Items:           items,
			DeliveryType:    deliveryType,
			DeliveryAddress: req.DeliveryAddress,
			DeliveryCity:    req.DeliveryCity,
			DeliveryState:   req.DeliveryState,
			DeliveryPhone:   req.DeliveryPhone,
			BuyerNotes:      req.BuyerNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// List returns the authenticated buyer's order history.
func List(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForBuyer(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order the caller is allowed to see.
func Detail(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, middleware.UserIDFromContext(r.Context()), middleware.RoleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

// Cancel lets the buyer back out of an order that has not been accepted.
func Cancel(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Cancel(r.Context(), internalorders.CancelInput{
			OrderID: orderID,
			ActorID: middleware.UserIDFromContext(r.Context()),
			Reason:  req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// AdminCancel cancels an order on behalf of the platform, including
// disputed orders.
func AdminCancel(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Cancel(r.Context(), internalorders.CancelInput{
			OrderID: orderID,
			ActorID: middleware.UserIDFromContext(r.Context()),
			IsAdmin: true,
			Reason:  req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func parseListParams(r *http.Request) (internalorders.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
	if err != nil {
		return internalorders.ListParams{}, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		return internalorders.ListParams{}, err
	}

	params := internalorders.ListParams{Limit: limit, Offset: offset}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return internalorders.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &status
	}
	return params, nil
}
