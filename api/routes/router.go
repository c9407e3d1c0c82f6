package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agricdeck/agricdeck-backend/api/controllers"
	disputecontrollers "github.com/agricdeck/agricdeck-backend/api/controllers/disputes"
	ordercontrollers "github.com/agricdeck/agricdeck-backend/api/controllers/orders"
	paymentcontrollers "github.com/agricdeck/agricdeck-backend/api/controllers/payments"
	productcontrollers "github.com/agricdeck/agricdeck-backend/api/controllers/products"
	trackingcontrollers "github.com/agricdeck/agricdeck-backend/api/controllers/tracking"
	webhookcontrollers "github.com/agricdeck/agricdeck-backend/api/controllers/webhooks"
	withdrawalcontrollers "github.com/agricdeck/agricdeck-backend/api/controllers/withdrawals"
	"github.com/agricdeck/agricdeck-backend/api/middleware"
	"github.com/agricdeck/agricdeck-backend/internal/disputes"
	"github.com/agricdeck/agricdeck-backend/internal/inventory"
	"github.com/agricdeck/agricdeck-backend/internal/orders"
	"github.com/agricdeck/agricdeck-backend/internal/payments"
	"github.com/agricdeck/agricdeck-backend/internal/tracking"
	"github.com/agricdeck/agricdeck-backend/internal/withdrawals"
	"github.com/agricdeck/agricdeck-backend/pkg/config"
	"github.com/agricdeck/agricdeck-backend/pkg/db"
	"github.com/agricdeck/agricdeck-backend/pkg/enums"
	"github.com/agricdeck/agricdeck-backend/pkg/flutterwave"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
	"github.com/agricdeck/agricdeck-backend/pkg/paystack"
	"github.com/agricdeck/agricdeck-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Nil entries disable
// the routes that depend on them at request time rather than at boot.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client

	OrdersService      *orders.Service
	PaymentsService    *payments.Service
	WithdrawalsService *withdrawals.Service
	DisputesService    *disputes.Service
	TrackingService    *tracking.Service
	InventoryService   *inventory.Service

	PaystackClient    *paystack.Client
	FlutterwaveClient *flutterwave.Client
	WebhookGuard      *redis.WebhookGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.Paystack(deps.PaymentsService, deps.PaystackClient, deps.WebhookGuard, logg))
		r.Post("/flutterwave", webhookcontrollers.Flutterwave(deps.PaymentsService, deps.FlutterwaveClient, deps.WebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/buyers/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleBuyer, logg))
			r.Post("/", ordercontrollers.Create(deps.OrdersService, logg))
			r.Get("/", ordercontrollers.List(deps.OrdersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.OrdersService, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.OrdersService, logg))
		})

		r.Route("/farmers", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleFarmer, logg))
			r.Get("/orders", ordercontrollers.FarmerList(deps.OrdersService, logg))
			r.Put("/orders/{orderId}/status", ordercontrollers.UpdateStatus(deps.OrdersService, logg))
			r.Post("/products/{productId}/restock", productcontrollers.Restock(deps.InventoryService, deps.DB, logg))
			r.Post("/withdrawals", withdrawalcontrollers.Request(deps.WithdrawalsService, logg))
			r.Get("/withdrawals", withdrawalcontrollers.List(deps.WithdrawalsService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/initiate", paymentcontrollers.Initiate(deps.PaymentsService, logg))
			r.Post("/verify", paymentcontrollers.Verify(deps.PaymentsService, logg))
			r.Get("/transactions", paymentcontrollers.ListTransactions(deps.PaymentsService, logg))
		})

		r.Route("/disputes", func(r chi.Router) {
			r.Post("/", disputecontrollers.Open(deps.DisputesService, logg))
			r.Get("/", disputecontrollers.List(deps.DisputesService, logg))
			r.Get("/{disputeId}", disputecontrollers.Detail(deps.DisputesService, logg))
		})

		r.Route("/tracking", func(r chi.Router) {
			r.Get("/orders/{orderId}", trackingcontrollers.Order(deps.TrackingService, logg))
			r.Get("/logistics/{trackingNumber}", trackingcontrollers.Logistics(deps.TrackingService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

		r.Get("/withdrawals", withdrawalcontrollers.AdminList(deps.WithdrawalsService, logg))
		r.Put("/withdrawals/{withdrawalId}/process", withdrawalcontrollers.Process(deps.WithdrawalsService, logg))
		r.Get("/disputes", disputecontrollers.AdminList(deps.DisputesService, logg))
		r.Put("/disputes/{disputeId}/resolve", disputecontrollers.Resolve(deps.DisputesService, logg))
		r.Post("/orders/{orderId}/cancel", ordercontrollers.AdminCancel(deps.OrdersService, logg))
	})

	return r
}
