package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/agricdeck/agricdeck-backend/api/routes"
	"github.com/agricdeck/agricdeck-backend/internal/disputes"
	"github.com/agricdeck/agricdeck-backend/internal/inventory"
	"github.com/agricdeck/agricdeck-backend/internal/orders"
	"github.com/agricdeck/agricdeck-backend/internal/payments"
	"github.com/agricdeck/agricdeck-backend/internal/tracking"
	"github.com/agricdeck/agricdeck-backend/internal/wallet"
	"github.com/agricdeck/agricdeck-backend/internal/withdrawals"
	"github.com/agricdeck/agricdeck-backend/pkg/config"
	"github.com/agricdeck/agricdeck-backend/pkg/db"
	"github.com/agricdeck/agricdeck-backend/pkg/flutterwave"
	"github.com/agricdeck/agricdeck-backend/pkg/gateway"
	"github.com/agricdeck/agricdeck-backend/pkg/kwik"
	"github.com/agricdeck/agricdeck-backend/pkg/logger"
	"github.com/agricdeck/agricdeck-backend/pkg/migrate"
	"github.com/agricdeck/agricdeck-backend/pkg/paystack"
	"github.com/agricdeck/agricdeck-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	webhookGuard := redis.NewWebhookGuard(redisClient, cfg.Platform.WebhookIdempotencyTTL)

	var gateways []gateway.PaymentGateway
	var paystackClient *paystack.Client
	if strings.TrimSpace(cfg.Paystack.SecretKey) != "" {
		paystackClient, err = paystack.NewClient(cfg.Paystack, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create paystack client", err)
			os.Exit(1)
		}
		gateways = append(gateways, paystackClient)
	}
	var flutterwaveClient *flutterwave.Client
	if strings.TrimSpace(cfg.Flutterwave.SecretKey) != "" {
		flutterwaveClient, err = flutterwave.NewClient(cfg.Flutterwave, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create flutterwave client", err)
			os.Exit(1)
		}
		gateways = append(gateways, flutterwaveClient)
	}
	registry := gateway.NewRegistry(gateways...)

	var kwikClient *kwik.Client
	if strings.TrimSpace(cfg.Kwik.APIKey) != "" {
		kwikClient, err = kwik.NewClient(cfg.Kwik, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create kwik client", err)
			os.Exit(1)
		}
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())
	withdrawalsRepo := withdrawals.NewRepository(dbClient.DB())
	disputesRepo := disputes.NewRepository(dbClient.DB())

	inventorySvc := inventory.NewService()
	walletSvc, err := wallet.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	var ordersLogistics orders.LogisticsClient
	var trackingLogistics tracking.LogisticsClient
	if kwikClient != nil {
		ordersLogistics = kwikClient
		trackingLogistics = kwikClient
	}

	ordersSvc, err := orders.NewService(
		ordersRepo,
		dbClient,
		inventorySvc,
		walletSvc,
		payments.NewRecorder(dbClient.DB()),
		ordersLogistics,
		cfg.Platform,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(paymentsRepo, registry, dbClient, cfg.Platform, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	withdrawalsSvc, err := withdrawals.NewService(withdrawalsRepo, walletSvc, registry, dbClient, cfg.Platform, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create withdrawals service", err)
		os.Exit(1)
	}

	disputesSvc, err := disputes.NewService(disputesRepo, ordersRepo, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create disputes service", err)
		os.Exit(1)
	}

	trackingSvc, err := tracking.NewService(ordersRepo, trackingLogistics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create tracking service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:             cfg,
			Logger:             logg,
			DB:                 dbClient,
			OrdersService:      ordersSvc,
			PaymentsService:    paymentsSvc,
			WithdrawalsService: withdrawalsSvc,
			DisputesService:    disputesSvc,
			TrackingService:    trackingSvc,
			InventoryService:   inventorySvc,
			PaystackClient:     paystackClient,
			FlutterwaveClient:  flutterwaveClient,
			WebhookGuard:       webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
