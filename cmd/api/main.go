package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shopstack-dev/shopstack-backend/api/routes"
	"github.com/shopstack-dev/shopstack-backend/internal/addresses"
	"github.com/shopstack-dev/shopstack-backend/internal/cart"
	"github.com/shopstack-dev/shopstack-backend/internal/checkout"
	"github.com/shopstack-dev/shopstack-backend/internal/events"
	"github.com/shopstack-dev/shopstack-backend/internal/orders"
	"github.com/shopstack-dev/shopstack-backend/internal/payments"
	"github.com/shopstack-dev/shopstack-backend/internal/pricing"
	"github.com/shopstack-dev/shopstack-backend/internal/products"
	"github.com/shopstack-dev/shopstack-backend/internal/promo"
	"github.com/shopstack-dev/shopstack-backend/internal/shipping"
	"github.com/shopstack-dev/shopstack-backend/internal/users"
	stripewebhook "github.com/shopstack-dev/shopstack-backend/internal/webhooks/stripe"
	"github.com/shopstack-dev/shopstack-backend/pkg/config"
	"github.com/shopstack-dev/shopstack-backend/pkg/db"
	"github.com/shopstack-dev/shopstack-backend/pkg/logger"
	"github.com/shopstack-dev/shopstack-backend/pkg/metrics"
	"github.com/shopstack-dev/shopstack-backend/pkg/migrate"
	"github.com/shopstack-dev/shopstack-backend/pkg/redis"
	pkgstripe "github.com/shopstack-dev/shopstack-backend/pkg/stripe"
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

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)

	productsRepo := products.NewRepository(dbClient.DB())
	addressesRepo := addresses.NewRepository(dbClient.DB())
	shippingRepo := shipping.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())
	emitter := events.NewEmitter(dbClient.DB())
	promoCatalog := promo.DefaultCatalog()

	pricingService := pricing.NewService(productsRepo)
	cartStore := cart.NewStore(redisClient, cfg.Checkout.SessionCartTTL)
	cartService := cart.NewService(cartStore, pricingService, productsRepo)
	addressService := addresses.NewService(dbClient, addressesRepo)

	// Payment backend selection happens once at startup. Without a Stripe key
	// the simulated backend settles orders synchronously and the webhook route
	// is never registered.
	var (
		processor            payments.Processor
		stripeClient         *pkgstripe.Client
		stripeWebhookService *stripewebhook.Service
		stripeWebhookGuard   *stripewebhook.IdempotencyGuard
	)
	if cfg.Stripe.Configured() {
		stripeClient, err = pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to initialize stripe", err)
			os.Exit(1)
		}
		processor = payments.NewStripe(stripeClient)

		stripeWebhookService, err = stripewebhook.NewService(stripewebhook.ServiceParams{
			OrdersRepo:        ordersRepo,
			Events:            emitter,
			TransactionRunner: dbClient,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create stripe webhook service", err)
			os.Exit(1)
		}

		stripeWebhookGuard, err = stripewebhook.NewIdempotencyGuard(redisClient, cfg.Checkout.WebhookIdemTTL, "stripe-webhook")
		if err != nil {
			logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
			os.Exit(1)
		}
	} else {
		processor = payments.NewSimulated()
		logg.Info(context.Background(), "stripe not configured, using simulated payments")
	}

	checkoutService := checkout.NewService(
		dbClient,
		cartStore,
		pricingService,
		addressesRepo,
		shippingRepo,
		usersRepo,
		promoCatalog,
		ordersRepo,
		emitter,
		processor,
		cfg.Checkout,
		logg,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"payments": processor.Name(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			httpMetrics,
			registry,
			cartService,
			checkoutService,
			addressService,
			productsRepo,
			shippingRepo,
			ordersRepo,
			promoCatalog,
			stripeClient,
			stripeWebhookService,
			stripeWebhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
