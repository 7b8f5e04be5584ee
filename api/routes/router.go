package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shopstack-dev/shopstack-backend/api/controllers"
	webhookcontrollers "github.com/shopstack-dev/shopstack-backend/api/controllers/webhooks"
	"github.com/shopstack-dev/shopstack-backend/api/middleware"
	addresssvc "github.com/shopstack-dev/shopstack-backend/internal/addresses"
	cartsvc "github.com/shopstack-dev/shopstack-backend/internal/cart"
	checkoutsvc "github.com/shopstack-dev/shopstack-backend/internal/checkout"
	"github.com/shopstack-dev/shopstack-backend/internal/orders"
	productsvc "github.com/shopstack-dev/shopstack-backend/internal/products"
	"github.com/shopstack-dev/shopstack-backend/internal/promo"
	shippingsvc "github.com/shopstack-dev/shopstack-backend/internal/shipping"
	stripewebhook "github.com/shopstack-dev/shopstack-backend/internal/webhooks/stripe"
	"github.com/shopstack-dev/shopstack-backend/pkg/config"
	"github.com/shopstack-dev/shopstack-backend/pkg/db"
	"github.com/shopstack-dev/shopstack-backend/pkg/logger"
	"github.com/shopstack-dev/shopstack-backend/pkg/metrics"
	"github.com/shopstack-dev/shopstack-backend/pkg/redis"
	pkgstripe "github.com/shopstack-dev/shopstack-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	registry prometheus.Gatherer,
	cartService cartsvc.Service,
	checkoutService checkoutsvc.Service,
	addressService addresssvc.Service,
	productsRepo productsvc.Repository,
	shippingRepo shippingsvc.Repository,
	ordersRepo orders.Repository,
	promoCatalog promo.Catalog,
	stripeClient *pkgstripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(registry))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(logg))

		// Hosted payment confirmations. Registered only when Stripe is
		// configured; the simulated backend settles synchronously.
		if stripeClient != nil && stripeWebhookService != nil {
			r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
		}

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(productsRepo, logg))
			r.Get("/slug/{slug}", controllers.GetProductBySlug(productsRepo, logg))
			r.Get("/{id}", controllers.GetProduct(productsRepo, logg))
		})
		r.Get("/categories", controllers.ListCategories(productsRepo, logg))
		r.Get("/shipping-methods", controllers.ListShippingMethods(shippingRepo, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Get("/", controllers.CartView(cartService, logg))
			r.Post("/add", controllers.CartAdd(cartService, logg))
			r.Post("/update", controllers.CartUpdate(cartService, logg))
			r.Put("/update", controllers.CartUpdate(cartService, logg))
			r.Post("/update-qty", controllers.CartUpdate(cartService, logg))
			r.Post("/remove", controllers.CartRemove(cartService, logg))
			r.Post("/clear", controllers.CartClear(cartService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/summary", controllers.CheckoutSummary(checkoutService, cartService, addressService, shippingRepo, promoCatalog, logg))
				r.Post("/promo", controllers.CheckoutPromo(promoCatalog, logg))
				r.Post("/complete", controllers.CheckoutComplete(checkoutService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListOrders(ordersRepo, logg))
				r.Get("/{id}", controllers.GetOrder(ordersRepo, logg))
			})

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.ListAddresses(addressService, logg))
				r.Post("/", controllers.CreateAddress(addressService, logg))
				r.Put("/{id}", controllers.UpdateAddress(addressService, logg))
				r.Put("/{id}/default", controllers.SetDefaultAddress(addressService, logg))
				r.Delete("/{id}", controllers.DeleteAddress(addressService, logg))
			})

			r.Route("/admin/shipping-methods", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Post("/", controllers.CreateShippingMethod(shippingRepo, logg))
				r.Put("/{id}", controllers.UpdateShippingMethod(shippingRepo, logg))
				r.Delete("/{id}", controllers.DeactivateShippingMethod(shippingRepo, logg))
			})
		})
	})

	return r
}
