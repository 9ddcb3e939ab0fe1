package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// OrderService is the order surface used by customer and admin routes.
type OrderService interface {
	ordercontrollers.Service
	controllers.AdminOrderService
}

// Services groups the handlers' collaborators.
type Services struct {
	Checkout        controllers.CheckoutService
	PaymentStatus   controllers.PaymentStatusReader
	Webhook         webhookcontrollers.PayHereNotificationService
	Cart            cart.Service
	Orders          OrderService
	Idempotency     redis.IdempotencyStore
	Readiness       map[string]controllers.Pinger
	MetricsGatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	idempotent := middleware.Idempotency(svc.Idempotency, logg)

	gatherer := svc.MetricsGatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, svc.Readiness, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payhere/notify", webhookcontrollers.PayHereNotify(svc.Webhook, logg))
	})

	r.Route("/api/public/v1", func(r chi.Router) {
		r.Post("/cart/reconcile", cartcontrollers.GuestReconcile(logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.With(idempotent).Post("/checkout/payhere", controllers.CheckoutPayHere(svc.Checkout, logg))
			r.With(idempotent).Post("/checkout/offline", controllers.CheckoutOffline(svc.Checkout, logg))
			r.Get("/payments/{orderRef}/status", controllers.PaymentStatus(svc.PaymentStatus, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Get(svc.Cart, logg))
				r.Post("/", cartcontrollers.Add(svc.Cart, logg))
				r.Delete("/", cartcontrollers.Clear(svc.Cart, logg))
				r.Patch("/items/{productId}", cartcontrollers.UpdateItem(svc.Cart, logg))
				r.Delete("/items/{productId}", cartcontrollers.RemoveItem(svc.Cart, logg))
				r.With(idempotent).Put("/sync", cartcontrollers.Sync(svc.Cart, logg))
				r.With(idempotent).Post("/remove-ordered", cartcontrollers.RemoveOrdered(svc.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(svc.Orders, logg))
				r.Get("/{orderRef}", ordercontrollers.Detail(svc.Orders, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.CustomerRoleAdmin))
		r.Get("/orders/{orderRef}", controllers.AdminOrderDetail(svc.Orders, logg))
		r.With(idempotent).Post("/orders/{orderRef}/status", controllers.AdminTransitionOrderStatus(svc.Orders, logg))
	})

	return r
}
