package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/paymentsessions"
	payherewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/payhere"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/payhere"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// wireServices builds the domain services the router dispatches to.
func wireServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Services, error) {
	var none routes.Services
	conn := dbClient.DB()

	codec, err := payhere.NewCodec(cfg.PayHere)
	if err != nil {
		return none, fmt.Errorf("payhere codec: %w", err)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:            orders.NewRepository(conn),
		TxRunner:        dbClient,
		Outbox:          outbox.NewService(outbox.NewRepository(conn), logg),
		Logger:          logg,
		StrictTotals:    cfg.Orders.StrictTotals,
		DefaultCurrency: cfg.PayHere.Currency,
	})
	if err != nil {
		return none, fmt.Errorf("order service: %w", err)
	}

	sessions, err := paymentsessions.NewManager(paymentsessions.NewRepository(conn), orderService, logg)
	if err != nil {
		return none, fmt.Errorf("payment session manager: %w", err)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Signer:       codec,
		Sessions:     sessions,
		Orders:       orderService,
		Logger:       logg,
		StrictTotals: cfg.Orders.StrictTotals,
	})
	if err != nil {
		return none, fmt.Errorf("checkout service: %w", err)
	}

	webhookService, err := payherewebhook.NewService(payherewebhook.ServiceParams{
		Verifier:    codec,
		Sessions:    sessions,
		Orders:      orderService,
		PaymentLogs: payherewebhook.NewPaymentLogRepository(conn),
		Metrics:     metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		Logger:      logg,
	})
	if err != nil {
		return none, fmt.Errorf("payhere webhook service: %w", err)
	}

	cartCache, err := cart.NewRedisCache(redisClient, cfg.Cart.CacheTTL)
	if err != nil {
		return none, fmt.Errorf("cart cache: %w", err)
	}
	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:     cart.NewRepository(conn),
		TxRunner: dbClient,
		Cache:    cartCache,
		Logger:   logg,
	})
	if err != nil {
		return none, fmt.Errorf("cart service: %w", err)
	}

	return routes.Services{
		Checkout:      checkoutService,
		PaymentStatus: sessions,
		Webhook:       webhookService,
		Cart:          cartService,
		Orders:        orderService,
		Idempotency:   redisClient,
		Readiness: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
	}, nil
}
