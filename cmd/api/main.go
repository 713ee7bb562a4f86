package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mrdelgado-dev/bookbarn-backend/api/routes"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/books"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/cart"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/notify"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/orders"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/payments"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/payments/paypalgw"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/payments/stripegw"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/settlement"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/users"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/webhooks"
	paypalwebhook "github.com/mrdelgado-dev/bookbarn-backend/internal/webhooks/paypal"
	stripewebhook "github.com/mrdelgado-dev/bookbarn-backend/internal/webhooks/stripe"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/config"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/db"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/logger"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/metrics"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/migrate"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/paypalclient"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/redis"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/stripeclient"
)

const shutdownTimeout = 15 * time.Second

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

	stripeClient, err := stripeclient.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}
	paypalClient, err := paypalclient.NewClient(context.Background(), cfg.PayPal, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal client", err)
		os.Exit(1)
	}

	stripeGateway, err := stripegw.New(stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe gateway", err)
		os.Exit(1)
	}
	paypalGateway, err := paypalgw.New(paypalClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal gateway", err)
		os.Exit(1)
	}
	gateways := payments.NewRegistry(stripeGateway, paypalGateway)

	booksRepo := books.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())

	directory := notify.NewDirectory()
	dispatcher, err := notify.NewDispatcher(directory, usersRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	settlementMetrics := metrics.NewSettlementMetrics(promRegistry)

	currency, err := enums.ParseCurrency(cfg.Checkout.Currency)
	if err != nil {
		logg.Error(context.Background(), "invalid checkout currency", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(
		dbClient,
		booksRepo,
		cartRepo,
		ordersRepo,
		gateways,
		logg,
		settlement.Options{
			Notifier: dispatcher,
			Metrics:  settlementMetrics,
			Currency: currency,
			MinCents: cfg.Checkout.MinAmountCents,
		},
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	stripeWebhookService, err := stripewebhook.NewService(settlementService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}
	stripeWebhookGuard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Checkout.IdempotencyTTL, "stripe-webhooks")
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}
	paypalWebhookService, err := paypalwebhook.NewService(settlementService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal webhook service", err)
		os.Exit(1)
	}
	paypalWebhookGuard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Checkout.IdempotencyTTL, "paypal-webhooks")
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal webhook guard", err)
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
			Registry:           promRegistry,
			Settlement:         settlementService,
			CartRepo:           cartRepo,
			Directory:          directory,
			StripeClient:       stripeClient,
			StripeWebhookSvc:   stripeWebhookService,
			StripeWebhookGuard: stripeWebhookGuard,
			PayPalClient:       paypalClient,
			PayPalWebhookSvc:   paypalWebhookService,
			PayPalWebhookGuard: paypalWebhookGuard,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stop:
		logg.Info(ctx, "shutting down api server")
		directory.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
