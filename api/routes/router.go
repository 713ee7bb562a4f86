package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrdelgado-dev/bookbarn-backend/api/controllers"
	webhookcontrollers "github.com/mrdelgado-dev/bookbarn-backend/api/controllers/webhooks"
	"github.com/mrdelgado-dev/bookbarn-backend/api/middleware"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/cart"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/notify"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/settlement"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/webhooks"
	paypalwebhook "github.com/mrdelgado-dev/bookbarn-backend/internal/webhooks/paypal"
	stripewebhook "github.com/mrdelgado-dev/bookbarn-backend/internal/webhooks/stripe"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/config"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/db"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/logger"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/paypalclient"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/stripeclient"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Registry prometheus.Gatherer

	Settlement settlement.Service
	CartRepo   cart.Repository
	Directory  *notify.Directory

	StripeClient       *stripeclient.Client
	StripeWebhookSvc   *stripewebhook.Service
	StripeWebhookGuard *webhooks.IdempotencyGuard
	PayPalClient       *paypalclient.Client
	PayPalWebhookSvc   *paypalwebhook.Service
	PayPalWebhookGuard *webhooks.IdempotencyGuard
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
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhookSvc, deps.StripeClient, deps.StripeWebhookGuard, logg))
		r.Post("/paypal", webhookcontrollers.PayPalWebhook(deps.PayPalWebhookSvc, deps.PayPalClient, deps.PayPalWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(deps.CartRepo, logg))
			r.Post("/items", controllers.AddCartItem(deps.CartRepo, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/charges", controllers.CreateCharge(deps.Settlement, logg))
			r.Post("/charges/confirm", controllers.ConfirmCharge(deps.Settlement, logg))
		})

		r.Get("/orders/{id}", controllers.GetOrder(deps.Settlement, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Get("/ws", controllers.NotificationsSocket(deps.Directory, logg))
		})
	})

	return r
}
