package greencore

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/greencore-api/internal/http/handlers/auth/requestlogin"
	"github.com/magabrotheeeer/greencore-api/internal/http/handlers/auth/verify"
	"github.com/magabrotheeeer/greencore-api/internal/http/handlers/health"
	"github.com/magabrotheeeer/greencore-api/internal/http/handlers/keys/claim"
	"github.com/magabrotheeeer/greencore-api/internal/http/handlers/keys/generate"
	"github.com/magabrotheeeer/greencore-api/internal/http/handlers/payment/latest"
	"github.com/magabrotheeeer/greencore-api/internal/http/handlers/payment/session"
	"github.com/magabrotheeeer/greencore-api/internal/http/handlers/payment/webhook"
	"github.com/magabrotheeeer/greencore-api/internal/http/handlers/plans/list"
	"github.com/magabrotheeeer/greencore-api/internal/http/handlers/plants/read"
	"github.com/magabrotheeeer/greencore-api/internal/http/handlers/plants/search"
	"github.com/magabrotheeeer/greencore-api/internal/http/handlers/plants/stats"
	"github.com/magabrotheeeer/greencore-api/internal/http/middlewarectx"
)

// ExemptPaths — маршруты, доступные без API-ключа.
var ExemptPaths = []string{
	"/health",
	"/plans",
	"/create_user_key",
	"/generate_key",
	"/api/payment/*",
	"/api/payments/*",
	"/auth/*",
	"/metrics",
	"/docs/*",
}

// PlantService — справочник растений.
type PlantService interface {
	search.Service
	read.Service
	stats.Service
}

// KeyService — выдача ключей.
type KeyService interface {
	generate.Service
	claim.Service
}

// PaymentService — платежи.
type PaymentService interface {
	session.Service
	latest.Service
}

// AuthService — беспарольный вход.
type AuthService interface {
	requestlogin.Service
	verify.Service
}

// Deps — зависимости маршрутов.
type Deps struct {
	Log            *slog.Logger
	DB             health.Pinger
	Gate           middlewarectx.Gate
	Alerter        middlewarectx.Alerter
	Metrics        middlewarectx.RequestMetrics
	Plants         PlantService
	Plans          list.Service
	Keys           KeyService
	Payments       PaymentService
	Dispatcher     webhook.Dispatcher
	Auth           AuthService
	MasterKey      string
	WebhookSecret  string
	AllowedOrigins []string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d Deps) {
	logger := d.Log

	// Recoverer стоит внутри Admission: паника превращается в 500 и резерв лимита освобождается.
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middlewarectx.Observe(d.Metrics, d.Alerter, logger),
		middlewarectx.CORS(d.AllowedOrigins),
		middlewarectx.Admission(d.Gate, d.Alerter, logger),
		middleware.Recoverer,
	)

	r.Get("/health", health.New(logger, d.DB).ServeHTTP)
	r.Get("/plans", list.New(logger, d.Plans).ServeHTTP)

	r.Get("/plants", search.New(logger, d.Plants).ServeHTTP)
	r.Get("/plant/{id}", read.New(logger, d.Plants).ServeHTTP)
	r.Get("/stats", stats.New(logger, d.Plants).ServeHTTP)

	r.With(middlewarectx.MasterKey(d.MasterKey, logger)).
		Post("/generate_key", generate.New(logger, d.Keys).ServeHTTP)
	r.Post("/create_user_key", claim.New(logger, d.Keys).ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Post("/payment/session", session.New(logger, d.Payments).ServeHTTP)
		r.Post("/payment/webhook", webhook.New(logger, d.Dispatcher, d.WebhookSecret).ServeHTTP)
		r.Get("/payments/latest", latest.New(logger, d.Payments).ServeHTTP)
	})

	r.Route("/auth", func(r chi.Router) {
		limiter := middlewarectx.NewIPRateLimiter(20*time.Second, 3)
		r.With(middlewarectx.RateLimitMiddleware(limiter, logger)).
			Post("/request-login", requestlogin.New(logger, d.Auth).ServeHTTP)
		r.Post("/verify", verify.New(logger, d.Auth).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"not found"}`))
	})
}
