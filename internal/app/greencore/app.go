// Package greencore собирает HTTP-приложение GreenCore API: хранилище,
// кеши, сервисы, шлюз допуска и маршруты.
package greencore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/greencore-api/internal/admission"
	"github.com/magabrotheeeer/greencore-api/internal/cache"
	"github.com/magabrotheeeer/greencore-api/internal/config"
	"github.com/magabrotheeeer/greencore-api/internal/filter"
	"github.com/magabrotheeeer/greencore-api/internal/lib/async"
	"github.com/magabrotheeeer/greencore-api/internal/lib/resend"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
	"github.com/magabrotheeeer/greencore-api/internal/lib/smtp"
	"github.com/magabrotheeeer/greencore-api/internal/lib/telegram"
	"github.com/magabrotheeeer/greencore-api/internal/metrics"
	"github.com/magabrotheeeer/greencore-api/internal/migrations"
	"github.com/magabrotheeeer/greencore-api/internal/models"
	"github.com/magabrotheeeer/greencore-api/internal/paymentprovider"
	"github.com/magabrotheeeer/greencore-api/internal/rabbitmq"
	"github.com/magabrotheeeer/greencore-api/internal/services/auth"
	"github.com/magabrotheeeer/greencore-api/internal/services/keys"
	"github.com/magabrotheeeer/greencore-api/internal/services/notify"
	"github.com/magabrotheeeer/greencore-api/internal/services/payment"
	"github.com/magabrotheeeer/greencore-api/internal/services/plans"
	"github.com/magabrotheeeer/greencore-api/internal/services/plants"
	"github.com/magabrotheeeer/greencore-api/internal/storage/repository"
)

const (
	shutdownTimeout  = 15 * time.Second
	throttleCapacity = 10000
)

// App — HTTP-сервер со всеми зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	amqp   *amqp.Connection
	runner *async.Runner
}

// New подключает зависимости, применяет миграции и собирает маршруты.
// Redis и RabbitMQ необязательны: без них лимиты выдачи ключей и кеш тарифов
// работают внутри процесса, а вебхуки обрабатываются в фоновой горутине.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "greencore.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{
		logger: logger,
		db:     db,
		runner: async.NewRunner(logger),
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	var (
		planCache plans.Cache
		throttle  keys.Throttle = keys.NewLocalThrottle(throttleCapacity, cfg.FreeKeyWindow)
	)
	if cfg.AddressRedis != "" {
		rc, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.cache = rc
		planCache = rc
		throttle = rc
	} else {
		logger.Warn("redis is not configured, using in-process cache and throttle")
	}

	notifier := notify.New(newMailer(cfg.Mail, logger), newMessenger(cfg.Telegram), app.runner,
		cfg.TelegramTimeout, cfg.LoginTokenTTL, m, logger)

	registry := plans.NewRegistry(db, planCache, cfg.PlanCacheSize, cfg.PlanCacheTTL, m, logger)
	keyService := keys.NewService(db, registry, throttle, models.FreePlan, cfg.FreeKeyWindow, m, logger)
	plantService := plants.NewService(db, filter.New(filter.DefaultTable), m, logger)
	authService := auth.NewService(db, notifier, cfg.LoginTokenTTL, cfg.DefaultPlan, m, logger)

	yooCfg := cfg.YooKassa
	if yooCfg.ReturnURL == "" {
		yooCfg.ReturnURL = cfg.BaseURL
	}
	if !cfg.PaymentsEnabled() {
		logger.Warn("yookassa is not configured, payment sessions will fail")
	}
	paymentService := payment.New(db, registry, paymentprovider.NewClient(yooCfg), notifier, m, logger)

	var dispatcher payment.Dispatcher = payment.NewInlineDispatcher(paymentService, app.runner, cfg.FulfillTimeout)
	if cfg.RabbitMQURL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.amqp = conn
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.PaymentsExchange, rabbitmq.PaymentQueues())
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		dispatcher = payment.NewQueueDispatcher(rabbitmq.NewPublisher(ch, rabbitmq.PaymentsExchange, rabbitmq.WebhookQueue))
		logger.Info("webhooks are dispatched to rabbitmq", slog.String("queue", rabbitmq.WebhookQueue.QueueName))
	}

	gate := admission.New(db, ExemptPaths, m)
	logger.Info("admission gate configured",
		slog.Any("stages", gate.Stages()),
		slog.Any("exempt", ExemptPaths),
	)

	router := chi.NewRouter()
	RegisterRoutes(router, Deps{
		Log:            logger,
		DB:             db,
		Gate:           gate,
		Alerter:        notifier,
		Metrics:        m,
		Plants:         plantService,
		Plans:          registry,
		Keys:           keyService,
		Payments:       paymentService,
		Dispatcher:     dispatcher,
		Auth:           authService,
		MasterKey:      cfg.MasterKey,
		WebhookSecret:  cfg.WebhookSecret,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

func newMailer(cfg config.Mail, logger *slog.Logger) notify.Mailer {
	switch {
	case cfg.ResendAPIKey != "":
		return resend.New(cfg)
	case cfg.SMTPHost != "":
		return smtp.NewMailer(smtp.NewTransport(cfg, logger), cfg.From, logger)
	default:
		logger.Warn("mail is not configured, login codes cannot be delivered")
		return nil
	}
}

func newMessenger(cfg config.Telegram) notify.Messenger {
	tg := telegram.New(cfg)
	if !tg.Enabled() {
		return nil
	}
	return tg
}

// Run запускает сервер и останавливает его при отмене ctx, дожидаясь фоновых задач.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if werr := a.runner.Wait(shutdownTimeout); werr != nil {
			a.logger.Warn("background tasks did not finish", sl.Err(werr))
		}
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.amqp != nil {
		_ = a.amqp.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	_ = a.db.Close()
}
