// Package main — обработчик заданий вебхуков ЮKassa из очереди payments.webhook.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/greencore-api/internal/cache"
	"github.com/magabrotheeeer/greencore-api/internal/config"
	"github.com/magabrotheeeer/greencore-api/internal/lib/async"
	"github.com/magabrotheeeer/greencore-api/internal/lib/resend"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
	"github.com/magabrotheeeer/greencore-api/internal/lib/smtp"
	"github.com/magabrotheeeer/greencore-api/internal/lib/telegram"
	"github.com/magabrotheeeer/greencore-api/internal/metrics"
	"github.com/magabrotheeeer/greencore-api/internal/paymentprovider"
	"github.com/magabrotheeeer/greencore-api/internal/rabbitmq"
	"github.com/magabrotheeeer/greencore-api/internal/services/notify"
	"github.com/magabrotheeeer/greencore-api/internal/services/payment"
	"github.com/magabrotheeeer/greencore-api/internal/services/plans"
	"github.com/magabrotheeeer/greencore-api/internal/storage/repository"
)

const parallelJobs = 4

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if cfg.Env != "local" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	logger.Info("starting payment-worker", slog.String("env", cfg.Env))

	if cfg.RabbitMQURL == "" {
		logger.Error("RABBITMQ_URL is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect to database", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := repository.CheckDatabaseReady(ctx, db); err != nil {
		logger.Error("database is not migrated", sl.Err(err))
		os.Exit(1)
	}

	var planCache plans.Cache
	if cfg.AddressRedis != "" {
		rc, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			logger.Error("failed to connect to redis", sl.Err(err))
			os.Exit(1)
		}
		defer func() {
			_ = rc.Close()
		}()
		planCache = rc
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	runner := async.NewRunner(logger)

	var mailer notify.Mailer
	switch {
	case cfg.ResendAPIKey != "":
		mailer = resend.New(cfg.Mail)
	case cfg.SMTPHost != "":
		mailer = smtp.NewMailer(smtp.NewTransport(cfg.Mail, logger), cfg.From, logger)
	}
	var messenger notify.Messenger
	if tg := telegram.New(cfg.Telegram); tg.Enabled() {
		messenger = tg
	}
	notifier := notify.New(mailer, messenger, runner, cfg.TelegramTimeout, cfg.LoginTokenTTL, m, logger)

	registry := plans.NewRegistry(db, planCache, cfg.PlanCacheSize, cfg.PlanCacheTTL, m, logger)
	service := payment.New(db, registry, paymentprovider.NewClient(cfg.YooKassa), notifier, m, logger)

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = conn.Close()
	}()

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.PaymentsExchange, rabbitmq.PaymentQueues())
	if err != nil {
		logger.Error("failed to setup RabbitMQ channel", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = ch.Close()
	}()

	err = rabbitmq.ConsumerMessage(ctx, logger, ch, rabbitmq.WebhookQueue.QueueName, parallelJobs,
		payment.ConsumeJob(service, logger))
	if err != nil {
		logger.Error("failed to start consumer", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("consuming webhook jobs", slog.String("queue", rabbitmq.WebhookQueue.QueueName))

	<-ctx.Done()
	logger.Info("payment-worker shutting down gracefully")
	if err := runner.Wait(15 * time.Second); err != nil {
		logger.Warn("background tasks did not finish", sl.Err(err))
	}
}
