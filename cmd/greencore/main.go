// Package main GreenCore API
//
// @title           GreenCore API
// @version         1.0
// @description     Справочник растений с доступом по API-ключам, тарифами и оплатой через ЮKassa.

// @contact.name   GreenCore Support
// @contact.email  support@greencore-api.ru

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API-ключ, выданный через /create_user_key, /auth/verify или после оплаты.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	_ "github.com/magabrotheeeer/greencore-api/docs"
	"github.com/magabrotheeeer/greencore-api/internal/app/greencore"
	"github.com/magabrotheeeer/greencore-api/internal/config"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

func main() {
	// .env необязателен.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	logger.Info("starting greencore-api", slog.String("env", cfg.Env))
	logger.Debug("debug messages are enabled")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := greencore.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("greencore-api stopped gracefully")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
