// Package health — проверка живости сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/greencore-api/internal/http/response"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
)

// Pinger проверяет доступность зависимости.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler отвечает {"status":"ok"}, если база данных доступна.
type Handler struct {
	log *slog.Logger
	db  Pinger
}

// New создаёт Handler. db может быть nil — тогда проверяется только процесс.
func New(log *slog.Logger, db Pinger) *Handler {
	return &Handler{log: log, db: db}
}

// ServeHTTP godoc
// @Summary Проверка живости
// @Tags System
// @Produce json
// @Success 200 {object} response.StatusResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.log.Error("database is unavailable",
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("database unavailable"))
			return
		}
	}
	render.JSON(w, r, response.OK())
}
