// Package stats реализует HTTP-обработчик агрегированной статистики справочника.
package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/greencore-api/internal/http/response"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
	"github.com/magabrotheeeer/greencore-api/internal/models"
)

// Service описывает интерфейс бизнес-логики статистики.
type Service interface {
	Stats(ctx context.Context) (*models.PlantStats, error)
}

// Handler обрабатывает GET /stats.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Статистика справочника
// @Tags Plants
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} models.PlantStats
// @Router /stats [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plants.stats"

	res, err := h.service.Stats(r.Context())
	if err != nil {
		h.log.Error("failed to count stats",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, res)
}
