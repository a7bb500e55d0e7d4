// Package list реализует HTTP-обработчик публичного списка тарифов.
package list

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

// Service описывает интерфейс справочника тарифов.
type Service interface {
	List(ctx context.Context) ([]models.Plan, error)
}

// Handler обрабатывает GET /plans.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Тарифы
// @Tags Plans
// @Produce json
// @Success 200 {array} models.Plan
// @Router /plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plans.list"

	plans, err := h.service.List(r.Context())
	if err != nil {
		h.log.Error("failed to list plans",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, plans)
}
