// Package search реализует HTTP-обработчик поиска по справочнику растений.
//
// Параметры запроса переводятся в фильтр, размер страницы ограничивается
// тарифом ключа, поля записей — разрешёнными полями тарифа.
package search

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/greencore-api/internal/filter"
	"github.com/magabrotheeeer/greencore-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/greencore-api/internal/http/response"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
	"github.com/magabrotheeeer/greencore-api/internal/models"
	"github.com/magabrotheeeer/greencore-api/internal/services/plants"
)

// Service описывает интерфейс бизнес-логики поиска.
type Service interface {
	Search(ctx context.Context, p filter.Params, grant models.Grant) (*plants.SearchResult, error)
}

// Handler обрабатывает GET /plants.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Поиск растений
// @Description Фильтры: view (+search_field), light, toxicity, placement, zone_usda, temperature, beginner_friendly. Набор доступных фильтров и полей зависит от тарифа.
// @Tags Plants
// @Produce json
// @Security ApiKeyAuth
// @Param view query string false "Название (подстрока)"
// @Param search_field query string false "Поле поиска: view или cultivar"
// @Param light query string false "Освещение: тень, полутень, яркий"
// @Param toxicity query string false "Токсичность"
// @Param placement query string false "indoor или outdoor"
// @Param zone_usda query int false "Зона морозостойкости USDA"
// @Param temperature query string false "Температурный диапазон"
// @Param beginner_friendly query bool false "Подходит новичкам"
// @Param sort query string false "id или random"
// @Param limit query int false "Размер страницы (1-100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} plants.SearchResult
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Router /plants [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plants.search"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	grant, _ := middlewarectx.GrantFromContext(r.Context())
	res, err := h.service.Search(r.Context(), filter.ParseParams(r.URL.Query()), grant)
	if err != nil {
		log.Error("failed to search plants", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Debug("plants found", slog.Int("count", res.Count))
	render.JSON(w, r, res)
}
