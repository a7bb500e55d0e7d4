// Package read реализует HTTP-обработчик получения растения по ID.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/greencore-api/internal/http/response"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
	"github.com/magabrotheeeer/greencore-api/internal/models"
)

// Handler обрабатывает GET /plant/{id}.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис чтения справочника
}

// Service описывает интерфейс бизнес-логики чтения записи.
type Service interface {
	Get(ctx context.Context, id int64, grant models.Grant) (map[string]any, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Растение по ID
// @Tags Plants
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "ID растения"
// @Success 200 {object} map[string]any
// @Failure 404 {object} response.ErrorResponse "Plant not found"
// @Router /plant/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plants.read"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		log.Info("invalid plant id", slog.String("id", chi.URLParam(r, "id")))
		response.FailWith(w, r, apperr.ErrNotFound, "Plant not found")
		return
	}

	grant, _ := middlewarectx.GrantFromContext(r.Context())
	rec, err := h.service.Get(r.Context(), id, grant)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			response.FailWith(w, r, err, "Plant not found")
			return
		}
		log.Error("failed to read plant", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	render.JSON(w, r, rec)
}
