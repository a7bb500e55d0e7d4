// Package claim реализует самостоятельное получение бесплатного ключа по email.
package claim

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/greencore-api/internal/http/response"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
	"github.com/magabrotheeeer/greencore-api/internal/models"
)

// Request — тело запроса.
type Request struct {
	Email string `json:"email" validate:"required,email" example:"user@example.com"`
}

// Service описывает интерфейс выдачи бесплатного ключа.
type Service interface {
	ClaimFreeKey(ctx context.Context, email string) (*models.IssuedKey, error)
}

// Handler обрабатывает POST /create_user_key.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Бесплатный ключ
// @Description Не более одного ключа на email за 24 часа.
// @Tags Keys
// @Accept json
// @Produce json
// @Param request body Request true "Email владельца"
// @Success 200 {object} models.IssuedKey
// @Failure 422 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse "Повторная выдача запрещена"
// @Router /create_user_key [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.keys.claim"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Invalid(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	issued, err := h.service.ClaimFreeKey(r.Context(), req.Email)
	if err != nil {
		log.Warn("free key refused", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, issued)
}
