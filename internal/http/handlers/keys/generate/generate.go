// Package generate реализует административную выдачу API-ключей.
//
// Маршрут защищён мастер-ключом (middlewarectx.MasterKey). Handler принимает
// владельца, тариф и необязательные срок действия и потолок страницы,
// и возвращает выпущенный ключ.
package generate

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
	"github.com/magabrotheeeer/greencore-api/internal/services/keys"
)

// Request — тело запроса на выдачу ключа.
type Request struct {
	Owner         string `json:"owner" validate:"required" example:"partner@example.com"`
	Plan          string `json:"plan" validate:"required" example:"premium"`
	ExpiresInDays *int   `json:"expires_in_days,omitempty" validate:"omitempty,gte=1" example:"30"`
	MaxPageSize   *int   `json:"max_page_size,omitempty" validate:"omitempty,gte=1,lte=100" example:"50"`
}

// Service описывает интерфейс выдачи ключей.
type Service interface {
	GenerateKey(ctx context.Context, req keys.GenerateRequest) (*models.IssuedKey, error)
}

// Handler обрабатывает POST /generate_key.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис выдачи ключей
	validate *validator.Validate // Валидатор тела запроса
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Выдать API-ключ
// @Description Административная выдача ключа. Требует мастер-ключ в заголовке X-API-Key.
// @Tags Keys
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body Request true "Владелец и тариф"
// @Success 200 {object} models.IssuedKey
// @Failure 400 {object} response.ErrorResponse "Неизвестный тариф"
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /generate_key [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.keys.generate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Info("failed to decode request", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	issued, err := h.service.GenerateKey(r.Context(), keys.GenerateRequest{
		Owner:         req.Owner,
		Plan:          req.Plan,
		ExpiresInDays: req.ExpiresInDays,
		MaxPageSize:   req.MaxPageSize,
	})
	if err != nil {
		log.Error("failed to generate key", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("key generated", slog.String("owner", issued.Owner), slog.String("plan", issued.Plan))
	render.JSON(w, r, issued)
}
