// Package verify реализует второй шаг беспарольного входа: обмен кода на API-ключ.
package verify

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
	Token string `json:"token" validate:"required"`
}

// Response — результат входа.
type Response struct {
	Status string `json:"status" example:"ok"`
	UserID int64  `json:"user_id" example:"1"`
	APIKey string `json:"api_key"`
}

// Service описывает интерфейс проверки кода.
type Service interface {
	Verify(ctx context.Context, token string) (models.LoginResult, error)
}

// Handler обрабатывает POST /auth/verify.
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
// @Summary Подтвердить вход
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Одноразовый код"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "invalid_or_expired_token"
// @Failure 422 {object} response.ErrorResponse
// @Router /auth/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verify"
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

	res, err := h.service.Verify(r.Context(), req.Token)
	if err != nil {
		log.Info("login verification failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, Response{Status: "ok", UserID: res.UserID, APIKey: res.APIKey})
}
