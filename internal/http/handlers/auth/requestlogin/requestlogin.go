// Package requestlogin реализует первый шаг беспарольного входа: отправку кода на email.
//
// Ответ одинаков для любых адресов и никогда не содержит код.
package requestlogin

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
)

// Request — тело запроса.
type Request struct {
	Email string `json:"email" validate:"required,email" example:"user@example.com"`
}

// Response — подтверждение отправки.
type Response struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message" example:"login code sent"`
}

// Service описывает интерфейс запроса кода входа.
type Service interface {
	RequestLogin(ctx context.Context, email string) error
}

// Handler обрабатывает POST /auth/request-login.
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
// @Summary Запросить код входа
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Email"
// @Success 200 {object} Response
// @Failure 422 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse "Слишком частые запросы"
// @Failure 500 {object} response.ErrorResponse "Почтовый сервис недоступен"
// @Router /auth/request-login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.requestlogin"
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

	if err := h.service.RequestLogin(r.Context(), req.Email); err != nil {
		log.Error("failed to request login", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, Response{Status: "ok", Message: "login code sent"})
}
