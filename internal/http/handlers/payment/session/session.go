// Package session реализует создание платежа в ЮKassa для платного тарифа.
package session

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

// Request — тело запроса на оплату.
type Request struct {
	Plan  string `json:"plan" validate:"required" example:"premium"`
	Email string `json:"email" validate:"required,email" example:"user@example.com"`
}

// Service описывает интерфейс создания платежа.
type Service interface {
	CreateSession(ctx context.Context, planName, email string) (*models.PaymentSession, error)
}

// Handler обрабатывает POST /api/payment/session.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис платежей
	validate *validator.Validate // Валидатор тела запроса
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
// @Summary Создать платёж
// @Description Создаёт платёж в ЮKassa и возвращает ссылку на страницу оплаты.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body Request true "Тариф и email"
// @Success 200 {object} models.PaymentSession
// @Failure 400 {object} response.ErrorResponse "Неизвестный или бесплатный тариф"
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse "Платёжный сервис недоступен"
// @Router /api/payment/session [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.session"
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
		response.Invalid(w, r, err)
		return
	}

	sess, err := h.service.CreateSession(r.Context(), req.Plan, req.Email)
	if err != nil {
		log.Error("failed to create payment session", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("payment session created", slog.String("payment_id", sess.PaymentID))
	render.JSON(w, r, sess)
}
