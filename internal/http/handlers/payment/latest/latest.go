// Package latest возвращает последний оплаченный платёж по email.
package latest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/greencore-api/internal/http/response"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
	"github.com/magabrotheeeer/greencore-api/internal/models"
)

// Response — тело ответа.
type Response struct {
	Email  string     `json:"email"`
	Plan   string     `json:"plan"`
	APIKey string     `json:"api_key"`
	PaidAt *time.Time `json:"paid_at"`
}

// Service описывает интерфейс поиска платежа.
type Service interface {
	Latest(ctx context.Context, email string) (*models.PendingPayment, error)
}

// Handler обрабатывает GET /api/payments/latest.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Последний оплаченный ключ
// @Tags Payments
// @Produce json
// @Param email query string true "Email плательщика"
// @Success 200 {object} Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/payments/latest [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.latest"

	p, err := h.service.Latest(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.log.Info("latest payment not served",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	resp := Response{Email: p.Email, Plan: p.PlanName, PaidAt: p.PaidAt}
	if p.APIKey != nil {
		resp.APIKey = *p.APIKey
	}
	render.JSON(w, r, resp)
}
