// Package webhook принимает уведомления ЮKassa о статусе платежа.
//
// Handler проверяет подпись (если задан секрет), отклоняет уведомления без
// object.id и передаёт тело в Dispatcher. Ответ 200 отдаётся сразу, выдача
// ключа выполняется асинхронно.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/http/response"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
	"github.com/magabrotheeeer/greencore-api/internal/services/payment"
)

// SignatureHeader — заголовок с HMAC-SHA256 подписью тела.
const SignatureHeader = "X-Api-Signature"

const maxBodySize = 1 << 20

// Dispatcher передаёт задание на обработку.
type Dispatcher interface {
	Dispatch(ctx context.Context, job payment.WebhookJob) error
}

// Handler обрабатывает POST /api/payment/webhook.
type Handler struct {
	log        *slog.Logger
	dispatcher Dispatcher
	secret     string
}

// New создает новый Handler. Пустой secret отключает проверку подписи.
func New(log *slog.Logger, dispatcher Dispatcher, secret string) *Handler {
	return &Handler{log: log, dispatcher: dispatcher, secret: secret}
}

// ServeHTTP godoc
// @Summary Вебхук ЮKassa
// @Tags Payments
// @Accept json
// @Produce json
// @Param X-Api-Signature header string false "base64(HMAC-SHA256(body))"
// @Success 200 {object} response.StatusResponse
// @Failure 400 {object} response.ErrorResponse "Нет object.id"
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Router /api/payment/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read body", sl.Err(err))
		response.FailWith(w, r, apperr.ErrMalformedPayload, "invalid request body")
		return
	}

	if h.secret != "" && !verifySignature(body, r.Header.Get(SignatureHeader), h.secret) {
		log.Warn("invalid webhook signature")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	n, err := payment.ParseNotification(body)
	if err != nil {
		log.Warn("malformed webhook", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	job := payment.NewWebhookJob(body)
	if err := h.dispatcher.Dispatch(r.Context(), job); err != nil {
		// 500 заставит ЮKassa повторить доставку.
		log.Error("failed to dispatch webhook", slog.String("payment_id", n.Object.ID), sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("webhook accepted",
		slog.String("payment_id", n.Object.ID),
		slog.String("event", n.Event),
		slog.String("job_id", job.ID))
	render.JSON(w, r, response.OK())
}

func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
