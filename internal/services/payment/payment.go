// Package payment — оплата тарифов через ЮKassa: создание платежа,
// идемпотентная обработка вебхука и выдача ключа после успешной оплаты.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/lib/keygen"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
	"github.com/magabrotheeeer/greencore-api/internal/models"
	"github.com/magabrotheeeer/greencore-api/internal/paymentprovider"
	"github.com/magabrotheeeer/greencore-api/internal/services/notify"
)

// Repository — хранилище платежей.
type Repository interface {
	CreatePendingPayment(ctx context.Context, p models.PendingPayment) error
	FulfillPayment(ctx context.Context, paymentID, status, token string, now time.Time) (models.Fulfillment, error)
	LatestPaidByEmail(ctx context.Context, email string) (*models.PendingPayment, error)
}

// PlanLookup — справочник тарифов.
type PlanLookup interface {
	Lookup(ctx context.Context, name string) (*models.Plan, error)
}

// Provider — платёжный провайдер.
type Provider interface {
	CreatePayment(ctx context.Context, req paymentprovider.CreatePaymentRequest, idempotenceKey string) (*paymentprovider.Payment, error)
	ReturnURL() string
}

// Notifier — best-effort уведомления после выдачи ключа.
type Notifier interface {
	SendAPIKey(ctx context.Context, email, apiKey, plan string)
	Alert(ctx context.Context, a notify.Alert)
}

// Metrics учитывает исходы вебхуков и выданные ключи.
type Metrics interface {
	Webhook(outcome string)
	KeyIssued(source string)
}

// Service реализует сценарий оплаты.
type Service struct {
	repo     Repository
	plans    PlanLookup
	provider Provider
	notifier Notifier
	metrics  Metrics
	log      *slog.Logger
	now      func() time.Time
}

// New создает новый экземпляр Service.
func New(repo Repository, plans PlanLookup, provider Provider, notifier Notifier, metrics Metrics, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		plans:    plans,
		provider: provider,
		notifier: notifier,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

// CreateSession создаёт платёж на тариф и сохраняет его в статусе pending.
// Бесплатный тариф оплатить нельзя (apperr.ErrUnsupportedPlan).
func (s *Service) CreateSession(ctx context.Context, planName, email string) (*models.PaymentSession, error) {
	const op = "payment.CreateSession"
	email = strings.ToLower(strings.TrimSpace(email))

	plan, err := s.plans.Lookup(ctx, planName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if plan.IsFree() {
		return nil, fmt.Errorf("%s: %w: %s", op, apperr.ErrUnsupportedPlan, plan.Name)
	}

	req := paymentprovider.CreatePaymentRequest{
		Amount:  paymentprovider.Amount{Value: paymentprovider.FormatRub(plan.Price), Currency: "RUB"},
		Capture: true,
		Confirmation: paymentprovider.Confirmation{
			Type:      "redirect",
			ReturnURL: s.provider.ReturnURL(),
		},
		Description: "GreenCore API: тариф " + plan.Name,
		Metadata:    map[string]string{"plan": plan.Name, "email": email},
	}

	payment, err := s.provider.CreatePayment(ctx, req, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pending := models.PendingPayment{
		PaymentID: payment.ID,
		PlanName:  plan.Name,
		Email:     email,
		Amount:    plan.Price,
		Status:    models.PaymentPending,
	}
	if err := s.repo.CreatePendingPayment(ctx, pending); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	session := &models.PaymentSession{PaymentID: payment.ID}
	if payment.Confirmation != nil {
		session.ConfirmationURL = payment.Confirmation.ConfirmationURL
	}
	s.log.Info("payment session created",
		slog.String("op", op), slog.String("payment_id", payment.ID), slog.String("plan", plan.Name))
	return session, nil
}

// ParseNotification разбирает тело вебхука. Без object.id — apperr.ErrMalformedPayload.
func ParseNotification(payload []byte) (*paymentprovider.Notification, error) {
	var n paymentprovider.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrMalformedPayload, err)
	}
	if strings.TrimSpace(n.Object.ID) == "" {
		return nil, fmt.Errorf("%w: missing object.id", apperr.ErrMalformedPayload)
	}
	if n.Object.Status == "" {
		// payment.succeeded → succeeded
		if _, status, ok := strings.Cut(n.Event, "."); ok {
			n.Object.Status = status
		}
	}
	return &n, nil
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.Webhook(outcome)
	}
}

// HandleWebhook применяет уведомление ЮKassa. Повторная доставка того же
// уведомления ничего не меняет: ключ выпускается не более одного раза на платёж.
// Неизвестные платежи игнорируются.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte) error {
	const op = "payment.HandleWebhook"
	log := s.log.With(slog.String("op", op))

	n, err := ParseNotification(payload)
	if err != nil {
		s.observe("malformed")
		return fmt.Errorf("%s: %w", op, err)
	}
	log = log.With(slog.String("payment_id", n.Object.ID), slog.String("status", n.Object.Status))

	token, err := keygen.APIKey()
	if err != nil {
		s.observe("error")
		s.alertFailure(ctx, n.Object.ID, err)
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.repo.FulfillPayment(ctx, n.Object.ID, n.Object.Status, token, s.now().UTC())
	if err != nil {
		s.observe("error")
		log.Error("failed to fulfill payment", sl.Err(err))
		s.alertFailure(ctx, n.Object.ID, err)
		return fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case !res.Found:
		s.observe("unknown")
		log.Warn("webhook for unknown payment ignored")
		return nil
	case !res.Issued:
		s.observe("noop")
		log.Info("webhook applied without key issuance")
		return nil
	}

	s.observe("issued")
	if s.metrics != nil {
		s.metrics.KeyIssued("payment")
	}
	log.Info("api key issued after payment", slog.String("plan", res.PlanName), sl.Key(res.APIKey))

	if s.notifier != nil {
		s.notifier.SendAPIKey(ctx, res.Email, res.APIKey, res.PlanName)
		s.notifier.Alert(ctx, notify.Alert{
			Type:     notify.AlertPayment,
			Key:      res.APIKey,
			Endpoint: "/api/payment/webhook",
			Details:  fmt.Sprintf("оплачен тариф %s, платёж %s", res.PlanName, res.PaymentID),
		})
	}
	return nil
}

// alertFailure сообщает дежурным о вебхуке, который не удалось применить.
// Контекст задания мог истечь, поэтому алерт отправляется без его отмены.
func (s *Service) alertFailure(ctx context.Context, paymentID string, err error) {
	if s.notifier == nil {
		return
	}
	s.notifier.Alert(context.WithoutCancel(ctx), notify.Alert{
		Type:     notify.AlertWebhookFailed,
		Endpoint: "/api/payment/webhook",
		Details:  fmt.Sprintf("платёж %s: %v", paymentID, err),
	})
}

// Latest возвращает последний оплаченный платёж с выданным ключом.
func (s *Service) Latest(ctx context.Context, email string) (*models.PendingPayment, error) {
	const op = "payment.Latest"
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%s: %w: email is required", op, apperr.ErrValidation)
	}
	p, err := s.repo.LatestPaidByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
