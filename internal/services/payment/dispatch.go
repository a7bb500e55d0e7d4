package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/lib/async"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
)

// WebhookJob — задание на обработку вебхука.
type WebhookJob struct {
	ID         string          `json:"id"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// NewWebhookJob упаковывает тело вебхука в задание.
func NewWebhookJob(payload []byte) WebhookJob {
	return WebhookJob{ID: uuid.NewString(), Payload: json.RawMessage(payload), ReceivedAt: time.Now().UTC()}
}

// Dispatcher доставляет задание обработчику после ответа ЮKassa.
type Dispatcher interface {
	Dispatch(ctx context.Context, job WebhookJob) error
}

// WebhookHandler — обработчик задания.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, payload []byte) error
}

// Publisher публикует сообщение в очередь.
type Publisher interface {
	Publish(ctx context.Context, message any) error
}

// QueueDispatcher отправляет задания в RabbitMQ; их обрабатывает payment-worker.
type QueueDispatcher struct {
	pub Publisher
}

// NewQueueDispatcher создает QueueDispatcher.
func NewQueueDispatcher(pub Publisher) *QueueDispatcher {
	return &QueueDispatcher{pub: pub}
}

// Dispatch публикует задание.
func (d *QueueDispatcher) Dispatch(ctx context.Context, job WebhookJob) error {
	if err := d.pub.Publish(ctx, job); err != nil {
		return fmt.Errorf("payment.QueueDispatcher: %w", err)
	}
	return nil
}

// InlineDispatcher обрабатывает задание в фоновой горутине того же процесса.
// Используется, когда RabbitMQ не настроен.
type InlineDispatcher struct {
	handler WebhookHandler
	runner  *async.Runner
	timeout time.Duration
}

// NewInlineDispatcher создает InlineDispatcher.
func NewInlineDispatcher(handler WebhookHandler, runner *async.Runner, timeout time.Duration) *InlineDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InlineDispatcher{handler: handler, runner: runner, timeout: timeout}
}

// Dispatch запускает обработку и сразу возвращает управление.
func (d *InlineDispatcher) Dispatch(_ context.Context, job WebhookJob) error {
	payload := []byte(job.Payload)
	d.runner.Go(d.timeout, "webhook:"+job.ID, func(ctx context.Context) error {
		return d.handler.HandleWebhook(ctx, payload)
	})
	return nil
}

// ConsumeJob — обработчик сообщений очереди для payment-worker.
func ConsumeJob(handler WebhookHandler, log *slog.Logger) func(context.Context, []byte) error {
	return func(ctx context.Context, body []byte) error {
		var job WebhookJob
		if err := json.Unmarshal(body, &job); err != nil {
			// повтор не поможет
			log.Error("invalid webhook job dropped", sl.Err(err))
			return nil
		}
		log.Debug("processing webhook job", slog.String("job_id", job.ID))
		err := handler.HandleWebhook(ctx, job.Payload)
		// Ошибки клиента повтором не исправить, остальные уходят на повторную доставку.
		if apperr.IsDomain(err) && apperr.Status(err) < http.StatusInternalServerError {
			log.Error("webhook job dropped", slog.String("job_id", job.ID), sl.Err(err))
			return nil
		}
		return err
	}
}
