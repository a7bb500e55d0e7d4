// Package notify — письма пользователям и алерты в Telegram.
//
// Письмо с кодом входа отправляется синхронно: его ошибка возвращается вызывающему.
// Алерты и письмо с ключом после оплаты — best-effort: ошибки только логируются
// и учитываются в метриках.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/lib/async"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
)

// Mailer отправляет HTML-письмо.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Messenger публикует текст в чат.
type Messenger interface {
	Send(ctx context.Context, text string) error
}

// Metrics учитывает сбои доставки.
type Metrics interface {
	NotificationFailed(channel string)
}

// Типы алертов.
const (
	AlertInvalidKey    = "invalid_key"
	AlertQuotaExceeded = "rate_limit"
	AlertServerError   = "server_error"
	AlertPayment       = "payment"
	AlertWebhookFailed = "webhook_failed"
)

// Alert — событие для дежурного чата.
type Alert struct {
	Type     string
	Key      string
	Endpoint string
	Status   int
	Details  string
}

// Notifier отправляет уведомления.
type Notifier struct {
	mailer       Mailer
	messenger    Messenger
	runner       *async.Runner
	alertTimeout time.Duration
	loginTTL     time.Duration
	metrics      Metrics
	log          *slog.Logger
	now          func() time.Time
}

// New создает Notifier. mailer и messenger могут быть nil: соответствующий канал отключён.
func New(mailer Mailer, messenger Messenger, runner *async.Runner, alertTimeout, loginTTL time.Duration,
	metrics Metrics, log *slog.Logger) *Notifier {
	if alertTimeout <= 0 {
		alertTimeout = 5 * time.Second
	}
	return &Notifier{
		mailer:       mailer,
		messenger:    messenger,
		runner:       runner,
		alertTimeout: alertTimeout,
		loginTTL:     loginTTL,
		metrics:      metrics,
		log:          log,
		now:          time.Now,
	}
}

func (n *Notifier) failed(channel string) {
	if n.metrics != nil {
		n.metrics.NotificationFailed(channel)
	}
}

// SendLoginCode отправляет одноразовый код входа. Сбой почты — apperr.ErrDownstreamUnavailable.
func (n *Notifier) SendLoginCode(ctx context.Context, email, token string) error {
	const op = "notify.SendLoginCode"
	if n.mailer == nil {
		return fmt.Errorf("%s: %w: mailer is not configured", op, apperr.ErrDownstreamUnavailable)
	}

	minutes := int(n.loginTTL.Minutes())
	if minutes <= 0 {
		minutes = 15
	}
	body := "<div><p>Ваш код входа:</p><h2>" + html.EscapeString(token) + "</h2>" +
		"<p>Код действует " + strconv.Itoa(minutes) + " минут.</p></div>"

	if err := n.mailer.Send(ctx, email, "Код входа GreenCore", body); err != nil {
		n.failed("email")
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrDownstreamUnavailable, err)
	}
	return nil
}

// SendAPIKey отправляет ключ, выпущенный после оплаты. Ошибка только логируется.
func (n *Notifier) SendAPIKey(ctx context.Context, email, apiKey, plan string) {
	const op = "notify.SendAPIKey"
	if n.mailer == nil {
		return
	}
	body := "<div><p>Спасибо за оплату тарифа <b>" + html.EscapeString(plan) + "</b>.</p>" +
		"<p>Ваш API-ключ:</p><h2>" + html.EscapeString(apiKey) + "</h2>" +
		"<p>Передавайте его в заголовке X-API-Key.</p></div>"

	if err := n.mailer.Send(ctx, email, "Ваш API-ключ GreenCore", body); err != nil {
		n.failed("email")
		n.log.Warn("failed to send api key email", slog.String("op", op), sl.Err(err))
	}
}

// markdownEscaper экранирует служебные символы legacy Markdown Telegram.
var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// Format собирает текст алерта в разметке Markdown. Подставляемые значения
// экранируются: "_" в типе или ключе иначе открывает курсив и Telegram отклоняет сообщение.
func (n *Notifier) Format(a Alert) string {
	dash := func(s string) string {
		if s == "" {
			return "-"
		}
		return markdownEscaper.Replace(s)
	}
	key := "-"
	if a.Key != "" {
		key = markdownEscaper.Replace(sl.Mask(a.Key))
	}
	status := "-"
	if a.Status != 0 {
		status = strconv.Itoa(a.Status)
	}

	var b strings.Builder
	b.WriteString("⚠️ *GreenCore API Alert*\n")
	b.WriteString("*Тип:* " + dash(a.Type) + "\n")
	b.WriteString("*Время:* " + n.now().Format("2006-01-02 15:04:05") + "\n")
	b.WriteString("*Ключ:* " + key + "\n")
	b.WriteString("*Endpoint:* " + dash(a.Endpoint) + "\n")
	b.WriteString("*Статус:* " + status + "\n")
	b.WriteString("*Детали:* " + dash(a.Details))
	return b.String()
}

// Alert отправляет алерт синхронно. Ошибка только логируется.
func (n *Notifier) Alert(ctx context.Context, a Alert) {
	const op = "notify.Alert"
	if n.messenger == nil {
		return
	}
	if err := n.messenger.Send(ctx, n.Format(a)); err != nil {
		n.failed("telegram")
		n.log.Warn("failed to send alert", slog.String("op", op), slog.String("type", a.Type), sl.Err(err))
	}
}

// AlertAsync отправляет алерт в фоне, не задерживая ответ клиенту.
func (n *Notifier) AlertAsync(a Alert) {
	if n.messenger == nil || n.runner == nil {
		return
	}
	n.runner.Go(n.alertTimeout, "alert:"+a.Type, func(ctx context.Context) error {
		n.Alert(ctx, a)
		return nil
	})
}
