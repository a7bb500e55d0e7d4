// Package metrics — Prometheus-метрики GreenCore API.
//
// Все методы безопасны для вызова на nil *Metrics, поэтому компоненты
// можно собирать без метрик (например, в тестах).
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "greencore"

// Metrics хранит коллекторы сервиса.
type Metrics struct {
	admissionTotal  *prometheus.CounterVec
	usageTotal      *prometheus.CounterVec
	filterTotal     *prometheus.CounterVec
	webhookTotal    *prometheus.CounterVec
	alertFailures   *prometheus.CounterVec
	planLookupTotal *prometheus.CounterVec
	keysIssuedTotal *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New регистрирует коллекторы в reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		admissionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_decisions_total",
			Help:      "Admission gate decisions by outcome.",
		}, []string{"outcome"}),

		usageTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_operations_total",
			Help:      "Quota reservations and releases.",
		}, []string{"operation"}),

		filterTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plant_filters_total",
			Help:      "Plant search filters applied, by filter name.",
		}, []string{"filter"}),

		webhookTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhooks_total",
			Help:      "Processed payment webhooks by outcome.",
		}, []string{"outcome"}),

		alertFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Best-effort notification delivery failures.",
		}, []string{"channel"}),

		planLookupTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_lookups_total",
			Help:      "Plan registry lookups by serving tier.",
		}, []string{"tier"}),

		keysIssuedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_keys_issued_total",
			Help:      "API keys issued by source.",
		}, []string{"source"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// Admission учитывает решение шлюза допуска.
func (m *Metrics) Admission(outcome string) {
	if m == nil {
		return
	}
	m.admissionTotal.WithLabelValues(outcome).Inc()
}

// Usage учитывает списание (reserve) или возврат (release) лимита.
func (m *Metrics) Usage(operation string) {
	if m == nil {
		return
	}
	m.usageTotal.WithLabelValues(operation).Inc()
}

// Filters учитывает применённые фильтры поиска.
func (m *Metrics) Filters(names []string) {
	if m == nil {
		return
	}
	for _, n := range names {
		m.filterTotal.WithLabelValues(n).Inc()
	}
}

// Webhook учитывает результат обработки вебхука.
func (m *Metrics) Webhook(outcome string) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(outcome).Inc()
}

// NotificationFailed учитывает неудачную отправку письма или алерта.
func (m *Metrics) NotificationFailed(channel string) {
	if m == nil {
		return
	}
	m.alertFailures.WithLabelValues(channel).Inc()
}

// PlanLookup учитывает, какой уровень справочника тарифов ответил.
func (m *Metrics) PlanLookup(tier string) {
	if m == nil {
		return
	}
	m.planLookupTotal.WithLabelValues(tier).Inc()
}

// KeyIssued учитывает выпуск ключа.
func (m *Metrics) KeyIssued(source string) {
	if m == nil {
		return
	}
	m.keysIssuedTotal.WithLabelValues(source).Inc()
}

// ObserveRequest записывает длительность запроса.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}
