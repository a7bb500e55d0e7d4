package middlewarectx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/greencore-api/internal/services/notify"
)

// RequestMetrics — гистограмма длительности запросов.
type RequestMetrics interface {
	ObserveRequest(route string, status int, d time.Duration)
}

// Observe пишет access-лог, метрику длительности и шлёт алерт на ответы 5xx.
func Observe(metrics RequestMetrics, alerter Alerter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			if metrics != nil {
				metrics.ObserveRequest(route, status, elapsed)
			}

			log.Info("request completed",
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", elapsed),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			if status >= http.StatusInternalServerError && alerter != nil {
				alerter.AlertAsync(notify.Alert{
					Type:     notify.AlertServerError,
					Key:      r.Header.Get(CredentialHeader),
					Endpoint: r.Method + " " + r.URL.Path,
					Status:   status,
					Details:  "request_id " + middleware.GetReqID(r.Context()),
				})
			}
		})
	}
}
