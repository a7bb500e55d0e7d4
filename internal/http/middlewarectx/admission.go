// Package middlewarectx содержит HTTP middleware сервиса: шлюз допуска по API-ключу,
// проверку мастер-ключа, ограничение частоты по IP, CORS и наблюдаемость.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/greencore-api/internal/admission"
	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/http/response"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
	"github.com/magabrotheeeer/greencore-api/internal/models"
	"github.com/magabrotheeeer/greencore-api/internal/services/notify"
)

// CredentialHeader — заголовок с API-ключом (и мастер-ключом для /generate_key).
const CredentialHeader = "X-API-Key"

// Key тип для ключей контекста HTTP-запроса.
type Key string

// GrantKey — ключ прав допущенного запроса в контексте.
const GrantKey Key = "grant"

// WithGrant кладёт права запроса в контекст.
func WithGrant(ctx context.Context, g models.Grant) context.Context {
	return context.WithValue(ctx, GrantKey, g)
}

// GrantFromContext достаёт права запроса. Для путей без ключа ok=false.
func GrantFromContext(ctx context.Context) (models.Grant, bool) {
	g, ok := ctx.Value(GrantKey).(models.Grant)
	return g, ok
}

// Gate — шлюз допуска.
type Gate interface {
	Admit(ctx context.Context, req admission.Request) (*admission.Decision, error)
	Settle(ctx context.Context, d *admission.Decision, status int) error
}

// Alerter отправляет алерты в фоне.
type Alerter interface {
	AlertAsync(a notify.Alert)
}

// Admission пропускает запрос через шлюз, выполняет его и завершает учёт лимита
// по статусу ответа.
func Admission(gate Gate, alerter Alerter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Admission"
			credential := r.Header.Get(CredentialHeader)
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			decision, err := gate.Admit(r.Context(), admission.Request{
				Path:       r.URL.Path,
				Credential: credential,
				Query:      r.URL.Query(),
			})
			if err != nil {
				status := apperr.Status(err)
				if status >= http.StatusInternalServerError {
					log.Error("admission failed", sl.Err(err))
				} else {
					log.Info("request rejected", slog.String("path", r.URL.Path), sl.Key(credential), sl.Err(err))
				}
				if alerter != nil {
					switch {
					case errors.Is(err, apperr.ErrInvalidCredential):
						alerter.AlertAsync(notify.Alert{Type: notify.AlertInvalidKey, Key: credential,
							Endpoint: r.URL.Path, Status: status, Details: apperr.Detail(err)})
					case errors.Is(err, apperr.ErrQuotaExceeded):
						alerter.AlertAsync(notify.Alert{Type: notify.AlertQuotaExceeded, Key: credential,
							Endpoint: r.URL.Path, Status: status, Details: apperr.Detail(err)})
					}
				}
				response.Fail(w, r, err)
				return
			}

			if decision.Exempt {
				next.ServeHTTP(w, r)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(WithGrant(r.Context(), decision.Grant)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			// Клиент мог уже отключиться, а единицу лимита вернуть нужно.
			if err := gate.Settle(context.WithoutCancel(r.Context()), decision, status); err != nil {
				log.Error("failed to settle usage", slog.Int("status", status), sl.Err(err))
			}
		})
	}
}
