package middlewarectx

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/greencore-api/internal/http/response"
)

// MasterKey пропускает только запросы с мастер-ключом в X-API-Key.
// Сравнение за постоянное время. Без настроенного ключа доступ закрыт.
func MasterKey(secret string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(CredentialHeader)
			if got == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("api key required"))
				return
			}
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				log.Warn("master key rejected",
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
