// Package apperr описывает таксономию доменных ошибок GreenCore API
// и их отображение в HTTP-статусы.
//
// Сервисы и хранилище возвращают (или оборачивают через %w) одну из
// sentinel-ошибок пакета, а HTTP-слой определяет статус через Status.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthenticated — ключ не передан.
	ErrUnauthenticated = errors.New("api key required")
	// ErrInvalidCredential — ключ не найден.
	ErrInvalidCredential = errors.New("invalid api key")
	// ErrInactive — ключ деактивирован.
	ErrInactive = errors.New("api key is inactive")
	// ErrExpired — срок действия ключа истёк.
	ErrExpired = errors.New("api key expired")
	// ErrQuotaExceeded — лимит запросов тарифа исчерпан.
	ErrQuotaExceeded = errors.New("request quota exceeded")
	// ErrFilterNotPermitted — фильтр недоступен на тарифе.
	ErrFilterNotPermitted = errors.New("filter not permitted for plan")
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrMalformedPayload — некорректное тело запроса или вебхука.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrUnknownPlan — тариф не существует.
	ErrUnknownPlan = errors.New("unknown plan")
	// ErrUnsupportedPlan — тариф нельзя оплатить (бесплатный).
	ErrUnsupportedPlan = errors.New("plan does not require payment")
	// ErrDownstreamUnavailable — внешний сервис (ЮKassa, почта) недоступен.
	ErrDownstreamUnavailable = errors.New("downstream service unavailable")
	// ErrIssueThrottled — выдача нового ключа временно запрещена.
	ErrIssueThrottled = errors.New("key issuance throttled")
	// ErrInvalidOrExpiredToken — одноразовый токен входа недействителен.
	ErrInvalidOrExpiredToken = errors.New("invalid_or_expired_token")
	// ErrForbidden — нет прав администратора.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation — тело запроса не прошло валидацию.
	ErrValidation = errors.New("validation failed")
)

var statuses = []struct {
	err    error
	status int
}{
	{ErrUnauthenticated, http.StatusUnauthorized},
	{ErrInvalidCredential, http.StatusForbidden},
	{ErrInactive, http.StatusForbidden},
	{ErrExpired, http.StatusForbidden},
	{ErrFilterNotPermitted, http.StatusForbidden},
	{ErrForbidden, http.StatusForbidden},
	{ErrQuotaExceeded, http.StatusTooManyRequests},
	{ErrIssueThrottled, http.StatusTooManyRequests},
	{ErrNotFound, http.StatusNotFound},
	{ErrMalformedPayload, http.StatusBadRequest},
	{ErrUnknownPlan, http.StatusBadRequest},
	{ErrUnsupportedPlan, http.StatusBadRequest},
	{ErrInvalidOrExpiredToken, http.StatusBadRequest},
	{ErrValidation, http.StatusUnprocessableEntity},
	{ErrDownstreamUnavailable, http.StatusInternalServerError},
}

// Status возвращает HTTP-статус для ошибки. Неизвестные ошибки — 500.
func Status(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// Detail возвращает текст для поля detail ответа.
// Внутренние ошибки не раскрываются клиенту.
func Detail(err error) string {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.err.Error()
		}
	}
	return "internal error"
}

// IsDomain сообщает, относится ли ошибка к таксономии пакета.
func IsDomain(err error) bool {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return true
		}
	}
	return false
}
