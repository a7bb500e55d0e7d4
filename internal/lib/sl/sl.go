// Package sl содержит вспомогательные атрибуты для логгера slog.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
//
// Пример:
//
//	log.Error("failed to reserve usage", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Key возвращает маскированный API-ключ: в логи попадают только первые
// и последние четыре символа.
func Key(token string) slog.Attr {
	return slog.String("api_key", Mask(token))
}

// Mask скрывает середину секрета.
func Mask(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "…" + token[len(token)-4:]
}
