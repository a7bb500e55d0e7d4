// Package keygen генерирует высокоэнтропийные непрозрачные токены:
// API-ключи и одноразовые токены входа.
package keygen

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// APIKeyPrefix — префикс выдаваемых API-ключей.
const APIKeyPrefix = "gc_"

// Token возвращает случайную строку из n байт энтропии в base64url без паддинга.
func Token(n int) (string, error) {
	const op = "keygen.Token"
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// APIKey возвращает новый API-ключ (256 бит энтропии).
func APIKey() (string, error) {
	t, err := Token(32)
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + t, nil
}

// LoginToken возвращает одноразовый токен входа (192 бита энтропии).
func LoginToken() (string, error) {
	return Token(24)
}
