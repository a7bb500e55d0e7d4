package models

import "time"

// User — пользователь беспарольного входа.
type User struct {
	ID        int64
	Email     string
	APIKey    *string
	CreatedAt time.Time
	LastLogin *time.Time
}

// AuthToken — одноразовый токен входа, переходит used=false → used=true ровно один раз.
type AuthToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	Used      bool
}

// LoginResult — результат обмена токена на ключ.
type LoginResult struct {
	UserID int64  `json:"user_id"`
	APIKey string `json:"api_key"`
}
