// Package auth — беспарольный вход по одноразовому коду из письма.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/lib/keygen"
	"github.com/magabrotheeeer/greencore-api/internal/models"
)

// UserRepository — хранилище пользователей и токенов входа.
type UserRepository interface {
	// CreateLoginToken находит или создаёт пользователя по email и сохраняет токен.
	CreateLoginToken(ctx context.Context, email, token string, expiresAt time.Time) (int64, error)
	// ConsumeLoginToken погашает токен и при необходимости выпускает ключ newKey на тариф plan.
	ConsumeLoginToken(ctx context.Context, token string, now time.Time, newKey, plan string) (models.LoginResult, error)
}

// CodeSender доставляет код пользователю.
type CodeSender interface {
	SendLoginCode(ctx context.Context, email, token string) error
}

// Metrics учитывает выданные ключи.
type Metrics interface {
	KeyIssued(source string)
}

// Service реализует вход по коду.
type Service struct {
	users   UserRepository
	sender  CodeSender
	ttl     time.Duration
	plan    string
	metrics Metrics
	log     *slog.Logger
	now     func() time.Time
}

// NewService создает новый экземпляр Service. plan — тариф ключа, выпускаемого при первом входе.
func NewService(users UserRepository, sender CodeSender, ttl time.Duration, plan string, metrics Metrics, log *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if plan == "" {
		plan = models.FreePlan
	}
	return &Service{
		users:   users,
		sender:  sender,
		ttl:     ttl,
		plan:    plan,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// RequestLogin создаёт одноразовый код и отправляет его на email.
// Код в ответе не возвращается.
func (s *Service) RequestLogin(ctx context.Context, email string) error {
	const op = "auth.RequestLogin"
	email = strings.ToLower(strings.TrimSpace(email))

	token, err := keygen.LoginToken()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	userID, err := s.users.CreateLoginToken(ctx, email, token, s.now().UTC().Add(s.ttl))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.sender.SendLoginCode(ctx, email, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("login code sent", slog.String("op", op), slog.Int64("user_id", userID))
	return nil
}

// Verify погашает код и возвращает ключ пользователя, выпуская его при первом входе.
// Использованный, просроченный или неизвестный код — apperr.ErrInvalidOrExpiredToken.
func (s *Service) Verify(ctx context.Context, token string) (models.LoginResult, error) {
	const op = "auth.Verify"
	token = strings.TrimSpace(token)
	if token == "" {
		return models.LoginResult{}, fmt.Errorf("%s: %w", op, apperr.ErrInvalidOrExpiredToken)
	}

	newKey, err := keygen.APIKey()
	if err != nil {
		return models.LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.users.ConsumeLoginToken(ctx, token, s.now().UTC(), newKey, s.plan)
	if err != nil {
		return models.LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.APIKey == newKey && s.metrics != nil {
		s.metrics.KeyIssued("login")
	}

	s.log.Info("user logged in", slog.String("op", op), slog.Int64("user_id", res.UserID))
	return res, nil
}
