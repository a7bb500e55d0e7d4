package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/models"
)

// CreateLoginToken находит или создаёт пользователя по email и сохраняет
// одноразовый токен входа. Возвращает ID пользователя.
func (s *Storage) CreateLoginToken(ctx context.Context, email, token string, expiresAt time.Time) (int64, error) {
	const op = "repository.CreateLoginToken"

	var userID int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (email) VALUES ($1)
			ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
			RETURNING id`, email).Scan(&userID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO auth_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)`,
			userID, token, expiresAt)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return userID, nil
}

// ConsumeLoginToken гасит одноразовый токен и возвращает ключ пользователя.
// Токен блокируется на время транзакции, поэтому две конкурентные проверки
// одного токена не могут обе завершиться успехом. Если у пользователя ещё
// нет ключа, выпускается newKey с тарифом plan.
func (s *Storage) ConsumeLoginToken(ctx context.Context, token string, now time.Time, newKey, plan string) (models.LoginResult, error) {
	const op = "repository.ConsumeLoginToken"
	var res models.LoginResult

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var (
			tokenID   int64
			expiresAt time.Time
			used      bool
		)
		err := tx.QueryRowContext(ctx, `
			SELECT id, user_id, expires_at, used
			FROM auth_tokens
			WHERE token = $1
			FOR UPDATE`, token).Scan(&tokenID, &res.UserID, &expiresAt, &used)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrInvalidOrExpiredToken
		}
		if err != nil {
			return err
		}
		if used || !expiresAt.After(now) {
			return apperr.ErrInvalidOrExpiredToken
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE auth_tokens SET used = TRUE WHERE id = $1`, tokenID); err != nil {
			return err
		}

		var (
			email  string
			apiKey sql.NullString
		)
		if err := tx.QueryRowContext(ctx,
			`SELECT email, api_key FROM users WHERE id = $1 FOR UPDATE`, res.UserID).Scan(&email, &apiKey); err != nil {
			return err
		}

		if apiKey.Valid {
			res.APIKey = apiKey.String
			_, err := tx.ExecContext(ctx,
				`UPDATE users SET last_login = $1 WHERE id = $2`, now, res.UserID)
			return err
		}

		key := models.APIKey{Token: newKey, Owner: email, PlanName: plan}
		if err := insertKey(ctx, tx, &key); err != nil {
			return err
		}
		res.APIKey = newKey
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET last_login = $1, api_key = $2 WHERE id = $3`, now, newKey, res.UserID)
		return err
	})
	if err != nil {
		return models.LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}
