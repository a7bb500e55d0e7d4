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

// CreatePendingPayment сохраняет платёж со статусом pending.
func (s *Storage) CreatePendingPayment(ctx context.Context, p models.PendingPayment) error {
	const op = "repository.CreatePendingPayment"

	query := `INSERT INTO pending_payments (payment_id, plan_name, email, amount, status)
			  VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.DB.ExecContext(ctx, query,
		p.PaymentID, p.PlanName, p.Email, p.Amount, models.PaymentPending); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const paymentColumns = `payment_id, plan_name, email, amount, status, api_key, created_at, paid_at`

func scanPayment(row rowScanner) (*models.PendingPayment, error) {
	var (
		p      models.PendingPayment
		apiKey sql.NullString
		paidAt sql.NullTime
	)
	if err := row.Scan(&p.PaymentID, &p.PlanName, &p.Email, &p.Amount, &p.Status,
		&apiKey, &p.CreatedAt, &paidAt); err != nil {
		return nil, err
	}
	if apiKey.Valid {
		k := apiKey.String
		p.APIKey = &k
	}
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	return &p, nil
}

// LatestPaidByEmail возвращает последний оплаченный платёж с выданным ключом.
func (s *Storage) LatestPaidByEmail(ctx context.Context, email string) (*models.PendingPayment, error) {
	const op = "repository.LatestPaidByEmail"

	query := `SELECT ` + paymentColumns + ` FROM pending_payments
			  WHERE email = $1 AND api_key IS NOT NULL
			  ORDER BY paid_at DESC NULLS LAST
			  LIMIT 1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// FulfillPayment применяет статус из вебхука к платежу под блокировкой строки.
// Ключ token выпускается только при статусе succeeded и только если ключ
// платежу ещё не выдан; повторная доставка того же вебхука ничего не меняет.
// Неизвестный платёж — не ошибка, Found = false.
func (s *Storage) FulfillPayment(ctx context.Context, paymentID, status, token string, now time.Time) (models.Fulfillment, error) {
	const op = "repository.FulfillPayment"
	res := models.Fulfillment{PaymentID: paymentID, Status: status}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var apiKey sql.NullString
		err := tx.QueryRowContext(ctx, `
			SELECT plan_name, email, api_key
			FROM pending_payments
			WHERE payment_id = $1
			FOR UPDATE`, paymentID).Scan(&res.PlanName, &res.Email, &apiKey)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		res.Found = true

		if apiKey.Valid {
			// ключ уже выдан, статус не откатываем
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE pending_payments SET status = $1 WHERE payment_id = $2`, status, paymentID); err != nil {
			return err
		}
		if status != models.PaymentSucceeded {
			return nil
		}

		key := models.APIKey{Token: token, Owner: res.Email, PlanName: res.PlanName}
		if err := insertKey(ctx, tx, &key); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE pending_payments SET api_key = $1, paid_at = $2 WHERE payment_id = $3`,
			token, now, paymentID); err != nil {
			return err
		}
		res.Issued = true
		res.APIKey = token
		return nil
	})
	if err != nil {
		return models.Fulfillment{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}
