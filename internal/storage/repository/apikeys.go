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

// queryer — общее для *sql.DB и *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const keyColumns = `k.id, k.token, k.owner, k.plan_name, k.active, k.created_at,
	k.expires_at, k.usage_count, k.max_page_size, k.next_issue_allowed`

func keyDest(k *models.APIKey, expires, next *sql.NullTime, pageSize *sql.NullInt64) []any {
	return []any{&k.ID, &k.Token, &k.Owner, &k.PlanName, &k.Active, &k.CreatedAt,
		expires, &k.UsageCount, pageSize, next}
}

func fillKey(k *models.APIKey, expires, next sql.NullTime, pageSize sql.NullInt64) {
	if expires.Valid {
		t := expires.Time
		k.ExpiresAt = &t
	}
	if next.Valid {
		t := next.Time
		k.NextIssueAllowed = &t
	}
	if pageSize.Valid {
		n := int(pageSize.Int64)
		k.MaxPageSize = &n
	}
}

// insertKey сохраняет новый ключ и заполняет ID и CreatedAt.
func insertKey(ctx context.Context, q queryer, k *models.APIKey) error {
	query := `INSERT INTO api_keys (token, owner, plan_name, active, expires_at, max_page_size)
			  VALUES ($1, $2, $3, TRUE, $4, $5)
			  RETURNING id, created_at`
	if err := q.QueryRowContext(ctx, query,
		k.Token, k.Owner, k.PlanName, k.ExpiresAt, k.MaxPageSize).Scan(&k.ID, &k.CreatedAt); err != nil {
		return err
	}
	k.Active = true
	return nil
}

// CreateAPIKey сохраняет новый активный ключ.
func (s *Storage) CreateAPIKey(ctx context.Context, key models.APIKey) (*models.APIKey, error) {
	const op = "repository.CreateAPIKey"

	if err := insertKey(ctx, s.DB, &key); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &key, nil
}

// GetKeyWithPlan находит ключ по токену вместе с тарифом.
// Plan равен nil, если тариф ключа отсутствует в справочнике.
func (s *Storage) GetKeyWithPlan(ctx context.Context, token string) (*models.KeyWithPlan, error) {
	const op = "repository.GetKeyWithPlan"

	query := `SELECT ` + keyColumns + `,
			p.name, p.request_quota, p.max_page_size, p.price,
			p.allowed_filters, p.allowed_fields, p.cooldown_seconds
		FROM api_keys k
		LEFT JOIN plans p ON p.name = k.plan_name
		WHERE k.token = $1`

	var (
		res             models.KeyWithPlan
		expires, next   sql.NullTime
		pageSize        sql.NullInt64
		planName        sql.NullString
		quota, planPage sql.NullInt64
		price           sql.NullFloat64
		filters, fields []byte
		cooldown        sql.NullInt64
	)
	dest := append(keyDest(&res.Key, &expires, &next, &pageSize),
		&planName, &quota, &planPage, &price, &filters, &fields, &cooldown)

	err := s.DB.QueryRowContext(ctx, query, token).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrInvalidCredential)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	fillKey(&res.Key, expires, next, pageSize)

	if planName.Valid {
		p := models.Plan{
			Name:        planName.String,
			MaxPageSize: int(planPage.Int64),
			Price:       price.Float64,
		}
		if quota.Valid {
			q := int(quota.Int64)
			p.RequestQuota = &q
		}
		if cooldown.Valid {
			d := time.Duration(cooldown.Int64) * time.Second
			p.Cooldown = &d
		}
		if err := decodeNames(filters, &p.AllowedFilters); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := decodeNames(fields, &p.AllowedFields); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res.Plan = &p
	}
	return &res, nil
}

// LatestKeyByOwner возвращает последний выданный владельцу ключ.
func (s *Storage) LatestKeyByOwner(ctx context.Context, owner string) (*models.APIKey, error) {
	const op = "repository.LatestKeyByOwner"

	query := `SELECT ` + keyColumns + ` FROM api_keys k
		WHERE k.owner = $1
		ORDER BY k.created_at DESC, k.id DESC
		LIMIT 1`

	var (
		k             models.APIKey
		expires, next sql.NullTime
		pageSize      sql.NullInt64
	)
	err := s.DB.QueryRowContext(ctx, query, owner).Scan(keyDest(&k, &expires, &next, &pageSize)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	fillKey(&k, expires, next, pageSize)
	return &k, nil
}

// ReserveUsage списывает одну единицу лимита ключа под блокировкой строки.
// Статус ключа перепроверяется под блокировкой, поэтому два конкурентных
// запроса не могут оба пройти, когда остаётся одна единица лимита.
// Если списание исчерпало лимит, ключ деактивируется, а при наличии у тарифа
// паузы выставляется next_issue_allowed = now + пауза.
func (s *Storage) ReserveUsage(ctx context.Context, keyID int64, now time.Time) (models.Reservation, error) {
	const op = "repository.ReserveUsage"
	res := models.Reservation{KeyID: keyID}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var (
			active   bool
			expires  sql.NullTime
			usage    int
			quota    sql.NullInt64
			cooldown sql.NullInt64
			prevNext sql.NullTime
		)
		err := tx.QueryRowContext(ctx, `
			SELECT k.active, k.expires_at, k.usage_count, p.request_quota, p.cooldown_seconds,
				k.next_issue_allowed
			FROM api_keys k
			LEFT JOIN plans p ON p.name = k.plan_name
			WHERE k.id = $1
			FOR UPDATE OF k`, keyID).Scan(&active, &expires, &usage, &quota, &cooldown, &prevNext)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrInvalidCredential
		}
		if err != nil {
			return err
		}

		switch {
		case quota.Valid && int64(usage) >= quota.Int64:
			return apperr.ErrQuotaExceeded
		case !active:
			return apperr.ErrInactive
		case expires.Valid && !expires.Time.After(now):
			return apperr.ErrExpired
		}

		usage++
		res.Exhausted = quota.Valid && int64(usage) >= quota.Int64

		var next *time.Time
		if res.Exhausted && cooldown.Valid {
			// postgres хранит микросекунды, иначе возврат не узнает своё значение
			t := now.Add(time.Duration(cooldown.Int64) * time.Second).Truncate(time.Microsecond)
			next = &t
		}
		if prevNext.Valid {
			t := prevNext.Time
			res.PrevNextIssue = &t
		}
		res.NextIssue = res.PrevNextIssue
		if next != nil {
			res.NextIssue = next
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE api_keys
			SET usage_count = $1,
				active = $2,
				next_issue_allowed = COALESCE($3, next_issue_allowed),
				last_used_at = $4
			WHERE id = $5`,
			usage, !res.Exhausted, next, now, keyID)
		return err
	})
	if err != nil {
		return models.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// ReleaseUsage возвращает единицу лимита, списанную ReserveUsage, если
// запрос завершился ошибкой. Деактивация по исчерпанию отменяется, только
// если строка осталась в том состоянии, в которое её перевело списание:
// ключ, выключенный администратором после списания, остаётся выключенным.
func (s *Storage) ReleaseUsage(ctx context.Context, r models.Reservation) error {
	const op = "repository.ReleaseUsage"

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var usage int
		err := tx.QueryRowContext(ctx,
			`SELECT usage_count FROM api_keys WHERE id = $1 FOR UPDATE`, r.KeyID).Scan(&usage)
		if err != nil {
			return err
		}
		if usage == 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE api_keys SET usage_count = usage_count - 1 WHERE id = $1`, r.KeyID)
		if err != nil || !r.Exhausted {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE api_keys
			SET active = TRUE, next_issue_allowed = $2
			WHERE id = $1 AND active = FALSE AND next_issue_allowed IS NOT DISTINCT FROM $3`,
			r.KeyID, r.PrevNextIssue, r.NextIssue)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
