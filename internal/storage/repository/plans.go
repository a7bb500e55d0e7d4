package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/models"
)

const planColumns = `name, request_quota, max_page_size, price, allowed_filters, allowed_fields, cooldown_seconds`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*models.Plan, error) {
	var (
		p        models.Plan
		quota    sql.NullInt64
		filters  []byte
		fields   []byte
		cooldown sql.NullInt64
	)
	if err := row.Scan(&p.Name, &quota, &p.MaxPageSize, &p.Price, &filters, &fields, &cooldown); err != nil {
		return nil, err
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
		return nil, err
	}
	if err := decodeNames(fields, &p.AllowedFields); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeNames(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// GetPlan возвращает тариф по имени. Неизвестный тариф — apperr.ErrNotFound.
func (s *Storage) GetPlan(ctx context.Context, name string) (*models.Plan, error) {
	const op = "repository.GetPlan"

	query := `SELECT ` + planColumns + ` FROM plans WHERE name = $1`
	p, err := scanPlan(s.DB.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: plan %q: %w", op, name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPlans возвращает все тарифы по возрастанию цены.
func (s *Storage) ListPlans(ctx context.Context) ([]models.Plan, error) {
	const op = "repository.ListPlans"

	query := `SELECT ` + planColumns + ` FROM plans ORDER BY price, name`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
