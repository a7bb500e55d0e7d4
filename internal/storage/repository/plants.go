package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/filter"
	"github.com/magabrotheeeer/greencore-api/internal/models"
)

const plantColumns = `id, view, family, cultivar, insights, light, watering, temperature,
	soil, fertilizer, pruning, pests_diseases, indoor, outdoor, beginner_friendly,
	toxicity, zone_usda, ru_regions`

// PlantFlag — булев признак растения, по которому считается статистика.
type PlantFlag string

// Признаки растений.
const (
	FlagIndoor           PlantFlag = "indoor"
	FlagOutdoor          PlantFlag = "outdoor"
	FlagBeginnerFriendly PlantFlag = "beginner_friendly"
)

func scanPlant(row rowScanner) (*models.Plant, error) {
	var p models.Plant
	err := row.Scan(&p.ID, &p.View, &p.Family, &p.Cultivar, &p.Insights, &p.Light, &p.Watering,
		&p.Temperature, &p.Soil, &p.Fertilizer, &p.Pruning, &p.PestsDiseases, &p.Indoor,
		&p.Outdoor, &p.BeginnerFriendly, &p.Toxicity, &p.ZoneUSDA, &p.RuRegions)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchPlants выполняет запрос, построенный filter.Translator.
// Все пользовательские значения передаются только через параметры.
func (s *Storage) SearchPlants(ctx context.Context, q filter.Query) ([]models.Plant, error) {
	const op = "repository.SearchPlants"

	args := append([]any(nil), q.Args...)
	limitPos := strconv.Itoa(len(args) + 1)
	offsetPos := strconv.Itoa(len(args) + 2)
	args = append(args, q.Limit, q.Offset)

	query := `SELECT ` + plantColumns + ` FROM plants WHERE ` + q.Where +
		` ORDER BY ` + q.OrderBy + ` LIMIT $` + limitPos + ` OFFSET $` + offsetPos

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Plant, 0, q.Limit)
	for rows.Next() {
		p, err := scanPlant(rows)
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

// GetPlant возвращает растение по ID.
func (s *Storage) GetPlant(ctx context.Context, id int64) (*models.Plant, error) {
	const op = "repository.GetPlant"

	query := `SELECT ` + plantColumns + ` FROM plants WHERE id = $1`
	p, err := scanPlant(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// CountPlants возвращает общее число записей справочника.
func (s *Storage) CountPlants(ctx context.Context) (int, error) {
	const op = "repository.CountPlants"

	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM plants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// CountByFlag возвращает число растений с выставленным признаком.
func (s *Storage) CountByFlag(ctx context.Context, flag PlantFlag) (int, error) {
	const op = "repository.CountByFlag"

	switch flag {
	case FlagIndoor, FlagOutdoor, FlagBeginnerFriendly:
	default:
		return 0, fmt.Errorf("%s: unknown flag %q", op, flag)
	}

	var n int
	query := `SELECT COUNT(*) FROM plants WHERE ` + string(flag) + ` IS TRUE`
	if err := s.DB.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// CountByToxicity группирует растения по токсичности. Пустое значение — "unknown".
func (s *Storage) CountByToxicity(ctx context.Context) (map[string]int, error) {
	const op = "repository.CountByToxicity"

	rows, err := s.DB.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(toxicity, ''), 'unknown') AS t, COUNT(*)
		FROM plants
		GROUP BY t`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make(map[string]int)
	for rows.Next() {
		var (
			tox string
			n   int
		)
		if err := rows.Scan(&tox, &n); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result[tox] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
