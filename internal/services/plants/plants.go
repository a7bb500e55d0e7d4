// Package plants — чтение справочника растений с учётом прав тарифа.
package plants

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/greencore-api/internal/filter"
	"github.com/magabrotheeeer/greencore-api/internal/models"
	"github.com/magabrotheeeer/greencore-api/internal/storage/repository"
)

// Repository — доступ к таблице растений.
type Repository interface {
	SearchPlants(ctx context.Context, q filter.Query) ([]models.Plant, error)
	GetPlant(ctx context.Context, id int64) (*models.Plant, error)
	CountPlants(ctx context.Context) (int, error)
	CountByFlag(ctx context.Context, flag repository.PlantFlag) (int, error)
	CountByToxicity(ctx context.Context) (map[string]int, error)
}

// Metrics учитывает применённые фильтры.
type Metrics interface {
	Filters(names []string)
}

// SearchResult — ответ /plants.
type SearchResult struct {
	Count   int              `json:"count"`
	Limit   int              `json:"limit"`
	Results []map[string]any `json:"results"`
}

// Service реализует поиск и статистику.
type Service struct {
	repo       Repository
	translator *filter.Translator
	metrics    Metrics
	log        *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(repo Repository, translator *filter.Translator, metrics Metrics, log *slog.Logger) *Service {
	if translator == nil {
		translator = filter.New(nil)
	}
	return &Service{repo: repo, translator: translator, metrics: metrics, log: log}
}

// Search выполняет поиск. Размер страницы ограничен потолком тарифа,
// поля результата — разрешёнными полями тарифа.
func (s *Service) Search(ctx context.Context, p filter.Params, grant models.Grant) (*SearchResult, error) {
	const op = "plants.Search"

	q := s.translator.Translate(p, grant.PageCap)
	if s.metrics != nil && len(q.Applied) > 0 {
		s.metrics.Filters(q.Applied)
	}

	list, err := s.repo.SearchPlants(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	results := make([]map[string]any, 0, len(list))
	for i := range list {
		results = append(results, list[i].Project(grant.AllowedFields))
	}
	s.log.Debug("plants search",
		slog.String("op", op), slog.Any("filters", q.Applied), slog.Int("count", len(results)))

	return &SearchResult{Count: len(results), Limit: q.Limit, Results: results}, nil
}

// Get возвращает запись по id с проекцией полей тарифа.
func (s *Service) Get(ctx context.Context, id int64, grant models.Grant) (map[string]any, error) {
	const op = "plants.Get"
	p, err := s.repo.GetPlant(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p.Project(grant.AllowedFields), nil
}

// Stats считает агрегаты справочника параллельными запросами.
func (s *Service) Stats(ctx context.Context) (*models.PlantStats, error) {
	const op = "plants.Stats"

	var stats models.PlantStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.repo.CountPlants(gctx)
		stats.Total = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountByFlag(gctx, repository.FlagIndoor)
		stats.Indoor = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountByFlag(gctx, repository.FlagOutdoor)
		stats.Outdoor = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountByFlag(gctx, repository.FlagBeginnerFriendly)
		stats.BeginnerFriendly = n
		return err
	})
	g.Go(func() error {
		m, err := s.repo.CountByToxicity(gctx)
		stats.ByToxicity = m
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &stats, nil
}
