// Package plans — справочник тарифов с двухуровневым кешем:
// локальный LRU в памяти процесса и общий Redis перед PostgreSQL.
package plans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
	"github.com/magabrotheeeer/greencore-api/internal/models"
)

// Repository — источник истины для тарифов.
type Repository interface {
	GetPlan(ctx context.Context, name string) (*models.Plan, error)
	ListPlans(ctx context.Context) ([]models.Plan, error)
}

// Cache — общий кеш между репликами.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Metrics учитывает, какой уровень обслужил запрос.
type Metrics interface {
	PlanLookup(tier string)
}

// cachedPlan — представление тарифа в Redis. Plan.Cooldown не сериализуется в API,
// поэтому хранится отдельно.
type cachedPlan struct {
	Plan            models.Plan `json:"plan"`
	CooldownSeconds *int64      `json:"cooldown_seconds"`
}

func toCached(p *models.Plan) cachedPlan {
	c := cachedPlan{Plan: *p}
	if p.Cooldown != nil {
		s := int64(p.Cooldown.Seconds())
		c.CooldownSeconds = &s
	}
	return c
}

func (c cachedPlan) plan() *models.Plan {
	p := c.Plan
	if c.CooldownSeconds != nil {
		d := time.Duration(*c.CooldownSeconds) * time.Second
		p.Cooldown = &d
	}
	return &p
}

// Registry отдаёт тарифы по имени.
type Registry struct {
	repo    Repository
	cache   Cache
	local   *expirable.LRU[string, *models.Plan]
	ttl     time.Duration
	metrics Metrics
	log     *slog.Logger
}

// NewRegistry создаёт справочник. cache может быть nil.
func NewRegistry(repo Repository, cache Cache, size int, ttl time.Duration, metrics Metrics, log *slog.Logger) *Registry {
	if size <= 0 {
		size = 64
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Registry{
		repo:    repo,
		cache:   cache,
		local:   expirable.NewLRU[string, *models.Plan](size, nil, ttl),
		ttl:     ttl,
		metrics: metrics,
		log:     log,
	}
}

func cacheKey(name string) string {
	return "plan:" + name
}

func (r *Registry) observe(tier string) {
	if r.metrics != nil {
		r.metrics.PlanLookup(tier)
	}
}

// Lookup возвращает тариф по имени или apperr.ErrUnknownPlan.
// Вызывающий получает копию, изменять её безопасно.
func (r *Registry) Lookup(ctx context.Context, name string) (*models.Plan, error) {
	const op = "plans.Lookup"

	if p, ok := r.local.Get(name); ok {
		r.observe("local")
		cp := *p
		return &cp, nil
	}

	if r.cache != nil {
		var cached cachedPlan
		found, err := r.cache.Get(ctx, cacheKey(name), &cached)
		if err != nil {
			r.log.Warn("plan cache read failed", slog.String("op", op), slog.String("plan", name), sl.Err(err))
		} else if found {
			r.observe("redis")
			p := cached.plan()
			r.local.Add(name, p)
			cp := *p
			return &cp, nil
		}
	}

	p, err := r.repo.GetPlan(ctx, name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w: %s", op, apperr.ErrUnknownPlan, name)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r.observe("db")

	r.local.Add(name, p)
	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKey(name), toCached(p), r.ttl); err != nil {
			r.log.Warn("plan cache write failed", slog.String("op", op), slog.String("plan", name), sl.Err(err))
		}
	}
	cp := *p
	return &cp, nil
}

// List возвращает все тарифы, упорядоченные по цене.
func (r *Registry) List(ctx context.Context) ([]models.Plan, error) {
	const op = "plans.List"
	list, err := r.repo.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}
