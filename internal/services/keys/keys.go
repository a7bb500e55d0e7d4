// Package keys выдаёт API-ключи: администратором по мастер-ключу и
// самостоятельно по email на бесплатном тарифе.
package keys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/lib/keygen"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
	"github.com/magabrotheeeer/greencore-api/internal/models"
)

// Repository — хранилище ключей.
type Repository interface {
	CreateAPIKey(ctx context.Context, key models.APIKey) (*models.APIKey, error)
	LatestKeyByOwner(ctx context.Context, owner string) (*models.APIKey, error)
}

// PlanLookup проверяет существование тарифа.
type PlanLookup interface {
	Lookup(ctx context.Context, name string) (*models.Plan, error)
}

// Metrics учитывает выданные ключи.
type Metrics interface {
	KeyIssued(source string)
}

// GenerateRequest — параметры административной выдачи.
type GenerateRequest struct {
	Owner         string
	Plan          string
	ExpiresInDays *int
	MaxPageSize   *int
}

// Service выдаёт ключи.
type Service struct {
	repo     Repository
	plans    PlanLookup
	throttle Throttle
	freePlan string
	window   time.Duration
	metrics  Metrics
	log      *slog.Logger
	now      func() time.Time
}

// NewService создаёт Service. window — период, в течение которого на один email
// выдаётся не более одного бесплатного ключа.
func NewService(repo Repository, plans PlanLookup, throttle Throttle, freePlan string, window time.Duration,
	metrics Metrics, log *slog.Logger) *Service {
	if freePlan == "" {
		freePlan = models.FreePlan
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Service{
		repo:     repo,
		plans:    plans,
		throttle: throttle,
		freePlan: freePlan,
		window:   window,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) issue(ctx context.Context, key models.APIKey) (*models.IssuedKey, error) {
	token, err := keygen.APIKey()
	if err != nil {
		return nil, err
	}
	key.Token = token
	created, err := s.repo.CreateAPIKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return &models.IssuedKey{
		APIKey:    created.Token,
		Owner:     created.Owner,
		Plan:      created.PlanName,
		ExpiresAt: created.ExpiresAt,
	}, nil
}

// GenerateKey выдаёт ключ на указанный тариф. Тариф должен существовать.
func (s *Service) GenerateKey(ctx context.Context, req GenerateRequest) (*models.IssuedKey, error) {
	const op = "keys.GenerateKey"

	if _, err := s.plans.Lookup(ctx, req.Plan); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key := models.APIKey{
		Owner:       strings.TrimSpace(req.Owner),
		PlanName:    req.Plan,
		MaxPageSize: req.MaxPageSize,
	}
	if req.ExpiresInDays != nil && *req.ExpiresInDays > 0 {
		exp := s.now().UTC().AddDate(0, 0, *req.ExpiresInDays)
		key.ExpiresAt = &exp
	}

	issued, err := s.issue(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if s.metrics != nil {
		s.metrics.KeyIssued("admin")
	}
	s.log.Info("api key generated",
		slog.String("op", op), slog.String("owner", issued.Owner), slog.String("plan", issued.Plan))
	return issued, nil
}

// ClaimFreeKey выдаёт бесплатный ключ на email. Отказывает с apperr.ErrIssueThrottled,
// если ключ уже выдавался в текущем окне или у владельца не истекла пауза после
// исчерпания лимита.
func (s *Service) ClaimFreeKey(ctx context.Context, email string) (*models.IssuedKey, error) {
	const op = "keys.ClaimFreeKey"
	email = strings.ToLower(strings.TrimSpace(email))

	latest, err := s.repo.LatestKeyByOwner(ctx, email)
	switch {
	case err == nil:
		if latest.NextIssueAllowed != nil && latest.NextIssueAllowed.After(s.now()) {
			return nil, fmt.Errorf("%s: %w: cooldown until %s", op, apperr.ErrIssueThrottled,
				latest.NextIssueAllowed.UTC().Format(time.RFC3339))
		}
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lock := "free_key:" + email
	ok, err := s.throttle.Acquire(ctx, lock, s.window)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrIssueThrottled)
	}

	issued, err := s.issue(ctx, models.APIKey{Owner: email, PlanName: s.freePlan})
	if err != nil {
		if relErr := s.throttle.Release(ctx, lock); relErr != nil {
			s.log.Warn("failed to release free key lock", slog.String("op", op), sl.Err(relErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if s.metrics != nil {
		s.metrics.KeyIssued("self_service")
	}
	s.log.Info("free api key issued", slog.String("op", op), sl.Key(issued.APIKey))
	return issued, nil
}
