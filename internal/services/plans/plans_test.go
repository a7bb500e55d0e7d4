package plans

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/cache"
	"github.com/magabrotheeeer/greencore-api/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetPlan(ctx context.Context, name string) (*models.Plan, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *RepoMock) ListPlans(ctx context.Context) ([]models.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Plan), args.Error(1)
}

type tierCounter map[string]int

func (c tierCounter) PlanLookup(tier string) { c[tier]++ }

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func freePlan() *models.Plan {
	quota := 5
	cooldown := 24 * time.Hour
	return &models.Plan{
		Name:           "free",
		RequestQuota:   &quota,
		MaxPageSize:    10,
		AllowedFilters: []string{"view", "light"},
		Cooldown:       &cooldown,
	}
}

func newRedisCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &cache.Cache{Db: client}, mr
}

func TestRegistry_Lookup_Tiers(t *testing.T) {
	ctx := context.Background()
	repo := new(RepoMock)
	repo.On("GetPlan", mock.Anything, "free").Return(freePlan(), nil).Once()
	c, _ := newRedisCache(t)
	tiers := tierCounter{}

	r := NewRegistry(repo, c, 8, time.Minute, tiers, noopLogger())

	p, err := r.Lookup(ctx, "free")
	require.NoError(t, err)
	assert.Equal(t, 5, *p.RequestQuota)
	assert.Equal(t, 1, tiers["db"])

	_, err = r.Lookup(ctx, "free")
	require.NoError(t, err)
	assert.Equal(t, 1, tiers["local"])

	// Вторая реплика с пустым локальным кешем читает из Redis.
	other := NewRegistry(repo, c, 8, time.Minute, tiers, noopLogger())
	p, err = other.Lookup(ctx, "free")
	require.NoError(t, err)
	assert.Equal(t, 1, tiers["redis"])
	require.NotNil(t, p.Cooldown)
	assert.Equal(t, 24*time.Hour, *p.Cooldown)
	assert.Equal(t, []string{"view", "light"}, p.AllowedFilters)

	repo.AssertNumberOfCalls(t, "GetPlan", 1)
}

func TestRegistry_Lookup_ReturnsCopy(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetPlan", mock.Anything, "free").Return(freePlan(), nil).Once()
	r := NewRegistry(repo, nil, 8, time.Minute, nil, noopLogger())

	p, err := r.Lookup(context.Background(), "free")
	require.NoError(t, err)
	p.MaxPageSize = 1000

	again, err := r.Lookup(context.Background(), "free")
	require.NoError(t, err)
	assert.Equal(t, 10, again.MaxPageSize)
}

func TestRegistry_Lookup_Unknown(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetPlan", mock.Anything, "gold").Return(nil, apperr.ErrNotFound)
	r := NewRegistry(repo, nil, 8, time.Minute, nil, noopLogger())

	_, err := r.Lookup(context.Background(), "gold")
	assert.ErrorIs(t, err, apperr.ErrUnknownPlan)
}

func TestRegistry_Lookup_RedisDownFallsBackToDB(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetPlan", mock.Anything, "free").Return(freePlan(), nil)
	c, mr := newRedisCache(t)
	mr.Close()

	r := NewRegistry(repo, c, 8, time.Minute, nil, noopLogger())
	p, err := r.Lookup(context.Background(), "free")
	require.NoError(t, err)
	assert.Equal(t, "free", p.Name)
}

func TestRegistry_List(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ListPlans", mock.Anything).Return([]models.Plan{{Name: "free"}, {Name: "basic"}}, nil).Once()
	repo.On("ListPlans", mock.Anything).Return(nil, errors.New("db down")).Once()
	r := NewRegistry(repo, nil, 8, time.Minute, nil, noopLogger())

	list, err := r.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = r.List(context.Background())
	assert.Error(t, err)
}
