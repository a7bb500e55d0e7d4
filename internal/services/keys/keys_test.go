package keys

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
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

func (m *RepoMock) CreateAPIKey(ctx context.Context, key models.APIKey) (*models.APIKey, error) {
	args := m.Called(ctx, key)
	if fn, ok := args.Get(0).(func(models.APIKey) *models.APIKey); ok {
		return fn(key), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

func (m *RepoMock) LatestKeyByOwner(ctx context.Context, owner string) (*models.APIKey, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

type PlansMock struct{ mock.Mock }

func (m *PlansMock) Lookup(ctx context.Context, name string) (*models.Plan, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// created возвращает ключ в том виде, в каком его сохранил бы репозиторий.
func created(key models.APIKey) *models.APIKey {
	key.ID = 1
	key.Active = true
	return &key
}

func TestService_GenerateKey(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	plans := new(PlansMock)
	plans.On("Lookup", mock.Anything, "basic").Return(&models.Plan{Name: "basic"}, nil)

	days, pageSize := 30, 20
	repo.On("CreateAPIKey", mock.Anything, mock.MatchedBy(func(k models.APIKey) bool {
		return strings.HasPrefix(k.Token, "gc_") && k.Owner == "partner" && k.PlanName == "basic" &&
			k.ExpiresAt != nil && k.ExpiresAt.Equal(fixed.AddDate(0, 0, 30)) && *k.MaxPageSize == 20
	})).Return(created, nil)

	s := NewService(repo, plans, NewLocalThrottle(16, time.Hour), "free", 24*time.Hour, nil, noopLogger())
	s.now = func() time.Time { return fixed }

	issued, err := s.GenerateKey(context.Background(), GenerateRequest{
		Owner: " partner ", Plan: "basic", ExpiresInDays: &days, MaxPageSize: &pageSize,
	})
	require.NoError(t, err)
	assert.Equal(t, "basic", issued.Plan)
	assert.Equal(t, "partner", issued.Owner)
	assert.True(t, strings.HasPrefix(issued.APIKey, "gc_"))
	repo.AssertExpectations(t)
}

func TestService_GenerateKey_UnknownPlan(t *testing.T) {
	repo := new(RepoMock)
	plans := new(PlansMock)
	plans.On("Lookup", mock.Anything, "gold").Return(nil, apperr.ErrUnknownPlan)

	s := NewService(repo, plans, NewLocalThrottle(16, time.Hour), "free", time.Hour, nil, noopLogger())
	_, err := s.GenerateKey(context.Background(), GenerateRequest{Owner: "x", Plan: "gold"})
	assert.ErrorIs(t, err, apperr.ErrUnknownPlan)
	repo.AssertNotCalled(t, "CreateAPIKey", mock.Anything, mock.Anything)
}

func TestService_ClaimFreeKey_OncePerWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := new(RepoMock)
	repo.On("LatestKeyByOwner", mock.Anything, "user@example.com").Return(nil, apperr.ErrNotFound)
	repo.On("CreateAPIKey", mock.Anything, mock.MatchedBy(func(k models.APIKey) bool {
		return k.Owner == "user@example.com" && k.PlanName == "free"
	})).Return(created, nil)

	s := NewService(repo, nil, &cache.Cache{Db: client}, "free", 24*time.Hour, nil, noopLogger())

	issued, err := s.ClaimFreeKey(context.Background(), "User@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "free", issued.Plan)

	_, err = s.ClaimFreeKey(context.Background(), "user@example.com")
	assert.ErrorIs(t, err, apperr.ErrIssueThrottled)

	mr.FastForward(25 * time.Hour)
	_, err = s.ClaimFreeKey(context.Background(), "user@example.com")
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "CreateAPIKey", 2)
}

func TestService_ClaimFreeKey_Cooldown(t *testing.T) {
	now := time.Now()
	next := now.Add(3 * time.Hour)
	repo := new(RepoMock)
	repo.On("LatestKeyByOwner", mock.Anything, "a@b.com").Return(&models.APIKey{NextIssueAllowed: &next}, nil)

	s := NewService(repo, nil, NewLocalThrottle(16, time.Hour), "free", time.Hour, nil, noopLogger())
	_, err := s.ClaimFreeKey(context.Background(), "a@b.com")
	assert.ErrorIs(t, err, apperr.ErrIssueThrottled)
	repo.AssertNotCalled(t, "CreateAPIKey", mock.Anything, mock.Anything)
}

func TestService_ClaimFreeKey_ReleasesLockOnFailure(t *testing.T) {
	repo := new(RepoMock)
	repo.On("LatestKeyByOwner", mock.Anything, "a@b.com").Return(nil, apperr.ErrNotFound)
	repo.On("CreateAPIKey", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()
	repo.On("CreateAPIKey", mock.Anything, mock.Anything).
		Return(created, nil).Once()

	s := NewService(repo, nil, NewLocalThrottle(16, time.Hour), "free", time.Hour, nil, noopLogger())
	_, err := s.ClaimFreeKey(context.Background(), "a@b.com")
	require.Error(t, err)

	_, err = s.ClaimFreeKey(context.Background(), "a@b.com")
	require.NoError(t, err)
}

func TestLocalThrottle(t *testing.T) {
	th := NewLocalThrottle(4, 50*time.Millisecond)
	ctx := context.Background()

	ok, err := th.Acquire(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = th.Acquire(ctx, "k", time.Hour)
	assert.False(t, ok)

	require.NoError(t, th.Release(ctx, "k"))
	ok, _ = th.Acquire(ctx, "k", time.Hour)
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		ok, _ := th.Acquire(ctx, "k", time.Hour)
		return ok
	}, time.Second, 10*time.Millisecond)
}
