package list

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/greencore-api/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context) ([]models.Plan, error) {
	args := m.Called(ctx)
	plans, _ := args.Get(0).([]models.Plan)
	return plans, args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	quota := 5

	t.Run("список тарифов", func(t *testing.T) {
		svc := new(MockService)
		svc.On("List", mock.Anything).Return([]models.Plan{
			{Name: "free", RequestQuota: &quota, MaxPageSize: 10, AllowedFilters: []string{"view"}},
			{Name: "premium", MaxPageSize: 100, Price: 990},
		}, nil)

		rr := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plans", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[
			{"name":"free","request_quota":5,"max_page_size":10,"price":0,"allowed_filters":["view"],"allowed_fields":null},
			{"name":"premium","request_quota":null,"max_page_size":100,"price":990,"allowed_filters":null,"allowed_fields":null}
		]`, rr.Body.String())
	})

	t.Run("ошибка хранилища", func(t *testing.T) {
		svc := new(MockService)
		svc.On("List", mock.Anything).Return(nil, errors.New("db down"))

		rr := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plans", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
