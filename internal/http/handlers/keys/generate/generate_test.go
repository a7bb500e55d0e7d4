package generate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/models"
	"github.com/magabrotheeeer/greencore-api/internal/services/keys"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) GenerateKey(ctx context.Context, req keys.GenerateRequest) (*models.IssuedKey, error) {
	args := m.Called(ctx, req)
	k, _ := args.Get(0).(*models.IssuedKey)
	return k, args.Error(1)
}

func TestGenerateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	days := 30

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "ключ выдан",
			body: `{"owner":"partner@example.com","plan":"premium","expires_in_days":30}`,
			setupMock: func(m *MockService) {
				m.On("GenerateKey", mock.Anything, keys.GenerateRequest{
					Owner: "partner@example.com", Plan: "premium", ExpiresInDays: &days,
				}).Return(&models.IssuedKey{APIKey: "abc", Owner: "partner@example.com", Plan: "premium"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"api_key":"abc","owner":"partner@example.com","plan":"premium","expires_at":null}`,
		},
		{
			name: "неизвестный тариф",
			body: `{"owner":"a","plan":"gold"}`,
			setupMock: func(m *MockService) {
				m.On("GenerateKey", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("keys.GenerateKey: %w", apperr.ErrUnknownPlan))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"detail":"unknown plan"}`,
		},
		{
			name:           "нет владельца",
			body:           `{"plan":"premium"}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"detail":"field owner is a required field"}`,
		},
		{
			name:           "слишком большой размер страницы",
			body:           `{"owner":"a","plan":"premium","max_page_size":500}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"detail":"field maxpagesize must be at most 100"}`,
		},
		{
			name:           "некорректный JSON",
			body:           `{`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"detail":"validation failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			rr := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/generate_key", strings.NewReader(tt.body)))

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
