package verify

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
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Verify(ctx context.Context, token string) (models.LoginResult, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(models.LoginResult), args.Error(1)
}

func TestVerifyHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "вход подтверждён",
			body: `{"token":"tok"}`,
			setupMock: func(m *MockService) {
				m.On("Verify", mock.Anything, "tok").Return(models.LoginResult{UserID: 4, APIKey: "key-4"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"ok","user_id":4,"api_key":"key-4"}`,
		},
		{
			name: "код уже использован",
			body: `{"token":"tok"}`,
			setupMock: func(m *MockService) {
				m.On("Verify", mock.Anything, "tok").
					Return(models.LoginResult{}, fmt.Errorf("auth.Verify: %w", apperr.ErrInvalidOrExpiredToken))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"detail":"invalid_or_expired_token"}`,
		},
		{
			name:           "пустой код",
			body:           `{"token":""}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"detail":"field token is a required field"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			rr := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/verify", strings.NewReader(tt.body)))

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
