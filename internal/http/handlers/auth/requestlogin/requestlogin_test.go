package requestlogin

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
)

type MockService struct {
	mock.Mock
}

func (m *MockService) RequestLogin(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func TestRequestLoginHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "код отправлен",
			body: `{"email":"user@example.com"}`,
			setupMock: func(m *MockService) {
				m.On("RequestLogin", mock.Anything, "user@example.com").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"ok","message":"login code sent"}`,
		},
		{
			name: "почта недоступна",
			body: `{"email":"user@example.com"}`,
			setupMock: func(m *MockService) {
				m.On("RequestLogin", mock.Anything, "user@example.com").
					Return(fmt.Errorf("auth.RequestLogin: %w", apperr.ErrDownstreamUnavailable))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"detail":"downstream service unavailable"}`,
		},
		{
			name:           "нет email",
			body:           `{}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"detail":"field email is a required field"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			rr := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/request-login", strings.NewReader(tt.body)))

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
