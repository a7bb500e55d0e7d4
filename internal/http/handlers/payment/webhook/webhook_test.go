package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/greencore-api/internal/services/payment"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, job payment.WebhookJob) error {
	return m.Called(ctx, job).Error(0)
}

const succeeded = `{"event":"payment.succeeded","object":{"id":"pay-1","status":"succeeded"}}`

func sign(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jobFor := func(body string) interface{} {
		return mock.MatchedBy(func(j payment.WebhookJob) bool {
			return string(j.Payload) == body && j.ID != ""
		})
	}

	tests := []struct {
		name           string
		secret         string
		body           string
		signature      string
		setupMock      func(*MockDispatcher)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "уведомление принято без подписи",
			body: succeeded,
			setupMock: func(m *MockDispatcher) {
				m.On("Dispatch", mock.Anything, jobFor(succeeded)).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"ok"}`,
		},
		{
			name:      "верная подпись",
			secret:    "s3cret",
			body:      succeeded,
			signature: sign(succeeded, "s3cret"),
			setupMock: func(m *MockDispatcher) {
				m.On("Dispatch", mock.Anything, jobFor(succeeded)).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"ok"}`,
		},
		{
			name:           "неверная подпись",
			secret:         "s3cret",
			body:           succeeded,
			signature:      sign(succeeded, "other"),
			setupMock:      func(*MockDispatcher) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"detail":"invalid signature"}`,
		},
		{
			name:           "нет object.id",
			body:           `{"event":"payment.succeeded","object":{}}`,
			setupMock:      func(*MockDispatcher) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"detail":"malformed payload"}`,
		},
		{
			name:           "не JSON",
			body:           `oops`,
			setupMock:      func(*MockDispatcher) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"detail":"malformed payload"}`,
		},
		{
			name: "очередь недоступна",
			body: succeeded,
			setupMock: func(m *MockDispatcher) {
				m.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("channel closed"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"detail":"internal error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := new(MockDispatcher)
			tt.setupMock(d)

			req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", strings.NewReader(tt.body))
			if tt.signature != "" {
				req.Header.Set(SignatureHeader, tt.signature)
			}
			rr := httptest.NewRecorder()
			New(logger, d, tt.secret).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			d.AssertExpectations(t)
		})
	}
}
