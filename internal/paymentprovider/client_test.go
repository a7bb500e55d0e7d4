package paymentprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/config"
)

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(config.YooKassa{
		ShopID:         "shop",
		SecretKey:      "secret",
		APIURL:         url,
		ReturnURL:      "https://greencore.ru/paid",
		PaymentTimeout: timeout,
	})
}

func TestClient_CreatePayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "idem-1", r.Header.Get("Idempotence-Key"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "shop", user)
		assert.Equal(t, "secret", pass)

		var body CreatePaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "1490.00", body.Amount.Value)
		assert.True(t, body.Capture)
		assert.Equal(t, "redirect", body.Confirmation.Type)
		assert.Equal(t, "premium", body.Metadata["plan"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pay-1","status":"pending",
			"confirmation":{"type":"redirect","confirmation_url":"https://yoomoney.ru/checkout/pay-1"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second)
	p, err := c.CreatePayment(context.Background(), CreatePaymentRequest{
		Amount:       Amount{Value: FormatRub(1490), Currency: "RUB"},
		Capture:      true,
		Confirmation: Confirmation{Type: "redirect", ReturnURL: c.ReturnURL()},
		Metadata:     map[string]string{"plan": "premium", "email": "a@b.com"},
	}, "idem-1")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", p.ID)
	require.NotNil(t, p.Confirmation)
	assert.Equal(t, "https://yoomoney.ru/checkout/pay-1", p.Confirmation.ConfirmationURL)
}

func TestClient_CreatePayment_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
	}{
		{
			name: "non 2xx",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"type":"error"}`))
			},
			timeout: time.Second,
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
			timeout: time.Second,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				time.Sleep(200 * time.Millisecond)
				_, _ = w.Write([]byte(`{"id":"late"}`))
			},
			timeout: 50 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestClient(srv.URL, tt.timeout).CreatePayment(context.Background(), CreatePaymentRequest{}, "k")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrDownstreamUnavailable)
		})
	}
}

func TestFormatRub(t *testing.T) {
	assert.Equal(t, "490.00", FormatRub(490))
	assert.Equal(t, "0.50", FormatRub(0.5))
}
