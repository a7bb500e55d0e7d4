package resend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/greencore-api/internal/config"
)

func TestClient_Send(t *testing.T) {
	var got emailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer re_key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer srv.Close()

	c := New(config.Mail{ResendAPIKey: "re_key", ResendURL: srv.URL, From: "GreenCore <auth@greencore-api.ru>"})
	require.NoError(t, c.Send(context.Background(), "a@b.com", "Код входа", "<p>123</p>"))

	assert.Equal(t, []string{"a@b.com"}, got.To)
	assert.Equal(t, "Код входа", got.Subject)
	assert.Equal(t, "GreenCore <auth@greencore-api.ru>", got.From)
}

func TestClient_Send_Errors(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"invalid from"}`))
		}))
		defer srv.Close()

		err := New(config.Mail{ResendURL: srv.URL}).Send(context.Background(), "a@b.com", "s", "b")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid from")
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c := New(config.Mail{ResendURL: srv.URL, MailTimeout: 20 * time.Millisecond})
		require.Error(t, c.Send(context.Background(), "a@b.com", "s", "b"))
	})
}
