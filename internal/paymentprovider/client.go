// Package paymentprovider — клиент REST API ЮKassa.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/greencore-api/internal/apperr"
	"github.com/magabrotheeeer/greencore-api/internal/config"
)

// Client ходит в API ЮKassa с Basic-аутентификацией магазина.
type Client struct {
	shopID     string
	secretKey  string
	apiURL     string
	returnURL  string
	httpClient *http.Client
}

// NewClient создаёт новый клиент ЮKassa.
func NewClient(cfg config.YooKassa) *Client {
	timeout := cfg.PaymentTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://api.yookassa.ru/v3"
	}
	return &Client{
		shopID:     cfg.ShopID,
		secretKey:  cfg.SecretKey,
		apiURL:     strings.TrimRight(apiURL, "/"),
		returnURL:  cfg.ReturnURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ReturnURL — адрес возврата после оплаты.
func (c *Client) ReturnURL() string {
	return c.returnURL
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.shopID, c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// CreatePayment создаёт платёж. idempotenceKey должен быть уникален для каждой
// новой попытки. Сетевые ошибки, таймаут и ответы не 2xx оборачивают
// apperr.ErrDownstreamUnavailable.
func (c *Client) CreatePayment(ctx context.Context, reqParams CreatePaymentRequest, idempotenceKey string) (*Payment, error) {
	const op = "paymentprovider.CreatePayment"

	req, err := c.newRequest(ctx, http.MethodPost, "/payments", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Idempotence-Key", idempotenceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrDownstreamUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s: %w: unexpected status %s: %s",
			op, apperr.ErrDownstreamUnavailable, resp.Status, strings.TrimSpace(string(msg)))
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrDownstreamUnavailable, err)
	}
	if payment.ID == "" {
		return nil, fmt.Errorf("%s: %w: empty payment id", op, apperr.ErrDownstreamUnavailable)
	}
	return &payment, nil
}

// FormatRub форматирует сумму для поля amount.value: 490 → "490.00".
func FormatRub(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
