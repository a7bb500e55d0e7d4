// Package resend — клиент HTTP API Resend для отправки писем.
package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/greencore-api/internal/config"
)

const defaultURL = "https://api.resend.com/emails"

// Client отправляет письма через Resend.
type Client struct {
	apiKey     string
	url        string
	from       string
	httpClient *http.Client
}

// New создаёт клиента по настройкам почты.
func New(cfg config.Mail) *Client {
	url := cfg.ResendURL
	if url == "" {
		url = defaultURL
	}
	timeout := cfg.MailTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     cfg.ResendAPIKey,
		url:        url,
		from:       cfg.From,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send отправляет HTML-письмо одному получателю.
func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	const op = "resend.Send"

	body, err := json.Marshal(emailRequest{From: c.from, To: []string{to}, Subject: subject, HTML: html})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: unexpected status %s: %s", op, resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
