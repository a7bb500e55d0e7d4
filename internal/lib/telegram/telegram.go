// Package telegram отправляет алерты в чат через Telegram Bot API.
package telegram

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

// Client — бот, пишущий в один чат.
type Client struct {
	token      string
	chatID     string
	apiURL     string
	httpClient *http.Client
}

// New создаёт клиента. Без токена или чата Enabled возвращает false.
func New(cfg config.Telegram) *Client {
	apiURL := cfg.TelegramAPIURL
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	timeout := cfg.TelegramTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		token:      cfg.TelegramToken,
		chatID:     cfg.TelegramChatID,
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled сообщает, настроены ли токен и чат.
func (c *Client) Enabled() bool {
	return c.token != "" && c.chatID != ""
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// Send публикует сообщение в чат.
func (c *Client) Send(ctx context.Context, text string) error {
	const op = "telegram.Send"
	if !c.Enabled() {
		return nil
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: c.chatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	url := c.apiURL + "/bot" + c.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// в ошибке net/http есть URL с токеном бота
		return fmt.Errorf("%s: request failed: %w", op, redact(err, c.token))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: unexpected status %s: %s", op, resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, token string) error {
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "***"), err: err}
}
