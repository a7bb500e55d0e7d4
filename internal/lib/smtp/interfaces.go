// Package smtp отправляет письма через SMTP-сервер с STARTTLS.
package smtp

import (
	"context"
	"io"
)

// Client интерфейс для SMTP клиента.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface интерфейс для SMTP транспорта.
type TransportInterface interface {
	Connect(ctx context.Context) (Client, error)
	GetSMTPUser() string
}
