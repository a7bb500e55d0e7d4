package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/magabrotheeeer/greencore-api/internal/config"
	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
)

// Transport устанавливает аутентифицированные SMTP-сессии.
type Transport struct {
	cfg config.Mail
	log *slog.Logger
}

type smtpClientWrapper struct {
	client *smtp.Client
}

func (w *smtpClientWrapper) Mail(from string) error {
	return w.client.Mail(from)
}

func (w *smtpClientWrapper) Rcpt(to string) error {
	return w.client.Rcpt(to)
}

func (w *smtpClientWrapper) Data() (io.WriteCloser, error) {
	return w.client.Data()
}

func (w *smtpClientWrapper) Quit() error {
	return w.client.Quit()
}

func (w *smtpClientWrapper) Close() error {
	return w.client.Close()
}

// NewTransport создает новый экземпляр Transport.
func NewTransport(cfg config.Mail, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log}
}

// Connect открывает соединение, включает STARTTLS и проходит PLAIN-аутентификацию.
// Вся сессия ограничена MailTimeout.
func (t *Transport) Connect(ctx context.Context) (Client, error) {
	const op = "smtp.Connect"
	log := t.log.With(slog.String("op", op))

	timeout := t.cfg.MailTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	addr := net.JoinHostPort(t.cfg.SMTPHost, t.cfg.SMTPPort)

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		log.Error("failed to dial SMTP server", sl.Err(err))
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}
	if err = conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.SMTPHost)
	if err != nil {
		log.Error("failed to create SMTP client", sl.Err(err))
		if closeErr := conn.Close(); closeErr != nil {
			log.Error("failed to close connection", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tlsConfig := &tls.Config{
		ServerName: t.cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	if ok, _ := client.Extension("STARTTLS"); !ok {
		log.Error("SMTP server does not support STARTTLS")
		if closeErr := client.Close(); closeErr != nil {
			log.Error("failed to close client", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: server does not support STARTTLS", op)
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		log.Error("failed to start TLS", sl.Err(err))
		if closeErr := client.Close(); closeErr != nil {
			log.Error("failed to close client", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: starttls: %w", op, err)
	}

	auth := smtp.PlainAuth("", t.cfg.SMTPUser, t.cfg.SMTPPass, t.cfg.SMTPHost)
	if err = client.Auth(auth); err != nil {
		log.Error("smtp auth failed", sl.Err(err))
		if closeErr := client.Close(); closeErr != nil {
			log.Error("failed to close client", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: auth: %w", op, err)
	}

	return &smtpClientWrapper{client: client}, nil
}

// GetSMTPUser возвращает имя пользователя SMTP.
func (t *Transport) GetSMTPUser() string {
	return t.cfg.SMTPUser
}
