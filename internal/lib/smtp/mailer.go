package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
)

// Mailer отправляет HTML-письма через Transport.
type Mailer struct {
	transport TransportInterface
	from      string
	log       *slog.Logger
}

// NewMailer создает Mailer. Пустой from заменяется логином SMTP.
func NewMailer(transport TransportInterface, from string, log *slog.Logger) *Mailer {
	if from == "" {
		from = transport.GetSMTPUser()
	}
	return &Mailer{transport: transport, from: from, log: log}
}

// Send отправляет письмо одному получателю.
func (m *Mailer) Send(ctx context.Context, to, subject, html string) error {
	const op = "smtp.Send"
	log := m.log.With(slog.String("op", op))

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		html,
	}, "\r\n")

	client, err := m.transport.Connect(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = client.Close()
	}()

	envelopeFrom := m.transport.GetSMTPUser()
	if err := client.Mail(envelopeFrom); err != nil {
		log.Error("failed to set MAIL FROM", slog.String("from", envelopeFrom), sl.Err(err))
		return fmt.Errorf("%s: mail from: %w", op, err)
	}
	if err := client.Rcpt(to); err != nil {
		log.Error("failed to set RCPT TO", sl.Err(err))
		return fmt.Errorf("%s: rcpt: %w", op, err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("%s: write body: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("%s: close data: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		return fmt.Errorf("%s: quit: %w", op, err)
	}

	log.Info("email sent")
	return nil
}
