package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/greencore-api/internal/lib/sl"
)

// ConsumerMessage читает очередь queueName и вызывает handler для каждого
// сообщения, не более parallel одновременно. Успех — ack, ошибка — nack с
// возвратом в очередь (доставка at-least-once). Возвращается после запуска
// потребителя; чтение прекращается при отмене ctx.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string,
	parallel int, handler func(context.Context, []byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if parallel < 1 {
		parallel = 1
	}
	log = log.With(slog.String("op", op), slog.String("queue", queueName))

	sem := make(chan struct{}, parallel)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					log.Warn("delivery channel closed")
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					handle(ctx, log, d, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func handle(ctx context.Context, log *slog.Logger, d amqp.Delivery, handler func(context.Context, []byte) error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", slog.Any("panic", r))
			_ = d.Nack(false, false)
		}
	}()

	if err := handler(ctx, d.Body); err != nil {
		log.Error("failed to handle message", sl.Err(err), slog.Bool("redelivered", d.Redelivered))
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
