package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
)

// PublishMessage публикует сообщение в формате JSON с persistent-доставкой.
func PublishMessage(ch *amqp.Channel, exchange string, routingKey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Publisher публикует сообщения в один exchange/ключ через общий канал.
type Publisher struct {
	mu         sync.Mutex
	ch         *amqp.Channel
	exchange   string
	routingKey string
}

// NewPublisher создаёт публикатор для очереди q в exchange.
func NewPublisher(ch *amqp.Channel, exchange string, q QueueConfig) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, routingKey: q.RoutingKey}
}

// Publish сериализует message и отправляет его в очередь.
func (p *Publisher) Publish(ctx context.Context, message any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rabbitmq.Publish: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return PublishMessage(p.ch, p.exchange, p.routingKey, message)
}
