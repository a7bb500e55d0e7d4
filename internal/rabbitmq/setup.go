package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// PaymentsExchange — direct-exchange для заданий платёжного контура.
const PaymentsExchange = "payments"

// QueueConfig описывает очередь и ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// WebhookQueue — очередь заданий обработки вебхуков ЮKassa.
var WebhookQueue = QueueConfig{QueueName: "payments.webhook", RoutingKey: "webhook"}

// PaymentQueues возвращает очереди платёжного контура.
func PaymentQueues() []QueueConfig {
	return []QueueConfig{WebhookQueue}
}

// SetupChannel открывает канал и объявляет exchange и durable-очереди.
func SetupChannel(conn *amqp.Connection, exchange string, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, exchange, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w",
				op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
