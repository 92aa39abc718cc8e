package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	DLQExchangeName = "foundermatch.events.dlq"
)

// DeclareDLQExchange declares the dead letter exchange.
func DeclareDLQExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		DLQExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
}

// DeclareDLQQueue declares "<queue>.dlq" bound to the DLQ exchange for the given routing keys.
func DeclareDLQQueue(ch *amqp091.Channel, queueName string, routingKeys []string) (amqp091.Queue, error) {
	q, err := ch.QueueDeclare(
		queueName+".dlq",
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare DLQ queue: %w", err)
	}

	for _, key := range routingKeys {
		if err := ch.QueueBind(q.Name, key, DLQExchangeName, false, nil); err != nil {
			return amqp091.Queue{}, fmt.Errorf("failed to bind DLQ queue: %w", err)
		}
	}

	return q, nil
}

// publishToDLQ 在消费者自己的 channel 上把消息转入死信
func publishToDLQ(ctx context.Context, ch *amqp091.Channel, msg amqp091.Delivery, queue string, originalError string) error {
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-original-error"] = originalError
	headers["x-failed-queue"] = queue
	headers["x-failed-at"] = time.Now().UTC().Format(time.RFC3339)

	return ch.PublishWithContext(ctx,
		DLQExchangeName,
		msg.RoutingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         msg.Body,
			DeliveryMode: amqp091.Persistent,
			MessageId:    msg.MessageId,
			Headers:      headers,
		},
	)
}
