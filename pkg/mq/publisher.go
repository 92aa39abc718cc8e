package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"foundermatch/pkg/otel"
	"foundermatch/pkg/trace"
)

// Publisher 发布 JSON 事件到 events exchange；channel 发布需要串行
type Publisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	mu      sync.Mutex
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := DeclareDLQExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare dlq exchange: %w", err)
	}

	return &Publisher{
		conn:    conn,
		channel: ch,
	}, nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// IsConnected checks if the publisher connection is still alive
func (p *Publisher) IsConnected() bool {
	if p.conn == nil || p.channel == nil {
		return false
	}
	return !p.conn.IsClosed() && !p.channel.IsClosed()
}

// Publish publishes an event without a request context.
func (p *Publisher) Publish(routingKey string, payload any) error {
	return p.PublishWithContext(context.Background(), routingKey, payload)
}

// PublishWithContext marshals payload to JSON and publishes it, propagating trace_id and span context in headers.
func (p *Publisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return p.PublishRaw(ctx, routingKey, body)
}

// PublishRaw publishes an already encoded JSON body.
func (p *Publisher) PublishRaw(ctx context.Context, routingKey string, body []byte) error {
	ctx, span := otel.MQPublishSpan(ctx, routingKey, ExchangeName)
	defer span.End()

	headers := amqp091.Table{}
	if traceID := trace.FromContext(ctx); traceID != "" {
		headers[trace.HeaderName] = traceID
	}
	otel.InjectMQHeaders(ctx, headers)

	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(ctx,
		ExchangeName,
		routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			MessageId:    uuid.NewString(),
			Headers:      headers,
		},
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}
