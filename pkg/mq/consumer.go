package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"foundermatch/pkg/logger"
	"foundermatch/pkg/metrics"
	"foundermatch/pkg/otel"
	"foundermatch/pkg/trace"
	"foundermatch/pkg/util"
)

type MessageHandler func(ctx context.Context, routingKey string, data json.RawMessage) error

// RetryTracker 记录消息的投递次数
type RetryTracker interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type Consumer struct {
	conn        *amqp091.Connection
	channel     *amqp091.Channel
	queue       amqp091.Queue
	routingKeys []string
	handler     MessageHandler
	logger      *zap.Logger

	retries    RetryTracker
	local      *localRetries
	maxRetries int64
}

// NewConsumer creates a consumer bound to one or more routing keys.
// An empty queueName declares a server-named, exclusive, auto-delete queue (per-instance fan-out).
func NewConsumer(url, queueName string, routingKeys []string, logger *zap.Logger) (*Consumer, error) {
	if len(routingKeys) == 0 {
		return nil, errors.New("at least one routing key is required")
	}

	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	closeAll := func() {
		ch.Close()
		conn.Close()
	}

	if err := DeclareExchange(ch); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := DeclareDLQExchange(ch); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare dlq exchange: %w", err)
	}

	transient := queueName == ""
	q, err := ch.QueueDeclare(
		queueName,
		!transient, // durable
		transient,  // auto-delete
		transient,  // exclusive
		false,
		nil,
	)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range routingKeys {
		if err := ch.QueueBind(q.Name, key, ExchangeName, false, nil); err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to bind queue: %w", err)
		}
	}

	if !transient {
		if _, err := DeclareDLQQueue(ch, q.Name, routingKeys); err != nil {
			closeAll()
			return nil, err
		}
	}

	if err := ch.Qos(16, 0, false); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.Strings("routing_keys", routingKeys),
		zap.String("queue", q.Name),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:        conn,
		channel:     ch,
		queue:       q,
		routingKeys: routingKeys,
		logger:      logger,
		local:       newLocalRetries(10000),
		maxRetries:  3,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// WithRetry 启用基于计数的重试，超过 maxRetries 后转入死信
func (c *Consumer) WithRetry(tracker RetryTracker, maxRetries int64) *Consumer {
	c.retries = tracker
	c.maxRetries = maxRetries
	return c
}

// IsConnected reports whether the underlying connection is open.
func (c *Consumer) IsConnected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming blocks until ctx is cancelled or the delivery channel closes.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	tag := "foundermatch-" + uuid.NewString()
	deliveries, err := c.channel.Consume(
		c.queue.Name,
		tag,
		false, // 手动ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.Strings("routing_keys", c.routingKeys),
		zap.String("queue", c.queue.Name),
		zap.String("consumer_tag", tag),
	)

	for {
		select {
		case <-ctx.Done():
			_ = c.channel.Cancel(tag, false)
			c.logger.Info("Consumer stopped", zap.String("queue", c.queue.Name))
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handleDelivery(ctx, msg)
		}
	}
}

// handleDelivery 保证每条消息都会被 ack、nack 或转入死信
func (c *Consumer) handleDelivery(ctx context.Context, msg amqp091.Delivery) {
	start := time.Now()
	headerTraceID, _ := msg.Headers[trace.HeaderName].(string)
	ctx, _ = trace.Ensure(ctx, headerTraceID)
	ctx, span := otel.MQConsumeSpan(ctx, msg.Headers, msg.RoutingKey, c.queue.Name)
	defer span.End()

	log := logger.WithTrace(ctx, c.logger).With(
		zap.String("routing_key", msg.RoutingKey),
		zap.String("queue", c.queue.Name),
		zap.String("message_id", msg.MessageId),
	)
	log.Debug("Received message", zap.Int("message_size", len(msg.Body)))

	result := "ack"
	defer func() {
		if r := recover(); r != nil {
			log.Error("Handler panic recovered", zap.Any("panic", r))
			result = "panic"
			if err := publishToDLQ(ctx, c.channel, msg, c.queue.Name, fmt.Sprint("panic: ", r)); err != nil {
				_ = msg.Nack(false, true)
			} else {
				_ = msg.Ack(false)
			}
		}
		metrics.RecordMQConsumeLatency(msg.RoutingKey, c.queue.Name, result, time.Since(start))
	}()

	err := c.handler(ctx, msg.RoutingKey, msg.Body)
	if err == nil {
		if msg.MessageId != "" {
			key := util.FormatRetryKey(c.queue.Name, msg.MessageId)
			if c.retries != nil {
				_ = c.retries.Reset(ctx, key)
			}
			_ = c.local.Reset(ctx, key)
		}
		if err := msg.Ack(false); err != nil {
			log.Error("Failed to ack message", zap.Error(err))
		}
		return
	}

	span.RecordError(err)
	retryable, errType := util.IsRetryableError(err)
	log = log.With(zap.String("error_type", errType), zap.Error(err))

	if retryable && c.shouldRequeue(ctx, msg) {
		result = "requeue"
		log.Warn("Handler failed, requeueing")
		if err := msg.Nack(false, true); err != nil {
			log.Error("Failed to nack message", zap.Error(err))
		}
		return
	}

	result = "dlq"
	log.Error("Handler failed, moving message to DLQ")
	if err := publishToDLQ(ctx, c.channel, msg, c.queue.Name, err.Error()); err != nil {
		log.Error("Failed to publish to DLQ, requeueing", zap.NamedError("dlq_error", err))
		_ = msg.Nack(false, true)
		return
	}
	if err := msg.Ack(false); err != nil {
		log.Error("Failed to ack message after DLQ", zap.Error(err))
	}
}

// shouldRequeue 优先使用 Redis 计数；不可用时退回进程内计数。
// 没有 message id 的消息无法计数，只允许 broker 重投一次
func (c *Consumer) shouldRequeue(ctx context.Context, msg amqp091.Delivery) bool {
	if msg.MessageId == "" {
		return !msg.Redelivered
	}
	key := util.FormatRetryKey(c.queue.Name, msg.MessageId)
	if c.retries != nil {
		count, err := c.retries.IncrementAndGet(ctx, key)
		if err == nil {
			return util.ShouldRetry(count, c.maxRetries, true)
		}
		c.logger.Warn("Retry counter unavailable, falling back to local count", zap.Error(err))
	}
	count, _ := c.local.IncrementAndGet(ctx, key)
	return util.ShouldRetry(count, c.maxRetries, true)
}
