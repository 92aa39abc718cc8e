package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"foundermatch/pkg/metrics"
	"foundermatch/pkg/trace"
)

// Publisher 发布已编码的事件
type Publisher interface {
	PublishRaw(ctx context.Context, routingKey string, body []byte) error
}

// Dispatcher 负责从 outbox 中读取事件并发布到 MQ
type Dispatcher struct {
	store      Store
	publisher  Publisher
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
	lease      time.Duration
}

// NewDispatcher 创建新的 Dispatcher
func NewDispatcher(store Store, publisher Publisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		publisher:  publisher,
		logger:     logger,
		maxRetries: 5,
		interval:   time.Second,
		batchSize:  100,
		lease:      30 * time.Second,
	}
}

// WithMaxRetries 设置最大重试次数
func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	if maxRetries > 0 {
		d.maxRetries = maxRetries
	}
	return d
}

// WithInterval 设置扫描间隔
func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// WithBatchSize 设置批次大小
func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	if batchSize > 0 {
		d.batchSize = batchSize
	}
	return d
}

// Start 阻塞运行直到 ctx 取消
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting Outbox Dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox Dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil {
				d.logger.Error("Failed to dispatch outbox events", zap.Error(err))
			}
		}
	}
}

// DispatchOnce 处理一批事件，返回成功发布的数量
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	events, err := d.store.ClaimPendingEvents(ctx, d.batchSize, d.lease)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	d.logger.Debug("Processing pending events", zap.Int("count", len(events)))

	sent := 0
	for _, event := range events {
		if err := d.publish(ctx, event); err != nil {
			metrics.IncrementOutboxPublish(event.RoutingKey, StatusFailed)
			d.logger.Error("Failed to publish event",
				zap.Int64("event_id", event.ID),
				zap.String("routing_key", event.RoutingKey),
				zap.Error(err),
			)
			if err := d.store.MarkAsFailed(ctx, event.ID, d.maxRetries); err != nil {
				d.logger.Error("Failed to mark event as failed",
					zap.Int64("event_id", event.ID),
					zap.Error(err),
				)
			}
			continue
		}

		metrics.IncrementOutboxPublish(event.RoutingKey, StatusSent)
		if err := d.store.MarkAsSent(ctx, event.ID); err != nil {
			d.logger.Error("Failed to mark event as sent",
				zap.Int64("event_id", event.ID),
				zap.Error(err),
			)
			continue
		}
		sent++
		d.logger.Debug("Event published successfully",
			zap.Int64("event_id", event.ID),
			zap.String("routing_key", event.RoutingKey),
		)
	}

	return sent, nil
}

func (d *Dispatcher) publish(ctx context.Context, event *Event) error {
	return d.publisher.PublishRaw(traceContext(ctx, event.Payload), event.RoutingKey, event.Payload)
}

// traceContext 如果 payload 带 trace_id，沿用它
func traceContext(ctx context.Context, payload json.RawMessage) context.Context {
	var envelope struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.TraceID == "" {
		return ctx
	}
	return trace.WithContext(ctx, envelope.TraceID)
}
