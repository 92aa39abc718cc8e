package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// LocalPublisher 未配置 MQ 时在进程内把事件直接交给 Router，处理失败即发布失败
type LocalPublisher struct {
	router *Router
	logger *zap.Logger
}

func NewLocalPublisher(router *Router, logger *zap.Logger) *LocalPublisher {
	return &LocalPublisher{router: router, logger: logger}
}

func (p *LocalPublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return p.PublishRaw(ctx, routingKey, body)
}

func (p *LocalPublisher) PublishRaw(ctx context.Context, routingKey string, body []byte) error {
	p.logger.Debug("Dispatching event in process", zap.String("routing_key", routingKey))
	if err := p.router.Handle(ctx, routingKey, json.RawMessage(body)); err != nil {
		return fmt.Errorf("failed to handle %s: %w", routingKey, err)
	}
	return nil
}
