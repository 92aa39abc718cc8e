package mq

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Router 按 routing key 把消息分发给不同 handler，未注册的 key 直接确认
type Router struct {
	routes map[string]MessageHandler
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		routes: make(map[string]MessageHandler),
		logger: logger,
	}
}

func (r *Router) Register(routingKey string, h MessageHandler) {
	r.routes[routingKey] = h
}

// RoutingKeys 返回已注册的 routing key，用于绑定队列
func (r *Router) RoutingKeys() []string {
	keys := make([]string, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	return keys
}

// Handle 实现 MessageHandler
func (r *Router) Handle(ctx context.Context, routingKey string, data json.RawMessage) error {
	h, ok := r.routes[routingKey]
	if !ok {
		r.logger.Warn("No handler for routing key", zap.String("routing_key", routingKey))
		return nil
	}
	return h(ctx, routingKey, data)
}
