package mqhandler

import (
	"context"
	"encoding/json"

	"foundermatch/pkg/mq"
)

// Deduper 按 (handler, event_id) 去重；pkg/util.Deduper 的 Redis 实现满足该接口
type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, eventID string) bool
	Release(ctx context.Context, handler string, eventID string)
}

// eventID 只解出 meta 中的 event_id
func eventID(raw json.RawMessage) string {
	var meta struct {
		EventID string `json:"event_id"`
	}
	_ = json.Unmarshal(raw, &meta)
	return meta.EventID
}

// Once 给 handler 加上去重；处理失败时释放标记，使重投的消息可以再次处理
func Once(d Deduper, name string, h mq.MessageHandler) mq.MessageHandler {
	if d == nil {
		return h
	}
	return func(ctx context.Context, routingKey string, raw json.RawMessage) error {
		id := eventID(raw)
		if id == "" {
			return h(ctx, routingKey, raw)
		}
		if !d.AcquireOnce(ctx, name, id) {
			return nil
		}
		if err := h(ctx, routingKey, raw); err != nil {
			d.Release(ctx, name, id)
			return err
		}
		return nil
	}
}

// Chain 依次执行多个 handler，遇到错误即返回；配合 Once 使用时重投只会执行未完成的部分
func Chain(hs ...mq.MessageHandler) mq.MessageHandler {
	return func(ctx context.Context, routingKey string, raw json.RawMessage) error {
		for _, h := range hs {
			if err := h(ctx, routingKey, raw); err != nil {
				return err
			}
		}
		return nil
	}
}
