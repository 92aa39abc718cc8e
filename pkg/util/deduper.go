package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper 基于 Redis SetNX 的消息去重
type Deduper struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func dedupKey(handler, eventID string) string {
	return fmt.Sprintf("dedup:%s:%s", handler, eventID)
}

// AcquireOnce 首次处理返回 true，重复返回 false；Redis 不可用时放行
func (d *Deduper) AcquireOnce(ctx context.Context, handler string, eventID string) bool {
	key := dedupKey(handler, eventID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("handler", handler),
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.String("event_id", eventID),
			zap.String("dedup_key", key),
		)
	}

	return ok
}

// Release 处理失败时释放去重标记，使重投的消息可以再次处理
func (d *Deduper) Release(ctx context.Context, handler string, eventID string) {
	if err := d.rdb.Del(ctx, dedupKey(handler, eventID)).Err(); err != nil {
		d.logger.Warn("Failed to release dedup key",
			zap.String("handler", handler),
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
}
