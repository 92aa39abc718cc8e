package util

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RetryCounter 基于 Redis INCR 的消息重试计数
type RetryCounter struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRetryCounter(rdb redis.Cmdable, ttl time.Duration) *RetryCounter {
	return &RetryCounter{rdb: rdb, ttl: ttl}
}

// IncrementAndGet 计数加一并返回新值，首次设置过期时间
func (r *RetryCounter) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	if count == 1 {
		r.rdb.Expire(ctx, key, r.ttl)
	}

	return count, nil
}

// Get 返回当前计数
func (r *RetryCounter) Get(ctx context.Context, key string) (int64, error) {
	count, err := r.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return count, err
}

// Reset 清除计数
func (r *RetryCounter) Reset(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// FormatRetryKey 格式化重试计数 key
func FormatRetryKey(queue string, messageID string) string {
	return fmt.Sprintf("retry:%s:%s", queue, messageID)
}
