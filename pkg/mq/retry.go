package mq

import (
	"context"
	"sync"
)

// localRetries 进程内的投递计数，没有 Redis 或 Redis 不可用时使用；
// 计数超过 limit 个 key 时整体清空，避免无限增长
type localRetries struct {
	mu     sync.Mutex
	counts map[string]int64
	limit  int
}

func newLocalRetries(limit int) *localRetries {
	return &localRetries{counts: make(map[string]int64), limit: limit}
}

func (r *localRetries) IncrementAndGet(_ context.Context, key string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.counts[key]; !ok && len(r.counts) >= r.limit {
		clear(r.counts)
	}
	r.counts[key]++
	return r.counts[key], nil
}

func (r *localRetries) Reset(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.counts, key)
	return nil
}
