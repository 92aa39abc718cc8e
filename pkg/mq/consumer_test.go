package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type brokenTracker struct{}

func (brokenTracker) IncrementAndGet(context.Context, string) (int64, error) {
	return 0, errors.New("redis: connection refused")
}

func (brokenTracker) Reset(context.Context, string) error { return nil }

func newTestConsumer(tracker RetryTracker) *Consumer {
	return &Consumer{
		queue:      amqp091.Queue{Name: "foundermatch.worker.q"},
		logger:     zap.NewNop(),
		retries:    tracker,
		local:      newLocalRetries(100),
		maxRetries: 3,
	}
}

func requeues(c *Consumer, msg amqp091.Delivery) int {
	n := 0
	for c.shouldRequeue(context.Background(), msg) {
		n++
		if n > 100 {
			break
		}
	}
	return n
}

func TestRequeueIsBoundedWithoutRedis(t *testing.T) {
	c := newTestConsumer(nil)
	assert.Equal(t, 3, requeues(c, amqp091.Delivery{MessageId: "evt-1"}))

	// 另一条消息有自己的计数
	assert.Equal(t, 3, requeues(c, amqp091.Delivery{MessageId: "evt-2"}))
}

func TestRequeueFallsBackWhenRedisFails(t *testing.T) {
	c := newTestConsumer(brokenTracker{})
	assert.Equal(t, 3, requeues(c, amqp091.Delivery{MessageId: "evt-1"}))
}

func TestRequeueWithoutMessageIDUsesRedeliveredFlag(t *testing.T) {
	c := newTestConsumer(nil)
	assert.True(t, c.shouldRequeue(context.Background(), amqp091.Delivery{}))
	assert.False(t, c.shouldRequeue(context.Background(), amqp091.Delivery{Redelivered: true}))
}

func TestLocalRetriesStayBounded(t *testing.T) {
	r := newLocalRetries(2)
	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		_, _ = r.IncrementAndGet(ctx, key)
	}
	assert.LessOrEqual(t, len(r.counts), 2)

	n, _ := r.IncrementAndGet(ctx, "c")
	assert.Equal(t, int64(2), n)
	_ = r.Reset(ctx, "c")
	n, _ = r.IncrementAndGet(ctx, "c")
	assert.Equal(t, int64(1), n)
}
