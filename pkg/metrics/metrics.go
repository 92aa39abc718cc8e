package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue", "result"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"operation"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 提案状态迁移计数
	ProposalTransitionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proposal_transition_total",
			Help: "Total number of proposal status transitions",
		},
		[]string{"action", "result"}, // result: ok, conflict, rejected
	)

	// 合同事件计数
	ContractEventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contract_event_total",
			Help: "Total number of contract lifecycle events",
		},
		[]string{"event"}, // generated, ready_to_sign, signed, executed, terminated
	)

	// 任务评审计数
	TaskReviewCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_review_total",
			Help: "Total number of collaboration task reviews",
		},
		[]string{"decision"},
	)

	// outbox 发布计数
	OutboxPublishCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_publish_total",
			Help: "Total number of outbox publish attempts",
		},
		[]string{"routing_key", "status"}, // status: sent, failed
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue, result string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue, result).Observe(float64(duration.Milliseconds()))
}

// IncrementSlowQuery 记录一次慢查询
func IncrementSlowQuery(operation string, duration time.Duration) {
	SlowQueryCount.WithLabelValues(operation).Inc()
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementProposalTransition 记录提案状态迁移
func IncrementProposalTransition(action, result string) {
	ProposalTransitionCount.WithLabelValues(action, result).Inc()
}

// IncrementContractEvent 记录合同事件
func IncrementContractEvent(event string) {
	ContractEventCount.WithLabelValues(event).Inc()
}

// IncrementTaskReview 记录任务评审
func IncrementTaskReview(decision string) {
	TaskReviewCount.WithLabelValues(decision).Inc()
}

// IncrementOutboxPublish 记录 outbox 发布结果
func IncrementOutboxPublish(routingKey, status string) {
	OutboxPublishCount.WithLabelValues(routingKey, status).Inc()
}
