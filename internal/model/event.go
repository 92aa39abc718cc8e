package model

// OutboxMessage 与状态变更同事务写入 outbox 的事件
type OutboxMessage struct {
	AggregateType string
	AggregateID   int64
	RoutingKey    string
	Payload       any
}

// Aggregate types
const (
	AggregateProposal = "proposal"
	AggregateContract = "contract"
	AggregateTask     = "task"
)

// EventsFunc 在新实体拿到 ID 后构造要写入 outbox 的事件
type EventsFunc func(id int64) []OutboxMessage
