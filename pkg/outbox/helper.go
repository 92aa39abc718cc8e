package outbox

import (
	"encoding/json"
	"fmt"
)

// NewEvent 序列化 payload，构造一个 pending 事件
func NewEvent(aggregateType string, aggregateID int64, routingKey string, payload any) (*Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outbox payload for %s: %w", routingKey, err)
	}
	return &Event{
		AggregateType: aggregateType,
		AggregateID:   &aggregateID,
		RoutingKey:    routingKey,
		Payload:       body,
		Status:        StatusPending,
	}, nil
}
