package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRouterDispatchesByRoutingKey(t *testing.T) {
	r := NewRouter(zap.NewNop())
	var got []string
	r.Register("task.reviewed", func(_ context.Context, key string, data json.RawMessage) error {
		got = append(got, key+":"+string(data))
		return nil
	})

	assert.NoError(t, r.Handle(context.Background(), "task.reviewed", json.RawMessage(`{"a":1}`)))
	assert.NoError(t, r.Handle(context.Background(), "unknown.key", json.RawMessage(`{}`)))
	assert.Equal(t, []string{`task.reviewed:{"a":1}`}, got)
	assert.ElementsMatch(t, []string{"task.reviewed"}, r.RoutingKeys())
}

func TestLocalPublisherHandsEventsToRouter(t *testing.T) {
	r := NewRouter(zap.NewNop())
	var seen map[string]int
	r.Register("proposal.accepted", func(_ context.Context, _ string, data json.RawMessage) error {
		return json.Unmarshal(data, &seen)
	})
	r.Register("task.submitted", func(context.Context, string, json.RawMessage) error {
		return errors.New("boom")
	})

	p := NewLocalPublisher(r, zap.NewNop())
	assert.NoError(t, p.PublishWithContext(context.Background(), "proposal.accepted", map[string]int{"proposal_id": 7}))
	assert.Equal(t, map[string]int{"proposal_id": 7}, seen)
	assert.ErrorContains(t, p.PublishRaw(context.Background(), "task.submitted", []byte(`{}`)), "boom")
}
