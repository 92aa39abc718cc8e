package memory

import (
	"context"
	"slices"
	"time"

	"foundermatch/pkg/outbox"
)

// Outbox 实现 outbox.Store
type Outbox struct{ s *Store }

func cloneEvent(e *outbox.Event) *outbox.Event {
	cp := *e
	cp.Payload = slices.Clone(e.Payload)
	if e.NextRetryAt != nil {
		t := *e.NextRetryAt
		cp.NextRetryAt = &t
	}
	return &cp
}

// ClaimPendingEvents 领取到期的 pending 事件，并把 next_retry_at 推后 lease 作为租约
func (o *Outbox) ClaimPendingEvents(ctx context.Context, limit int, lease time.Duration) ([]*outbox.Event, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	now := o.s.now()
	due := make([]*outbox.Event, 0)
	for _, e := range o.s.events {
		if e.Status == outbox.StatusPending && (e.NextRetryAt == nil || !e.NextRetryAt.After(now)) {
			due = append(due, e)
		}
	}
	slices.SortFunc(due, func(a, b *outbox.Event) int { return int(a.ID - b.ID) })
	if len(due) > limit {
		due = due[:limit]
	}
	out := make([]*outbox.Event, 0, len(due))
	for _, e := range due {
		until := now.Add(lease)
		e.NextRetryAt = &until
		out = append(out, cloneEvent(e))
	}
	return out, nil
}

func (o *Outbox) MarkAsSent(ctx context.Context, eventID int64) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	e, ok := o.s.events[eventID]
	if !ok {
		return outbox.ErrEventNotFound
	}
	e.Status = outbox.StatusSent
	e.NextRetryAt = nil
	e.UpdatedAt = o.s.now()
	return nil
}

func (o *Outbox) MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	e, ok := o.s.events[eventID]
	if !ok {
		return outbox.ErrEventNotFound
	}
	now := o.s.now()
	e.RetryCount++
	e.UpdatedAt = now
	if e.RetryCount >= maxRetries {
		e.Status = outbox.StatusFailed
		e.NextRetryAt = nil
		return nil
	}
	next := now.Add(outbox.NextRetryDelay(e.RetryCount))
	e.NextRetryAt = &next
	return nil
}

func (o *Outbox) GetEventByID(ctx context.Context, eventID int64) (*outbox.Event, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	e, ok := o.s.events[eventID]
	if !ok {
		return nil, outbox.ErrEventNotFound
	}
	return cloneEvent(e), nil
}

// ReplayEvent 重置为 pending 并清零重试次数
func (o *Outbox) ReplayEvent(ctx context.Context, eventID int64) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	e, ok := o.s.events[eventID]
	if !ok {
		return outbox.ErrEventNotFound
	}
	e.Status = outbox.StatusPending
	e.RetryCount = 0
	e.NextRetryAt = nil
	e.UpdatedAt = o.s.now()
	return nil
}

func (o *Outbox) GetFailedEvents(ctx context.Context, limit int) ([]*outbox.Event, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	out := make([]*outbox.Event, 0)
	for _, e := range o.s.events {
		if e.Status == outbox.StatusFailed {
			out = append(out, cloneEvent(e))
		}
	}
	slices.SortFunc(out, func(a, b *outbox.Event) int { return int(a.ID - b.ID) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Events 按写入顺序返回全部事件
func (o *Outbox) Events() []*outbox.Event {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	out := make([]*outbox.Event, 0, len(o.s.events))
	for _, e := range o.s.events {
		out = append(out, cloneEvent(e))
	}
	slices.SortFunc(out, func(a, b *outbox.Event) int { return int(a.ID - b.ID) })
	return out
}

// RoutingKeys 按写入顺序返回全部事件的 routing key
func (o *Outbox) RoutingKeys() []string {
	events := o.Events()
	keys := make([]string, 0, len(events))
	for _, e := range events {
		keys = append(keys, e.RoutingKey)
	}
	return keys
}
