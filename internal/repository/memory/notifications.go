package memory

import (
	"context"
	"slices"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
)

type Notifications struct{ s *Store }

func (r *Notifications) Create(ctx context.Context, n *model.Notification) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *n
	cp.ID = r.s.nextID("notifications")
	r.s.notifications[cp.ID] = &cp
	return cp.ID, nil
}

// ListByUser 最新的在前
func (r *Notifications) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.Notification, 0)
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	slices.SortFunc(out, func(a, b model.Notification) int { return int(b.ID - a.ID) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Notifications) MarkRead(ctx context.Context, id, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		return apperr.NotFound("notification", id)
	}
	n.Read = true
	return nil
}

func (r *Notifications) CountUnread(ctx context.Context, userID int64) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}
