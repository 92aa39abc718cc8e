package memory

import (
	"context"
	"slices"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
)

type Tasks struct{ s *Store }

// Create 一个任务至多被修订一次
func (r *Tasks) Create(ctx context.Context, t *model.Task, events ...model.OutboxMessage) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t.RevisionOf != nil {
		for _, existing := range r.s.tasks {
			if existing.RevisionOf != nil && *existing.RevisionOf == *t.RevisionOf {
				return 0, apperr.New(apperr.CodeInvalidTransition, "task %d has already been revised", *t.RevisionOf)
			}
		}
	}
	if err := r.s.writeEvents(events); err != nil {
		return 0, err
	}
	cp := t.Clone()
	cp.ID = r.s.nextID("tasks")
	r.s.tasks[cp.ID] = cp
	return cp.ID, nil
}

func (r *Tasks) Get(ctx context.Context, id int64) (*model.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return nil, apperr.NotFound("task", id)
	}
	return t.Clone(), nil
}

// Update 仅当存储中的状态仍为 expected 时写入
func (r *Tasks) Update(ctx context.Context, t *model.Task, expected model.TaskStatus, events ...model.OutboxMessage) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.tasks[t.ID]
	if !ok {
		return false, apperr.NotFound("task", t.ID)
	}
	if cur.Status != expected {
		return false, nil
	}
	if err := r.s.writeEvents(events); err != nil {
		return false, err
	}
	r.s.tasks[t.ID] = t.Clone()
	return true, nil
}

// Delete 只删除草稿
func (r *Tasks) Delete(ctx context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.tasks[id]
	if !ok {
		return false, apperr.NotFound("task", id)
	}
	if cur.Status != model.TaskDraft {
		return false, nil
	}
	delete(r.s.tasks, id)
	return true, nil
}

func (r *Tasks) ListByContract(ctx context.Context, contractID int64) ([]model.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.Task, 0)
	for _, t := range r.s.tasks {
		if t.ContractID == contractID {
			out = append(out, *t.Clone())
		}
	}
	slices.SortFunc(out, func(a, b model.Task) int { return int(a.ID - b.ID) })
	return out, nil
}
