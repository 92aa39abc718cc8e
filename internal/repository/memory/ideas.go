package memory

import (
	"context"
	"slices"
	"time"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
)

type Ideas struct{ s *Store }

func (r *Ideas) Create(ctx context.Context, idea *model.Idea) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := idea.Clone()
	cp.ID = r.s.nextID("ideas")
	r.s.ideas[cp.ID] = cp
	return cp.ID, nil
}

// Get 软删除的创意视为不存在
func (r *Ideas) Get(ctx context.Context, id int64) (*model.Idea, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.idea(id)
}

func (s *Store) idea(id int64) (*model.Idea, error) {
	i, ok := s.ideas[id]
	if !ok || i.DeletedAt != nil {
		return nil, apperr.NotFound("idea", id)
	}
	return i.Clone(), nil
}

func (r *Ideas) Update(ctx context.Context, idea *model.Idea) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.ideas[idea.ID]
	if !ok || cur.DeletedAt != nil {
		return apperr.NotFound("idea", idea.ID)
	}
	r.s.ideas[idea.ID] = idea.Clone()
	return nil
}

// SoftDelete 存在活跃提案、未生成合同的已接受提案或进行中的合同时拒绝删除
func (r *Ideas) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.ideas[id]
	if !ok || cur.DeletedAt != nil {
		return apperr.NotFound("idea", id)
	}
	if r.s.ideaReferenced(id) {
		return apperr.New(apperr.CodeHasActiveProposals, "idea %d has active proposals or contracts", id)
	}
	t := at
	cur.DeletedAt = &t
	cur.UpdatedAt = at
	return nil
}

func (s *Store) ideaReferenced(ideaID int64) bool {
	for _, p := range s.proposals {
		if p.IdeaID != ideaID {
			continue
		}
		if p.Status.Active() {
			return true
		}
		if p.Status == model.ProposalAccepted && !s.hasContractFor(p.ID) {
			return true
		}
	}
	for _, c := range s.contracts {
		if c.IdeaID == ideaID && c.Live() && c.Status != model.ContractExecuted {
			return true
		}
	}
	return false
}

func (s *Store) hasContractFor(proposalID int64) bool {
	for _, c := range s.contracts {
		if c.ProposalID == proposalID {
			return true
		}
	}
	return false
}

func (r *Ideas) List(ctx context.Context, filter model.IdeaFilter, after *model.IdeaCursor, limit int) ([]model.Idea, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.listIdeas(filter, after, limit), nil
}

func (s *Store) listIdeas(filter model.IdeaFilter, after *model.IdeaCursor, limit int) []model.Idea {
	matched := make([]*model.Idea, 0)
	for _, i := range s.ideas {
		if filter.Matches(i) && after.Admits(i) {
			matched = append(matched, i)
		}
	}
	slices.SortFunc(matched, model.IdeaLess)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]model.Idea, 0, len(matched))
	for _, i := range matched {
		out = append(out, *i.Clone())
	}
	return out
}
