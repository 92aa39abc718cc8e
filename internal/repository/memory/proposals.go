package memory

import (
	"context"
	"slices"
	"time"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
)

type Proposals struct{ s *Store }

func cloneProposal(p *model.Proposal) *model.Proposal {
	cp := *p
	cp.Milestones = slices.Clone(p.Milestones)
	return &cp
}

// Create 同一 (idea, developer) 已有活跃提案时返回 DuplicateActiveProposal
func (r *Proposals) Create(ctx context.Context, p *model.Proposal, events model.EventsFunc) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if idea, ok := r.s.ideas[p.IdeaID]; !ok || idea.DeletedAt != nil {
		return 0, apperr.New(apperr.CodeIdeaNotVisible, "idea %d is not available", p.IdeaID)
	}
	for _, existing := range r.s.proposals {
		if existing.IdeaID == p.IdeaID && existing.DeveloperID == p.DeveloperID && existing.Status.Active() {
			return 0, apperr.New(apperr.CodeDuplicateActiveProposal,
				"developer %d already has an active proposal for idea %d", p.DeveloperID, p.IdeaID)
		}
	}
	cp := cloneProposal(p)
	cp.ID = r.s.nextID("proposals")
	if events != nil {
		if err := r.s.writeEvents(events(cp.ID)); err != nil {
			return 0, err
		}
	}
	r.s.proposals[cp.ID] = cp
	return cp.ID, nil
}

func (r *Proposals) Get(ctx context.Context, id int64) (*model.Proposal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.proposals[id]
	if !ok {
		return nil, apperr.NotFound("proposal", id)
	}
	return cloneProposal(p), nil
}

// UpdateStatus 仅当当前状态仍为 from 时迁移到 to
func (r *Proposals) UpdateStatus(ctx context.Context, id int64, from, to model.ProposalStatus, at time.Time, events ...model.OutboxMessage) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.proposals[id]
	if !ok {
		return false, apperr.NotFound("proposal", id)
	}
	if p.Status != from {
		return false, nil
	}
	if err := r.s.writeEvents(events); err != nil {
		return false, err
	}
	p.Status = to
	p.UpdatedAt = at
	return true, nil
}

func (r *Proposals) list(match func(*model.Proposal) bool) []model.Proposal {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.Proposal, 0)
	for _, p := range r.s.proposals {
		if match(p) {
			out = append(out, *cloneProposal(p))
		}
	}
	slices.SortFunc(out, func(a, b model.Proposal) int {
		if c := b.SubmittedAt.Compare(a.SubmittedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out
}

func (r *Proposals) ListByDeveloper(ctx context.Context, developerID int64) ([]model.Proposal, error) {
	return r.list(func(p *model.Proposal) bool { return p.DeveloperID == developerID }), nil
}

func (r *Proposals) ListByEntrepreneur(ctx context.Context, entrepreneurID int64) ([]model.Proposal, error) {
	return r.list(func(p *model.Proposal) bool { return p.EntrepreneurID == entrepreneurID }), nil
}

func (r *Proposals) ListByIdea(ctx context.Context, ideaID int64) ([]model.Proposal, error) {
	return r.list(func(p *model.Proposal) bool { return p.IdeaID == ideaID }), nil
}
