package memory

import (
	"context"
	"slices"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
)

type Contracts struct{ s *Store }

// Create 同一提案已有未终止的合同时返回 ContractAlreadyExists；为里程碑分配 ID
func (r *Contracts) Create(ctx context.Context, c *model.Contract) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.contracts {
		if existing.ProposalID == c.ProposalID && existing.Live() {
			return 0, apperr.New(apperr.CodeContractAlreadyExists,
				"proposal %d already has contract %d", c.ProposalID, existing.ID)
		}
	}
	cp := c.Clone()
	cp.ID = r.s.nextID("contracts")
	for i := range cp.Milestones {
		cp.Milestones[i].ID = r.s.nextID("contract_milestones")
		c.Milestones[i].ID = cp.Milestones[i].ID
	}
	if cp.Version == 0 {
		cp.Version = 1
	}
	c.Version = cp.Version
	r.s.contracts[cp.ID] = cp
	return cp.ID, nil
}

func (r *Contracts) Get(ctx context.Context, id int64) (*model.Contract, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.contracts[id]
	if !ok {
		return nil, apperr.NotFound("contract", id)
	}
	return c.Clone(), nil
}

// GetByProposal 返回提案当前未终止的合同
func (r *Contracts) GetByProposal(ctx context.Context, proposalID int64) (*model.Contract, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.contracts {
		if c.ProposalID == proposalID && c.Live() {
			return c.Clone(), nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "no contract for proposal %d", proposalID)
}

// Update 版本号匹配时整体替换并递增版本
func (r *Contracts) Update(ctx context.Context, c *model.Contract, expectedVersion int, events ...model.OutboxMessage) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.contracts[c.ID]
	if !ok {
		return false, apperr.NotFound("contract", c.ID)
	}
	if cur.Version != expectedVersion {
		return false, nil
	}
	if err := r.s.writeEvents(events); err != nil {
		return false, err
	}
	cp := c.Clone()
	cp.Version = expectedVersion + 1
	c.Version = cp.Version
	r.s.contracts[c.ID] = cp
	return true, nil
}

func (r *Contracts) ListByUser(ctx context.Context, userID int64) ([]model.Contract, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.Contract, 0)
	for _, c := range r.s.contracts {
		if c.Entrepreneur.UserID == userID || c.Developer.UserID == userID {
			out = append(out, *c.Clone())
		}
	}
	slices.SortFunc(out, func(a, b model.Contract) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out, nil
}
