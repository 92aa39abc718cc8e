package proposal

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	mqcontract "foundermatch/contracts/mq"
	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
	"foundermatch/pkg/metrics"
)

// Store 提案存储。Create 依赖存储层的唯一约束保证同一 (idea, developer) 至多一条活跃提案；
// UpdateStatus 是以 from 为条件的比较交换，返回 false 表示状态已被其他请求改变。
type Store interface {
	Create(ctx context.Context, p *model.Proposal, events model.EventsFunc) (int64, error)
	Get(ctx context.Context, id int64) (*model.Proposal, error)
	UpdateStatus(ctx context.Context, id int64, from, to model.ProposalStatus, at time.Time, events ...model.OutboxMessage) (bool, error)
	ListByDeveloper(ctx context.Context, developerID int64) ([]model.Proposal, error)
	ListByEntrepreneur(ctx context.Context, entrepreneurID int64) ([]model.Proposal, error)
	ListByIdea(ctx context.Context, ideaID int64) ([]model.Proposal, error)
}

type IdeaReader interface {
	Get(ctx context.Context, id int64) (*model.Idea, error)
}

type NDAChecker interface {
	HasAccepted(ctx context.Context, ideaID, developerID int64) (bool, error)
}

type Service struct {
	store  Store
	ideas  IdeaReader
	ndas   NDAChecker
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, ideas IdeaReader, ndas NDAChecker, logger *zap.Logger) *Service {
	return &Service{store: store, ideas: ideas, ndas: ndas, logger: logger, now: time.Now}
}

// Submit 开发者对能看到完整内容的创意提交提案
func (s *Service) Submit(ctx context.Context, actor model.Actor, ideaID int64, fields model.ProposalFields) (*model.Proposal, error) {
	if actor.Role != model.RoleDeveloper {
		return nil, apperr.New(apperr.CodeForbidden, "only developers submit proposals")
	}
	fields.Scope = strings.TrimSpace(fields.Scope)
	fields.Timeline = strings.TrimSpace(fields.Timeline)
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	idea, err := s.ideas.Get(ctx, ideaID)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return nil, apperr.New(apperr.CodeIdeaNotVisible, "idea %d is not available", ideaID)
		}
		return nil, err
	}
	accepted, err := s.ndas.HasAccepted(ctx, ideaID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !idea.FullyVisibleTo(actor, accepted) {
		return nil, apperr.New(apperr.CodeIdeaNotVisible, "idea %d terms are not visible to developer %d", ideaID, actor.UserID)
	}

	now := s.now()
	p := &model.Proposal{
		IdeaID:         ideaID,
		DeveloperID:    actor.UserID,
		EntrepreneurID: idea.OwnerID,
		Scope:          fields.Scope,
		Milestones:     slices.Clone(fields.Milestones),
		EquityPercent:  fields.EquityPercent,
		Timeline:       fields.Timeline,
		Status:         model.ProposalPending,
		SubmittedAt:    now,
		UpdatedAt:      now,
	}

	id, err := s.store.Create(ctx, p, func(id int64) []model.OutboxMessage {
		return []model.OutboxMessage{{
			AggregateType: model.AggregateProposal,
			AggregateID:   id,
			RoutingKey:    mqcontract.RoutingProposalSubmitted,
			Payload: mqcontract.ProposalSubmittedPayload{
				Meta:           mqcontract.NewMeta(ctx, now),
				ProposalID:     id,
				IdeaID:         ideaID,
				IdeaTitle:      idea.Title,
				DeveloperID:    actor.UserID,
				EntrepreneurID: idea.OwnerID,
			},
		}}
	})
	if err != nil {
		return nil, err
	}
	p.ID = id

	s.logger.Info("proposal submitted",
		zap.Int64("proposal_id", id),
		zap.Int64("idea_id", ideaID),
		zap.Int64("developer_id", actor.UserID))
	return p, nil
}

// Transition 执行状态迁移；withdraw 只能由提交者执行，其余只能由创意所有者执行
func (s *Service) Transition(ctx context.Context, actor model.Actor, id int64, action model.ProposalAction) (*model.Proposal, error) {
	if !action.Valid() {
		return nil, apperr.Validation("unknown action %q", action)
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if action.ByDeveloper() {
		if !actor.Is(p.DeveloperID) {
			return nil, apperr.New(apperr.CodeForbidden, "only the submitting developer can %s proposal %d", action, id)
		}
	} else if !actor.Is(p.EntrepreneurID) {
		return nil, apperr.New(apperr.CodeForbidden, "only the idea owner can %s proposal %d", action, id)
	}

	to, err := p.Status.Next(action)
	if err != nil {
		metrics.IncrementProposalTransition(string(action), "invalid")
		return nil, err
	}

	now := s.now()
	ok, err := s.store.UpdateStatus(ctx, id, p.Status, to, now, s.eventsFor(ctx, p, to, now)...)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.IncrementProposalTransition(string(action), "conflict")
		return nil, apperr.New(apperr.CodeInvalidTransition, "proposal %d was changed concurrently", id)
	}
	metrics.IncrementProposalTransition(string(action), "ok")

	s.logger.Info("proposal transitioned",
		zap.Int64("proposal_id", id),
		zap.String("action", string(action)),
		zap.String("from", string(p.Status)),
		zap.String("to", string(to)))

	p.Status = to
	p.UpdatedAt = now
	return p, nil
}

func (s *Service) eventsFor(ctx context.Context, p *model.Proposal, to model.ProposalStatus, now time.Time) []model.OutboxMessage {
	var rk string
	switch to {
	case model.ProposalAccepted:
		rk = mqcontract.RoutingProposalAccepted
	case model.ProposalRejected:
		rk = mqcontract.RoutingProposalRejected
	default:
		return nil
	}
	return []model.OutboxMessage{{
		AggregateType: model.AggregateProposal,
		AggregateID:   p.ID,
		RoutingKey:    rk,
		Payload: mqcontract.ProposalDecidedPayload{
			Meta:           mqcontract.NewMeta(ctx, now),
			ProposalID:     p.ID,
			IdeaID:         p.IdeaID,
			DeveloperID:    p.DeveloperID,
			EntrepreneurID: p.EntrepreneurID,
			Status:         string(to),
			EquityPercent:  p.EquityPercent,
		},
	}}
}

// Get 提交者、创意所有者和 admin 可读
func (s *Service) Get(ctx context.Context, actor model.Actor, id int64) (*model.Proposal, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsParty(actor.UserID) && !actor.IsAdmin() {
		return nil, apperr.New(apperr.CodeForbidden, "proposal %d is not visible to user %d", id, actor.UserID)
	}
	return p, nil
}

func (s *Service) ListByDeveloper(ctx context.Context, actor model.Actor, developerID int64) ([]model.Proposal, error) {
	if !actor.Is(developerID) && !actor.IsAdmin() {
		return nil, apperr.New(apperr.CodeForbidden, "cannot list proposals of developer %d", developerID)
	}
	return s.store.ListByDeveloper(ctx, developerID)
}

func (s *Service) ListByEntrepreneur(ctx context.Context, actor model.Actor, entrepreneurID int64) ([]model.Proposal, error) {
	if !actor.Is(entrepreneurID) && !actor.IsAdmin() {
		return nil, apperr.New(apperr.CodeForbidden, "cannot list proposals of entrepreneur %d", entrepreneurID)
	}
	return s.store.ListByEntrepreneur(ctx, entrepreneurID)
}

// ListByIdea 只有创意所有者可以管理提案
func (s *Service) ListByIdea(ctx context.Context, actor model.Actor, ideaID int64) ([]model.Proposal, error) {
	idea, err := s.ideas.Get(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(idea.OwnerID) && !actor.IsAdmin() {
		return nil, apperr.New(apperr.CodeNotOwner, "idea %d is not owned by user %d", ideaID, actor.UserID)
	}
	return s.store.ListByIdea(ctx, ideaID)
}
