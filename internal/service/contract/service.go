package contract

import (
	"context"
	"time"

	"go.uber.org/zap"

	mqcontract "foundermatch/contracts/mq"
	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
	"foundermatch/pkg/metrics"
)

// 默认归属期限
const (
	DefaultVestingMonths = 48
	DefaultCliffMonths   = 12
)

// Store 合同存储。Create 依赖部分唯一索引保证每个提案至多一份未终止合同，并回填里程碑 ID；
// Update 以 version 为条件整体写回，成功后 c.Version 递增。
type Store interface {
	Create(ctx context.Context, c *model.Contract) (int64, error)
	Get(ctx context.Context, id int64) (*model.Contract, error)
	GetByProposal(ctx context.Context, proposalID int64) (*model.Contract, error)
	Update(ctx context.Context, c *model.Contract, expectedVersion int, events ...model.OutboxMessage) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Contract, error)
}

type ProposalReader interface {
	Get(ctx context.Context, id int64) (*model.Proposal, error)
}

type IdeaReader interface {
	Get(ctx context.Context, id int64) (*model.Idea, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type Service struct {
	store     Store
	proposals ProposalReader
	ideas     IdeaReader
	users     UserReader
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(store Store, proposals ProposalReader, ideas IdeaReader, users UserReader, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		proposals: proposals,
		ideas:     ideas,
		users:     users,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate 从已接受的提案生成合同草稿；当事人、里程碑和股权是生成时的快照
func (s *Service) Generate(ctx context.Context, proposalID int64) (*model.Contract, error) {
	p, err := s.proposals.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.Status != model.ProposalAccepted {
		return nil, apperr.New(apperr.CodeProposalNotAccepted, "proposal %d is %s", proposalID, p.Status)
	}

	idea, err := s.ideas.Get(ctx, p.IdeaID)
	if err != nil {
		return nil, err
	}
	entrepreneur, err := s.users.GetByID(ctx, p.EntrepreneurID)
	if err != nil {
		return nil, err
	}
	developer, err := s.users.GetByID(ctx, p.DeveloperID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &model.Contract{
		ProposalID:   p.ID,
		IdeaID:       p.IdeaID,
		IdeaTitle:    idea.Title,
		Entrepreneur: model.PartySnapshot{UserID: entrepreneur.ID, Name: entrepreneur.Name, Email: entrepreneur.Email},
		Developer:    model.PartySnapshot{UserID: developer.ID, Name: developer.Name, Email: developer.Email},
		Equity: model.EquityTerms{
			Percent:       p.EquityPercent,
			VestingMonths: DefaultVestingMonths,
			CliffMonths:   DefaultCliffMonths,
		},
		Timeline:   p.Timeline,
		Milestones: make([]model.ContractMilestone, 0, len(p.Milestones)),
		Status:     model.ContractDraft,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for i, m := range p.Milestones {
		c.Milestones = append(c.Milestones, model.ContractMilestone{
			Position:       i + 1,
			Title:          m.Title,
			Description:    m.Description,
			Duration:       m.Duration,
			EstimatedHours: m.EstimatedHours,
		})
	}
	if c.Sections, err = renderSections(c); err != nil {
		return nil, err
	}

	id, err := s.store.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	metrics.IncrementContractEvent("generated")

	s.logger.Info("contract generated",
		zap.Int64("contract_id", id),
		zap.Int64("proposal_id", proposalID))
	return c, nil
}

// GenerateFor HTTP 入口：只有创意所有者可以手动生成
func (s *Service) GenerateFor(ctx context.Context, actor model.Actor, proposalID int64) (*model.Contract, error) {
	p, err := s.proposals.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(p.EntrepreneurID) {
		return nil, apperr.New(apperr.CodeForbidden, "only the idea owner can generate a contract for proposal %d", proposalID)
	}
	return s.Generate(ctx, proposalID)
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id int64) (*model.Contract, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := c.PartyOf(actor.UserID); !ok && !actor.IsAdmin() {
		return nil, apperr.New(apperr.CodeForbidden, "contract %d is not visible to user %d", id, actor.UserID)
	}
	return c, nil
}

func (s *Service) ListForUser(ctx context.Context, actor model.Actor, userID int64) ([]model.Contract, error) {
	if !actor.Is(userID) && !actor.IsAdmin() {
		return nil, apperr.New(apperr.CodeForbidden, "cannot list contracts of user %d", userID)
	}
	return s.store.ListByUser(ctx, userID)
}

// mutation 修改合同副本；changed 为 false 时不写回
type mutation func(c *model.Contract, party model.Party, now time.Time) (changed bool, err error)

// mutate 读取、修改、按版本号写回；版本冲突返回 InvalidTransition
func (s *Service) mutate(ctx context.Context, actor model.Actor, id int64, op string, fn mutation) (*model.Contract, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	party, ok := c.PartyOf(actor.UserID)
	if !ok {
		return nil, apperr.New(apperr.CodeForbidden, "user %d is not a party to contract %d", actor.UserID, id)
	}

	expected := c.Version
	wasExecuted := c.Status == model.ContractExecuted
	now := s.now()
	changed, err := fn(c, party, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return c, nil
	}

	var events []model.OutboxMessage
	if !wasExecuted && c.Status == model.ContractExecuted {
		events = append(events, model.OutboxMessage{
			AggregateType: model.AggregateContract,
			AggregateID:   c.ID,
			RoutingKey:    mqcontract.RoutingContractExecuted,
			Payload: mqcontract.ContractExecutedPayload{
				Meta:           mqcontract.NewMeta(ctx, now),
				ContractID:     c.ID,
				ProposalID:     c.ProposalID,
				IdeaID:         c.IdeaID,
				IdeaTitle:      c.IdeaTitle,
				EntrepreneurID: c.Entrepreneur.UserID,
				DeveloperID:    c.Developer.UserID,
				ExecutedAt:     now,
			},
		})
	}

	ok, err = s.store.Update(ctx, c, expected, events...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.CodeInvalidTransition, "contract %d was modified concurrently, reload and retry", id)
	}
	c.Version = expected + 1
	metrics.IncrementContractEvent(op)
	if len(events) > 0 {
		metrics.IncrementContractEvent("executed")
	}

	s.logger.Info("contract updated",
		zap.Int64("contract_id", id),
		zap.String("op", op),
		zap.String("party", string(party)),
		zap.String("status", string(c.Status)),
		zap.Int("version", c.Version))
	return c, nil
}

// EditSection 修改可编辑条款的正文，修订号递增
func (s *Service) EditSection(ctx context.Context, actor model.Actor, id int64, section model.SectionID, body string) (*model.Contract, error) {
	if !section.TextEditable() {
		return nil, apperr.Validation("section %q cannot be edited directly", section)
	}
	return s.mutate(ctx, actor, id, "section_edited", func(c *model.Contract, _ model.Party, now time.Time) (bool, error) {
		return true, c.ReviseSection(section, body, now)
	})
}

// EditEquityTerms 修改股权条款并重新生成 equity 条款正文
func (s *Service) EditEquityTerms(ctx context.Context, actor model.Actor, id int64, terms model.EquityTerms) (*model.Contract, error) {
	return s.mutate(ctx, actor, id, "equity_edited", func(c *model.Contract, _ model.Party, now time.Time) (bool, error) {
		if err := c.SetEquity(terms, now); err != nil {
			return false, err
		}
		body, err := renderSection(model.SectionEquity, c)
		if err != nil {
			return false, err
		}
		return true, c.ReviseSection(model.SectionEquity, body, now)
	})
}

// AgreeToSection 重复确认同一修订版本不写库
func (s *Service) AgreeToSection(ctx context.Context, actor model.Actor, id int64, section model.SectionID) (*model.Contract, error) {
	return s.mutate(ctx, actor, id, "section_agreed", func(c *model.Contract, party model.Party, now time.Time) (bool, error) {
		return c.Agree(party, section, now)
	})
}

// FinalAgreement 开发者确认全部条款后进入待签署
func (s *Service) FinalAgreement(ctx context.Context, actor model.Actor, id int64) (*model.Contract, error) {
	return s.mutate(ctx, actor, id, "ready_to_sign", func(c *model.Contract, party model.Party, now time.Time) (bool, error) {
		if party != model.PartyDeveloper {
			return false, apperr.New(apperr.CodeForbidden, "only the developer gives final agreement")
		}
		return true, c.MarkReady(now)
	})
}

// Sign 双方都签署后合同自动生效并写入 contract.executed
func (s *Service) Sign(ctx context.Context, actor model.Actor, id int64) (*model.Contract, error) {
	return s.mutate(ctx, actor, id, "signed", func(c *model.Contract, party model.Party, now time.Time) (bool, error) {
		return true, c.Sign(party, now)
	})
}

func (s *Service) Terminate(ctx context.Context, actor model.Actor, id int64) (*model.Contract, error) {
	return s.mutate(ctx, actor, id, "terminated", func(c *model.Contract, _ model.Party, now time.Time) (bool, error) {
		return true, c.Terminate(now)
	})
}
