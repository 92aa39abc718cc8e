package collab

import (
	"context"
	"time"

	"go.uber.org/zap"

	mqcontract "foundermatch/contracts/mq"
	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
	"foundermatch/pkg/metrics"
)

// Store 任务存储。Update 以存储中的状态等于 expected 为条件写入；
// Create 对同一任务的第二次修订返回 InvalidTransition。
type Store interface {
	Create(ctx context.Context, t *model.Task, events ...model.OutboxMessage) (int64, error)
	Get(ctx context.Context, id int64) (*model.Task, error)
	Update(ctx context.Context, t *model.Task, expected model.TaskStatus, events ...model.OutboxMessage) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ListByContract(ctx context.Context, contractID int64) ([]model.Task, error)
}

type ContractReader interface {
	Get(ctx context.Context, id int64) (*model.Contract, error)
}

type Service struct {
	store     Store
	contracts ContractReader
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(store Store, contracts ContractReader, logger *zap.Logger) *Service {
	return &Service{store: store, contracts: contracts, logger: logger, now: time.Now}
}

// executedContract 协作只在生效的合同上进行
func (s *Service) executedContract(ctx context.Context, contractID int64) (*model.Contract, error) {
	c, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c.Status != model.ContractExecuted {
		return nil, apperr.New(apperr.CodeInvalidTransition, "contract %d is %s, not executed", contractID, c.Status)
	}
	return c, nil
}

// developerTask 加载任务和合同，并要求调用者是合同的开发者
func (s *Service) developerTask(ctx context.Context, actor model.Actor, taskID int64) (*model.Task, *model.Contract, error) {
	t, err := s.store.Get(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.contracts.Get(ctx, t.ContractID)
	if err != nil {
		return nil, nil, err
	}
	if !actor.Is(c.Developer.UserID) {
		return nil, nil, apperr.New(apperr.CodeForbidden, "only the contract developer can change task %d", taskID)
	}
	return t, c, nil
}

func milestoneOf(c *model.Contract, milestoneID int64) error {
	if _, ok := c.Milestone(milestoneID); !ok {
		return apperr.Validation("milestone %d does not belong to contract %d", milestoneID, c.ID)
	}
	return nil
}

// Log 开发者在已生效合同的某个里程碑下记录草稿任务
func (s *Service) Log(ctx context.Context, actor model.Actor, contractID int64, fields model.TaskFields) (*model.Task, error) {
	c, err := s.executedContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(c.Developer.UserID) {
		return nil, apperr.New(apperr.CodeForbidden, "only the contract developer can log tasks")
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	if err := milestoneOf(c, fields.MilestoneID); err != nil {
		return nil, err
	}

	now := s.now()
	t := &model.Task{
		ContractID:  contractID,
		DeveloperID: actor.UserID,
		Status:      model.TaskDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.Apply(fields)

	id, err := s.store.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	t.ID = id
	s.logger.Info("task logged",
		zap.Int64("task_id", id),
		zap.Int64("contract_id", contractID),
		zap.Int64("milestone_id", t.MilestoneID),
		zap.Float64("hours", t.Hours))
	return t, nil
}

// Edit 仅草稿可编辑
func (s *Service) Edit(ctx context.Context, actor model.Actor, taskID int64, fields model.TaskFields) (*model.Task, error) {
	t, c, err := s.developerTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != model.TaskDraft {
		return nil, apperr.New(apperr.CodeInvalidTransition, "cannot edit a %s task", t.Status)
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	if err := milestoneOf(c, fields.MilestoneID); err != nil {
		return nil, err
	}

	t.Apply(fields)
	t.UpdatedAt = s.now()
	if err := s.save(ctx, t, model.TaskDraft); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete 仅草稿可删除
func (s *Service) Delete(ctx context.Context, actor model.Actor, taskID int64) error {
	t, _, err := s.developerTask(ctx, actor, taskID)
	if err != nil {
		return err
	}
	if t.Status != model.TaskDraft {
		return apperr.New(apperr.CodeInvalidTransition, "cannot delete a %s task", t.Status)
	}
	ok, err := s.store.Delete(ctx, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.CodeInvalidTransition, "task %d was changed concurrently", taskID)
	}
	return nil
}

// Submit draft -> submitted，开发者不能撤回
func (s *Service) Submit(ctx context.Context, actor model.Actor, taskID int64) (*model.Task, error) {
	t, c, err := s.developerTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := t.Submit(now); err != nil {
		return nil, err
	}

	event := model.OutboxMessage{
		AggregateType: model.AggregateTask,
		AggregateID:   t.ID,
		RoutingKey:    mqcontract.RoutingTaskSubmitted,
		Payload: mqcontract.TaskSubmittedPayload{
			Meta:           mqcontract.NewMeta(ctx, now),
			TaskID:         t.ID,
			ContractID:     c.ID,
			MilestoneID:    t.MilestoneID,
			DeveloperID:    c.Developer.UserID,
			EntrepreneurID: c.Entrepreneur.UserID,
			Title:          t.Title,
			Hours:          t.Hours,
		},
	}
	if err := s.save(ctx, t, model.TaskDraft, event); err != nil {
		return nil, err
	}
	return t, nil
}

// Review 只有合同的创业者可以评审已提交的任务
func (s *Service) Review(ctx context.Context, actor model.Actor, taskID int64, decision model.ReviewDecision, comment string) (*model.Task, error) {
	t, err := s.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	c, err := s.contracts.Get(ctx, t.ContractID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(c.Entrepreneur.UserID) {
		return nil, apperr.New(apperr.CodeForbidden, "only the contract entrepreneur can review task %d", taskID)
	}

	now := s.now()
	if err := t.Review(actor.UserID, decision, comment, now); err != nil {
		return nil, err
	}

	event := model.OutboxMessage{
		AggregateType: model.AggregateTask,
		AggregateID:   t.ID,
		RoutingKey:    mqcontract.RoutingTaskReviewed,
		Payload: mqcontract.TaskReviewedPayload{
			Meta:           mqcontract.NewMeta(ctx, now),
			TaskID:         t.ID,
			ContractID:     c.ID,
			DeveloperID:    c.Developer.UserID,
			EntrepreneurID: c.Entrepreneur.UserID,
			Title:          t.Title,
			Decision:       string(decision),
			Comment:        comment,
		},
	}
	if err := s.save(ctx, t, model.TaskSubmitted, event); err != nil {
		return nil, err
	}
	metrics.IncrementTaskReview(string(decision))

	s.logger.Info("task reviewed",
		zap.Int64("task_id", taskID),
		zap.String("decision", string(decision)))
	return t, nil
}

// Revise 基于 revision_requested 的任务创建新的草稿，原任务保持不变
func (s *Service) Revise(ctx context.Context, actor model.Actor, taskID int64) (*model.Task, error) {
	t, _, err := s.developerTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	rev, err := t.NewRevision(s.now())
	if err != nil {
		return nil, err
	}
	id, err := s.store.Create(ctx, rev)
	if err != nil {
		return nil, err
	}
	rev.ID = id
	s.logger.Info("task revised", zap.Int64("task_id", id), zap.Int64("revision_of", taskID))
	return rev, nil
}

// List 合同双方和 admin 可读
func (s *Service) List(ctx context.Context, actor model.Actor, contractID int64) ([]model.Task, error) {
	if _, err := s.partyContract(ctx, actor, contractID); err != nil {
		return nil, err
	}
	return s.store.ListByContract(ctx, contractID)
}

// Progress 里程碑进度，只统计 approved 的任务
func (s *Service) Progress(ctx context.Context, actor model.Actor, contractID int64) (model.ContractProgress, error) {
	c, err := s.partyContract(ctx, actor, contractID)
	if err != nil {
		return model.ContractProgress{}, err
	}
	tasks, err := s.store.ListByContract(ctx, contractID)
	if err != nil {
		return model.ContractProgress{}, err
	}
	return model.ComputeProgress(c, tasks), nil
}

func (s *Service) partyContract(ctx context.Context, actor model.Actor, contractID int64) (*model.Contract, error) {
	c, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if _, ok := c.PartyOf(actor.UserID); !ok && !actor.IsAdmin() {
		return nil, apperr.New(apperr.CodeForbidden, "contract %d is not visible to user %d", contractID, actor.UserID)
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, t *model.Task, expected model.TaskStatus, events ...model.OutboxMessage) error {
	ok, err := s.store.Update(ctx, t, expected, events...)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.CodeInvalidTransition, "task %d was changed concurrently", t.ID)
	}
	return nil
}
