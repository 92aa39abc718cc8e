package dashboard

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
)

// FeedStore 计数在读取时实时计算
type FeedStore interface {
	Feed(ctx context.Context, developerID int64, filter model.IdeaFilter, after *model.IdeaCursor, limit int) ([]model.FeedItem, error)
}

type ContractLister interface {
	ListByUser(ctx context.Context, userID int64) ([]model.Contract, error)
}

type TaskLister interface {
	ListByContract(ctx context.Context, contractID int64) ([]model.Task, error)
}

type Service struct {
	feed      FeedStore
	contracts ContractLister
	tasks     TaskLister
	logger    *zap.Logger
}

func NewService(feed FeedStore, contracts ContractLister, tasks TaskLister, logger *zap.Logger) *Service {
	return &Service{feed: feed, contracts: contracts, tasks: tasks, logger: logger}
}

func requireSelf(actor model.Actor, userID int64) error {
	if !actor.Is(userID) && !actor.IsAdmin() {
		return apperr.New(apperr.CodeForbidden, "user %d cannot read the dashboard of user %d", actor.UserID, userID)
	}
	return nil
}

// Feed 开发者首页：创意摘要加收藏标记和计数
func (s *Service) Feed(ctx context.Context, actor model.Actor, developerID int64, filter model.IdeaFilter, after *model.IdeaCursor, limit int) ([]model.FeedItem, *model.IdeaCursor, error) {
	if err := requireSelf(actor, developerID); err != nil {
		return nil, nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	items, err := s.feed.Feed(ctx, developerID, filter, after, limit+1)
	if err != nil {
		return nil, nil, err
	}

	var next *model.IdeaCursor
	if len(items) > limit {
		items = items[:limit]
		last := items[limit-1]
		next = &model.IdeaCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return items, next, nil
}

// Collaborations 开发者参与的合同及进度
func (s *Service) Collaborations(ctx context.Context, actor model.Actor, developerID int64) ([]model.Collaboration, error) {
	if err := requireSelf(actor, developerID); err != nil {
		return nil, err
	}
	contracts, err := s.contracts.ListByUser(ctx, developerID)
	if err != nil {
		return nil, err
	}

	out := make([]model.Collaboration, 0, len(contracts))
	for i := range contracts {
		c := &contracts[i]
		if c.Developer.UserID != developerID {
			continue
		}
		tasks, err := s.tasks.ListByContract(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Collaboration{
			ContractID:   c.ID,
			IdeaID:       c.IdeaID,
			IdeaTitle:    c.IdeaTitle,
			Entrepreneur: c.Entrepreneur,
			Status:       c.Status,
			Equity:       c.Equity,
			Progress:     model.ComputeProgress(c, tasks),
		})
	}
	return out, nil
}

// ChatList 每个合同一条会话，按最近更新排序
func (s *Service) ChatList(ctx context.Context, actor model.Actor, userID int64) ([]model.ChatSummary, error) {
	if err := requireSelf(actor, userID); err != nil {
		return nil, err
	}
	contracts, err := s.contracts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]model.ChatSummary, 0, len(contracts))
	for _, c := range contracts {
		counterpart := c.Developer
		if c.Developer.UserID == userID {
			counterpart = c.Entrepreneur
		}
		out = append(out, model.ChatSummary{
			ContractID:  c.ID,
			IdeaID:      c.IdeaID,
			IdeaTitle:   c.IdeaTitle,
			Counterpart: counterpart,
			Status:      c.Status,
			UpdatedAt:   c.UpdatedAt,
		})
	}
	slices.SortStableFunc(out, func(a, b model.ChatSummary) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out, nil
}
