package idea

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
)

// DefaultPageSize ListIdeas 每次从存储拉取的条数
const DefaultPageSize = 50

// Store 创意存储；Get 对已软删除的创意返回 NotFound
type Store interface {
	Create(ctx context.Context, idea *model.Idea) (int64, error)
	Get(ctx context.Context, id int64) (*model.Idea, error)
	Update(ctx context.Context, idea *model.Idea) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, filter model.IdeaFilter, after *model.IdeaCursor, limit int) ([]model.Idea, error)
}

// NDAChecker 查询 NDA 是否已签
type NDAChecker interface {
	HasAccepted(ctx context.Context, ideaID, developerID int64) (bool, error)
}

type Service struct {
	store    Store
	ndas     NDAChecker
	logger   *zap.Logger
	pageSize int
	now      func() time.Time
}

func NewService(store Store, ndas NDAChecker, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		ndas:     ndas,
		logger:   logger,
		pageSize: DefaultPageSize,
		now:      time.Now,
	}
}

// Create 只有创业者可以发布创意
func (s *Service) Create(ctx context.Context, actor model.Actor, fields model.IdeaFields) (*model.Idea, error) {
	if actor.Role != model.RoleEntrepreneur {
		return nil, apperr.New(apperr.CodeForbidden, "only entrepreneurs can post ideas")
	}
	fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	idea := &model.Idea{OwnerID: actor.UserID, CreatedAt: now, UpdatedAt: now}
	idea.Apply(fields)

	id, err := s.store.Create(ctx, idea)
	if err != nil {
		return nil, err
	}
	idea.ID = id

	s.logger.Info("idea created",
		zap.Int64("idea_id", id),
		zap.Int64("owner_id", actor.UserID),
		zap.String("visibility", string(idea.Visibility)))
	return idea, nil
}

// Update 只有所有者可以修改
func (s *Service) Update(ctx context.Context, actor model.Actor, id int64, fields model.IdeaFields) (*model.Idea, error) {
	idea, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	idea.Apply(fields)
	idea.UpdatedAt = s.now()
	if err := s.store.Update(ctx, idea); err != nil {
		return nil, err
	}
	return idea, nil
}

// Get 按可见性返回完整记录或脱敏视图
func (s *Service) Get(ctx context.Context, actor model.Actor, id int64) (*model.Idea, error) {
	idea, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	full, err := s.FullyVisible(ctx, actor, idea)
	if err != nil {
		return nil, err
	}
	if !full {
		return idea.Redact(), nil
	}
	return idea, nil
}

// FullyVisible 调用者能否看到创意的完整内容
func (s *Service) FullyVisible(ctx context.Context, actor model.Actor, idea *model.Idea) (bool, error) {
	accepted := false
	if idea.Visibility == model.VisibilityNDARequired && actor.Role == model.RoleDeveloper {
		var err error
		if accepted, err = s.ndas.HasAccepted(ctx, idea.ID, actor.UserID); err != nil {
			return false, err
		}
	}
	return idea.FullyVisibleTo(actor, accepted), nil
}

// List 返回惰性序列，按页从存储拉取；每次 range 都从头开始
func (s *Service) List(ctx context.Context, filter model.IdeaFilter) iter.Seq2[model.IdeaSummary, error] {
	return func(yield func(model.IdeaSummary, error) bool) {
		var after *model.IdeaCursor
		for {
			page, err := s.store.List(ctx, filter, after, s.pageSize)
			if err != nil {
				yield(model.IdeaSummary{}, err)
				return
			}
			for i := range page {
				if !yield(page[i].Summary(), nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			after = model.CursorAfter(&page[len(page)-1])
		}
	}
}

// Page HTTP 分页：多取一条判断是否还有下一页
func (s *Service) Page(ctx context.Context, filter model.IdeaFilter, after *model.IdeaCursor, limit int) ([]model.IdeaSummary, *model.IdeaCursor, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.store.List(ctx, filter, after, limit+1)
	if err != nil {
		return nil, nil, err
	}

	var next *model.IdeaCursor
	if len(rows) > limit {
		rows = rows[:limit]
		next = model.CursorAfter(&rows[limit-1])
	}
	out := make([]model.IdeaSummary, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Summary())
	}
	return out, next, nil
}

// Delete 软删除；仍有活跃提案或进行中的合同时返回 HasActiveProposals
func (s *Service) Delete(ctx context.Context, actor model.Actor, id int64) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.logger.Info("idea deleted", zap.Int64("idea_id", id), zap.Int64("owner_id", actor.UserID))
	return nil
}

func (s *Service) owned(ctx context.Context, actor model.Actor, id int64) (*model.Idea, error) {
	idea, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Is(idea.OwnerID) {
		return nil, apperr.New(apperr.CodeNotOwner, "idea %d is not owned by user %d", id, actor.UserID)
	}
	return idea, nil
}
