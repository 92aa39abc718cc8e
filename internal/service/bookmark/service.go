package bookmark

import (
	"context"
	"time"

	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
)

// Store Set 把收藏设为期望状态并返回设置后的收藏数
type Store interface {
	Set(ctx context.Context, developerID, ideaID int64, on bool, at time.Time) (model.BookmarkState, error)
}

type IdeaReader interface {
	Get(ctx context.Context, id int64) (*model.Idea, error)
}

type Service struct {
	store  Store
	ideas  IdeaReader
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, ideas IdeaReader, logger *zap.Logger) *Service {
	return &Service{store: store, ideas: ideas, logger: logger, now: time.Now}
}

// Toggle 设置为 on 指定的状态，重复调用结果相同
func (s *Service) Toggle(ctx context.Context, actor model.Actor, developerID, ideaID int64, on bool) (model.BookmarkState, error) {
	if actor.Role != model.RoleDeveloper || !actor.Is(developerID) {
		return model.BookmarkState{}, apperr.New(apperr.CodeForbidden, "bookmarks belong to developer %d", developerID)
	}
	if _, err := s.ideas.Get(ctx, ideaID); err != nil {
		return model.BookmarkState{}, err
	}
	state, err := s.store.Set(ctx, developerID, ideaID, on, s.now())
	if err != nil {
		return model.BookmarkState{}, err
	}
	s.logger.Debug("bookmark set",
		zap.Int64("developer_id", developerID),
		zap.Int64("idea_id", ideaID),
		zap.Bool("bookmarked", state.Bookmarked))
	return state, nil
}
