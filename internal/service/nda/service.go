package nda

import (
	"context"
	"time"

	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
)

// Store Accept 对同一 (idea, developer) 只写入一次并返回已存储的记录
type Store interface {
	Accept(ctx context.Context, ideaID, developerID int64, at time.Time) (*model.NDAAcceptance, error)
	HasAccepted(ctx context.Context, ideaID, developerID int64) (bool, error)
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

// Accept 幂等；任何可见性的创意都可以签
func (s *Service) Accept(ctx context.Context, actor model.Actor, ideaID int64) (*model.NDAAcceptance, error) {
	if actor.Role != model.RoleDeveloper {
		return nil, apperr.New(apperr.CodeForbidden, "only developers sign NDAs")
	}
	if _, err := s.ideas.Get(ctx, ideaID); err != nil {
		return nil, err
	}

	a, err := s.store.Accept(ctx, ideaID, actor.UserID, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("nda accepted",
		zap.Int64("idea_id", ideaID),
		zap.Int64("developer_id", actor.UserID),
		zap.Time("accepted_at", a.AcceptedAt))
	return a, nil
}

func (s *Service) HasAccepted(ctx context.Context, ideaID, developerID int64) (bool, error) {
	return s.store.HasAccepted(ctx, ideaID, developerID)
}
