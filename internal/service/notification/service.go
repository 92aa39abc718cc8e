package notification

import (
	"context"
	"time"

	"go.uber.org/zap"

	mqcontract "foundermatch/contracts/mq"
	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
)

const defaultListLimit = 50

type Store interface {
	Create(ctx context.Context, n *model.Notification) (int64, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
	CountUnread(ctx context.Context, userID int64) (int, error)
}

// Publisher 通知写库后广播 notification.created，API 进程据此推送到 websocket
type Publisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

type Service struct {
	store     Store
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService publisher 可以为 nil，此时只写库
func NewService(store Store, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{store: store, publisher: publisher, logger: logger, now: time.Now}
}

// Notify 写入通知并尽力广播；广播失败只记录日志，客户端下次拉取时仍能看到
func (s *Service) Notify(ctx context.Context, n model.Notification) (*model.Notification, error) {
	n.CreatedAt = s.now()
	n.Read = false
	id, err := s.store.Create(ctx, &n)
	if err != nil {
		return nil, err
	}
	n.ID = id

	if s.publisher != nil {
		payload := mqcontract.NotificationCreatedPayload{
			Meta:           mqcontract.NewMeta(ctx, n.CreatedAt),
			NotificationID: n.ID,
			UserID:         n.UserID,
			Kind:           string(n.Kind),
			Message:        n.Message,
			RefType:        n.RefType,
			RefID:          n.RefID,
			CreatedAt:      n.CreatedAt,
		}
		if err := s.publisher.PublishWithContext(ctx, mqcontract.RoutingNotificationCreated, payload); err != nil {
			s.logger.Warn("failed to publish notification.created",
				zap.Int64("notification_id", n.ID),
				zap.Error(err))
		}
	}
	return &n, nil
}

// List 返回最近的通知和未读数
func (s *Service) List(ctx context.Context, actor model.Actor, limit int) ([]model.Notification, int, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultListLimit
	}
	items, err := s.store.ListByUser(ctx, actor.UserID, limit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.store.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, 0, err
	}
	return items, unread, nil
}

// MarkRead 别人的通知按不存在处理
func (s *Service) MarkRead(ctx context.Context, actor model.Actor, id int64) error {
	if id <= 0 {
		return apperr.Validation("invalid notification id")
	}
	return s.store.MarkRead(ctx, id, actor.UserID)
}
