package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	mqcontract "foundermatch/contracts/mq"
)

// Pusher 把消息推给在线用户
type Pusher interface {
	Push(userID int64, v any) error
}

// PushHandler 在 API 进程中消费 notification.created 并推送到 websocket；
// 推送是尽力而为，失败不重试，客户端下次拉取时能看到
type PushHandler struct {
	pusher Pusher
	logger *zap.Logger
}

func NewPushHandler(pusher Pusher, logger *zap.Logger) *PushHandler {
	return &PushHandler{pusher: pusher, logger: logger}
}

func (h *PushHandler) Handle(_ context.Context, _ string, raw json.RawMessage) error {
	var p mqcontract.NotificationCreatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal NotificationCreatedPayload", zap.Error(err))
		return err
	}
	if err := h.pusher.Push(p.UserID, p); err != nil {
		h.logger.Warn("Failed to push notification",
			zap.Int64("notification_id", p.NotificationID),
			zap.Int64("user_id", p.UserID),
			zap.Error(err),
		)
	}
	return nil
}
