package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"foundermatch/internal/service/notification"
	"foundermatch/internal/ws"
)

type NotificationHandler struct {
	notifications *notification.Service
	hub           *ws.Hub
	logger        *zap.Logger
}

func NewNotificationHandler(svc *notification.Service, hub *ws.Hub, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: svc, hub: hub, logger: logger}
}

// List GET /notifications?limit=50
func (h *NotificationHandler) List(c *gin.Context) {
	list, unread, err := h.notifications.List(c.Request.Context(), Actor(c), queryInt(c, "limit", 0))
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "unread": unread})
}

// MarkRead POST /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), Actor(c), id); err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream GET /ws/notifications
func (h *NotificationHandler) Stream(c *gin.Context) {
	actor := Actor(c)
	if err := h.hub.Serve(c.Writer, c.Request, actor.UserID); err != nil {
		h.logger.Warn("Failed to upgrade websocket",
			zap.Int64("user_id", actor.UserID),
			zap.Error(err),
		)
	}
}
