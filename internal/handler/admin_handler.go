package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"foundermatch/pkg/outbox"
)

type AdminHandler struct {
	replayService *outbox.ReplayService
	logger        *zap.Logger
}

func NewAdminHandler(replayService *outbox.ReplayService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		replayService: replayService,
		logger:        logger,
	}
}

// FailedEvents 列出投递失败的 outbox 事件
// GET /admin/outbox/failed?limit=100
func (h *AdminHandler) FailedEvents(c *gin.Context) {
	limit := queryInt(c, "limit", 100)
	events, err := h.replayService.FailedEvents(c.Request.Context(), limit)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "limit": limit})
}

// ReplayOutboxEvent 重放指定的 Outbox 事件
// POST /admin/outbox/:id/replay
func (h *AdminHandler) ReplayOutboxEvent(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.replayService.ReplayEvent(c.Request.Context(), eventID); err != nil {
		if errors.Is(err, outbox.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, ErrorBody{Error: ErrorDetail{Code: "NOT_FOUND", Message: err.Error()}})
			return
		}
		h.logger.Error("Failed to replay event",
			zap.Int64("event_id", eventID),
			zap.Error(err),
		)
		WriteError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "replayed",
		"event_id": eventID,
	})
}

// ReplayFailedEvents 重放所有失败的事件
// POST /admin/outbox/replay-failed?limit=100
func (h *AdminHandler) ReplayFailedEvents(c *gin.Context) {
	limit := queryInt(c, "limit", 100)

	successCount, err := h.replayService.ReplayFailedEvents(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to replay failed events", zap.Error(err))
		WriteError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "completed",
		"success_count": successCount,
		"limit":         limit,
	})
}
