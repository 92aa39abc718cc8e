package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"foundermatch/internal/service/bookmark"
	"foundermatch/internal/service/dashboard"
)

type DashboardHandler struct {
	dashboard *dashboard.Service
	bookmarks *bookmark.Service
	logger    *zap.Logger
}

func NewDashboardHandler(d *dashboard.Service, b *bookmark.Service, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: d, bookmarks: b, logger: logger}
}

// Feed GET /developer-dashboard/:developerId
func (h *DashboardHandler) Feed(c *gin.Context) {
	id, ok := pathID(c, "developerId")
	if !ok {
		return
	}
	after, ok := cursorFromQuery(c, h.logger)
	if !ok {
		return
	}
	items, next, err := h.dashboard.Feed(c.Request.Context(), Actor(c), id, filterFromQuery(c), after, queryInt(c, "limit", 20))
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	resp := gin.H{"ideas": items}
	if next != nil {
		resp["next_cursor"] = next.Encode()
	}
	c.JSON(http.StatusOK, resp)
}

// Collaborations GET /developer-collaboration/:developerId
func (h *DashboardHandler) Collaborations(c *gin.Context) {
	id, ok := pathID(c, "developerId")
	if !ok {
		return
	}
	list, err := h.dashboard.Collaborations(c.Request.Context(), Actor(c), id)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collaborations": list})
}

// ChatList GET /messages/chat-list/:userId
func (h *DashboardHandler) ChatList(c *gin.Context) {
	id, ok := pathID(c, "userId")
	if !ok {
		return
	}
	list, err := h.dashboard.ChatList(c.Request.Context(), Actor(c), id)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": list})
}

type toggleBookmarkRequest struct {
	DeveloperID int64 `json:"developer_id"`
	IdeaID      int64 `json:"idea_id"`
	Toggle      bool  `json:"toggle"`
}

// ToggleBookmark POST /api/developer-dashboard/bookmarks/toggle，返回权威状态
func (h *DashboardHandler) ToggleBookmark(c *gin.Context) {
	var req toggleBookmarkRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.DeveloperID <= 0 || req.IdeaID <= 0 {
		badRequest(c, "developer_id and idea_id are required")
		return
	}
	state, err := h.bookmarks.Toggle(c.Request.Context(), Actor(c), req.DeveloperID, req.IdeaID, req.Toggle)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmark": state})
}
