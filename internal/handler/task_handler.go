package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/internal/service/collab"
)

type TaskHandler struct {
	collab *collab.Service
	logger *zap.Logger
}

func NewTaskHandler(svc *collab.Service, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{collab: svc, logger: logger}
}

func (h *TaskHandler) respond(c *gin.Context, status int, t *model.Task, err error) {
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(status, gin.H{"task": t})
}

// List GET /contracts/:id/tasks
func (h *TaskHandler) List(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tasks, err := h.collab.List(c.Request.Context(), Actor(c), id)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// Log POST /contracts/:id/tasks
func (h *TaskHandler) Log(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var fields model.TaskFields
	if !bindJSON(c, &fields) {
		return
	}
	t, err := h.collab.Log(c.Request.Context(), Actor(c), id, fields)
	h.respond(c, http.StatusCreated, t, err)
}

// Progress GET /contracts/:id/progress
func (h *TaskHandler) Progress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.collab.Progress(c.Request.Context(), Actor(c), id)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": p})
}

// Edit PUT /tasks/:id
func (h *TaskHandler) Edit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var fields model.TaskFields
	if !bindJSON(c, &fields) {
		return
	}
	t, err := h.collab.Edit(c.Request.Context(), Actor(c), id, fields)
	h.respond(c, http.StatusOK, t, err)
}

// Delete DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.collab.Delete(c.Request.Context(), Actor(c), id); err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Submit POST /tasks/:id/submit
func (h *TaskHandler) Submit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.collab.Submit(c.Request.Context(), Actor(c), id)
	h.respond(c, http.StatusOK, t, err)
}

type reviewRequest struct {
	Decision model.ReviewDecision `json:"decision"`
	Comment  string               `json:"comment"`
}

// Review POST /tasks/:id/review
func (h *TaskHandler) Review(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.collab.Review(c.Request.Context(), Actor(c), id, req.Decision, req.Comment)
	h.respond(c, http.StatusOK, t, err)
}

// Revise POST /tasks/:id/revise，返回新建的修订草稿
func (h *TaskHandler) Revise(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.collab.Revise(c.Request.Context(), Actor(c), id)
	h.respond(c, http.StatusCreated, t, err)
}
