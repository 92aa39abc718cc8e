package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/internal/service/idea"
	"foundermatch/internal/service/nda"
)

type IdeaHandler struct {
	ideas  *idea.Service
	ndas   *nda.Service
	logger *zap.Logger
}

func NewIdeaHandler(ideas *idea.Service, ndas *nda.Service, logger *zap.Logger) *IdeaHandler {
	return &IdeaHandler{ideas: ideas, ndas: ndas, logger: logger}
}

// filterFromQuery ?skills=go,react&stage=mvp&q=solar&owner_id=3
func filterFromQuery(c *gin.Context) model.IdeaFilter {
	f := model.IdeaFilter{
		Stage:  model.Stage(c.Query("stage")),
		Search: c.Query("q"),
	}
	for _, v := range c.QueryArray("skills") {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.Skills = append(f.Skills, s)
			}
		}
	}
	if owner, err := strconv.ParseInt(c.Query("owner_id"), 10, 64); err == nil {
		f.OwnerID = owner
	}
	return f
}

func cursorFromQuery(c *gin.Context, log *zap.Logger) (*model.IdeaCursor, bool) {
	raw := c.Query("cursor")
	if raw == "" {
		return nil, true
	}
	cur, err := model.DecodeIdeaCursor(raw)
	if err != nil {
		WriteError(c, log, err)
		return nil, false
	}
	return cur, true
}

// List GET /ideas
func (h *IdeaHandler) List(c *gin.Context) {
	after, ok := cursorFromQuery(c, h.logger)
	if !ok {
		return
	}
	items, next, err := h.ideas.Page(c.Request.Context(), filterFromQuery(c), after, queryInt(c, "limit", 20))
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

// Get GET /ideas/:id
func (h *IdeaHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	i, err := h.ideas.Get(c.Request.Context(), Actor(c), id)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"idea": i})
}

// Create POST /post-idea，接受 JSON 或 multipart 表单
func (h *IdeaHandler) Create(c *gin.Context) {
	var fields model.IdeaFields
	if c.ContentType() == "multipart/form-data" {
		var ok bool
		if fields, ok = ideaFieldsFromForm(c); !ok {
			return
		}
	} else if !bindJSON(c, &fields) {
		return
	}

	i, err := h.ideas.Create(c.Request.Context(), Actor(c), fields)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"idea": i})
}

// ideaFieldsFromForm 附件只记录文件名，文件内容由对象存储另行上传
func ideaFieldsFromForm(c *gin.Context) (model.IdeaFields, bool) {
	f := model.IdeaFields{
		Title:       c.PostForm("title"),
		Overview:    c.PostForm("overview"),
		Description: c.PostForm("description"),
		Stage:       model.Stage(c.PostForm("stage")),
		Visibility:  model.Visibility(c.PostForm("visibility")),
	}
	for _, v := range c.PostFormArray("skills") {
		f.Skills = append(f.Skills, strings.Split(v, ",")...)
	}
	for name, target := range map[string]*float64{"equity_min": &f.Equity.Min, "equity_max": &f.Equity.Max} {
		raw := c.PostForm(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			badRequest(c, "invalid %s", name)
			return f, false
		}
		*target = v
	}
	if form, err := c.MultipartForm(); err == nil {
		for _, fh := range form.File["attachments"] {
			f.Attachments = append(f.Attachments, fh.Filename)
		}
	}
	return f, true
}

// Update PUT /ideas/:id
func (h *IdeaHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var fields model.IdeaFields
	if !bindJSON(c, &fields) {
		return
	}
	i, err := h.ideas.Update(c.Request.Context(), Actor(c), id, fields)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"idea": i})
}

// Delete DELETE /ideas/:id
func (h *IdeaHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.ideas.Delete(c.Request.Context(), Actor(c), id); err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SignNDA PUT /ideas/:id/sign-nda，重复签署返回同一条记录
func (h *IdeaHandler) SignNDA(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	acc, err := h.ndas.Accept(c.Request.Context(), Actor(c), id)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nda": acc})
}
