package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
	"foundermatch/pkg/logger"
)

// Context keys set by the auth middleware
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// statusOf 错误码到 HTTP 状态码
func statusOf(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeForbidden, apperr.CodeNotOwner, apperr.CodeIdeaNotVisible:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeInvalidTransition, apperr.CodeNotReadyToSign, apperr.CodeAlreadySigned,
		apperr.CodeMissingSignatures, apperr.CodeHasActiveProposals, apperr.CodeProposalNotAccepted,
		apperr.CodeDuplicateActiveProposal, apperr.CodeContractAlreadyExists, apperr.CodeConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ErrorBody {"error": {"code", "message"}}
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// WriteError 写出错误响应；非领域错误只记日志，不把内部信息返回给客户端
func WriteError(c *gin.Context, log *zap.Logger, err error) {
	code := apperr.CodeOf(err)
	status := statusOf(code)
	if status >= http.StatusInternalServerError {
		logger.WithTrace(c.Request.Context(), log).Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{Code: code, Message: apperr.MessageOf(err)}})
}

func badRequest(c *gin.Context, format string, args ...any) {
	err := apperr.Validation(format, args...)
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: ErrorDetail{Code: err.Code, Message: err.Message}})
}

// Actor 从认证中间件写入的上下文中构造调用者
func Actor(c *gin.Context) model.Actor {
	var a model.Actor
	if v, ok := c.Get(CtxUserID); ok {
		a.UserID, _ = v.(int64)
	}
	if v, ok := c.Get(CtxRole); ok {
		if r, ok := v.(string); ok {
			a.Role = model.Role(r)
		}
	}
	return a
}

// pathID 解析路径中的正整数 id
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid %s", name)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return false
	}
	return true
}
