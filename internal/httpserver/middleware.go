package httpserver

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"foundermatch/internal/handler"
	"foundermatch/internal/util"
	"foundermatch/pkg/apperr"
	"foundermatch/pkg/metrics"
	"foundermatch/pkg/rbac"
	"foundermatch/pkg/trace"
)

func abort(c *gin.Context, status int, code apperr.Code, message string) {
	c.AbortWithStatusJSON(status, handler.ErrorBody{Error: handler.ErrorDetail{Code: code, Message: message}})
}

// TraceMiddleware 沿用请求头中的 trace id，没有就生成，并写回响应头
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, traceID := trace.Ensure(c.Request.Context(), c.GetHeader(trace.HeaderName))
		c.Request = c.Request.WithContext(ctx)
		c.Header(trace.HeaderName, traceID)
		c.Next()
	}
}

// RequestLogger 请求日志与 HTTP 延迟指标
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), latency)
		logger.Info("HTTP Request",
			zap.String("trace_id", trace.FromContext(c.Request.Context())),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// NotificationStreamPath 通知推送的 websocket 路由
const NotificationStreamPath = "/ws/notifications"

// AuthMiddleware 校验 Bearer token；浏览器的 websocket 无法设置请求头，
// 只有 queryTokenRoutes 中的 GET 路由允许 ?token=
func AuthMiddleware(jwtSecret string, queryTokenRoutes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" && c.Request.Method == http.MethodGet && slices.Contains(queryTokenRoutes, c.FullPath()) {
			token = c.Query("token")
		}
		if token == "" {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "missing token")
			return
		}

		claims, err := util.ParseJWT(token, jwtSecret)
		if err != nil {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "invalid token")
			return
		}

		c.Set(handler.CtxUserID, claims.UserID)
		c.Set(handler.CtxRole, claims.Role)
		c.Next()
	}
}

// RequirePermission 中间件：要求用户角色具有指定权限
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := handler.Actor(c)
		if actor.UserID == 0 {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "user not authenticated")
			return
		}
		if err := rbac.CheckPermission(actor.UserID, string(actor.Role), permission); err != nil {
			abort(c, http.StatusForbidden, apperr.CodeForbidden, err.Error())
			return
		}
		c.Next()
	}
}

// RequireSelf 路径中的用户 id 必须与 token 一致，admin 例外
func RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param(param), 10, 64)
		if err != nil || id <= 0 {
			abort(c, http.StatusBadRequest, apperr.CodeValidation, "invalid "+param)
			return
		}
		actor := handler.Actor(c)
		if err := rbac.ValidateUserIDInPayload(actor.UserID, string(actor.Role), id); err != nil {
			abort(c, http.StatusForbidden, apperr.CodeForbidden, err.Error())
			return
		}
		c.Next()
	}
}
