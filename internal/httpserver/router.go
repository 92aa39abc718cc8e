package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"foundermatch/internal/handler"
	"foundermatch/pkg/otel"
	"foundermatch/pkg/rbac"
)

// ReadinessCheck 返回 nil 表示依赖可用
type ReadinessCheck func(ctx context.Context) error

// Handlers 路由依赖的全部 handler
type Handlers struct {
	Auth          *handler.AuthHandler
	Ideas         *handler.IdeaHandler
	Proposals     *handler.ProposalHandler
	Contracts     *handler.ContractHandler
	Tasks         *handler.TaskHandler
	Dashboard     *handler.DashboardHandler
	Notifications *handler.NotificationHandler
	Admin         *handler.AdminHandler
}

type Options struct {
	JWTSecret    string
	AllowOrigins []string
	CORSMaxAge   time.Duration
	Readiness    map[string]ReadinessCheck
	Logger       *zap.Logger
}

func NewRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), RequestLogger(opts.Logger))
	if len(opts.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Trace-ID"},
			ExposeHeaders:    []string{"Content-Length", "X-Trace-ID"},
			AllowCredentials: true,
			MaxAge:           opts.CORSMaxAge,
		}))
	}

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		for name, check := range opts.Readiness {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", h.Auth.Register)
	r.POST("/login", h.Auth.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(opts.JWTSecret, NotificationStreamPath))
	{
		auth.GET("/me", h.Auth.Me)

		auth.GET("/ideas", h.Ideas.List)
		auth.GET("/ideas/:id", h.Ideas.Get)
		auth.POST("/post-idea", RequirePermission(rbac.PermissionCreateIdea), h.Ideas.Create)
		auth.PUT("/ideas/:id", RequirePermission(rbac.PermissionUpdateIdea), h.Ideas.Update)
		auth.DELETE("/ideas/:id", RequirePermission(rbac.PermissionUpdateIdea), h.Ideas.Delete)
		auth.PUT("/ideas/:id/sign-nda", RequirePermission(rbac.PermissionAcceptNDA), h.Ideas.SignNDA)

		auth.POST("/submit-proposal", RequirePermission(rbac.PermissionSubmitProposal), h.Proposals.Submit)
		auth.GET("/proposal/:id", h.Proposals.Get)
		auth.POST("/proposal/:id/status", h.Proposals.Transition)
		auth.POST("/proposal/:id/contract", RequirePermission(rbac.PermissionManageProposals), h.Contracts.Generate)
		auth.GET("/manage-proposals/:ideaId", RequirePermission(rbac.PermissionManageProposals), h.Proposals.ByIdea)
		auth.GET("/developer-proposals/:developerId", RequireSelf("developerId"), h.Proposals.ByDeveloper)
		auth.GET("/entrepreneur-proposals/:entrepreneurId", RequireSelf("entrepreneurId"), h.Proposals.ByEntrepreneur)

		contracts := auth.Group("/contracts/:id")
		{
			contracts.GET("", h.Contracts.Get)
			contracts.PUT("/sections/:sectionId", RequirePermission(rbac.PermissionEditContract), h.Contracts.EditSection)
			contracts.PUT("/equity", RequirePermission(rbac.PermissionEditContract), h.Contracts.EditEquity)
			contracts.POST("/sections/:sectionId/agree", RequirePermission(rbac.PermissionEditContract), h.Contracts.Agree)
			contracts.POST("/final-agreement", RequirePermission(rbac.PermissionEditContract), h.Contracts.FinalAgreement)
			contracts.POST("/sign", RequirePermission(rbac.PermissionEditContract), h.Contracts.Sign)
			contracts.POST("/terminate", RequirePermission(rbac.PermissionEditContract), h.Contracts.Terminate)
			contracts.GET("/tasks", h.Tasks.List)
			contracts.POST("/tasks", RequirePermission(rbac.PermissionLogTask), h.Tasks.Log)
			contracts.GET("/progress", h.Tasks.Progress)
		}

		tasks := auth.Group("/tasks/:id")
		{
			tasks.PUT("", RequirePermission(rbac.PermissionLogTask), h.Tasks.Edit)
			tasks.DELETE("", RequirePermission(rbac.PermissionLogTask), h.Tasks.Delete)
			tasks.POST("/submit", RequirePermission(rbac.PermissionLogTask), h.Tasks.Submit)
			tasks.POST("/revise", RequirePermission(rbac.PermissionLogTask), h.Tasks.Revise)
			tasks.POST("/review", RequirePermission(rbac.PermissionReviewTask), h.Tasks.Review)
		}

		auth.GET("/developer-dashboard/:developerId", RequireSelf("developerId"), h.Dashboard.Feed)
		auth.POST("/api/developer-dashboard/bookmarks/toggle", RequirePermission(rbac.PermissionBookmark), h.Dashboard.ToggleBookmark)
		auth.GET("/developer-collaboration/:developerId", RequireSelf("developerId"), h.Dashboard.Collaborations)
		auth.GET("/messages/chat-list/:userId", RequireSelf("userId"), h.Dashboard.ChatList)

		auth.GET("/notifications", h.Notifications.List)
		auth.POST("/notifications/:id/read", h.Notifications.MarkRead)
		auth.GET(NotificationStreamPath, h.Notifications.Stream)

		admin := auth.Group("/admin/outbox", RequirePermission(rbac.PermissionReplayOutbox))
		{
			admin.GET("/failed", h.Admin.FailedEvents)
			admin.POST("/:id/replay", h.Admin.ReplayOutboxEvent)
			admin.POST("/replay-failed", h.Admin.ReplayFailedEvents)
		}
	}

	return r
}
