// Package app 组装存储、服务、事件路由和 HTTP 路由，供 cmd 下的进程与端到端测试共用
package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"foundermatch/internal/config"
	"foundermatch/internal/handler"
	"foundermatch/internal/httpserver"
	"foundermatch/internal/mqhandler"
	"foundermatch/internal/repository/memory"
	"foundermatch/internal/repository/postgres"
	"foundermatch/internal/service/auth"
	"foundermatch/internal/service/bookmark"
	"foundermatch/internal/service/collab"
	"foundermatch/internal/service/contract"
	"foundermatch/internal/service/dashboard"
	"foundermatch/internal/service/idea"
	"foundermatch/internal/service/nda"
	"foundermatch/internal/service/notification"
	"foundermatch/internal/service/proposal"
	"foundermatch/internal/ws"
	"foundermatch/pkg/mq"
	"foundermatch/pkg/outbox"
)

// Stores 服务层依赖的全部存储
type Stores struct {
	Users         auth.UserStore
	Ideas         idea.Store
	NDAs          nda.Store
	Proposals     proposal.Store
	Contracts     contract.Store
	Tasks         collab.Store
	Bookmarks     bookmark.Store
	Notifications notification.Store
	Feed          dashboard.FeedStore
	Outbox        outbox.Store
}

func MemoryStores(s *memory.Store) Stores {
	return Stores{
		Users:         s.Users(),
		Ideas:         s.Ideas(),
		NDAs:          s.NDAs(),
		Proposals:     s.Proposals(),
		Contracts:     s.Contracts(),
		Tasks:         s.Tasks(),
		Bookmarks:     s.Bookmarks(),
		Notifications: s.Notifications(),
		Feed:          s.Dashboard(),
		Outbox:        s.Outbox(),
	}
}

func PostgresStores(r *postgres.Repositories) Stores {
	return Stores{
		Users:         r.Users,
		Ideas:         r.Ideas,
		NDAs:          r.NDAs,
		Proposals:     r.Proposals,
		Contracts:     r.Contracts,
		Tasks:         r.Tasks,
		Bookmarks:     r.Bookmarks,
		Notifications: r.Notifications,
		Feed:          r.Dashboard,
		Outbox:        r.Outbox,
	}
}

// Publisher mq.Publisher 与 mq.LocalPublisher 都满足
type Publisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
	PublishRaw(ctx context.Context, routingKey string, body []byte) error
}

type Services struct {
	Auth          *auth.Service
	Ideas         *idea.Service
	NDAs          *nda.Service
	Proposals     *proposal.Service
	Contracts     *contract.Service
	Collab        *collab.Service
	Bookmarks     *bookmark.Service
	Notifications *notification.Service
	Dashboard     *dashboard.Service
	Replay        *outbox.ReplayService
}

func NewServices(st Stores, cfg *config.Config, publisher Publisher, logger *zap.Logger) *Services {
	return &Services{
		Auth:          auth.NewService(st.Users, cfg.JWT.Secret, cfg.JWT.TTL, logger),
		Ideas:         idea.NewService(st.Ideas, st.NDAs, logger),
		NDAs:          nda.NewService(st.NDAs, st.Ideas, logger),
		Proposals:     proposal.NewService(st.Proposals, st.Ideas, st.NDAs, logger),
		Contracts:     contract.NewService(st.Contracts, st.Proposals, st.Ideas, st.Users, logger),
		Collab:        collab.NewService(st.Tasks, st.Contracts, logger),
		Bookmarks:     bookmark.NewService(st.Bookmarks, st.Ideas, logger),
		Notifications: notification.NewService(st.Notifications, publisher, logger),
		Dashboard:     dashboard.NewService(st.Feed, st.Contracts, st.Tasks, logger),
		Replay:        outbox.NewReplayService(st.Outbox, publisher, logger),
	}
}

// NewDispatcher 按配置创建 outbox 投递器
func NewDispatcher(st Stores, publisher outbox.Publisher, cfg config.OutboxConfig, logger *zap.Logger) *outbox.Dispatcher {
	return outbox.NewDispatcher(st.Outbox, publisher, logger).
		WithInterval(cfg.Interval).
		WithBatchSize(cfg.BatchSize).
		WithMaxRetries(cfg.MaxRetries)
}

// NewRouter 创建全部 handler 并注册路由
func NewRouter(svc *Services, hub *ws.Hub, cfg *config.Config, readiness map[string]httpserver.ReadinessCheck, logger *zap.Logger) *gin.Engine {
	h := httpserver.Handlers{
		Auth:          handler.NewAuthHandler(svc.Auth, logger),
		Ideas:         handler.NewIdeaHandler(svc.Ideas, svc.NDAs, logger),
		Proposals:     handler.NewProposalHandler(svc.Proposals, logger),
		Contracts:     handler.NewContractHandler(svc.Contracts, logger),
		Tasks:         handler.NewTaskHandler(svc.Collab, logger),
		Dashboard:     handler.NewDashboardHandler(svc.Dashboard, svc.Bookmarks, logger),
		Notifications: handler.NewNotificationHandler(svc.Notifications, hub, logger),
		Admin:         handler.NewAdminHandler(svc.Replay, logger),
	}
	return httpserver.NewRouter(h, httpserver.Options{
		JWTSecret:    cfg.JWT.Secret,
		AllowOrigins: cfg.CORS.AllowOrigins,
		CORSMaxAge:   cfg.CORS.MaxAge,
		Readiness:    readiness,
		Logger:       logger,
	})
}

// Local 单进程模式：outbox 事件经 LocalPublisher 直接交给 worker 与推送 handler
type Local struct {
	Services   *Services
	Hub        *ws.Hub
	Events     *mq.Router
	Dispatcher *outbox.Dispatcher
	Router     *gin.Engine
}

// NewLocal d 为 nil 时不做去重
func NewLocal(st Stores, cfg *config.Config, d mqhandler.Deduper, readiness map[string]httpserver.ReadinessCheck, logger *zap.Logger) *Local {
	events := mq.NewRouter(logger)
	publisher := mq.NewLocalPublisher(events, logger)
	svc := NewServices(st, cfg, publisher, logger)
	hub := ws.NewHub(logger)

	mqhandler.RegisterWorker(events, svc.Contracts, svc.Notifications, d, logger)
	mqhandler.RegisterPush(events, hub, logger)

	return &Local{
		Services:   svc,
		Hub:        hub,
		Events:     events,
		Dispatcher: NewDispatcher(st, publisher, cfg.Outbox, logger),
		Router:     NewRouter(svc, hub, cfg, readiness, logger),
	}
}
