package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"foundermatch/internal/app"
	"foundermatch/internal/config"
	"foundermatch/internal/mqhandler"
	"foundermatch/internal/ws"
	"foundermatch/pkg/logger"
	"foundermatch/pkg/mq"
	"foundermatch/pkg/otel"
	"foundermatch/pkg/outbox"
)

var version = "dev"

func main() {
	cfg, err := config.Load("", "config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logger.NewLogger(cfg.Log.Level)
	defer logger.Sync()

	shutdownTracing, err := otel.Init(cfg.Otel, version, logger)
	if err != nil {
		logger.Fatal("Tracing initialization failed", zap.Error(err))
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Storage initialization failed", zap.Error(err))
	}
	defer infra.Close()
	if err := infra.OpenRedis(ctx, cfg, logger); err != nil {
		logger.Warn("Redis unavailable, event dedup disabled", zap.Error(err))
	}

	var (
		router     *gin.Engine
		dispatcher *outbox.Dispatcher
		hub        *ws.Hub
	)
	if cfg.MQ.URL == "" {
		// 未配置 MQ：worker 的 handler 在本进程内执行
		logger.Info("No MQ configured, handling events in process")
		local := app.NewLocal(infra.Stores, cfg, infra.Deduper(cfg, logger), infra.Readiness, logger)
		router, dispatcher, hub = local.Router, local.Dispatcher, local.Hub
	} else {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			logger.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		defer publisher.Close()
		infra.Readiness["mq"] = func(context.Context) error {
			if !publisher.IsConnected() {
				return errors.New("publisher connection closed")
			}
			return nil
		}

		svc := app.NewServices(infra.Stores, cfg, publisher, logger)
		hub = ws.NewHub(logger)

		// 每个 API 实例一个临时队列，收到的通知推给本实例上的连接
		push := mq.NewRouter(logger)
		mqhandler.RegisterPush(push, hub, logger)
		consumer, err := mq.NewConsumer(cfg.MQ.URL, "", push.RoutingKeys(), logger)
		if err != nil {
			logger.Fatal("Push consumer init failed", zap.Error(err))
		}
		defer consumer.Close()
		consumer.SetHandler(push.Handle)
		go func() {
			if err := consumer.StartConsuming(ctx); err != nil {
				logger.Error("Push consumer stopped", zap.Error(err))
			}
		}()

		router = app.NewRouter(svc, hub, cfg, infra.Readiness, logger)
		dispatcher = app.NewDispatcher(infra.Stores, publisher, cfg.Outbox, logger)
	}
	defer hub.Close()

	go dispatcher.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting API server",
			zap.String("port", cfg.Server.Port),
			zap.String("env", cfg.Env),
			zap.String("storage", cfg.Storage.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server start failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}
