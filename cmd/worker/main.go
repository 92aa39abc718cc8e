package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"foundermatch/internal/app"
	"foundermatch/internal/config"
	"foundermatch/internal/mqhandler"
	"foundermatch/pkg/logger"
	"foundermatch/pkg/mq"
	"foundermatch/pkg/otel"
)

var version = "dev"

func main() {
	cfg, err := config.Load("", "config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.MQ.URL == "" {
		log.Fatal("mq.url is required for the worker; without MQ the API handles events in process")
	}

	logger := logger.NewLogger(cfg.Log.Level)
	defer logger.Sync()

	logger.Info("Starting worker service...")

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
		logger.Fatal("Redis initialization failed", zap.Error(err))
	}

	// worker 创建的通知发布 notification.created，由 API 实例推送
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		logger.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	svc := app.NewServices(infra.Stores, cfg, publisher, logger)

	router := mq.NewRouter(logger)
	mqhandler.RegisterWorker(router, svc.Contracts, svc.Notifications, infra.Deduper(cfg, logger), logger)

	logger.Info("Init consumer", zap.String("queue", cfg.Worker.Queue))
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Worker.Queue, router.RoutingKeys(), logger)
	if err != nil {
		logger.Fatal("Consumer init failed", zap.Error(err))
	}
	defer consumer.Close()
	if counter := infra.RetryCounter(cfg); counter != nil {
		consumer.WithRetry(counter, cfg.Worker.MaxRetries)
	}
	consumer.SetHandler(router.Handle)

	logger.Info("Worker running")
	if err := consumer.StartConsuming(ctx); err != nil {
		logger.Error("Consumer crashed", zap.Error(err))
	}
	logger.Info("Worker stopped")
}
