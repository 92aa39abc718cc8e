package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"foundermatch/internal/config"
	"foundermatch/internal/httpserver"
	"foundermatch/internal/mqhandler"
	"foundermatch/internal/repository/memory"
	"foundermatch/internal/repository/postgres"
	"foundermatch/pkg/db"
	redisclient "foundermatch/pkg/redis"
	"foundermatch/pkg/util"
)

// Infra 进程持有的外部连接；未配置的依赖为 nil
type Infra struct {
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Stores    Stores
	Readiness map[string]httpserver.ReadinessCheck
}

// OpenStores 按 storage.driver 打开存储；postgres 模式下可在启动时执行迁移
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Infra, error) {
	infra := &Infra{Readiness: make(map[string]httpserver.ReadinessCheck)}

	if cfg.Storage.Driver == config.DriverMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		infra.Stores = MemoryStores(memory.New())
		return infra, nil
	}

	pool, err := db.NewConnection(ctx, cfg.DB, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.MigrateOnStart {
		if _, err := db.Migrate(ctx, pool, postgres.Migrations(), logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	infra.Pool = pool
	infra.Stores = PostgresStores(postgres.NewRepositories(pool, logger))
	infra.Readiness["db"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	return infra, nil
}

// OpenRedis 配置了 redis.addr 时连接 Redis
func (i *Infra) OpenRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Redis.Addr == "" {
		return nil
	}
	rdb, err := redisclient.NewRedisClient(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	i.Redis = rdb
	i.Readiness["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	return nil
}

// Deduper 没有 Redis 时返回 nil，消费端不去重
func (i *Infra) Deduper(cfg *config.Config, logger *zap.Logger) mqhandler.Deduper {
	if i.Redis == nil {
		return nil
	}
	return util.NewDeduper(i.Redis, cfg.Worker.DedupTTL, logger)
}

// RetryCounter 没有 Redis 时返回 nil，Consumer 退回到 redelivered 标记判断
func (i *Infra) RetryCounter(cfg *config.Config) *util.RetryCounter {
	if i.Redis == nil {
		return nil
	}
	return util.NewRetryCounter(i.Redis, cfg.Worker.DedupTTL)
}

func (i *Infra) Close() error {
	var errs []error
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	if i.Pool != nil {
		i.Pool.Close()
	}
	return errors.Join(errs...)
}
