package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Migrate 按文件名顺序执行 migrations 中尚未执行的 *.sql，每个文件一个事务
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, logger *zap.Logger) ([]string, error) {
	if _, err := pool.Exec(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	names, err := fs.Glob(migrations, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	var applied []string
	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")

		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
		).Scan(&exists)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", version, err)
		}
		if exists {
			continue
		}

		body, err := fs.ReadFile(migrations, name)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(body)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
			return err
		})
		if err != nil {
			logger.Error("Migration failed", zap.String("version", version), zap.Error(err))
			return applied, fmt.Errorf("failed to apply migration %s: %w", version, err)
		}

		logger.Info("Migration applied", zap.String("version", version))
		applied = append(applied, version)
	}

	return applied, nil
}
