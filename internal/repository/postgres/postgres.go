// Package postgres 基于 pgx 的仓储实现。状态变更与 outbox 事件在同一事务中写入，
// 唯一性由部分唯一索引保证，违反时映射为领域错误。
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
	"foundermatch/pkg/outbox"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations 嵌入的建表脚本，供 db.Migrate 使用
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Repositories 聚合所有仓储，共享连接池与 outbox
type Repositories struct {
	Users         *UserRepository
	Ideas         *IdeaRepository
	NDAs          *NDARepository
	Proposals     *ProposalRepository
	Contracts     *ContractRepository
	Tasks         *TaskRepository
	Bookmarks     *BookmarkRepository
	Notifications *NotificationRepository
	Dashboard     *DashboardRepository
	Outbox        *outbox.Repository
}

func NewRepositories(db *pgxpool.Pool, logger *zap.Logger) *Repositories {
	ob := outbox.NewRepository(db, logger)
	return &Repositories{
		Users:         NewUserRepository(db, logger),
		Ideas:         NewIdeaRepository(db, logger),
		NDAs:          NewNDARepository(db, logger),
		Proposals:     NewProposalRepository(db, ob, logger),
		Contracts:     NewContractRepository(db, ob, logger),
		Tasks:         NewTaskRepository(db, ob, logger),
		Bookmarks:     NewBookmarkRepository(db, logger),
		Notifications: NewNotificationRepository(db, logger),
		Dashboard:     NewDashboardRepository(db, logger),
		Outbox:        ob,
	}
}

// writeEvents 在业务事务中写入 outbox
func writeEvents(ctx context.Context, tx pgx.Tx, repo *outbox.Repository, msgs []model.OutboxMessage) error {
	for _, m := range msgs {
		event, err := outbox.NewEvent(m.AggregateType, m.AggregateID, m.RoutingKey, m.Payload)
		if err != nil {
			return err
		}
		if err := repo.InsertEvent(ctx, tx, event); err != nil {
			return err
		}
	}
	return nil
}

func notFound(err error, entity string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	return fmt.Errorf("failed to load %s %d: %w", entity, id, err)
}

// args 拼接动态条件时分配占位符
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// likePattern 转义 LIKE 通配符后包成子串匹配
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
