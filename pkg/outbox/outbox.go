package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// 事件状态
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// ErrEventNotFound 事件不存在
var ErrEventNotFound = errors.New("outbox event not found")

// Event 表示一个待发布的事件
type Event struct {
	ID            int64           `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   *int64          `json:"aggregate_id,omitempty"`
	RoutingKey    string          `json:"routing_key"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	RetryCount    int             `json:"retry_count"`
	NextRetryAt   *time.Time      `json:"next_retry_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Store Dispatcher 和 ReplayService 依赖的存储操作
type Store interface {
	ClaimPendingEvents(ctx context.Context, limit int, lease time.Duration) ([]*Event, error)
	MarkAsSent(ctx context.Context, eventID int64) error
	MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error
	GetEventByID(ctx context.Context, eventID int64) (*Event, error)
	ReplayEvent(ctx context.Context, eventID int64) error
	GetFailedEvents(ctx context.Context, limit int) ([]*Event, error)
}

// NextRetryDelay 第 n 次失败后的等待时间：5s, 10s, 15s...
func NextRetryDelay(retryCount int) time.Duration {
	return time.Duration(retryCount) * 5 * time.Second
}

// Repository PostgreSQL 上的 outbox 实现
type Repository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository 创建新的 Outbox Repository
func NewRepository(db *pgxpool.Pool, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

const eventColumns = `id, aggregate_type, aggregate_id, routing_key, payload, status,
		       retry_count, next_retry_at, created_at, updated_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(
		&e.ID,
		&e.AggregateType,
		&e.AggregateID,
		&e.RoutingKey,
		&e.Payload,
		&e.Status,
		&e.RetryCount,
		&e.NextRetryAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]*Event, error) {
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// InsertEvent 在事务中插入事件，必须与业务写入共用同一个 tx
func (r *Repository) InsertEvent(ctx context.Context, tx pgx.Tx, event *Event) error {
	query := `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, routing_key, payload, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		event.AggregateType,
		event.AggregateID,
		event.RoutingKey,
		[]byte(event.Payload),
		event.Status,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	r.logger.Debug("Outbox event inserted",
		zap.Int64("event_id", event.ID),
		zap.String("routing_key", event.RoutingKey),
	)
	return nil
}

// ClaimPendingEvents 领取到期的 pending 事件，并把 next_retry_at 推后 lease，
// 多个 dispatcher 实例不会同时领取同一事件
func (r *Repository) ClaimPendingEvents(ctx context.Context, limit int, lease time.Duration) ([]*Event, error) {
	query := `
		UPDATE outbox_events
		SET next_retry_at = NOW() + make_interval(secs => $2), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status = 'pending'
			AND (next_retry_at IS NULL OR next_retry_at <= NOW())
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + eventColumns

	rows, err := r.db.Query(ctx, query, limit, lease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending events: %w", err)
	}
	return collectEvents(rows)
}

// MarkAsSent 标记事件为已发送
func (r *Repository) MarkAsSent(ctx context.Context, eventID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'sent', next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1
	`, eventID)
	if err != nil {
		return fmt.Errorf("failed to mark event as sent: %w", err)
	}
	return nil
}

// MarkAsFailed 增加重试次数；达到 maxRetries 后状态变为 failed
func (r *Repository) MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error {
	var retryCount int
	err := r.db.QueryRow(ctx,
		`SELECT retry_count FROM outbox_events WHERE id = $1`, eventID,
	).Scan(&retryCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to get retry count: %w", err)
	}

	retryCount++

	status := StatusPending
	var nextRetryAt *time.Time
	if retryCount >= maxRetries {
		status = StatusFailed
	} else {
		next := time.Now().Add(NextRetryDelay(retryCount))
		nextRetryAt = &next
	}

	_, err = r.db.Exec(ctx, `
		UPDATE outbox_events
		SET status = $1, retry_count = $2, next_retry_at = $3, updated_at = NOW()
		WHERE id = $4
	`, status, retryCount, nextRetryAt, eventID)
	if err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}

	if status == StatusFailed {
		r.logger.Warn("Outbox event exhausted retries",
			zap.Int64("event_id", eventID),
			zap.Int("retry_count", retryCount),
		)
	}
	return nil
}

// GetEventByID 根据 ID 获取事件
func (r *Repository) GetEventByID(ctx context.Context, eventID int64) (*Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM outbox_events WHERE id = $1`, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// ReplayEvent 把事件重置为 pending，由 dispatcher 重新发布
func (r *Repository) ReplayEvent(ctx context.Context, eventID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'pending', retry_count = 0, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1
	`, eventID)
	if err != nil {
		return fmt.Errorf("failed to replay event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// GetFailedEvents 获取失败的事件（用于管理接口）
func (r *Repository) GetFailedEvents(ctx context.Context, limit int) ([]*Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+eventColumns+`
		FROM outbox_events
		WHERE status = 'failed'
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed events: %w", err)
	}
	return collectEvents(rows)
}
