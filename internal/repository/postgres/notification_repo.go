package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
)

type NotificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, kind, message, ref_type, ref_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, n.UserID, n.Kind, n.Message, n.RefType, n.RefID, n.Read, n.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert notification: %w", err)
	}
	return id, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, kind, message, ref_type, ref_id, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Notification, error) {
		var n model.Notification
		err := row.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &n.RefType, &n.RefID, &n.Read, &n.CreatedAt)
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan notifications: %w", err)
	}
	return out, nil
}

// MarkRead 只能标记自己的通知
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification", id)
	}
	return nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}
