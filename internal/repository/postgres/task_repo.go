package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
	"foundermatch/pkg/db"
	"foundermatch/pkg/outbox"
)

type TaskRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, ob *outbox.Repository, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, outbox: ob, logger: logger}
}

const taskColumns = `id, contract_id, milestone_id, developer_id, title, description, hours, attachments,
	status, submitted_at, review_comment, reviewed_at, reviewer_id, revision_of, created_at, updated_at`

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.ContractID, &t.MilestoneID, &t.DeveloperID, &t.Title, &t.Description,
		&t.Hours, &t.Attachments, &t.Status, &t.SubmittedAt, &t.ReviewComment, &t.ReviewedAt,
		&t.ReviewerID, &t.RevisionOf, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create 同一任务的第二次修订违反 collab_tasks_revision_idx，映射为 InvalidTransition
func (r *TaskRepository) Create(ctx context.Context, t *model.Task, events ...model.OutboxMessage) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO collab_tasks (contract_id, milestone_id, developer_id, title, description, hours,
			                          attachments, status, revision_of, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id
		`, t.ContractID, t.MilestoneID, t.DeveloperID, t.Title, t.Description, t.Hours,
			nonNil(t.Attachments), t.Status, t.RevisionOf, t.CreatedAt, t.UpdatedAt,
		).Scan(&id)
		if err != nil {
			return err
		}
		return writeEvents(ctx, tx, r.outbox, events)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "collab_tasks_revision_idx") {
			return 0, apperr.New(apperr.CodeInvalidTransition, "task %d has already been revised", *t.RevisionOf)
		}
		return 0, fmt.Errorf("failed to insert task: %w", err)
	}
	return id, nil
}

func (r *TaskRepository) Get(ctx context.Context, id int64) (*model.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM collab_tasks WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "task", id)
	}
	return t, nil
}

// Update 以状态为条件写回
func (r *TaskRepository) Update(ctx context.Context, t *model.Task, expected model.TaskStatus, events ...model.OutboxMessage) (bool, error) {
	updated := false
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE collab_tasks
			SET milestone_id = $3, title = $4, description = $5, hours = $6, attachments = $7,
			    status = $8, submitted_at = $9, review_comment = $10, reviewed_at = $11, reviewer_id = $12,
			    updated_at = $13
			WHERE id = $1 AND status = $2
		`, t.ID, expected, t.MilestoneID, t.Title, t.Description, t.Hours, nonNil(t.Attachments),
			t.Status, t.SubmittedAt, t.ReviewComment, t.ReviewedAt, t.ReviewerID, t.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		updated = true
		return writeEvents(ctx, tx, r.outbox, events)
	})
	if err != nil {
		return false, fmt.Errorf("failed to update task %d: %w", t.ID, err)
	}
	if !updated {
		if _, err := r.Get(ctx, t.ID); err != nil {
			return false, err
		}
	}
	return updated, nil
}

// Delete 只删除草稿
func (r *TaskRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM collab_tasks WHERE id = $1 AND status = 'draft'`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete task %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *TaskRepository) ListByContract(ctx context.Context, contractID int64) ([]model.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM collab_tasks WHERE contract_id = $1 ORDER BY id`, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Task, error) {
		t, err := scanTask(row)
		if err != nil {
			return model.Task{}, err
		}
		return *t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan tasks: %w", err)
	}
	return out, nil
}
