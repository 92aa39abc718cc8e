package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
)

type IdeaRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewIdeaRepository(db *pgxpool.Pool, logger *zap.Logger) *IdeaRepository {
	return &IdeaRepository{db: db, logger: logger}
}

const ideaColumns = `i.id, i.owner_id, i.title, i.overview, i.description, i.stage, i.skills,
	i.equity_min, i.equity_max, i.visibility, i.attachments, i.created_at, i.updated_at, i.deleted_at`

func ideaDest(i *model.Idea) []any {
	return []any{
		&i.ID, &i.OwnerID, &i.Title, &i.Overview, &i.Description, &i.Stage, &i.Skills,
		&i.Equity.Min, &i.Equity.Max, &i.Visibility, &i.Attachments, &i.CreatedAt, &i.UpdatedAt, &i.DeletedAt,
	}
}

func (r *IdeaRepository) Create(ctx context.Context, idea *model.Idea) (int64, error) {
	query := `
		INSERT INTO ideas (owner_id, title, overview, description, stage, skills,
		                   equity_min, equity_max, visibility, attachments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		idea.OwnerID, idea.Title, idea.Overview, idea.Description, idea.Stage, nonNil(idea.Skills),
		idea.Equity.Min, idea.Equity.Max, idea.Visibility, nonNil(idea.Attachments), idea.CreatedAt, idea.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert idea: %w", err)
	}
	return id, nil
}

// Get 软删除的创意视为不存在
func (r *IdeaRepository) Get(ctx context.Context, id int64) (*model.Idea, error) {
	var idea model.Idea
	err := r.db.QueryRow(ctx,
		`SELECT `+ideaColumns+` FROM ideas i WHERE i.id = $1 AND i.deleted_at IS NULL`, id,
	).Scan(ideaDest(&idea)...)
	if err != nil {
		return nil, notFound(err, "idea", id)
	}
	return &idea, nil
}

func (r *IdeaRepository) Update(ctx context.Context, idea *model.Idea) error {
	query := `
		UPDATE ideas
		SET title = $2, overview = $3, description = $4, stage = $5, skills = $6,
		    equity_min = $7, equity_max = $8, visibility = $9, attachments = $10, updated_at = $11
		WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query,
		idea.ID, idea.Title, idea.Overview, idea.Description, idea.Stage, nonNil(idea.Skills),
		idea.Equity.Min, idea.Equity.Max, idea.Visibility, nonNil(idea.Attachments), idea.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update idea: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("idea", idea.ID)
	}
	return nil
}

// SoftDelete 条件与内存实现一致：活跃提案、未生成合同的已接受提案、进行中的合同都会阻止删除
func (r *IdeaRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE ideas SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
		AND NOT EXISTS (
			SELECT 1 FROM proposals p
			WHERE p.idea_id = $1
			AND (p.status IN ('pending', 'reviewed')
			     OR (p.status = 'accepted' AND NOT EXISTS (SELECT 1 FROM contracts c WHERE c.proposal_id = p.id)))
		)
		AND NOT EXISTS (
			SELECT 1 FROM contracts c
			WHERE c.idea_id = $1 AND c.status IN ('draft', 'ready_to_sign', 'signed')
		)
	`
	deleted := false
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		// 先锁住行，等待持有共享锁的提案写入提交，再用新快照检查引用
		var locked int64
		err := tx.QueryRow(ctx,
			`SELECT id FROM ideas WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id,
		).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, query, id, at)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete idea: %w", err)
	}
	if deleted {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return apperr.New(apperr.CodeHasActiveProposals, "idea %d has active proposals or contracts", id)
}

// filterClause 生成与 model.IdeaFilter.Matches、IdeaCursor.Admits 等价的 WHERE 子句
func filterClause(a *args, filter model.IdeaFilter, after *model.IdeaCursor) string {
	conds := []string{"i.deleted_at IS NULL"}
	if filter.OwnerID != 0 {
		conds = append(conds, "i.owner_id = "+a.add(filter.OwnerID))
	}
	if filter.Stage != "" {
		conds = append(conds, "i.stage = "+a.add(string(filter.Stage)))
	}
	if len(filter.Skills) > 0 {
		conds = append(conds, "i.skills @> "+a.add(filter.Skills)+"::text[]")
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		p := a.add(likePattern(q))
		conds = append(conds, fmt.Sprintf(
			"(i.title ILIKE %s OR (i.visibility = 'public' AND i.overview ILIKE %s))", p, p))
	}
	if after != nil {
		t := a.add(after.CreatedAt)
		conds = append(conds, fmt.Sprintf(
			"(i.created_at < %s OR (i.created_at = %s AND i.id > %s))", t, t, a.add(after.ID)))
	}
	return strings.Join(conds, " AND ")
}

func (r *IdeaRepository) List(ctx context.Context, filter model.IdeaFilter, after *model.IdeaCursor, limit int) ([]model.Idea, error) {
	var a args
	where := filterClause(&a, filter, after)
	query := `SELECT ` + ideaColumns + ` FROM ideas i WHERE ` + where +
		` ORDER BY i.created_at DESC, i.id ASC LIMIT ` + a.add(limit)

	rows, err := r.db.Query(ctx, query, a...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ideas: %w", err)
	}
	ideas, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Idea, error) {
		var i model.Idea
		err := row.Scan(ideaDest(&i)...)
		return i, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan ideas: %w", err)
	}
	r.logger.Debug("ideas listed", zap.Int("count", len(ideas)), zap.Stringer("after", after))
	return ideas, nil
}
