package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
	"foundermatch/pkg/db"
	"foundermatch/pkg/outbox"
)

type ProposalRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewProposalRepository(db *pgxpool.Pool, ob *outbox.Repository, logger *zap.Logger) *ProposalRepository {
	return &ProposalRepository{db: db, outbox: ob, logger: logger}
}

const proposalColumns = `id, idea_id, developer_id, entrepreneur_id, scope, milestones,
	equity_percent, timeline, status, submitted_at, updated_at`

func scanProposal(row pgx.Row) (*model.Proposal, error) {
	var p model.Proposal
	var milestones []byte
	err := row.Scan(&p.ID, &p.IdeaID, &p.DeveloperID, &p.EntrepreneurID, &p.Scope, &milestones,
		&p.EquityPercent, &p.Timeline, &p.Status, &p.SubmittedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(milestones, &p.Milestones); err != nil {
		return nil, fmt.Errorf("failed to decode proposal milestones: %w", err)
	}
	return &p, nil
}

// Create 插入提案和 outbox 事件；活跃提案唯一索引冲突映射为 DuplicateActiveProposal
func (r *ProposalRepository) Create(ctx context.Context, p *model.Proposal, events model.EventsFunc) (int64, error) {
	milestones, err := json.Marshal(p.Milestones)
	if err != nil {
		return 0, fmt.Errorf("failed to encode proposal milestones: %w", err)
	}

	var id int64
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		// 共享锁阻止并发的软删除，直到本事务提交
		var live bool
		err := tx.QueryRow(ctx,
			`SELECT true FROM ideas WHERE id = $1 AND deleted_at IS NULL FOR SHARE`, p.IdeaID,
		).Scan(&live)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.New(apperr.CodeIdeaNotVisible, "idea %d is not available", p.IdeaID)
		}
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO proposals (idea_id, developer_id, entrepreneur_id, scope, milestones,
			                       equity_percent, timeline, status, submitted_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`, p.IdeaID, p.DeveloperID, p.EntrepreneurID, p.Scope, milestones,
			p.EquityPercent, p.Timeline, p.Status, p.SubmittedAt, p.UpdatedAt,
		).Scan(&id)
		if err != nil {
			return err
		}
		if events == nil {
			return nil
		}
		return writeEvents(ctx, tx, r.outbox, events(id))
	})
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeIdeaNotVisible {
			return 0, err
		}
		if db.IsUniqueViolation(err, "proposals_one_active_idx") {
			return 0, apperr.New(apperr.CodeDuplicateActiveProposal,
				"developer %d already has an active proposal for idea %d", p.DeveloperID, p.IdeaID)
		}
		return 0, fmt.Errorf("failed to insert proposal: %w", err)
	}
	return id, nil
}

func (r *ProposalRepository) Get(ctx context.Context, id int64) (*model.Proposal, error) {
	p, err := scanProposal(r.db.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "proposal", id)
	}
	return p, nil
}

// UpdateStatus 比较交换：只有当前状态仍为 from 时才更新
func (r *ProposalRepository) UpdateStatus(ctx context.Context, id int64, from, to model.ProposalStatus, at time.Time, events ...model.OutboxMessage) (bool, error) {
	updated := false
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE proposals SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
			id, from, to, at)
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
		return false, fmt.Errorf("failed to update proposal %d status: %w", id, err)
	}
	if !updated {
		if _, err := r.Get(ctx, id); err != nil {
			return false, err
		}
		r.logger.Info("proposal status compare-and-set lost",
			zap.Int64("proposal_id", id),
			zap.String("expected", string(from)))
	}
	return updated, nil
}

func (r *ProposalRepository) list(ctx context.Context, where string, arg int64) ([]model.Proposal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE `+where+` ORDER BY submitted_at DESC, id DESC`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Proposal, error) {
		p, err := scanProposal(row)
		if err != nil {
			return model.Proposal{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan proposals: %w", err)
	}
	return out, nil
}

func (r *ProposalRepository) ListByDeveloper(ctx context.Context, developerID int64) ([]model.Proposal, error) {
	return r.list(ctx, "developer_id = $1", developerID)
}

func (r *ProposalRepository) ListByEntrepreneur(ctx context.Context, entrepreneurID int64) ([]model.Proposal, error) {
	return r.list(ctx, "entrepreneur_id = $1", entrepreneurID)
}

func (r *ProposalRepository) ListByIdea(ctx context.Context, ideaID int64) ([]model.Proposal, error) {
	return r.list(ctx, "idea_id = $1", ideaID)
}
