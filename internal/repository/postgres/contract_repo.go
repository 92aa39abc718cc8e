package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
	"foundermatch/pkg/db"
	"foundermatch/pkg/outbox"
)

type ContractRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewContractRepository(db *pgxpool.Pool, ob *outbox.Repository, logger *zap.Logger) *ContractRepository {
	return &ContractRepository{db: db, outbox: ob, logger: logger}
}

const contractColumns = `id, proposal_id, idea_id, idea_title, entrepreneur, developer, equity, timeline,
	sections, agreements, status, entrepreneur_signed_at, developer_signed_at, executed_at, terminated_at,
	version, created_at, updated_at`

// contractJSON 合同中以 JSONB 存储的列
type contractJSON struct {
	entrepreneur, developer, equity, sections, agreements []byte
}

func encodeContract(c *model.Contract) (*contractJSON, error) {
	var out contractJSON
	var err error
	for _, f := range []struct {
		dst *[]byte
		v   any
	}{
		{&out.entrepreneur, c.Entrepreneur},
		{&out.developer, c.Developer},
		{&out.equity, c.Equity},
		{&out.sections, c.Sections},
		{&out.agreements, c.Agreements},
	} {
		if *f.dst, err = json.Marshal(f.v); err != nil {
			return nil, fmt.Errorf("failed to encode contract: %w", err)
		}
	}
	if c.Agreements == nil {
		out.agreements = []byte("[]")
	}
	return &out, nil
}

func scanContract(row pgx.Row) (*model.Contract, error) {
	var c model.Contract
	var raw contractJSON
	err := row.Scan(&c.ID, &c.ProposalID, &c.IdeaID, &c.IdeaTitle,
		&raw.entrepreneur, &raw.developer, &raw.equity, &c.Timeline,
		&raw.sections, &raw.agreements, &c.Status,
		&c.EntrepreneurSignedAt, &c.DeveloperSignedAt, &c.ExecutedAt, &c.TerminatedAt,
		&c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	for _, f := range []struct {
		src []byte
		dst any
	}{
		{raw.entrepreneur, &c.Entrepreneur},
		{raw.developer, &c.Developer},
		{raw.equity, &c.Equity},
		{raw.sections, &c.Sections},
		{raw.agreements, &c.Agreements},
	} {
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return nil, fmt.Errorf("failed to decode contract %d: %w", c.ID, err)
		}
	}
	return &c, nil
}

// Create 写入合同和里程碑；同一提案已有未终止的合同时返回 ContractAlreadyExists
func (r *ContractRepository) Create(ctx context.Context, c *model.Contract) (int64, error) {
	enc, err := encodeContract(c)
	if err != nil {
		return 0, err
	}
	if c.Version == 0 {
		c.Version = 1
	}

	var id int64
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO contracts (proposal_id, idea_id, idea_title, entrepreneur_id, developer_id,
			                       entrepreneur, developer, equity, timeline, sections, agreements,
			                       status, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING id
		`, c.ProposalID, c.IdeaID, c.IdeaTitle, c.Entrepreneur.UserID, c.Developer.UserID,
			enc.entrepreneur, enc.developer, enc.equity, c.Timeline, enc.sections, enc.agreements,
			c.Status, c.Version, c.CreatedAt, c.UpdatedAt,
		).Scan(&id)
		if err != nil {
			return err
		}

		for i := range c.Milestones {
			m := &c.Milestones[i]
			err := tx.QueryRow(ctx, `
				INSERT INTO contract_milestones (contract_id, position, title, description, duration, estimated_hours)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
			`, id, m.Position, m.Title, m.Description, m.Duration, m.EstimatedHours).Scan(&m.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "contracts_one_live_idx") {
			return 0, apperr.New(apperr.CodeContractAlreadyExists, "proposal %d already has a contract", c.ProposalID)
		}
		return 0, fmt.Errorf("failed to insert contract: %w", err)
	}
	return id, nil
}

func (r *ContractRepository) Get(ctx context.Context, id int64) (*model.Contract, error) {
	c, err := scanContract(r.db.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "contract", id)
	}
	if err := r.loadMilestones(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetByProposal 返回提案当前未终止的合同
func (r *ContractRepository) GetByProposal(ctx context.Context, proposalID int64) (*model.Contract, error) {
	c, err := scanContract(r.db.QueryRow(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE proposal_id = $1 AND status <> 'terminated'`, proposalID))
	if err != nil {
		return nil, notFound(err, "contract for proposal", proposalID)
	}
	if err := r.loadMilestones(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ContractRepository) loadMilestones(ctx context.Context, contracts ...*model.Contract) error {
	if len(contracts) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(contracts))
	byID := make(map[int64]*model.Contract, len(contracts))
	for _, c := range contracts {
		ids = append(ids, c.ID)
		byID[c.ID] = c
		c.Milestones = []model.ContractMilestone{}
	}

	rows, err := r.db.Query(ctx, `
		SELECT contract_id, id, position, title, description, duration, estimated_hours
		FROM contract_milestones
		WHERE contract_id = ANY($1)
		ORDER BY contract_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load contract milestones: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var contractID int64
		var m model.ContractMilestone
		if err := rows.Scan(&contractID, &m.ID, &m.Position, &m.Title, &m.Description, &m.Duration, &m.EstimatedHours); err != nil {
			return fmt.Errorf("failed to scan contract milestone: %w", err)
		}
		if c, ok := byID[contractID]; ok {
			c.Milestones = append(c.Milestones, m)
		}
	}
	return rows.Err()
}

// Update 以版本号为条件写回可变列；里程碑生成后不再变化
func (r *ContractRepository) Update(ctx context.Context, c *model.Contract, expectedVersion int, events ...model.OutboxMessage) (bool, error) {
	enc, err := encodeContract(c)
	if err != nil {
		return false, err
	}

	updated := false
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE contracts
			SET equity = $3, sections = $4, agreements = $5, status = $6,
			    entrepreneur_signed_at = $7, developer_signed_at = $8, executed_at = $9, terminated_at = $10,
			    version = version + 1, updated_at = $11
			WHERE id = $1 AND version = $2
		`, c.ID, expectedVersion, enc.equity, enc.sections, enc.agreements, c.Status,
			c.EntrepreneurSignedAt, c.DeveloperSignedAt, c.ExecutedAt, c.TerminatedAt, c.UpdatedAt)
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
		return false, fmt.Errorf("failed to update contract %d: %w", c.ID, err)
	}
	if !updated {
		if _, err := r.Get(ctx, c.ID); err != nil {
			return false, err
		}
		return false, nil
	}
	c.Version = expectedVersion + 1
	return true, nil
}

func (r *ContractRepository) ListByUser(ctx context.Context, userID int64) ([]model.Contract, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+contractColumns+` FROM contracts
		WHERE entrepreneur_id = $1 OR developer_id = $1
		ORDER BY updated_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	ptrs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Contract, error) {
		return scanContract(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan contracts: %w", err)
	}
	if err := r.loadMilestones(ctx, ptrs...); err != nil {
		return nil, err
	}

	out := make([]model.Contract, 0, len(ptrs))
	for _, c := range ptrs {
		out = append(out, *c)
	}
	return out, nil
}
