package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"foundermatch/internal/model"
)

type NDARepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNDARepository(db *pgxpool.Pool, logger *zap.Logger) *NDARepository {
	return &NDARepository{db: db, logger: logger}
}

// Accept 已存在时保留第一次的时间
func (r *NDARepository) Accept(ctx context.Context, ideaID, developerID int64, at time.Time) (*model.NDAAcceptance, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO nda_acceptances (idea_id, developer_id, accepted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (idea_id, developer_id) DO NOTHING
	`, ideaID, developerID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to insert nda acceptance: %w", err)
	}

	a := model.NDAAcceptance{IdeaID: ideaID, DeveloperID: developerID}
	err = r.db.QueryRow(ctx,
		`SELECT accepted_at FROM nda_acceptances WHERE idea_id = $1 AND developer_id = $2`,
		ideaID, developerID,
	).Scan(&a.AcceptedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load nda acceptance: %w", err)
	}
	return &a, nil
}

func (r *NDARepository) HasAccepted(ctx context.Context, ideaID, developerID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM nda_acceptances WHERE idea_id = $1 AND developer_id = $2)`,
		ideaID, developerID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check nda acceptance: %w", err)
	}
	return ok, nil
}
