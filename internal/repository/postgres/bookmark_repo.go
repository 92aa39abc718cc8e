package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"foundermatch/internal/model"
)

type BookmarkRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewBookmarkRepository(db *pgxpool.Pool, logger *zap.Logger) *BookmarkRepository {
	return &BookmarkRepository{db: db, logger: logger}
}

// Set 幂等写入或删除，在同一事务中读取收藏数
func (r *BookmarkRepository) Set(ctx context.Context, developerID, ideaID int64, on bool, at time.Time) (model.BookmarkState, error) {
	state := model.BookmarkState{IdeaID: ideaID, Bookmarked: on}
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		if on {
			_, err = tx.Exec(ctx, `
				INSERT INTO bookmarks (developer_id, idea_id, created_at)
				VALUES ($1, $2, $3)
				ON CONFLICT (developer_id, idea_id) DO NOTHING
			`, developerID, ideaID, at)
		} else {
			_, err = tx.Exec(ctx, `DELETE FROM bookmarks WHERE developer_id = $1 AND idea_id = $2`, developerID, ideaID)
		}
		if err != nil {
			return err
		}
		return tx.QueryRow(ctx, `SELECT COUNT(*) FROM bookmarks WHERE idea_id = $1`, ideaID).Scan(&state.Count)
	})
	if err != nil {
		return model.BookmarkState{}, fmt.Errorf("failed to set bookmark: %w", err)
	}
	return state, nil
}
