package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"foundermatch/internal/model"
)

type DashboardRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewDashboardRepository(db *pgxpool.Pool, logger *zap.Logger) *DashboardRepository {
	return &DashboardRepository{db: db, logger: logger}
}

// Feed 计数在查询时计算，不维护冗余列
func (r *DashboardRepository) Feed(ctx context.Context, developerID int64, filter model.IdeaFilter, after *model.IdeaCursor, limit int) ([]model.FeedItem, error) {
	var a args
	dev := a.add(developerID)
	where := filterClause(&a, filter, after)
	query := `
		SELECT ` + ideaColumns + `,
		       EXISTS (SELECT 1 FROM bookmarks b WHERE b.idea_id = i.id AND b.developer_id = ` + dev + `),
		       (SELECT COUNT(*) FROM bookmarks b WHERE b.idea_id = i.id),
		       (SELECT COUNT(*) FROM proposals p WHERE p.idea_id = i.id AND p.status IN ('pending', 'reviewed'))
		FROM ideas i
		WHERE ` + where + `
		ORDER BY i.created_at DESC, i.id ASC
		LIMIT ` + a.add(limit)

	rows, err := r.db.Query(ctx, query, a...)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.FeedItem, error) {
		var idea model.Idea
		var item model.FeedItem
		dest := append(ideaDest(&idea), &item.Bookmarked, &item.BookmarkCount, &item.PendingProposals)
		if err := row.Scan(dest...); err != nil {
			return model.FeedItem{}, err
		}
		item.IdeaSummary = idea.Summary()
		return item, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan feed: %w", err)
	}
	return out, nil
}
