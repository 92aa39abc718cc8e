package memory

import (
	"context"

	"foundermatch/internal/model"
)

type Dashboard struct{ s *Store }

// Feed 创意列表加上当前开发者的收藏标记、收藏数和活跃提案数
func (r *Dashboard) Feed(ctx context.Context, developerID int64, filter model.IdeaFilter, after *model.IdeaCursor, limit int) ([]model.FeedItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ideas := r.s.listIdeas(filter, after, limit)
	out := make([]model.FeedItem, 0, len(ideas))
	for i := range ideas {
		idea := &ideas[i]
		_, marked := r.s.bookmarks[bookmarkKey{developerID, idea.ID}]
		pending := 0
		for _, p := range r.s.proposals {
			if p.IdeaID == idea.ID && p.Status.Active() {
				pending++
			}
		}
		out = append(out, model.FeedItem{
			IdeaSummary:      idea.Summary(),
			Bookmarked:       marked,
			BookmarkCount:    r.s.bookmarkCount(idea.ID),
			PendingProposals: pending,
		})
	}
	return out, nil
}
