package memory

import (
	"context"
	"time"

	"foundermatch/internal/model"
)

type Bookmarks struct{ s *Store }

// Set 幂等地设置收藏状态，返回设置后的状态与收藏数
func (r *Bookmarks) Set(ctx context.Context, developerID, ideaID int64, on bool, at time.Time) (model.BookmarkState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := bookmarkKey{developerID, ideaID}
	if on {
		if _, ok := r.s.bookmarks[key]; !ok {
			r.s.bookmarks[key] = at
		}
	} else {
		delete(r.s.bookmarks, key)
	}
	return model.BookmarkState{IdeaID: ideaID, Bookmarked: on, Count: r.s.bookmarkCount(ideaID)}, nil
}

func (s *Store) bookmarkCount(ideaID int64) int {
	n := 0
	for k := range s.bookmarks {
		if k.ideaID == ideaID {
			n++
		}
	}
	return n
}
