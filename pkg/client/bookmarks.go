package client

import (
	"context"
	"sync"

	"foundermatch/internal/model"
)

// Bookmarks 客户端的收藏视图：confirmed 为服务端最后确认的快照，view 为含乐观修改的展示状态
type Bookmarks struct {
	mu        sync.Mutex
	confirmed map[int64]model.BookmarkState
	view      map[int64]model.BookmarkState
}

// NewBookmarks 用信息流结果初始化
func NewBookmarks(items []model.FeedItem) *Bookmarks {
	b := &Bookmarks{
		confirmed: make(map[int64]model.BookmarkState, len(items)),
		view:      make(map[int64]model.BookmarkState, len(items)),
	}
	for _, it := range items {
		s := model.BookmarkState{IdeaID: it.ID, Bookmarked: it.Bookmarked, Count: it.BookmarkCount}
		b.confirmed[it.ID] = s
		b.view[it.ID] = s
	}
	return b
}

// State 当前展示状态
func (b *Bookmarks) State(ideaID int64) model.BookmarkState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.view[ideaID]; ok {
		return s
	}
	return model.BookmarkState{IdeaID: ideaID}
}

// ToggleCommand 一次乐观切换
type ToggleCommand struct {
	b      *Bookmarks
	ideaID int64
}

// Apply 立即修改展示状态；计数随状态变化增减
func (b *Bookmarks) Apply(ideaID int64, on bool) *ToggleCommand {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.view[ideaID]
	s.IdeaID = ideaID
	if s.Bookmarked != on {
		if on {
			s.Count++
		} else if s.Count > 0 {
			s.Count--
		}
		s.Bookmarked = on
	}
	b.view[ideaID] = s
	return &ToggleCommand{b: b, ideaID: ideaID}
}

// Commit 以服务端返回的状态为准
func (cmd *ToggleCommand) Commit(server model.BookmarkState) {
	cmd.b.mu.Lock()
	defer cmd.b.mu.Unlock()
	cmd.b.confirmed[cmd.ideaID] = server
	cmd.b.view[cmd.ideaID] = server
}

// Undo 恢复到最后确认的快照
func (cmd *ToggleCommand) Undo() {
	cmd.b.mu.Lock()
	defer cmd.b.mu.Unlock()
	if s, ok := cmd.b.confirmed[cmd.ideaID]; ok {
		cmd.b.view[cmd.ideaID] = s
		return
	}
	delete(cmd.b.view, cmd.ideaID)
}

// ToggleBookmarkOptimistic 先更新本地视图再请求服务端；失败时回滚并返回 MutationError
func (c *Client) ToggleBookmarkOptimistic(ctx context.Context, b *Bookmarks, developerID, ideaID int64, on bool) (model.BookmarkState, error) {
	cmd := b.Apply(ideaID, on)
	state, err := c.ToggleBookmark(ctx, BookmarkInput{DeveloperID: developerID, IdeaID: ideaID, Toggle: on})
	if err != nil {
		cmd.Undo()
		return b.State(ideaID), err
	}
	cmd.Commit(state)
	return state, nil
}
