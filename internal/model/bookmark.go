package model

import "time"

type Bookmark struct {
	DeveloperID int64     `json:"developer_id"`
	IdeaID      int64     `json:"idea_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// BookmarkState 切换后的权威状态
type BookmarkState struct {
	IdeaID     int64 `json:"idea_id"`
	Bookmarked bool  `json:"bookmarked"`
	Count      int   `json:"count"`
}
