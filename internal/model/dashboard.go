package model

import "time"

// FeedItem 开发者首页信息流的一项
type FeedItem struct {
	IdeaSummary
	Bookmarked       bool `json:"bookmarked"`
	BookmarkCount    int  `json:"bookmark_count"`
	PendingProposals int  `json:"pending_proposals"`
}

// Collaboration 开发者协作列表的一项
type Collaboration struct {
	ContractID   int64            `json:"contract_id"`
	IdeaID       int64            `json:"idea_id"`
	IdeaTitle    string           `json:"idea_title"`
	Entrepreneur PartySnapshot    `json:"entrepreneur"`
	Status       ContractStatus   `json:"status"`
	Equity       EquityTerms      `json:"equity"`
	Progress     ContractProgress `json:"progress"`
}

// ChatSummary 会话列表的一项，每个合同一条
type ChatSummary struct {
	ContractID  int64          `json:"contract_id"`
	IdeaID      int64          `json:"idea_id"`
	IdeaTitle   string         `json:"idea_title"`
	Counterpart PartySnapshot  `json:"counterpart"`
	Status      ContractStatus `json:"status"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
