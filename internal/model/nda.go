package model

import "time"

// NDAAcceptance 开发者对某个创意的保密协议确认，每对 (idea, developer) 至多一条，不可撤销
type NDAAcceptance struct {
	IdeaID      int64     `json:"idea_id"`
	DeveloperID int64     `json:"developer_id"`
	AcceptedAt  time.Time `json:"accepted_at"`
}
