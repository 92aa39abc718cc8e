package model

import "time"

// NotificationKind 通知类型
type NotificationKind string

const (
	NotifyProposalSubmitted NotificationKind = "proposal_submitted"
	NotifyProposalAccepted  NotificationKind = "proposal_accepted"
	NotifyProposalRejected  NotificationKind = "proposal_rejected"
	NotifyContractExecuted  NotificationKind = "contract_executed"
	NotifyTaskSubmitted     NotificationKind = "task_submitted"
	NotifyTaskReviewed      NotificationKind = "task_reviewed"
)

type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	RefType   string           `json:"ref_type"`
	RefID     int64            `json:"ref_id"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
