package mq

import (
	"context"
	"time"

	"github.com/google/uuid"

	"foundermatch/pkg/trace"
)

// Routing keys on the events exchange
const (
	RoutingProposalSubmitted   = "proposal.submitted"
	RoutingProposalAccepted    = "proposal.accepted"
	RoutingProposalRejected    = "proposal.rejected"
	RoutingContractExecuted    = "contract.executed"
	RoutingTaskSubmitted       = "task.submitted"
	RoutingTaskReviewed        = "task.reviewed"
	RoutingNotificationCreated = "notification.created"
)

// Meta 每个事件都带的元信息，event_id 用于消费端去重
type Meta struct {
	EventID    string    `json:"event_id"`
	TraceID    string    `json:"trace_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ProposalSubmittedPayload struct {
	Meta
	ProposalID     int64  `json:"proposal_id"`
	IdeaID         int64  `json:"idea_id"`
	IdeaTitle      string `json:"idea_title"`
	DeveloperID    int64  `json:"developer_id"`
	EntrepreneurID int64  `json:"entrepreneur_id"`
}

// ProposalDecidedPayload 用于 proposal.accepted / proposal.rejected
type ProposalDecidedPayload struct {
	Meta
	ProposalID     int64   `json:"proposal_id"`
	IdeaID         int64   `json:"idea_id"`
	DeveloperID    int64   `json:"developer_id"`
	EntrepreneurID int64   `json:"entrepreneur_id"`
	Status         string  `json:"status"`
	EquityPercent  float64 `json:"equity_percent"`
}

type ContractExecutedPayload struct {
	Meta
	ContractID     int64     `json:"contract_id"`
	ProposalID     int64     `json:"proposal_id"`
	IdeaID         int64     `json:"idea_id"`
	IdeaTitle      string    `json:"idea_title"`
	EntrepreneurID int64     `json:"entrepreneur_id"`
	DeveloperID    int64     `json:"developer_id"`
	ExecutedAt     time.Time `json:"executed_at"`
}

type TaskSubmittedPayload struct {
	Meta
	TaskID         int64   `json:"task_id"`
	ContractID     int64   `json:"contract_id"`
	MilestoneID    int64   `json:"milestone_id"`
	DeveloperID    int64   `json:"developer_id"`
	EntrepreneurID int64   `json:"entrepreneur_id"`
	Title          string  `json:"title"`
	Hours          float64 `json:"hours"`
}

type TaskReviewedPayload struct {
	Meta
	TaskID         int64  `json:"task_id"`
	ContractID     int64  `json:"contract_id"`
	DeveloperID    int64  `json:"developer_id"`
	EntrepreneurID int64  `json:"entrepreneur_id"`
	Title          string `json:"title"`
	Decision       string `json:"decision"`
	Comment        string `json:"comment,omitempty"`
}

type NotificationCreatedPayload struct {
	Meta
	NotificationID int64     `json:"notification_id"`
	UserID         int64     `json:"user_id"`
	Kind           string    `json:"kind"`
	Message        string    `json:"message"`
	RefType        string    `json:"ref_type"`
	RefID          int64     `json:"ref_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewMeta 生成事件元信息，trace_id 取自 ctx
func NewMeta(ctx context.Context, now time.Time) Meta {
	return Meta{
		EventID:    uuid.NewString(),
		TraceID:    trace.FromContext(ctx),
		OccurredAt: now.UTC(),
	}
}
