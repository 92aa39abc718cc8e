package model

import (
	"strings"
	"time"

	"foundermatch/pkg/apperr"
)

// ProposalStatus 提案状态
type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"   // 已提交，待处理
	ProposalReviewed  ProposalStatus = "reviewed"  // 创业者已查看
	ProposalAccepted  ProposalStatus = "accepted"  // 已接受，终态
	ProposalRejected  ProposalStatus = "rejected"  // 已拒绝，终态
	ProposalWithdrawn ProposalStatus = "withdrawn" // 开发者撤回，终态
)

// Active pending 与 reviewed 为活跃状态，同一 (idea, developer) 至多一条
func (s ProposalStatus) Active() bool {
	return s == ProposalPending || s == ProposalReviewed
}

func (s ProposalStatus) Terminal() bool {
	return s == ProposalAccepted || s == ProposalRejected || s == ProposalWithdrawn
}

// ProposalAction 状态迁移动作
type ProposalAction string

const (
	ActionReview   ProposalAction = "review"
	ActionReopen   ProposalAction = "reopen"
	ActionAccept   ProposalAction = "accept"
	ActionReject   ProposalAction = "reject"
	ActionWithdraw ProposalAction = "withdraw"
)

func (a ProposalAction) Valid() bool {
	switch a {
	case ActionReview, ActionReopen, ActionAccept, ActionReject, ActionWithdraw:
		return true
	}
	return false
}

// ByDeveloper withdraw 由提交者执行，其余动作由创意所有者执行
func (a ProposalAction) ByDeveloper() bool {
	return a == ActionWithdraw
}

// proposalTransitions 状态机：from -> action -> to
var proposalTransitions = map[ProposalStatus]map[ProposalAction]ProposalStatus{
	ProposalPending: {
		ActionReview:   ProposalReviewed,
		ActionAccept:   ProposalAccepted,
		ActionReject:   ProposalRejected,
		ActionWithdraw: ProposalWithdrawn,
	},
	ProposalReviewed: {
		ActionReopen:   ProposalPending,
		ActionAccept:   ProposalAccepted,
		ActionReject:   ProposalRejected,
		ActionWithdraw: ProposalWithdrawn,
	},
}

// Next 返回执行 action 后的状态
func (s ProposalStatus) Next(a ProposalAction) (ProposalStatus, error) {
	to, ok := proposalTransitions[s][a]
	if !ok {
		return "", apperr.New(apperr.CodeInvalidTransition, "cannot %s a %s proposal", a, s)
	}
	return to, nil
}

type ProposalMilestone struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Duration       string  `json:"duration"`
	EstimatedHours float64 `json:"estimated_hours"`
}

type Proposal struct {
	ID             int64               `json:"id"`
	IdeaID         int64               `json:"idea_id"`
	DeveloperID    int64               `json:"developer_id"`
	EntrepreneurID int64               `json:"entrepreneur_id"`
	Scope          string              `json:"scope"`
	Milestones     []ProposalMilestone `json:"milestones"`
	EquityPercent  float64             `json:"equity_percent"`
	Timeline       string              `json:"timeline"`
	Status         ProposalStatus      `json:"status"`
	SubmittedAt    time.Time           `json:"submitted_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// ProposalFields 提交时的输入
type ProposalFields struct {
	Scope         string              `json:"scope"`
	Milestones    []ProposalMilestone `json:"milestones"`
	EquityPercent float64             `json:"equity_percent"`
	Timeline      string              `json:"timeline"`
}

func (f ProposalFields) Validate() error {
	if strings.TrimSpace(f.Scope) == "" {
		return apperr.Validation("scope is required")
	}
	if f.EquityPercent <= 0 || f.EquityPercent > 100 {
		return apperr.Validation("equity percent must be in (0, 100]")
	}
	if len(f.Milestones) == 0 {
		return apperr.Validation("at least one milestone is required")
	}
	for i, m := range f.Milestones {
		if strings.TrimSpace(m.Title) == "" {
			return apperr.Validation("milestone %d: title is required", i+1)
		}
		if m.EstimatedHours < 0 {
			return apperr.Validation("milestone %d: estimated hours must be >= 0", i+1)
		}
	}
	return nil
}

// IsParty 创意所有者与提交者都可以读取
func (p *Proposal) IsParty(userID int64) bool {
	return p.DeveloperID == userID || p.EntrepreneurID == userID
}
