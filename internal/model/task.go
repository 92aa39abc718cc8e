package model

import (
	"slices"
	"strings"
	"time"

	"foundermatch/pkg/apperr"
)

// TaskStatus 协作任务状态
type TaskStatus string

const (
	TaskDraft             TaskStatus = "draft"              // 开发者可编辑、删除
	TaskSubmitted         TaskStatus = "submitted"          // 等待创业者评审
	TaskApproved          TaskStatus = "approved"           // 通过，计入完成工时，不可变
	TaskRejected          TaskStatus = "rejected"           // 拒绝
	TaskRevisionRequested TaskStatus = "revision_requested" // 要求修改，开发者可发起修订
)

// ReviewDecision 评审结论
type ReviewDecision string

const (
	DecisionApproved          ReviewDecision = "approved"
	DecisionRejected          ReviewDecision = "rejected"
	DecisionRevisionRequested ReviewDecision = "revision_requested"
)

func (d ReviewDecision) Valid() bool {
	switch d {
	case DecisionApproved, DecisionRejected, DecisionRevisionRequested:
		return true
	}
	return false
}

type Task struct {
	ID            int64      `json:"id"`
	ContractID    int64      `json:"contract_id"`
	MilestoneID   int64      `json:"milestone_id"`
	DeveloperID   int64      `json:"developer_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Hours         float64    `json:"hours"`
	Attachments   []string   `json:"attachments"`
	Status        TaskStatus `json:"status"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	ReviewComment string     `json:"review_comment,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	ReviewerID    *int64     `json:"reviewer_id,omitempty"`
	RevisionOf    *int64     `json:"revision_of,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type TaskFields struct {
	MilestoneID int64    `json:"milestone_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Hours       float64  `json:"hours"`
	Attachments []string `json:"attachments"`
}

func (f TaskFields) Validate() error {
	switch {
	case f.MilestoneID <= 0:
		return apperr.Validation("milestone_id is required")
	case strings.TrimSpace(f.Title) == "":
		return apperr.Validation("title is required")
	case f.Hours < 0:
		return apperr.Validation("hours must be >= 0")
	}
	return nil
}

// Apply 写入可编辑字段
func (t *Task) Apply(f TaskFields) {
	t.MilestoneID = f.MilestoneID
	t.Title = strings.TrimSpace(f.Title)
	t.Description = f.Description
	t.Hours = f.Hours
	t.Attachments = compactStrings(f.Attachments)
}

// Submit draft -> submitted
func (t *Task) Submit(now time.Time) error {
	if t.Status != TaskDraft {
		return apperr.New(apperr.CodeInvalidTransition, "cannot submit a %s task", t.Status)
	}
	ts := now
	t.Status = TaskSubmitted
	t.SubmittedAt = &ts
	t.UpdatedAt = now
	return nil
}

// Review submitted -> approved|rejected|revision_requested
func (t *Task) Review(reviewerID int64, d ReviewDecision, comment string, now time.Time) error {
	if !d.Valid() {
		return apperr.Validation("unknown decision %q", d)
	}
	if t.Status != TaskSubmitted {
		return apperr.New(apperr.CodeInvalidTransition, "cannot review a %s task", t.Status)
	}
	ts := now
	id := reviewerID
	t.Status = TaskStatus(d)
	t.ReviewComment = comment
	t.ReviewedAt = &ts
	t.ReviewerID = &id
	t.UpdatedAt = now
	return nil
}

// NewRevision 基于要求修改的任务生成新的草稿，原任务保留用于审计
func (t *Task) NewRevision(now time.Time) (*Task, error) {
	if t.Status != TaskRevisionRequested {
		return nil, apperr.New(apperr.CodeInvalidTransition, "cannot revise a %s task", t.Status)
	}
	orig := t.ID
	return &Task{
		ContractID:  t.ContractID,
		MilestoneID: t.MilestoneID,
		DeveloperID: t.DeveloperID,
		Title:       t.Title,
		Description: t.Description,
		Hours:       t.Hours,
		Attachments: slices.Clone(t.Attachments),
		Status:      TaskDraft,
		RevisionOf:  &orig,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Clone 深拷贝
func (t *Task) Clone() *Task {
	cp := *t
	cp.Attachments = slices.Clone(t.Attachments)
	cp.SubmittedAt = cloneTime(t.SubmittedAt)
	cp.ReviewedAt = cloneTime(t.ReviewedAt)
	if t.ReviewerID != nil {
		v := *t.ReviewerID
		cp.ReviewerID = &v
	}
	if t.RevisionOf != nil {
		v := *t.RevisionOf
		cp.RevisionOf = &v
	}
	return &cp
}
