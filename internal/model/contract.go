package model

import (
	"slices"
	"time"

	"foundermatch/pkg/apperr"
)

// ContractStatus 合同状态
type ContractStatus string

const (
	ContractDraft       ContractStatus = "draft"         // 双方可编辑条款
	ContractReadyToSign ContractStatus = "ready_to_sign" // 条款冻结，等待签署
	ContractSigned      ContractStatus = "signed"        // 一方已签署
	ContractExecuted    ContractStatus = "executed"      // 双方均已签署，终态
	ContractTerminated  ContractStatus = "terminated"    // 生效前终止，终态
)

// Party 合同当事方
type Party string

const (
	PartyEntrepreneur Party = "entrepreneur"
	PartyDeveloper    Party = "developer"
)

// PartySnapshot 生成合同时的当事人快照，之后不随用户资料变化
type PartySnapshot struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type EquityTerms struct {
	Percent       float64 `json:"percent"`
	VestingMonths int     `json:"vesting_months"`
	CliffMonths   int     `json:"cliff_months"`
}

func (t EquityTerms) Validate() error {
	switch {
	case t.Percent <= 0 || t.Percent > 100:
		return apperr.Validation("equity percent must be in (0, 100]")
	case t.VestingMonths < 0:
		return apperr.Validation("vesting months must be >= 0")
	case t.CliffMonths < 0 || t.CliffMonths > t.VestingMonths:
		return apperr.Validation("cliff months must be between 0 and vesting months")
	}
	return nil
}

// SectionID 合同条款
type SectionID string

const (
	SectionEquity          SectionID = "equity"
	SectionMilestones      SectionID = "milestones"
	SectionIP              SectionID = "ip"
	SectionConfidentiality SectionID = "confidentiality"
	SectionTermination     SectionID = "termination"
	SectionDispute         SectionID = "dispute"
)

// SectionOrder 条款展示顺序
var SectionOrder = []SectionID{
	SectionEquity,
	SectionMilestones,
	SectionIP,
	SectionConfidentiality,
	SectionTermination,
	SectionDispute,
}

// TextEditable 可直接编辑正文的条款；equity 通过 EditEquityTerms 重新生成，milestones 来自提案快照
func (s SectionID) TextEditable() bool {
	switch s {
	case SectionIP, SectionConfidentiality, SectionTermination, SectionDispute:
		return true
	}
	return false
}

type Section struct {
	ID       SectionID `json:"id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Revision int       `json:"revision"`
}

// Agreement 某一方对某条款某个修订版本的确认，只增不减
type Agreement struct {
	Party    Party     `json:"party"`
	Section  SectionID `json:"section"`
	Revision int       `json:"revision"`
	AgreedAt time.Time `json:"agreed_at"`
}

type ContractMilestone struct {
	ID             int64   `json:"id"`
	Position       int     `json:"position"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Duration       string  `json:"duration"`
	EstimatedHours float64 `json:"estimated_hours"`
}

type Contract struct {
	ID                   int64               `json:"id"`
	ProposalID           int64               `json:"proposal_id"`
	IdeaID               int64               `json:"idea_id"`
	IdeaTitle            string              `json:"idea_title"`
	Entrepreneur         PartySnapshot       `json:"entrepreneur"`
	Developer            PartySnapshot       `json:"developer"`
	Equity               EquityTerms         `json:"equity"`
	Timeline             string              `json:"timeline"`
	Milestones           []ContractMilestone `json:"milestones"`
	Sections             []Section           `json:"sections"`
	Agreements           []Agreement         `json:"agreements"`
	Status               ContractStatus      `json:"status"`
	EntrepreneurSignedAt *time.Time          `json:"entrepreneur_signed_at,omitempty"`
	DeveloperSignedAt    *time.Time          `json:"developer_signed_at,omitempty"`
	ExecutedAt           *time.Time          `json:"executed_at,omitempty"`
	TerminatedAt         *time.Time          `json:"terminated_at,omitempty"`
	Version              int                 `json:"version"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// PartyOf 返回用户在合同中的身份
func (c *Contract) PartyOf(userID int64) (Party, bool) {
	switch userID {
	case c.Entrepreneur.UserID:
		return PartyEntrepreneur, true
	case c.Developer.UserID:
		return PartyDeveloper, true
	}
	return "", false
}

// Section 按 ID 查找条款
func (c *Contract) Section(id SectionID) (*Section, bool) {
	for i := range c.Sections {
		if c.Sections[i].ID == id {
			return &c.Sections[i], true
		}
	}
	return nil, false
}

// Milestone 按 ID 查找里程碑
func (c *Contract) Milestone(id int64) (*ContractMilestone, bool) {
	for i := range c.Milestones {
		if c.Milestones[i].ID == id {
			return &c.Milestones[i], true
		}
	}
	return nil, false
}

// HasAgreed 该方是否确认过条款的当前修订版本
func (c *Contract) HasAgreed(p Party, id SectionID) bool {
	s, ok := c.Section(id)
	if !ok {
		return false
	}
	return slices.ContainsFunc(c.Agreements, func(a Agreement) bool {
		return a.Party == p && a.Section == id && a.Revision == s.Revision
	})
}

// AllAgreedBy 该方是否确认了全部条款的当前版本
func (c *Contract) AllAgreedBy(p Party) bool {
	for _, s := range c.Sections {
		if !c.HasAgreed(p, s.ID) {
			return false
		}
	}
	return len(c.Sections) > 0
}

func (c *Contract) requireDraft(op string) error {
	if c.Status != ContractDraft {
		return apperr.New(apperr.CodeInvalidTransition, "cannot %s a %s contract", op, c.Status)
	}
	return nil
}

// ReviseSection 替换条款正文并递增修订号，旧修订上的确认随之失效
func (c *Contract) ReviseSection(id SectionID, body string, now time.Time) error {
	if err := c.requireDraft("edit"); err != nil {
		return err
	}
	s, ok := c.Section(id)
	if !ok {
		return apperr.New(apperr.CodeNotFound, "section %q not found", id)
	}
	s.Body = body
	s.Revision++
	c.UpdatedAt = now
	return nil
}

// SetEquity 仅草稿状态可修改股权条款
func (c *Contract) SetEquity(terms EquityTerms, now time.Time) error {
	if err := c.requireDraft("edit equity of"); err != nil {
		return err
	}
	if err := terms.Validate(); err != nil {
		return err
	}
	c.Equity = terms
	c.UpdatedAt = now
	return nil
}

// Agree 记录确认；重复确认同一修订版本是无操作，返回 false
func (c *Contract) Agree(p Party, id SectionID, now time.Time) (bool, error) {
	if err := c.requireDraft("agree to"); err != nil {
		return false, err
	}
	s, ok := c.Section(id)
	if !ok {
		return false, apperr.New(apperr.CodeNotFound, "section %q not found", id)
	}
	if c.HasAgreed(p, id) {
		return false, nil
	}
	c.Agreements = append(c.Agreements, Agreement{Party: p, Section: id, Revision: s.Revision, AgreedAt: now})
	c.UpdatedAt = now
	return true, nil
}

// MarkReady 开发者确认全部条款后进入待签署
func (c *Contract) MarkReady(now time.Time) error {
	if err := c.requireDraft("finalize"); err != nil {
		return err
	}
	if !c.AllAgreedBy(PartyDeveloper) {
		return apperr.New(apperr.CodeInvalidTransition, "developer has not agreed to every section")
	}
	c.Status = ContractReadyToSign
	c.UpdatedAt = now
	return nil
}

func (c *Contract) signedAt(p Party) **time.Time {
	if p == PartyEntrepreneur {
		return &c.EntrepreneurSignedAt
	}
	return &c.DeveloperSignedAt
}

// Sign 开发者先签进入 signed，创业者随后会签进入 executed
func (c *Contract) Sign(p Party, now time.Time) error {
	switch c.Status {
	case ContractDraft:
		return apperr.New(apperr.CodeNotReadyToSign, "contract is still a draft")
	case ContractExecuted, ContractTerminated:
		return apperr.New(apperr.CodeInvalidTransition, "cannot sign a %s contract", c.Status)
	}

	slot := c.signedAt(p)
	if *slot != nil {
		return apperr.New(apperr.CodeAlreadySigned, "%s has already signed", p)
	}
	if p == PartyEntrepreneur && c.DeveloperSignedAt == nil {
		return apperr.New(apperr.CodeNotReadyToSign, "developer must sign before the entrepreneur countersigns")
	}
	t := now
	*slot = &t
	c.Status = ContractSigned
	c.UpdatedAt = now

	if c.EntrepreneurSignedAt != nil && c.DeveloperSignedAt != nil {
		return c.Execute(now)
	}
	return nil
}

// Execute 两个签名时间都存在才能生效
func (c *Contract) Execute(now time.Time) error {
	if c.Status == ContractExecuted {
		return apperr.New(apperr.CodeInvalidTransition, "contract already executed")
	}
	if c.Status != ContractSigned {
		return apperr.New(apperr.CodeInvalidTransition, "cannot execute a %s contract", c.Status)
	}
	if c.EntrepreneurSignedAt == nil || c.DeveloperSignedAt == nil {
		return apperr.New(apperr.CodeMissingSignatures, "both parties must sign before execution")
	}
	t := now
	c.ExecutedAt = &t
	c.Status = ContractExecuted
	c.UpdatedAt = now
	return nil
}

// Terminate 生效前任一方可终止
func (c *Contract) Terminate(now time.Time) error {
	if c.Status == ContractExecuted || c.Status == ContractTerminated {
		return apperr.New(apperr.CodeInvalidTransition, "cannot terminate a %s contract", c.Status)
	}
	t := now
	c.TerminatedAt = &t
	c.Status = ContractTerminated
	c.UpdatedAt = now
	return nil
}

// Live 未终止的合同占用提案的唯一名额
func (c *Contract) Live() bool {
	return c.Status != ContractTerminated
}

// Clone 深拷贝，供内存存储隔离使用
func (c *Contract) Clone() *Contract {
	cp := *c
	cp.Milestones = slices.Clone(c.Milestones)
	cp.Sections = slices.Clone(c.Sections)
	cp.Agreements = slices.Clone(c.Agreements)
	cp.EntrepreneurSignedAt = cloneTime(c.EntrepreneurSignedAt)
	cp.DeveloperSignedAt = cloneTime(c.DeveloperSignedAt)
	cp.ExecutedAt = cloneTime(c.ExecutedAt)
	cp.TerminatedAt = cloneTime(c.TerminatedAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
