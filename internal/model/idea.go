package model

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"foundermatch/pkg/apperr"
)

// Stage 创意所处阶段
type Stage string

const (
	StageIdea Stage = "idea"
	StageMVP  Stage = "mvp"
	StageBeta Stage = "beta"
)

func (s Stage) Valid() bool {
	switch s {
	case StageIdea, StageMVP, StageBeta:
		return true
	}
	return false
}

// Visibility 可见性级别
type Visibility string

const (
	VisibilityPublic      Visibility = "public"       // 所有人可见完整内容
	VisibilityInviteOnly  Visibility = "invite_only"  // 非所有者只能看到脱敏视图
	VisibilityNDARequired Visibility = "nda_required" // 签署 NDA 后可见完整内容
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityInviteOnly, VisibilityNDARequired:
		return true
	}
	return false
}

type EquityRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Idea struct {
	ID          int64       `json:"id"`
	OwnerID     int64       `json:"owner_id"`
	Title       string      `json:"title"`
	Overview    string      `json:"overview,omitempty"`
	Description string      `json:"description,omitempty"`
	Stage       Stage       `json:"stage"`
	Skills      []string    `json:"skills"`
	Equity      EquityRange `json:"equity"`
	Visibility  Visibility  `json:"visibility"`
	Attachments []string    `json:"attachments,omitempty"`
	Redacted    bool        `json:"redacted"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	DeletedAt   *time.Time  `json:"-"`
}

// IdeaFields 创建或更新时可写的字段
type IdeaFields struct {
	Title       string      `json:"title"`
	Overview    string      `json:"overview"`
	Description string      `json:"description"`
	Stage       Stage       `json:"stage"`
	Skills      []string    `json:"skills"`
	Equity      EquityRange `json:"equity"`
	Visibility  Visibility  `json:"visibility"`
	Attachments []string    `json:"attachments"`
}

// Normalize 去掉首尾空白和空的技能/附件项
func (f *IdeaFields) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Overview = strings.TrimSpace(f.Overview)
	f.Description = strings.TrimSpace(f.Description)
	f.Skills = compactStrings(f.Skills)
	f.Attachments = compactStrings(f.Attachments)
	if f.Visibility == "" {
		f.Visibility = VisibilityPublic
	}
}

func (f IdeaFields) Validate() error {
	switch {
	case f.Title == "":
		return apperr.Validation("title is required")
	case f.Overview == "":
		return apperr.Validation("overview is required")
	case f.Stage == "":
		return apperr.Validation("stage is required")
	case !f.Stage.Valid():
		return apperr.Validation("unknown stage %q", f.Stage)
	case !f.Visibility.Valid():
		return apperr.Validation("unknown visibility %q", f.Visibility)
	case f.Equity.Min < 0 || f.Equity.Max > 100 || f.Equity.Min > f.Equity.Max:
		return apperr.Validation("equity range must satisfy 0 <= min <= max <= 100")
	}
	return nil
}

// Apply 把字段写入创意
func (i *Idea) Apply(f IdeaFields) {
	i.Title = f.Title
	i.Overview = f.Overview
	i.Description = f.Description
	i.Stage = f.Stage
	i.Skills = slices.Clone(f.Skills)
	i.Equity = f.Equity
	i.Visibility = f.Visibility
	i.Attachments = slices.Clone(f.Attachments)
}

// Redact 返回脱敏副本：只保留标题、技能、阶段、股权区间等公开信息
func (i *Idea) Redact() *Idea {
	return &Idea{
		ID:         i.ID,
		OwnerID:    i.OwnerID,
		Title:      i.Title,
		Stage:      i.Stage,
		Skills:     slices.Clone(i.Skills),
		Equity:     i.Equity,
		Visibility: i.Visibility,
		Redacted:   true,
		CreatedAt:  i.CreatedAt,
		UpdatedAt:  i.UpdatedAt,
	}
}

// Summary 列表视图，非公开创意不带概述
func (i *Idea) Summary() IdeaSummary {
	s := IdeaSummary{
		ID:         i.ID,
		OwnerID:    i.OwnerID,
		Title:      i.Title,
		Stage:      i.Stage,
		Skills:     slices.Clone(i.Skills),
		Equity:     i.Equity,
		Visibility: i.Visibility,
		CreatedAt:  i.CreatedAt,
	}
	if i.Visibility == VisibilityPublic {
		s.Overview = i.Overview
	}
	return s
}

type IdeaSummary struct {
	ID         int64       `json:"id"`
	OwnerID    int64       `json:"owner_id"`
	Title      string      `json:"title"`
	Overview   string      `json:"overview,omitempty"`
	Stage      Stage       `json:"stage"`
	Skills     []string    `json:"skills"`
	Equity     EquityRange `json:"equity"`
	Visibility Visibility  `json:"visibility"`
	CreatedAt  time.Time   `json:"created_at"`
}

// IdeaFilter 列表过滤条件；Skills 需要全部命中，Search 对标题和公开概述做不区分大小写匹配
type IdeaFilter struct {
	Skills  []string
	Stage   Stage
	Search  string
	OwnerID int64
}

// Matches 判断创意是否满足过滤条件（内存实现使用，与 SQL 条件保持一致）
func (f IdeaFilter) Matches(i *Idea) bool {
	if i.DeletedAt != nil {
		return false
	}
	if f.OwnerID != 0 && i.OwnerID != f.OwnerID {
		return false
	}
	if f.Stage != "" && i.Stage != f.Stage {
		return false
	}
	for _, want := range f.Skills {
		if !slices.Contains(i.Skills, want) {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		inTitle := strings.Contains(strings.ToLower(i.Title), q)
		inOverview := i.Visibility == VisibilityPublic && strings.Contains(strings.ToLower(i.Overview), q)
		if !inTitle && !inOverview {
			return false
		}
	}
	return true
}

// IdeaCursor 列表的 keyset 游标，排序为 created_at DESC, id ASC
type IdeaCursor struct {
	CreatedAt time.Time `json:"t"`
	ID        int64     `json:"i"`
}

// CursorAfter 返回指向该创意之后的游标
func CursorAfter(i *Idea) *IdeaCursor {
	return &IdeaCursor{CreatedAt: i.CreatedAt, ID: i.ID}
}

// Admits 判断创意在排序上是否位于游标之后（即应出现在下一页）
func (c *IdeaCursor) Admits(i *Idea) bool {
	if c == nil {
		return true
	}
	if i.CreatedAt.Before(c.CreatedAt) {
		return true
	}
	return i.CreatedAt.Equal(c.CreatedAt) && i.ID > c.ID
}

// IdeaLess 列表排序
func IdeaLess(a, b *Idea) int {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// Encode 编码为不透明字符串
func (c *IdeaCursor) Encode() string {
	if c == nil {
		return ""
	}
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeIdeaCursor 解析 Encode 的结果，空串返回 nil
func DecodeIdeaCursor(s string) (*IdeaCursor, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, apperr.Validation("invalid cursor")
	}
	var c IdeaCursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, apperr.Validation("invalid cursor")
	}
	if c.ID <= 0 {
		return nil, apperr.Validation("invalid cursor")
	}
	return &c, nil
}

func compactStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// String 用于日志
func (c *IdeaCursor) String() string {
	if c == nil {
		return "<start>"
	}
	return fmt.Sprintf("%s/%d", c.CreatedAt.Format(time.RFC3339Nano), c.ID)
}

// FullyVisibleTo 所有者、admin、公开创意，或已签 NDA 的开发者可以看到完整内容
func (i *Idea) FullyVisibleTo(a Actor, ndaAccepted bool) bool {
	if a.Is(i.OwnerID) || a.IsAdmin() {
		return true
	}
	switch i.Visibility {
	case VisibilityPublic:
		return true
	case VisibilityNDARequired:
		return ndaAccepted && a.Role == RoleDeveloper
	}
	return false
}

// Clone 深拷贝
func (i *Idea) Clone() *Idea {
	cp := *i
	cp.Skills = slices.Clone(i.Skills)
	cp.Attachments = slices.Clone(i.Attachments)
	cp.DeletedAt = cloneTime(i.DeletedAt)
	return &cp
}
