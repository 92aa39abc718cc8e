package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"foundermatch/internal/model"
)

type RegisterInput struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Name     string     `json:"name"`
	Role     model.Role `json:"role"`
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	if err := c.mutate(ctx, "POST", "/register", in, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Login 成功后保存 token，后续请求自动携带
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	var out struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	in := map[string]string{"email": email, "password": password}
	if err := c.mutate(ctx, "POST", "/login", in, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out.User, nil
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	if err := c.get(ctx, "/me", &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// IdeaPage 一页创意；NextCursor 为空表示没有更多
type IdeaPage struct {
	Ideas      []model.IdeaSummary `json:"ideas"`
	NextCursor string              `json:"next_cursor"`
}

type IdeaQuery struct {
	Skills []string
	Stage  model.Stage
	Query  string
	Cursor string
	Limit  int
}

func (q IdeaQuery) encode() string {
	v := url.Values{}
	if len(q.Skills) > 0 {
		v.Set("skills", strings.Join(q.Skills, ","))
	}
	if q.Stage != "" {
		v.Set("stage", string(q.Stage))
	}
	if q.Query != "" {
		v.Set("q", q.Query)
	}
	if q.Cursor != "" {
		v.Set("cursor", q.Cursor)
	}
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprint(q.Limit))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) ListIdeas(ctx context.Context, q IdeaQuery) (*IdeaPage, error) {
	var out IdeaPage
	if err := c.get(ctx, "/ideas"+q.encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetIdea(ctx context.Context, id int64) (*model.Idea, error) {
	var out struct {
		Idea model.Idea `json:"idea"`
	}
	if err := c.get(ctx, fmt.Sprintf("/ideas/%d", id), &out); err != nil {
		return nil, err
	}
	return &out.Idea, nil
}

func (c *Client) CreateIdea(ctx context.Context, in model.IdeaFields) (*model.Idea, error) {
	var out struct {
		Idea model.Idea `json:"idea"`
	}
	if err := c.mutate(ctx, "POST", "/post-idea", in, &out); err != nil {
		return nil, err
	}
	return &out.Idea, nil
}

func (c *Client) SignNDA(ctx context.Context, ideaID int64) error {
	return c.mutate(ctx, "PUT", fmt.Sprintf("/ideas/%d/sign-nda", ideaID), nil, nil)
}

type ProposalInput struct {
	IdeaID int64 `json:"idea_id"`
	model.ProposalFields
}

func (c *Client) SubmitProposal(ctx context.Context, in ProposalInput) (*model.Proposal, error) {
	var out struct {
		Proposal model.Proposal `json:"proposal"`
	}
	if err := c.mutate(ctx, "POST", "/submit-proposal", in, &out); err != nil {
		return nil, err
	}
	return &out.Proposal, nil
}

func (c *Client) TransitionProposal(ctx context.Context, id int64, action model.ProposalAction) (*model.Proposal, error) {
	var out struct {
		Proposal model.Proposal `json:"proposal"`
	}
	in := map[string]model.ProposalAction{"action": action}
	if err := c.mutate(ctx, "POST", fmt.Sprintf("/proposal/%d/status", id), in, &out); err != nil {
		return nil, err
	}
	return &out.Proposal, nil
}

type contractEnvelope struct {
	Contract model.Contract `json:"contract"`
}

func (c *Client) GetContract(ctx context.Context, id int64) (*model.Contract, error) {
	var out contractEnvelope
	if err := c.get(ctx, fmt.Sprintf("/contracts/%d", id), &out); err != nil {
		return nil, err
	}
	return &out.Contract, nil
}

func (c *Client) contractAction(ctx context.Context, id int64, suffix string, in any) (*model.Contract, error) {
	var out contractEnvelope
	if err := c.mutate(ctx, "POST", fmt.Sprintf("/contracts/%d%s", id, suffix), in, &out); err != nil {
		return nil, err
	}
	return &out.Contract, nil
}

func (c *Client) AgreeToSection(ctx context.Context, id int64, section model.SectionID) (*model.Contract, error) {
	return c.contractAction(ctx, id, "/sections/"+string(section)+"/agree", nil)
}

func (c *Client) FinalAgreement(ctx context.Context, id int64) (*model.Contract, error) {
	return c.contractAction(ctx, id, "/final-agreement", nil)
}

func (c *Client) SignContract(ctx context.Context, id int64) (*model.Contract, error) {
	return c.contractAction(ctx, id, "/sign", nil)
}

func (c *Client) LogTask(ctx context.Context, contractID int64, in model.TaskFields) (*model.Task, error) {
	var out struct {
		Task model.Task `json:"task"`
	}
	if err := c.mutate(ctx, "POST", fmt.Sprintf("/contracts/%d/tasks", contractID), in, &out); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

func (c *Client) Progress(ctx context.Context, contractID int64) (*model.ContractProgress, error) {
	var out struct {
		Progress model.ContractProgress `json:"progress"`
	}
	if err := c.get(ctx, fmt.Sprintf("/contracts/%d/progress", contractID), &out); err != nil {
		return nil, err
	}
	return &out.Progress, nil
}

func (c *Client) Feed(ctx context.Context, developerID int64) ([]model.FeedItem, error) {
	var out struct {
		Ideas []model.FeedItem `json:"ideas"`
	}
	if err := c.get(ctx, fmt.Sprintf("/developer-dashboard/%d", developerID), &out); err != nil {
		return nil, err
	}
	return out.Ideas, nil
}

type BookmarkInput struct {
	DeveloperID int64 `json:"developer_id"`
	IdeaID      int64 `json:"idea_id"`
	Toggle      bool  `json:"toggle"`
}

func (c *Client) ToggleBookmark(ctx context.Context, in BookmarkInput) (model.BookmarkState, error) {
	var out struct {
		Bookmark model.BookmarkState `json:"bookmark"`
	}
	if err := c.mutate(ctx, "POST", "/api/developer-dashboard/bookmarks/toggle", in, &out); err != nil {
		return model.BookmarkState{}, err
	}
	return out.Bookmark, nil
}

type NotificationList struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
}

func (c *Client) Notifications(ctx context.Context) (*NotificationList, error) {
	var out NotificationList
	if err := c.get(ctx, "/notifications", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
