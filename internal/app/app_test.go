package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"foundermatch/internal/config"
	"foundermatch/internal/handler"
	"foundermatch/internal/httpserver"
	"foundermatch/internal/model"
	"foundermatch/internal/repository/memory"
	"foundermatch/pkg/apperr"
	pkgconfig "foundermatch/pkg/config"
)

type client struct {
	t     *testing.T
	local *Local
}

func newClient(t *testing.T) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: pkgconfig.JWTConfig{Secret: "test-secret", TTL: time.Hour}}
	local := NewLocal(MemoryStores(memory.New()), cfg, nil, nil, zap.NewNop())
	return &client{t: t, local: local}
}

// do 发送请求并把响应解到 out；返回状态码
func (c *client) do(method, path, token string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.local.Router.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

// expectError 断言错误响应的状态码与错误码
func (c *client) expectError(method, path, token string, body any, status int, code apperr.Code) {
	c.t.Helper()
	var resp handler.ErrorBody
	require.Equal(c.t, status, c.do(method, path, token, body, &resp), "%s %s", method, path)
	assert.Equal(c.t, code, resp.Error.Code, "%s %s", method, path)
	assert.NotEmpty(c.t, resp.Error.Message)
}

func (c *client) dispatch() int {
	c.t.Helper()
	n, err := c.local.Dispatcher.DispatchOnce(context.Background())
	require.NoError(c.t, err)
	return n
}

type session struct {
	token string
	user  model.User
}

func (c *client) signup(name string, role model.Role) session {
	c.t.Helper()
	email := name + "@example.com"
	require.Equal(c.t, http.StatusCreated, c.do(http.MethodPost, "/register", "", gin.H{
		"email": email, "password": "correct-horse", "name": name, "role": role,
	}, nil))

	var resp struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.Equal(c.t, http.StatusOK, c.do(http.MethodPost, "/login", "", gin.H{
		"email": email, "password": "correct-horse",
	}, &resp))
	require.NotEmpty(c.t, resp.Token)
	return session{token: resp.Token, user: resp.User}
}

type ideaResp struct {
	Idea model.Idea `json:"idea"`
}

type proposalResp struct {
	Proposal model.Proposal `json:"proposal"`
}

type contractResp struct {
	Contract model.Contract `json:"contract"`
}

type taskResp struct {
	Task model.Task `json:"task"`
}

type notificationsResp struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
}

func kinds(ns []model.Notification) []model.NotificationKind {
	out := make([]model.NotificationKind, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Kind)
	}
	return out
}

func TestIdeaToExecutedContractFlow(t *testing.T) {
	c := newClient(t)
	alice := c.signup("alice", model.RoleEntrepreneur)
	bob := c.signup("bob", model.RoleDeveloper)

	c.expectError(http.MethodGet, "/me", "", nil, http.StatusUnauthorized, apperr.CodeUnauthorized)
	c.expectError(http.MethodPost, "/register", "", gin.H{
		"email": "alice@example.com", "password": "correct-horse", "name": "again", "role": model.RoleDeveloper,
	}, http.StatusConflict, apperr.CodeConflict)

	// 发布需要 NDA 的创意
	var created ideaResp
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/post-idea", alice.token, gin.H{
		"title":       "Solar marketplace",
		"overview":    "Peer to peer solar trading",
		"description": "Confidential go-to-market plan",
		"stage":       model.StageMVP,
		"skills":      []string{"go", "postgres"},
		"equity":      gin.H{"min": 5, "max": 20},
		"visibility":  model.VisibilityNDARequired,
	}, &created))
	ideaID := created.Idea.ID
	require.Positive(t, ideaID)
	c.expectError(http.MethodPost, "/post-idea", bob.token, gin.H{"title": "x"}, http.StatusForbidden, apperr.CodeForbidden)

	var view ideaResp
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, fmt.Sprintf("/ideas/%d", ideaID), bob.token, nil, &view))
	assert.True(t, view.Idea.Redacted)
	assert.Empty(t, view.Idea.Description)

	proposalBody := gin.H{
		"idea_id": ideaID,
		"scope":   "Build the trading backend",
		"milestones": []gin.H{
			{"title": "API", "description": "REST endpoints", "duration": "4 weeks", "estimated_hours": 40},
			{"title": "Launch", "description": "Deploy", "duration": "2 weeks", "estimated_hours": 10},
		},
		"equity_percent": 10,
		"timeline":       "6 weeks",
	}
	c.expectError(http.MethodPost, "/submit-proposal", bob.token, proposalBody, http.StatusForbidden, apperr.CodeIdeaNotVisible)

	// 签署 NDA 后可见完整内容
	require.Equal(t, http.StatusOK, c.do(http.MethodPut, fmt.Sprintf("/ideas/%d/sign-nda", ideaID), bob.token, nil, nil))
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, fmt.Sprintf("/ideas/%d", ideaID), bob.token, nil, &view))
	assert.False(t, view.Idea.Redacted)
	assert.Equal(t, "Confidential go-to-market plan", view.Idea.Description)

	var submitted proposalResp
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/submit-proposal", bob.token, proposalBody, &submitted))
	proposalID := submitted.Proposal.ID
	assert.Equal(t, model.ProposalPending, submitted.Proposal.Status)
	assert.Equal(t, alice.user.ID, submitted.Proposal.EntrepreneurID)
	c.expectError(http.MethodPost, "/submit-proposal", bob.token, proposalBody, http.StatusConflict, apperr.CodeDuplicateActiveProposal)

	statusPath := fmt.Sprintf("/proposal/%d/status", proposalID)
	c.expectError(http.MethodPost, statusPath, bob.token, gin.H{"action": model.ActionAccept}, http.StatusForbidden, apperr.CodeForbidden)
	c.expectError(http.MethodPost, fmt.Sprintf("/proposal/%d/contract", proposalID), alice.token, nil, http.StatusConflict, apperr.CodeProposalNotAccepted)

	var decided proposalResp
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, statusPath, alice.token, gin.H{"action": model.ActionAccept}, &decided))
	assert.Equal(t, model.ProposalAccepted, decided.Proposal.Status)
	c.expectError(http.MethodPost, statusPath, alice.token, gin.H{"action": model.ActionReject}, http.StatusConflict, apperr.CodeInvalidTransition)

	// proposal.submitted 与 proposal.accepted；后者触发合同生成
	assert.Equal(t, 2, c.dispatch())
	c.expectError(http.MethodPost, fmt.Sprintf("/proposal/%d/contract", proposalID), alice.token, nil, http.StatusConflict, apperr.CodeContractAlreadyExists)

	var collabs struct {
		Collaborations []model.Collaboration `json:"collaborations"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, fmt.Sprintf("/developer-collaboration/%d", bob.user.ID), bob.token, nil, &collabs))
	require.Len(t, collabs.Collaborations, 1)
	assert.Equal(t, model.ContractDraft, collabs.Collaborations[0].Status)
	c.expectError(http.MethodGet, fmt.Sprintf("/developer-collaboration/%d", bob.user.ID), alice.token, nil, http.StatusForbidden, apperr.CodeForbidden)

	contractPath := fmt.Sprintf("/contracts/%d", collabs.Collaborations[0].ContractID)
	var ct contractResp
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, contractPath, alice.token, nil, &ct))
	assert.Equal(t, 10.0, ct.Contract.Equity.Percent)
	require.Len(t, ct.Contract.Milestones, 2)
	require.Len(t, ct.Contract.Sections, len(model.SectionOrder))

	c.expectError(http.MethodPost, contractPath+"/sign", bob.token, nil, http.StatusConflict, apperr.CodeNotReadyToSign)

	for _, s := range model.SectionOrder {
		require.Equal(t, http.StatusOK, c.do(http.MethodPost, fmt.Sprintf("%s/sections/%s/agree", contractPath, s), bob.token, nil, nil))
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, contractPath+"/final-agreement", bob.token, nil, &ct))
	assert.Equal(t, model.ContractReadyToSign, ct.Contract.Status)

	c.expectError(http.MethodPost, contractPath+"/sign", alice.token, nil, http.StatusConflict, apperr.CodeNotReadyToSign)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, contractPath+"/sign", bob.token, nil, &ct))
	assert.Equal(t, model.ContractSigned, ct.Contract.Status)
	c.expectError(http.MethodPost, contractPath+"/sign", bob.token, nil, http.StatusConflict, apperr.CodeAlreadySigned)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, contractPath+"/sign", alice.token, nil, &ct))
	assert.Equal(t, model.ContractExecuted, ct.Contract.Status)
	assert.NotNil(t, ct.Contract.ExecutedAt)

	// contract.executed
	assert.Equal(t, 1, c.dispatch())

	var task taskResp
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, contractPath+"/tasks", bob.token, gin.H{
		"milestone_id": ct.Contract.Milestones[0].ID,
		"title":        "Order book endpoints",
		"hours":        8,
	}, &task))
	assert.Equal(t, model.TaskDraft, task.Task.Status)
	taskPath := fmt.Sprintf("/tasks/%d", task.Task.ID)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, taskPath+"/submit", bob.token, nil, &task))
	assert.Equal(t, model.TaskSubmitted, task.Task.Status)
	c.expectError(http.MethodPost, taskPath+"/review", bob.token, gin.H{"decision": model.DecisionApproved}, http.StatusForbidden, apperr.CodeForbidden)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, taskPath+"/review", alice.token, gin.H{"decision": model.DecisionApproved, "comment": "ship it"}, &task))
	assert.Equal(t, model.TaskApproved, task.Task.Status)

	var progress struct {
		Progress model.ContractProgress `json:"progress"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, contractPath+"/progress", alice.token, nil, &progress))
	assert.Equal(t, 50.0, progress.Progress.TotalHours)
	assert.Equal(t, 8.0, progress.Progress.CompletedHours)
	assert.InDelta(t, 16.0, progress.Progress.Percent, 0.001)

	// task.submitted 与 task.reviewed
	assert.Equal(t, 2, c.dispatch())
	assert.Equal(t, 0, c.dispatch())

	var notes notificationsResp
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/notifications", bob.token, nil, &notes))
	assert.ElementsMatch(t, []model.NotificationKind{
		model.NotifyProposalAccepted, model.NotifyContractExecuted, model.NotifyTaskReviewed,
	}, kinds(notes.Notifications))
	assert.Equal(t, 3, notes.Unread)

	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/notifications", alice.token, nil, &notes))
	assert.ElementsMatch(t, []model.NotificationKind{
		model.NotifyProposalSubmitted, model.NotifyContractExecuted, model.NotifyTaskSubmitted,
	}, kinds(notes.Notifications))

	require.Equal(t, http.StatusNoContent, c.do(http.MethodPost, fmt.Sprintf("/notifications/%d/read", notes.Notifications[0].ID), alice.token, nil, nil))
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/notifications", alice.token, nil, &notes))
	assert.Equal(t, 2, notes.Unread)
}

func TestBookmarkToggleAndFeed(t *testing.T) {
	c := newClient(t)
	alice := c.signup("alice", model.RoleEntrepreneur)
	bob := c.signup("bob", model.RoleDeveloper)

	var created ideaResp
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/post-idea", alice.token, gin.H{
		"title": "Tutor match", "overview": "Match tutors", "stage": model.StageIdea,
		"skills": []string{"go"}, "equity": gin.H{"min": 1, "max": 5},
	}, &created))

	toggle := func(on bool) model.BookmarkState {
		var resp struct {
			Bookmark model.BookmarkState `json:"bookmark"`
		}
		require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/developer-dashboard/bookmarks/toggle", bob.token, gin.H{
			"developer_id": bob.user.ID, "idea_id": created.Idea.ID, "toggle": on,
		}, &resp))
		return resp.Bookmark
	}
	assert.True(t, toggle(true).Bookmarked)
	assert.True(t, toggle(true).Bookmarked, "setting the same state twice is idempotent")

	var feed struct {
		Ideas []model.FeedItem `json:"ideas"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, fmt.Sprintf("/developer-dashboard/%d", bob.user.ID), bob.token, nil, &feed))
	require.Len(t, feed.Ideas, 1)
	assert.True(t, feed.Ideas[0].Bookmarked)
	assert.Equal(t, 1, feed.Ideas[0].BookmarkCount)

	assert.False(t, toggle(false).Bookmarked)

	c.expectError(http.MethodPost, "/api/developer-dashboard/bookmarks/toggle", bob.token, gin.H{
		"developer_id": alice.user.ID, "idea_id": created.Idea.ID, "toggle": true,
	}, http.StatusForbidden, apperr.CodeForbidden)
}

func TestHealthAndReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: pkgconfig.JWTConfig{Secret: "test-secret", TTL: time.Hour}}
	local := NewLocal(MemoryStores(memory.New()), cfg, nil, map[string]httpserver.ReadinessCheck{
		"db": func(context.Context) error { return fmt.Errorf("connection refused") },
	}, zap.NewNop())

	rec := httptest.NewRecorder()
	local.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	local.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db_not_ready")
}
