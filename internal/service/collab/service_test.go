package collab

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontract "foundermatch/contracts/mq"
	"foundermatch/internal/model"
	"foundermatch/internal/repository/memory"
	"foundermatch/internal/service/servicetest"
	"foundermatch/pkg/apperr"
)

type fixture struct {
	store    *memory.Store
	svc      *Service
	owner    model.Actor
	dev      model.Actor
	contract *model.Contract
}

// setup 直接写入一份已生效的合同
func setup(t *testing.T, status model.ContractStatus) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		store: store,
		svc:   NewService(store.Tasks(), store.Contracts(), zap.NewNop()),
		owner: servicetest.User(t, store, model.RoleEntrepreneur, "erin"),
		dev:   servicetest.User(t, store, model.RoleDeveloper, "dan"),
	}
	now := time.Now()
	c := &model.Contract{
		ProposalID:   1,
		IdeaID:       1,
		IdeaTitle:    "solar",
		Entrepreneur: model.PartySnapshot{UserID: f.owner.UserID, Name: "erin"},
		Developer:    model.PartySnapshot{UserID: f.dev.UserID, Name: "dan"},
		Equity:       model.EquityTerms{Percent: 12, VestingMonths: 48, CliffMonths: 12},
		Milestones: []model.ContractMilestone{
			{Position: 1, Title: "API", EstimatedHours: 20},
			{Position: 2, Title: "Launch", EstimatedHours: 0},
		},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := store.Contracts().Create(context.Background(), c)
	require.NoError(t, err)
	c.ID = id
	f.contract = c
	return f
}

func (f *fixture) fields(hours float64) model.TaskFields {
	return model.TaskFields{MilestoneID: f.contract.Milestones[0].ID, Title: "endpoint", Hours: hours}
}

func (f *fixture) completed(t *testing.T) float64 {
	t.Helper()
	p, err := f.svc.Progress(context.Background(), f.owner, f.contract.ID)
	require.NoError(t, err)
	return p.Milestones[0].CompletedHours
}

func TestLogTaskRequiresExecutedContract(t *testing.T) {
	f := setup(t, model.ContractSigned)
	_, err := f.svc.Log(context.Background(), f.dev, f.contract.ID, f.fields(5))
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestLogTaskValidation(t *testing.T) {
	f := setup(t, model.ContractExecuted)
	ctx := context.Background()

	_, err := f.svc.Log(ctx, f.owner, f.contract.ID, f.fields(5))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Log(ctx, f.dev, f.contract.ID, f.fields(-1))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	foreign := f.fields(5)
	foreign.MilestoneID = 9999
	_, err = f.svc.Log(ctx, f.dev, f.contract.ID, foreign)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// 记录 5 小时的任务，提交，被拒绝，完成工时不变
func TestRejectedTaskNeverCounts(t *testing.T) {
	f := setup(t, model.ContractExecuted)
	ctx := context.Background()

	task, err := f.svc.Log(ctx, f.dev, f.contract.ID, f.fields(5))
	require.NoError(t, err)
	assert.Equal(t, model.TaskDraft, task.Status)
	assert.Zero(t, f.completed(t))

	_, err = f.svc.Submit(ctx, f.dev, task.ID)
	require.NoError(t, err)
	assert.Zero(t, f.completed(t))

	_, err = f.svc.Review(ctx, f.dev, task.ID, model.DecisionApproved, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	reviewed, err := f.svc.Review(ctx, f.owner, task.ID, model.DecisionRejected, "not enough")
	require.NoError(t, err)
	assert.Equal(t, model.TaskRejected, reviewed.Status)
	assert.Zero(t, f.completed(t))

	assert.Equal(t,
		[]string{mqcontract.RoutingTaskSubmitted, mqcontract.RoutingTaskReviewed},
		f.store.Outbox().RoutingKeys())
}

func TestApprovedTasksCount(t *testing.T) {
	f := setup(t, model.ContractExecuted)
	ctx := context.Background()

	for _, h := range []float64{5, 30} {
		task, err := f.svc.Log(ctx, f.dev, f.contract.ID, f.fields(h))
		require.NoError(t, err)
		_, err = f.svc.Submit(ctx, f.dev, task.ID)
		require.NoError(t, err)
		_, err = f.svc.Review(ctx, f.owner, task.ID, model.DecisionApproved, "ok")
		require.NoError(t, err)
	}
	_, err := f.svc.Log(ctx, f.dev, f.contract.ID, f.fields(100))
	require.NoError(t, err)

	p, err := f.svc.Progress(ctx, f.dev, f.contract.ID)
	require.NoError(t, err)
	assert.Equal(t, 35.0, p.Milestones[0].CompletedHours)
	assert.Equal(t, 100.0, p.Milestones[0].Percent, "clamped")
	assert.Equal(t, 0.0, p.Milestones[1].Percent)
	assert.Equal(t, 20.0, p.TotalHours)
}

func TestDraftOnlyEditAndDelete(t *testing.T) {
	f := setup(t, model.ContractExecuted)
	ctx := context.Background()

	task, err := f.svc.Log(ctx, f.dev, f.contract.ID, f.fields(5))
	require.NoError(t, err)

	edited, err := f.svc.Edit(ctx, f.dev, task.ID, f.fields(7))
	require.NoError(t, err)
	assert.Equal(t, 7.0, edited.Hours)

	_, err = f.svc.Edit(ctx, f.owner, task.ID, f.fields(8))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Submit(ctx, f.dev, task.ID)
	require.NoError(t, err)
	_, err = f.svc.Edit(ctx, f.dev, task.ID, f.fields(9))
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.dev, task.ID), apperr.ErrInvalidTransition)
	_, err = f.svc.Submit(ctx, f.dev, task.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	other, err := f.svc.Log(ctx, f.dev, f.contract.ID, f.fields(1))
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, f.dev, other.ID))
	tasks, err := f.svc.List(ctx, f.owner, f.contract.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestReviseCreatesLinkedDraft(t *testing.T) {
	f := setup(t, model.ContractExecuted)
	ctx := context.Background()

	task, err := f.svc.Log(ctx, f.dev, f.contract.ID, f.fields(5))
	require.NoError(t, err)
	_, err = f.svc.Revise(ctx, f.dev, task.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.svc.Submit(ctx, f.dev, task.ID)
	require.NoError(t, err)
	_, err = f.svc.Review(ctx, f.owner, task.ID, model.DecisionRevisionRequested, "add tests")
	require.NoError(t, err)

	rev, err := f.svc.Revise(ctx, f.dev, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskDraft, rev.Status)
	require.NotNil(t, rev.RevisionOf)
	assert.Equal(t, task.ID, *rev.RevisionOf)

	_, err = f.svc.Revise(ctx, f.dev, task.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	orig, err := f.store.Tasks().Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskRevisionRequested, orig.Status)
	assert.Equal(t, "add tests", orig.ReviewComment)
}

func TestOutsiderCannotReadProgress(t *testing.T) {
	f := setup(t, model.ContractExecuted)
	outsider := servicetest.User(t, f.store, model.RoleDeveloper, "sam")
	_, err := f.svc.Progress(context.Background(), outsider, f.contract.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
