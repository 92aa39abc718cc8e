package contract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontract "foundermatch/contracts/mq"
	"foundermatch/internal/model"
	"foundermatch/internal/repository/memory"
	"foundermatch/internal/service/proposal"
	"foundermatch/internal/service/servicetest"
	"foundermatch/pkg/apperr"
)

type fixture struct {
	store     *memory.Store
	proposals *proposal.Service
	svc       *Service
	owner     model.Actor
	dev       model.Actor
	idea      *model.Idea
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		store:     store,
		proposals: proposal.NewService(store.Proposals(), store.Ideas(), store.NDAs(), zap.NewNop()),
		svc:       NewService(store.Contracts(), store.Proposals(), store.Ideas(), store.Users(), zap.NewNop()),
		owner:     servicetest.User(t, store, model.RoleEntrepreneur, "erin"),
		dev:       servicetest.User(t, store, model.RoleDeveloper, "dan"),
	}
	f.idea = servicetest.Idea(t, store, f.owner, "solar", model.VisibilityPublic)
	return f
}

// acceptedProposal 提交并接受一个提案
func (f *fixture) acceptedProposal(t *testing.T) *model.Proposal {
	t.Helper()
	ctx := context.Background()
	p, err := f.proposals.Submit(ctx, f.dev, f.idea.ID, servicetest.ProposalFields(12, "3 months"))
	require.NoError(t, err)
	p, err = f.proposals.Transition(ctx, f.owner, p.ID, model.ActionAccept)
	require.NoError(t, err)
	return p
}

func (f *fixture) agreeAll(t *testing.T, actor model.Actor, id int64) *model.Contract {
	t.Helper()
	var c *model.Contract
	var err error
	for _, s := range model.SectionOrder {
		c, err = f.svc.AgreeToSection(context.Background(), actor, id, s)
		require.NoError(t, err)
	}
	return c
}

func TestGenerateSnapshotsProposal(t *testing.T) {
	f := setup(t)
	p := f.acceptedProposal(t)

	c, err := f.svc.Generate(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractDraft, c.Status)
	assert.Equal(t, 12.0, c.Equity.Percent)
	assert.Equal(t, DefaultVestingMonths, c.Equity.VestingMonths)
	assert.Equal(t, "3 months", c.Timeline)
	assert.Equal(t, "erin", c.Entrepreneur.Name)
	assert.Equal(t, "dan@example.com", c.Developer.Email)
	require.Len(t, c.Milestones, 2)
	assert.NotZero(t, c.Milestones[0].ID)
	assert.Equal(t, "API", c.Milestones[0].Title)
	assert.Equal(t, 40.0, c.Milestones[0].EstimatedHours)

	require.Len(t, c.Sections, len(model.SectionOrder))
	for i, s := range c.Sections {
		assert.Equal(t, model.SectionOrder[i], s.ID)
		assert.Equal(t, 1, s.Revision)
		assert.NotEmpty(t, s.Body)
	}
	equity, _ := c.Section(model.SectionEquity)
	assert.Contains(t, equity.Body, "12.00%")
	assert.Contains(t, equity.Body, `"solar"`)
	milestones, _ := c.Section(model.SectionMilestones)
	assert.Contains(t, milestones.Body, "1. API (4 weeks)")
	assert.Contains(t, milestones.Body, "2. Launch")
}

func TestGenerateRequiresAcceptedAndUnique(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	pending, err := f.proposals.Submit(ctx, f.dev, f.idea.ID, servicetest.ProposalFields(12, "3 months"))
	require.NoError(t, err)
	_, err = f.svc.Generate(ctx, pending.ID)
	assert.ErrorIs(t, err, apperr.ErrProposalNotAccepted)

	_, err = f.proposals.Transition(ctx, f.owner, pending.ID, model.ActionAccept)
	require.NoError(t, err)
	c, err := f.svc.Generate(ctx, pending.ID)
	require.NoError(t, err)

	_, err = f.svc.Generate(ctx, pending.ID)
	assert.ErrorIs(t, err, apperr.ErrContractAlreadyExists)

	_, err = f.svc.GenerateFor(ctx, f.dev, pending.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Terminate(ctx, f.dev, c.ID)
	require.NoError(t, err)
	again, err := f.svc.GenerateFor(ctx, f.owner, pending.ID)
	require.NoError(t, err, "a terminated contract frees the proposal")
	assert.NotEqual(t, c.ID, again.ID)
}

// 提交 12% 的提案，接受，生成合同，开发者签署，创业者签署，合同生效
func TestAcceptToExecutedScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.acceptedProposal(t)

	c, err := f.svc.Generate(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.EquityPercent, c.Equity.Percent)
	assert.Equal(t, p.Timeline, c.Timeline)

	_, err = f.svc.Sign(ctx, f.dev, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotReadyToSign)

	_, err = f.svc.FinalAgreement(ctx, f.dev, c.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "developer has not agreed yet")

	f.agreeAll(t, f.dev, c.ID)
	_, err = f.svc.FinalAgreement(ctx, f.owner, c.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	c, err = f.svc.FinalAgreement(ctx, f.dev, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractReadyToSign, c.Status)

	_, err = f.svc.EditSection(ctx, f.owner, c.ID, model.SectionIP, "changed")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = f.svc.EditEquityTerms(ctx, f.owner, c.ID, model.EquityTerms{Percent: 50})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.svc.Sign(ctx, f.owner, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotReadyToSign, "developer signs first")

	c, err = f.svc.Sign(ctx, f.dev, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractSigned, c.Status)
	assert.Nil(t, c.ExecutedAt)

	_, err = f.svc.Sign(ctx, f.dev, c.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadySigned)

	c, err = f.svc.Sign(ctx, f.owner, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractExecuted, c.Status)
	assert.NotNil(t, c.EntrepreneurSignedAt)
	assert.NotNil(t, c.DeveloperSignedAt)
	assert.NotNil(t, c.ExecutedAt)

	stored, err := f.svc.Get(ctx, f.owner, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractExecuted, stored.Status)
	assert.Equal(t, c.Version, stored.Version)

	_, err = f.svc.Terminate(ctx, f.owner, c.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	keys := f.store.Outbox().RoutingKeys()
	assert.Equal(t, mqcontract.RoutingContractExecuted, keys[len(keys)-1])
}

func TestEditSectionInvalidatesAgreement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c, err := f.svc.Generate(ctx, f.acceptedProposal(t).ID)
	require.NoError(t, err)

	c = f.agreeAll(t, f.dev, c.ID)
	assert.True(t, c.AllAgreedBy(model.PartyDeveloper))

	c, err = f.svc.EditSection(ctx, f.owner, c.ID, model.SectionIP, "All IP stays with the founder.")
	require.NoError(t, err)
	ip, _ := c.Section(model.SectionIP)
	assert.Equal(t, 2, ip.Revision)
	assert.False(t, c.HasAgreed(model.PartyDeveloper, model.SectionIP))
	assert.Len(t, c.Agreements, len(model.SectionOrder), "earlier agreements are kept for audit")

	_, err = f.svc.FinalAgreement(ctx, f.dev, c.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.svc.EditSection(ctx, f.owner, c.ID, model.SectionEquity, "free text")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	c, err = f.svc.EditEquityTerms(ctx, f.owner, c.ID, model.EquityTerms{Percent: 15, VestingMonths: 36, CliffMonths: 6})
	require.NoError(t, err)
	equity, _ := c.Section(model.SectionEquity)
	assert.Equal(t, 2, equity.Revision)
	assert.True(t, strings.Contains(equity.Body, "15.00%"))
	assert.Contains(t, equity.Body, "36 months")

	_, err = f.svc.EditEquityTerms(ctx, f.owner, c.ID, model.EquityTerms{Percent: 15, VestingMonths: 6, CliffMonths: 12})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAgreeTwiceIsNoop(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c, err := f.svc.Generate(ctx, f.acceptedProposal(t).ID)
	require.NoError(t, err)

	first, err := f.svc.AgreeToSection(ctx, f.owner, c.ID, model.SectionDispute)
	require.NoError(t, err)
	second, err := f.svc.AgreeToSection(ctx, f.owner, c.ID, model.SectionDispute)
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)
	assert.Len(t, second.Agreements, 1)
}

func TestStaleVersionIsRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c, err := f.svc.Generate(ctx, f.acceptedProposal(t).ID)
	require.NoError(t, err)

	stale, err := f.store.Contracts().Get(ctx, c.ID)
	require.NoError(t, err)

	_, err = f.svc.EditSection(ctx, f.owner, c.ID, model.SectionDispute, "arbitration")
	require.NoError(t, err)

	require.NoError(t, stale.ReviseSection(model.SectionDispute, "courts", stale.UpdatedAt))
	ok, err := f.store.Contracts().Update(ctx, stale, stale.Version)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := f.svc.Get(ctx, f.dev, c.ID)
	require.NoError(t, err)
	dispute, _ := got.Section(model.SectionDispute)
	assert.Equal(t, "arbitration", dispute.Body)
}

func TestOutsiderCannotTouchContract(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	outsider := servicetest.User(t, f.store, model.RoleDeveloper, "sam")
	c, err := f.svc.Generate(ctx, f.acceptedProposal(t).ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, outsider, c.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.AgreeToSection(ctx, outsider, c.ID, model.SectionIP)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.ListForUser(ctx, outsider, f.dev.UserID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	mine, err := f.svc.ListForUser(ctx, f.dev, f.dev.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
