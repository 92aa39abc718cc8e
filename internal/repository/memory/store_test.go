package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foundermatch/internal/model"
	"foundermatch/internal/repository/memory"
	"foundermatch/internal/repository/postgres"
	"foundermatch/internal/service/auth"
	"foundermatch/internal/service/bookmark"
	"foundermatch/internal/service/collab"
	"foundermatch/internal/service/contract"
	"foundermatch/internal/service/dashboard"
	"foundermatch/internal/service/idea"
	"foundermatch/internal/service/nda"
	"foundermatch/internal/service/notification"
	"foundermatch/internal/service/proposal"
	"foundermatch/pkg/apperr"
	"foundermatch/pkg/outbox"
)

// 两套存储实现必须满足同样的服务接口
var (
	_ auth.UserStore           = (*memory.Users)(nil)
	_ idea.Store               = (*memory.Ideas)(nil)
	_ nda.Store                = (*memory.NDAs)(nil)
	_ proposal.Store           = (*memory.Proposals)(nil)
	_ contract.Store           = (*memory.Contracts)(nil)
	_ collab.Store             = (*memory.Tasks)(nil)
	_ bookmark.Store           = (*memory.Bookmarks)(nil)
	_ notification.Store       = (*memory.Notifications)(nil)
	_ dashboard.FeedStore      = (*memory.Dashboard)(nil)
	_ outbox.Store             = (*memory.Outbox)(nil)
	_ auth.UserStore           = (*postgres.UserRepository)(nil)
	_ idea.Store               = (*postgres.IdeaRepository)(nil)
	_ nda.Store                = (*postgres.NDARepository)(nil)
	_ proposal.Store           = (*postgres.ProposalRepository)(nil)
	_ contract.Store           = (*postgres.ContractRepository)(nil)
	_ collab.Store             = (*postgres.TaskRepository)(nil)
	_ bookmark.Store           = (*postgres.BookmarkRepository)(nil)
	_ notification.Store       = (*postgres.NotificationRepository)(nil)
	_ dashboard.FeedStore      = (*postgres.DashboardRepository)(nil)
	_ outbox.Store             = (*outbox.Repository)(nil)
	_ dashboard.TaskLister     = (*postgres.TaskRepository)(nil)
	_ dashboard.ContractLister = (*postgres.ContractRepository)(nil)
)

func liveIdea(t *testing.T, store *memory.Store) int64 {
	t.Helper()
	id, err := store.Ideas().Create(context.Background(), &model.Idea{
		OwnerID: 3, Title: "Solar", Overview: "peer to peer", Stage: model.StageMVP,
		Visibility: model.VisibilityPublic, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	require.NoError(t, err)
	return id
}

func submitted(t *testing.T, store *memory.Store) int64 {
	t.Helper()
	id, err := store.Proposals().Create(context.Background(), &model.Proposal{
		IdeaID: liveIdea(t, store), DeveloperID: 2, EntrepreneurID: 3, Scope: "scope",
		Status: model.ProposalPending, SubmittedAt: time.Now(), UpdatedAt: time.Now(),
	}, func(id int64) []model.OutboxMessage {
		return []model.OutboxMessage{{AggregateType: model.AggregateProposal, AggregateID: id, RoutingKey: "proposal.submitted", Payload: map[string]int64{"proposal_id": id}}}
	})
	require.NoError(t, err)
	return id
}

func TestOutboxLeaseAndReplay(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	submitted(t, store)
	ob := store.Outbox()

	claimed, err := ob.ClaimPendingEvents(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.JSONEq(t, `{"proposal_id":1}`, string(claimed[0].Payload))

	again, err := ob.ClaimPendingEvents(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, ob.MarkAsFailed(ctx, claimed[0].ID, 1))
	failed, err := ob.GetFailedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	require.NoError(t, ob.ReplayEvent(ctx, claimed[0].ID))
	replayed, err := ob.ClaimPendingEvents(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, replayed, 1)
	assert.Zero(t, replayed[0].RetryCount)

	require.NoError(t, ob.MarkAsSent(ctx, claimed[0].ID))
	got, err := ob.GetEventByID(ctx, claimed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, outbox.StatusSent, got.Status)

	_, err = ob.GetEventByID(ctx, 99)
	assert.ErrorIs(t, err, outbox.ErrEventNotFound)
}

func TestStatusUpdateIsConditional(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	id := submitted(t, store)

	ok, err := store.Proposals().UpdateStatus(ctx, id, model.ProposalPending, model.ProposalAccepted, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Proposals().UpdateStatus(ctx, id, model.ProposalPending, model.ProposalRejected, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	p, err := store.Proposals().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalAccepted, p.Status)
	assert.Equal(t, []string{"proposal.submitted"}, store.Outbox().RoutingKeys())
}

func TestProposalRequiresLiveIdea(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ideaID := liveIdea(t, store)
	require.NoError(t, store.Ideas().SoftDelete(ctx, ideaID, time.Now()))

	_, err := store.Proposals().Create(ctx, &model.Proposal{
		IdeaID: ideaID, DeveloperID: 2, EntrepreneurID: 3, Scope: "scope",
		Status: model.ProposalPending, SubmittedAt: time.Now(), UpdatedAt: time.Now(),
	}, func(id int64) []model.OutboxMessage {
		return []model.OutboxMessage{{AggregateType: model.AggregateProposal, AggregateID: id, RoutingKey: "proposal.submitted"}}
	})
	assert.ErrorIs(t, err, apperr.ErrIdeaNotVisible)
	assert.Empty(t, store.Outbox().RoutingKeys())

	_, err = store.Proposals().Create(ctx, &model.Proposal{IdeaID: 999, DeveloperID: 2, Status: model.ProposalPending}, nil)
	assert.ErrorIs(t, err, apperr.ErrIdeaNotVisible)
}

func TestProposalAndIdeaDeletionExcludeEachOther(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for range 50 {
		ideaID := liveIdea(t, store)

		var wg sync.WaitGroup
		var deleteErr, createErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			deleteErr = store.Ideas().SoftDelete(ctx, ideaID, time.Now())
		}()
		go func() {
			defer wg.Done()
			_, createErr = store.Proposals().Create(ctx, &model.Proposal{
				IdeaID: ideaID, DeveloperID: 2, EntrepreneurID: 3, Scope: "scope",
				Status: model.ProposalPending, SubmittedAt: time.Now(), UpdatedAt: time.Now(),
			}, nil)
		}()
		wg.Wait()

		if deleteErr == nil {
			assert.ErrorIs(t, createErr, apperr.ErrIdeaNotVisible)
		} else {
			assert.ErrorIs(t, deleteErr, apperr.ErrHasActiveProposals)
			assert.NoError(t, createErr)
		}
	}
}
