//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
	"foundermatch/pkg/db"
	"foundermatch/pkg/outbox"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("foundermatch"),
		tcpostgres.WithUsername("foundermatch"),
		tcpostgres.WithPassword("foundermatch"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applied, err := db.Migrate(ctx, pool, Migrations(), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, []string{"001_init"}, applied)
	return pool
}

type seeded struct {
	repos *Repositories
	owner int64
	dev   int64
	idea  int64
}

func seed(t *testing.T, pool *pgxpool.Pool) *seeded {
	t.Helper()
	ctx := context.Background()
	repos := NewRepositories(pool, zap.NewNop())
	now := time.Now()

	owner, err := repos.Users.Create(ctx, &model.User{Email: "erin@example.com", PasswordHash: "x", Name: "erin", Role: model.RoleEntrepreneur, CreatedAt: now})
	require.NoError(t, err)
	dev, err := repos.Users.Create(ctx, &model.User{Email: "dan@example.com", PasswordHash: "x", Name: "dan", Role: model.RoleDeveloper, CreatedAt: now})
	require.NoError(t, err)
	idea, err := repos.Ideas.Create(ctx, &model.Idea{
		OwnerID: owner, Title: "Solar", Overview: "peer to peer", Stage: model.StageMVP,
		Skills: []string{"go", "postgres"}, Visibility: model.VisibilityPublic, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	return &seeded{repos: repos, owner: owner, dev: dev, idea: idea}
}

func (s *seeded) proposal(status model.ProposalStatus) *model.Proposal {
	now := time.Now()
	return &model.Proposal{
		IdeaID: s.idea, DeveloperID: s.dev, EntrepreneurID: s.owner, Scope: "build it",
		Milestones:    []model.ProposalMilestone{{Title: "API", EstimatedHours: 10}},
		EquityPercent: 12, Timeline: "3 months", Status: status, SubmittedAt: now, UpdatedAt: now,
	}
}

func TestPostgresRepositories(t *testing.T) {
	pool := startPostgres(t)
	s := seed(t, pool)
	ctx := context.Background()

	t.Run("duplicate email", func(t *testing.T) {
		_, err := s.repos.Users.Create(ctx, &model.User{Email: "ERIN@example.com", PasswordHash: "x", Role: model.RoleDeveloper, CreatedAt: time.Now()})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	var proposalID int64
	t.Run("one active proposal per developer and idea", func(t *testing.T) {
		id, err := s.repos.Proposals.Create(ctx, s.proposal(model.ProposalPending), func(id int64) []model.OutboxMessage {
			return []model.OutboxMessage{{AggregateType: model.AggregateProposal, AggregateID: id, RoutingKey: "proposal.submitted", Payload: map[string]int64{"proposal_id": id}}}
		})
		require.NoError(t, err)
		proposalID = id

		_, err = s.repos.Proposals.Create(ctx, s.proposal(model.ProposalPending), nil)
		assert.ErrorIs(t, err, apperr.ErrDuplicateActiveProposal)

		got, err := s.repos.Proposals.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "build it", got.Scope)
		assert.Equal(t, []model.ProposalMilestone{{Title: "API", EstimatedHours: 10}}, got.Milestones)
	})

	t.Run("concurrent status compare-and-set", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make([]bool, 6)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.repos.Proposals.UpdateStatus(ctx, proposalID, model.ProposalPending, model.ProposalAccepted, time.Now())
				assert.NoError(t, err)
				results[i] = ok
			}()
		}
		wg.Wait()
		winners := 0
		for _, ok := range results {
			if ok {
				winners++
			}
		}
		assert.Equal(t, 1, winners)
	})

	t.Run("one live contract per proposal", func(t *testing.T) {
		now := time.Now()
		c := &model.Contract{
			ProposalID: proposalID, IdeaID: s.idea, IdeaTitle: "Solar",
			Entrepreneur: model.PartySnapshot{UserID: s.owner, Name: "erin"},
			Developer:    model.PartySnapshot{UserID: s.dev, Name: "dan"},
			Equity:       model.EquityTerms{Percent: 12, VestingMonths: 48, CliffMonths: 12},
			Milestones:   []model.ContractMilestone{{Position: 1, Title: "API", EstimatedHours: 10}},
			Sections:     []model.Section{{ID: model.SectionIP, Title: "IP", Body: "b", Revision: 1}},
			Status:       model.ContractDraft, CreatedAt: now, UpdatedAt: now,
		}
		id, err := s.repos.Contracts.Create(ctx, c)
		require.NoError(t, err)
		assert.NotZero(t, c.Milestones[0].ID)

		dup := *c
		_, err = s.repos.Contracts.Create(ctx, &dup)
		assert.ErrorIs(t, err, apperr.ErrContractAlreadyExists)

		loaded, err := s.repos.Contracts.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.Version)
		require.Len(t, loaded.Milestones, 1)

		stale := loaded.Clone()
		_, err = loaded.Agree(model.PartyDeveloper, model.SectionIP, now)
		require.NoError(t, err)
		ok, err := s.repos.Contracts.Update(ctx, loaded, 1)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.repos.Contracts.Update(ctx, stale, 1)
		require.NoError(t, err)
		assert.False(t, ok)

		reloaded, err := s.repos.Contracts.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, reloaded.Version)
		assert.True(t, reloaded.HasAgreed(model.PartyDeveloper, model.SectionIP))
	})

	t.Run("idea list filters and keyset", func(t *testing.T) {
		ideas, err := s.repos.Ideas.List(ctx, model.IdeaFilter{Skills: []string{"go"}, Search: "sol"}, nil, 10)
		require.NoError(t, err)
		require.Len(t, ideas, 1)

		ideas, err = s.repos.Ideas.List(ctx, model.IdeaFilter{Skills: []string{"rust"}}, nil, 10)
		require.NoError(t, err)
		assert.Empty(t, ideas)

		feed, err := s.repos.Dashboard.Feed(ctx, s.dev, model.IdeaFilter{}, nil, 10)
		require.NoError(t, err)
		require.Len(t, feed, 1)
		assert.Zero(t, feed[0].PendingProposals)
	})

	t.Run("outbox claim", func(t *testing.T) {
		events, err := s.repos.Outbox.ClaimPendingEvents(ctx, 10, time.Minute)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "proposal.submitted", events[0].RoutingKey)

		again, err := s.repos.Outbox.ClaimPendingEvents(ctx, 10, time.Minute)
		require.NoError(t, err)
		assert.Empty(t, again, "claimed events are leased")

		require.NoError(t, s.repos.Outbox.MarkAsSent(ctx, events[0].ID))
		got, err := s.repos.Outbox.GetEventByID(ctx, events[0].ID)
		require.NoError(t, err)
		assert.Equal(t, outbox.StatusSent, got.Status)
	})

	t.Run("proposal and idea deletion exclude each other", func(t *testing.T) {
		for range 10 {
			now := time.Now()
			ideaID, err := s.repos.Ideas.Create(ctx, &model.Idea{
				OwnerID: s.owner, Title: "Wind", Overview: "turbines", Stage: model.StageIdea,
				Visibility: model.VisibilityPublic, CreatedAt: now, UpdatedAt: now,
			})
			require.NoError(t, err)
			p := s.proposal(model.ProposalPending)
			p.IdeaID = ideaID

			var wg sync.WaitGroup
			var deleteErr, createErr error
			wg.Add(2)
			go func() {
				defer wg.Done()
				deleteErr = s.repos.Ideas.SoftDelete(ctx, ideaID, time.Now())
			}()
			go func() {
				defer wg.Done()
				_, createErr = s.repos.Proposals.Create(ctx, p, nil)
			}()
			wg.Wait()

			if deleteErr == nil {
				assert.ErrorIs(t, createErr, apperr.ErrIdeaNotVisible)
			} else {
				assert.ErrorIs(t, deleteErr, apperr.ErrHasActiveProposals)
				assert.NoError(t, createErr)
			}
		}
	})
}
