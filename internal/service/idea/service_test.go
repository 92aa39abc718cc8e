package idea

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/internal/repository/memory"
	"foundermatch/internal/service/servicetest"
	"foundermatch/pkg/apperr"
)

func newService(store *memory.Store) *Service {
	return NewService(store.Ideas(), store.NDAs(), zap.NewNop())
}

func validFields() model.IdeaFields {
	return model.IdeaFields{
		Title:       "  Solar marketplace ",
		Overview:    "Peer to peer solar",
		Description: "secret sauce",
		Stage:       model.StageIdea,
		Skills:      []string{"go", " ", "react"},
		Equity:      model.EquityRange{Min: 1, Max: 10},
	}
}

func TestCreateIdea(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	owner := servicetest.User(t, store, model.RoleEntrepreneur, "erin")
	dev := servicetest.User(t, store, model.RoleDeveloper, "dan")
	ctx := context.Background()

	idea, err := svc.Create(ctx, owner, validFields())
	require.NoError(t, err)
	assert.NotZero(t, idea.ID)
	assert.Equal(t, "Solar marketplace", idea.Title)
	assert.Equal(t, []string{"go", "react"}, idea.Skills)
	assert.Equal(t, model.VisibilityPublic, idea.Visibility)

	_, err = svc.Create(ctx, dev, validFields())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	bad := validFields()
	bad.Overview = ""
	_, err = svc.Create(ctx, owner, bad)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	bad = validFields()
	bad.Equity = model.EquityRange{Min: 30, Max: 10}
	_, err = svc.Create(ctx, owner, bad)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateIdeaRequiresOwner(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	owner := servicetest.User(t, store, model.RoleEntrepreneur, "erin")
	other := servicetest.User(t, store, model.RoleEntrepreneur, "eve")
	ctx := context.Background()

	idea, err := svc.Create(ctx, owner, validFields())
	require.NoError(t, err)

	fields := validFields()
	fields.Title = "Renamed"
	_, err = svc.Update(ctx, other, idea.ID, fields)
	assert.ErrorIs(t, err, apperr.ErrNotOwner)

	updated, err := svc.Update(ctx, owner, idea.ID, fields)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	_, err = svc.Update(ctx, owner, 999, fields)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetIdeaRedactsUntilNDAAccepted(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	owner := servicetest.User(t, store, model.RoleEntrepreneur, "erin")
	dev := servicetest.User(t, store, model.RoleDeveloper, "dan")
	ctx := context.Background()
	idea := servicetest.Idea(t, store, owner, "stealth", model.VisibilityNDARequired)

	got, err := svc.Get(ctx, dev, idea.ID)
	require.NoError(t, err)
	assert.True(t, got.Redacted)
	assert.Empty(t, got.Description)
	assert.Empty(t, got.Attachments)
	assert.Equal(t, idea.Title, got.Title)
	assert.Equal(t, idea.Skills, got.Skills)

	full, err := svc.Get(ctx, owner, idea.ID)
	require.NoError(t, err)
	assert.False(t, full.Redacted)
	assert.Equal(t, idea.Description, full.Description)

	for range 2 {
		_, err = store.NDAs().Accept(ctx, idea.ID, dev.UserID, time.Now())
		require.NoError(t, err)
	}
	got, err = svc.Get(ctx, dev, idea.ID)
	require.NoError(t, err)
	assert.False(t, got.Redacted)
	assert.Equal(t, idea.Description, got.Description)
	assert.Equal(t, idea.Attachments, got.Attachments)
}

func TestGetIdeaInviteOnlyAlwaysRedactedForOthers(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	owner := servicetest.User(t, store, model.RoleEntrepreneur, "erin")
	dev := servicetest.User(t, store, model.RoleDeveloper, "dan")
	ctx := context.Background()
	idea := servicetest.Idea(t, store, owner, "private", model.VisibilityInviteOnly)

	_, err := store.NDAs().Accept(ctx, idea.ID, dev.UserID, time.Now())
	require.NoError(t, err)

	got, err := svc.Get(ctx, dev, idea.ID)
	require.NoError(t, err)
	assert.True(t, got.Redacted)
}

func TestListIsLazyOrderedAndRestartable(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	svc.pageSize = 2
	owner := servicetest.User(t, store, model.RoleEntrepreneur, "erin")
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []int64
	for i, ts := range []time.Time{base, base.Add(time.Hour), base.Add(time.Hour), base.Add(2 * time.Hour), base.Add(-time.Hour)} {
		idea := &model.Idea{
			OwnerID: owner.UserID, Title: "idea", Overview: "o", Stage: model.StageIdea,
			Skills: []string{"go"}, Visibility: model.VisibilityPublic, CreatedAt: ts, UpdatedAt: ts,
		}
		if i == 4 {
			idea.Skills = []string{"rust"}
		}
		id, err := store.Ideas().Create(ctx, idea)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	collect := func(filter model.IdeaFilter) []int64 {
		var out []int64
		for s, err := range svc.List(ctx, filter) {
			require.NoError(t, err)
			out = append(out, s.ID)
		}
		return out
	}

	want := []int64{ids[3], ids[1], ids[2], ids[0], ids[4]}
	assert.Equal(t, want, collect(model.IdeaFilter{}))
	assert.Equal(t, want, collect(model.IdeaFilter{}), "second range restarts from the beginning")
	assert.Equal(t, []int64{ids[4]}, collect(model.IdeaFilter{Skills: []string{"rust"}}))

	var first []int64
	for s, err := range svc.List(ctx, model.IdeaFilter{}) {
		require.NoError(t, err)
		first = append(first, s.ID)
		if len(first) == 3 {
			break
		}
	}
	assert.Equal(t, want[:3], first)
}

func TestPageCursor(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	owner := servicetest.User(t, store, model.RoleEntrepreneur, "erin")
	ctx := context.Background()
	for range 5 {
		servicetest.Idea(t, store, owner, "i", model.VisibilityPublic)
	}

	var seen []int64
	var cursor *model.IdeaCursor
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5)
		items, next, err := svc.Page(ctx, model.IdeaFilter{}, cursor, 2)
		require.NoError(t, err)
		for _, it := range items {
			seen = append(seen, it.ID)
		}
		if next == nil {
			break
		}
		decoded, err := model.DecodeIdeaCursor(next.Encode())
		require.NoError(t, err)
		cursor = decoded
	}
	assert.Len(t, seen, 5)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5}, seen)
}

func TestDeleteIdea(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	owner := servicetest.User(t, store, model.RoleEntrepreneur, "erin")
	other := servicetest.User(t, store, model.RoleEntrepreneur, "eve")
	dev := servicetest.User(t, store, model.RoleDeveloper, "dan")
	ctx := context.Background()
	idea := servicetest.Idea(t, store, owner, "busy", model.VisibilityPublic)

	assert.ErrorIs(t, svc.Delete(ctx, other, idea.ID), apperr.ErrNotOwner)

	now := time.Now()
	pid, err := store.Proposals().Create(ctx, &model.Proposal{
		IdeaID: idea.ID, DeveloperID: dev.UserID, EntrepreneurID: owner.UserID,
		Scope: "s", EquityPercent: 5, Status: model.ProposalPending, SubmittedAt: now, UpdatedAt: now,
	}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(ctx, owner, idea.ID), apperr.ErrHasActiveProposals)

	ok, err := store.Proposals().UpdateStatus(ctx, pid, model.ProposalPending, model.ProposalRejected, now)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.Delete(ctx, owner, idea.ID))
	_, err = svc.Get(ctx, owner, idea.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	for s, err := range svc.List(ctx, model.IdeaFilter{}) {
		require.NoError(t, err)
		assert.NotEqual(t, idea.ID, s.ID)
	}
}
