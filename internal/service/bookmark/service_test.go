package bookmark

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/internal/repository/memory"
	"foundermatch/internal/service/servicetest"
	"foundermatch/pkg/apperr"
)

func TestToggleIsIdempotent(t *testing.T) {
	store := memory.New()
	svc := NewService(store.Bookmarks(), store.Ideas(), zap.NewNop())
	owner := servicetest.User(t, store, model.RoleEntrepreneur, "erin")
	dan := servicetest.User(t, store, model.RoleDeveloper, "dan")
	sam := servicetest.User(t, store, model.RoleDeveloper, "sam")
	idea := servicetest.Idea(t, store, owner, "solar", model.VisibilityPublic)
	ctx := context.Background()

	for range 2 {
		state, err := svc.Toggle(ctx, dan, dan.UserID, idea.ID, true)
		require.NoError(t, err)
		assert.Equal(t, model.BookmarkState{IdeaID: idea.ID, Bookmarked: true, Count: 1}, state)
	}

	state, err := svc.Toggle(ctx, sam, sam.UserID, idea.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Count)

	state, err = svc.Toggle(ctx, dan, dan.UserID, idea.ID, false)
	require.NoError(t, err)
	assert.False(t, state.Bookmarked)
	assert.Equal(t, 1, state.Count)

	_, err = svc.Toggle(ctx, dan, sam.UserID, idea.ID, true)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Toggle(ctx, owner, owner.UserID, idea.ID, true)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Toggle(ctx, dan, dan.UserID, 404, true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
