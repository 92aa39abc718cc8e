package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"foundermatch/internal/app"
	"foundermatch/internal/config"
	"foundermatch/internal/model"
	"foundermatch/internal/repository/memory"
	"foundermatch/pkg/apperr"
	"foundermatch/pkg/client"
	pkgconfig "foundermatch/pkg/config"
)

func TestClientAgainstLocalServer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: pkgconfig.JWTConfig{Secret: "client-test", TTL: time.Hour}}
	local := app.NewLocal(app.MemoryStores(memory.New()), cfg, nil, nil, zap.NewNop())
	srv := httptest.NewServer(local.Router)
	defer srv.Close()
	ctx := context.Background()

	founder := client.New(srv.URL)
	dev := client.New(srv.URL)
	for _, u := range []struct {
		c    *client.Client
		name string
		role model.Role
	}{{founder, "carol", model.RoleEntrepreneur}, {dev, "dave", model.RoleDeveloper}} {
		_, err := u.c.Register(ctx, client.RegisterInput{Email: u.name + "@example.com", Password: "long-enough", Name: u.name, Role: u.role})
		require.NoError(t, err)
		_, err = u.c.Login(ctx, u.name+"@example.com", "long-enough")
		require.NoError(t, err)
	}
	devUser, err := dev.Me(ctx)
	require.NoError(t, err)

	idea, err := founder.CreateIdea(ctx, model.IdeaFields{
		Title: "Fleet telemetry", Overview: "Telemetry for delivery fleets", Stage: model.StageBeta,
		Skills: []string{"go", "kafka"}, Equity: model.EquityRange{Min: 2, Max: 8},
	})
	require.NoError(t, err)

	page, err := dev.ListIdeas(ctx, client.IdeaQuery{Skills: []string{"go"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Ideas, 1)
	assert.Equal(t, idea.ID, page.Ideas[0].ID)

	fields := model.ProposalFields{
		Scope:         "Ingestion pipeline",
		Milestones:    []model.ProposalMilestone{{Title: "Pipeline", EstimatedHours: 20}},
		EquityPercent: 4,
		Timeline:      "1 month",
	}
	_, err = dev.SubmitProposal(ctx, client.ProposalInput{IdeaID: idea.ID, ProposalFields: fields})
	require.NoError(t, err)

	_, err = dev.SubmitProposal(ctx, client.ProposalInput{IdeaID: idea.ID, ProposalFields: fields})
	assert.True(t, errors.Is(err, apperr.ErrDuplicateActiveProposal))
	var mutErr *client.MutationError
	require.ErrorAs(t, err, &mutErr)
	assert.Equal(t, idea.ID, mutErr.Input.(client.ProposalInput).IdeaID)

	feed, err := dev.Feed(ctx, devUser.ID)
	require.NoError(t, err)
	b := client.NewBookmarks(feed)
	state, err := dev.ToggleBookmarkOptimistic(ctx, b, devUser.ID, idea.ID, true)
	require.NoError(t, err)
	assert.True(t, state.Bookmarked)
	assert.Equal(t, 1, state.Count)

	// 服务端拒绝时回滚到确认的快照
	_, err = founder.ToggleBookmarkOptimistic(ctx, b, devUser.ID, idea.ID, false)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	assert.True(t, b.State(idea.ID).Bookmarked)
}
