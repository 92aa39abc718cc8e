package model

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foundermatch/pkg/apperr"
)

func TestIdeaFieldsValidate(t *testing.T) {
	f := IdeaFields{Title: " Drone ", Overview: "Delivery", Stage: StageMVP, Skills: []string{"go", " ", "react"}, Equity: EquityRange{Min: 5, Max: 15}}
	f.Normalize()
	require.NoError(t, f.Validate())
	assert.Equal(t, "Drone", f.Title)
	assert.Equal(t, []string{"go", "react"}, f.Skills)
	assert.Equal(t, VisibilityPublic, f.Visibility)

	bad := f
	bad.Stage = "seed"
	assert.ErrorIs(t, bad.Validate(), apperr.ErrValidation)

	bad = f
	bad.Equity = EquityRange{Min: 20, Max: 10}
	assert.ErrorIs(t, bad.Validate(), apperr.ErrValidation)

	bad = f
	bad.Overview = ""
	assert.ErrorIs(t, bad.Validate(), apperr.ErrValidation)
}

func TestRedactHidesConfidentialFields(t *testing.T) {
	i := &Idea{ID: 1, Title: "Secret", Overview: "o", Description: "full", Attachments: []string{"deck.pdf"}, Skills: []string{"go"}, Visibility: VisibilityNDARequired}
	r := i.Redact()
	assert.True(t, r.Redacted)
	assert.Empty(t, r.Description)
	assert.Empty(t, r.Overview)
	assert.Empty(t, r.Attachments)
	assert.Equal(t, "Secret", r.Title)
	assert.Equal(t, []string{"go"}, r.Skills)
}

func TestIdeaFilterMatches(t *testing.T) {
	i := &Idea{Title: "Solar Grid", Overview: "Energy marketplace", Stage: StageIdea, Skills: []string{"go", "postgres"}, Visibility: VisibilityPublic}

	assert.True(t, IdeaFilter{}.Matches(i))
	assert.True(t, IdeaFilter{Skills: []string{"go"}}.Matches(i))
	assert.False(t, IdeaFilter{Skills: []string{"go", "rust"}}.Matches(i))
	assert.True(t, IdeaFilter{Search: "GRID"}.Matches(i))
	assert.True(t, IdeaFilter{Search: "market"}.Matches(i))
	assert.False(t, IdeaFilter{Stage: StageBeta}.Matches(i))

	i.Visibility = VisibilityNDARequired
	assert.False(t, IdeaFilter{Search: "market"}.Matches(i), "confidential overview is not searchable")

	now := time.Now()
	i.DeletedAt = &now
	assert.False(t, IdeaFilter{}.Matches(i))
}

func TestCursorOrdering(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ideas := []*Idea{
		{ID: 3, CreatedAt: base},
		{ID: 1, CreatedAt: base.Add(time.Hour)},
		{ID: 2, CreatedAt: base},
	}
	slices.SortFunc(ideas, IdeaLess)
	assert.Equal(t, []int64{1, 2, 3}, []int64{ideas[0].ID, ideas[1].ID, ideas[2].ID})

	cur := CursorAfter(ideas[1])
	assert.False(t, cur.Admits(ideas[0]))
	assert.False(t, cur.Admits(ideas[1]))
	assert.True(t, cur.Admits(ideas[2]))

	decoded, err := DecodeIdeaCursor(cur.Encode())
	require.NoError(t, err)
	assert.Equal(t, cur.ID, decoded.ID)
	assert.True(t, cur.CreatedAt.Equal(decoded.CreatedAt))

	_, err = DecodeIdeaCursor("!!")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	none, err := DecodeIdeaCursor("")
	require.NoError(t, err)
	assert.Nil(t, none)
}
