package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foundermatch/pkg/apperr"
)

func TestTaskWorkflow(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	task := &Task{ID: 5, ContractID: 1, MilestoneID: 2, DeveloperID: 3, Title: "API", Hours: 5, Status: TaskDraft}

	assert.ErrorIs(t, task.Review(9, DecisionApproved, "", now), apperr.ErrInvalidTransition)

	require.NoError(t, task.Submit(now))
	assert.Equal(t, TaskSubmitted, task.Status)
	assert.ErrorIs(t, task.Submit(now), apperr.ErrInvalidTransition)

	assert.ErrorIs(t, task.Review(9, "maybe", "", now), apperr.ErrValidation)
	require.NoError(t, task.Review(9, DecisionRevisionRequested, "add tests", now))
	assert.Equal(t, TaskRevisionRequested, task.Status)
	assert.Equal(t, "add tests", task.ReviewComment)

	rev, err := task.NewRevision(now)
	require.NoError(t, err)
	assert.Equal(t, TaskDraft, rev.Status)
	require.NotNil(t, rev.RevisionOf)
	assert.Equal(t, int64(5), *rev.RevisionOf)
	assert.Equal(t, task.Hours, rev.Hours)
	assert.Equal(t, TaskRevisionRequested, task.Status, "original stays for audit")
}

func TestApprovedTaskCannotBeRevised(t *testing.T) {
	task := &Task{Status: TaskApproved}
	_, err := task.NewRevision(time.Now())
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}
