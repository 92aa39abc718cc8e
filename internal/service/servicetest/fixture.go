// Package servicetest 提供服务层测试共用的数据准备函数
package servicetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"foundermatch/internal/model"
	"foundermatch/internal/repository/memory"
)

// User 写入一个用户并返回对应的 Actor
func User(t testing.TB, store *memory.Store, role model.Role, name string) model.Actor {
	t.Helper()
	id, err := store.Users().Create(context.Background(), &model.User{
		Email:     fmt.Sprintf("%s@example.com", name),
		Name:      name,
		Role:      role,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	return model.Actor{UserID: id, Role: role}
}

// Idea 写入一个创意
func Idea(t testing.TB, store *memory.Store, owner model.Actor, title string, visibility model.Visibility) *model.Idea {
	t.Helper()
	now := time.Now()
	idea := &model.Idea{
		OwnerID:     owner.UserID,
		Title:       title,
		Overview:    title + " overview",
		Description: title + " full description",
		Stage:       model.StageMVP,
		Skills:      []string{"go", "postgres"},
		Equity:      model.EquityRange{Min: 5, Max: 20},
		Visibility:  visibility,
		Attachments: []string{"s3://pitch/" + title + ".pdf"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := store.Ideas().Create(context.Background(), idea)
	require.NoError(t, err)
	idea.ID = id
	return idea
}

// ProposalFields 一个合法的提案输入
func ProposalFields(equity float64, timeline string) model.ProposalFields {
	return model.ProposalFields{
		Scope: "Build the MVP backend",
		Milestones: []model.ProposalMilestone{
			{Title: "API", Description: "REST endpoints", Duration: "4 weeks", EstimatedHours: 40},
			{Title: "Launch", Description: "Deploy", Duration: "2 weeks", EstimatedHours: 10},
		},
		EquityPercent: equity,
		Timeline:      timeline,
	}
}
