package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/prscore/core/algo"
	"github.com/huangsam/prscore/internal/store"
	"github.com/huangsam/prscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDeveloperStats(t *testing.T) {
	ctx := context.Background()
	daily := []schema.DeveloperDailyStat{
		{DeveloperLogin: "alice", StatDate: "2024-05-03", TotalScore: 20, PRCount: 1, ComponentScores: map[string]float64{"UI": 20}},
		{DeveloperLogin: "bob", StatDate: "2024-05-03", TotalScore: 15, PRCount: 3, ComponentScores: map[string]float64{"AUTH": 15}},
		{DeveloperLogin: "alice", StatDate: "2024-05-04", TotalScore: 5, PRCount: 1, ComponentScores: map[string]float64{"UI": 5}},
	}
	m := &store.MockStore{}
	m.On("ListDailyStats", mock.Anything, testOrg, "", "2024-05-01", "2024-05-31").Return(daily, nil)

	q := StatsQuery{OrganizationID: testOrg, StartDate: "2024-05-01", EndDate: "2024-05-31", RankBy: algo.ByScore}
	summaries, rows, err := DeveloperStats(ctx, m, q)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	require.Len(t, summaries, 2)
	assert.Equal(t, "alice", summaries[0].DeveloperLogin)
	assert.Equal(t, 2, summaries[0].Days)
	assert.InDelta(t, 25.0, summaries[0].TotalScore, 1e-9)

	q.RankBy = algo.ByPRs
	summaries, _, err = DeveloperStats(ctx, m, q)
	require.NoError(t, err)
	assert.Equal(t, "bob", summaries[0].DeveloperLogin)

	q.RankBy = "AUTH"
	q.Limit = 1
	summaries, _, err = DeveloperStats(ctx, m, q)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "bob", summaries[0].DeveloperLogin)

	failing := &store.MockStore{}
	failing.On("ListDailyStats", mock.Anything, testOrg, "", "2024-05-01", "2024-05-31").Return(nil, errors.New("db down"))
	_, _, err = DeveloperStats(ctx, failing, q)
	assert.ErrorContains(t, err, "failed to list daily stats: db down")
}

func TestTopEvaluations(t *testing.T) {
	ctx := context.Background()
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	m := &store.MockStore{}
	m.On("ListEvaluations", mock.Anything, testOrg, from, to).Return([]schema.Evaluation{
		{ChangeID: 1, FinalScore: 20},
		{ChangeID: 2, FinalScore: 75},
		{ChangeID: 3, FinalScore: 5},
	}, nil)

	evals, err := TopEvaluations(ctx, m, testOrg, "2024-05-01", "2024-05-31", 2)
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Equal(t, int64(2), evals[0].ChangeID)
	assert.Equal(t, int64(1), evals[1].ChangeID)
	m.AssertExpectations(t)

	_, err = TopEvaluations(ctx, m, testOrg, "May 1", "2024-05-31", 2)
	assert.ErrorContains(t, err, "invalid start date")
}
