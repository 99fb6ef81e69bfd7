package agg

import (
	"testing"
	"time"

	"github.com/huangsam/prscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var foldTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func eligibleContribution() schema.Contribution {
	return schema.Contribution{
		OrganizationID: 1,
		DeveloperLogin: "octocat",
		StatDate:       "2024-05-01",
		IsEligible:     true,
		Score:          75,
		SeverityKey:    schema.SeverityP1,
		ComponentKey:   "AUTH",
	}
}

func TestContributionFor(t *testing.T) {
	// Merged late on the 1st in UTC-7 is the 2nd in UTC
	merged := time.Date(2024, 5, 1, 20, 0, 0, 0, time.FixedZone("PDT", -7*3600))
	change := &schema.Change{OrganizationID: 4, AuthorLogin: "octocat", MergedAt: merged}
	eval := &schema.Evaluation{IsEligible: true, FinalScore: 75, SeverityKey: "P1", ComponentKey: "AUTH"}

	c := ContributionFor(eval, change)
	assert.Equal(t, int64(4), c.OrganizationID)
	assert.Equal(t, "octocat", c.DeveloperLogin)
	assert.Equal(t, "2024-05-02", c.StatDate)
	assert.True(t, c.IsEligible)
	assert.Equal(t, 75.0, c.Score)
}

func TestApply(t *testing.T) {
	t.Run("eligible", func(t *testing.T) {
		c := eligibleContribution()
		stat := NewDailyStat(c)
		Apply(stat, c, foldTime)

		assert.Equal(t, 75.0, stat.TotalScore)
		assert.Equal(t, 1, stat.PRCount)
		assert.Equal(t, 1, stat.P1Count)
		assert.Equal(t, 0, stat.P0Count+stat.P2Count+stat.P3Count)
		assert.Equal(t, map[string]float64{"AUTH": 75}, stat.ComponentScores)
		assert.Equal(t, foldTime, stat.UpdatedAt)
	})

	t.Run("ineligible counts the PR only", func(t *testing.T) {
		c := eligibleContribution()
		c.IsEligible = false
		c.Score = 0
		stat := NewDailyStat(c)
		Apply(stat, c, foldTime)

		assert.Equal(t, 0.0, stat.TotalScore)
		assert.Equal(t, 1, stat.PRCount)
		assert.Equal(t, 0, stat.P1Count)
		assert.Empty(t, stat.ComponentScores)
	})

	t.Run("untracked severity", func(t *testing.T) {
		c := eligibleContribution()
		c.SeverityKey = "CRITICAL"
		stat := NewDailyStat(c)
		Apply(stat, c, foldTime)

		assert.Equal(t, 75.0, stat.TotalScore)
		assert.Equal(t, 0, stat.P0Count+stat.P1Count+stat.P2Count+stat.P3Count)
	})

	t.Run("nil component map", func(t *testing.T) {
		stat := &schema.DeveloperDailyStat{}
		Apply(stat, eligibleContribution(), foldTime)
		assert.Equal(t, 75.0, stat.ComponentScores["AUTH"])
	})
}

func TestRevert(t *testing.T) {
	first := eligibleContribution()
	second := eligibleContribution()
	second.Score = 12.5
	second.SeverityKey = schema.SeverityP3
	second.ComponentKey = "UI"

	stat := NewDailyStat(first)
	Apply(stat, first, foldTime)
	Apply(stat, second, foldTime)
	require.Equal(t, 87.5, stat.TotalScore)
	require.Equal(t, 2, stat.PRCount)

	Revert(stat, second, foldTime)
	assert.Equal(t, 75.0, stat.TotalScore)
	assert.Equal(t, 1, stat.PRCount)
	assert.Equal(t, 0, stat.P3Count)
	assert.Equal(t, map[string]float64{"AUTH": 75}, stat.ComponentScores)

	Revert(stat, first, foldTime)
	assert.Equal(t, 0.0, stat.TotalScore)
	assert.Equal(t, 0, stat.PRCount)
	assert.Empty(t, stat.ComponentScores)

	// Counters never go negative
	Revert(stat, first, foldTime)
	assert.Equal(t, 0, stat.PRCount)
	assert.Equal(t, 0, stat.P1Count)
}

func TestRevertSettlesFloatResidue(t *testing.T) {
	c := eligibleContribution()
	c.Score = 0.1
	stat := NewDailyStat(c)
	for range 3 {
		Apply(stat, c, foldTime)
	}
	for range 3 {
		Revert(stat, c, foldTime)
	}
	assert.Equal(t, 0.0, stat.TotalScore)
	assert.NotContains(t, stat.ComponentScores, "AUTH")
}

func TestSummarize(t *testing.T) {
	stats := []schema.DeveloperDailyStat{
		{DeveloperLogin: "bob", StatDate: "2024-05-01", TotalScore: 10, PRCount: 1, P2Count: 1, ComponentScores: map[string]float64{"UI": 10}},
		{DeveloperLogin: "alice", StatDate: "2024-05-01", TotalScore: 75, PRCount: 2, P1Count: 1, ComponentScores: map[string]float64{"AUTH": 75}},
		{DeveloperLogin: "bob", StatDate: "2024-05-02", TotalScore: 70, PRCount: 1, P1Count: 1, ComponentScores: map[string]float64{"UI": 20, "API": 50}},
		{DeveloperLogin: "carol", StatDate: "2024-05-02", TotalScore: 80, PRCount: 1, P1Count: 1},
	}

	summaries := Summarize(stats)
	require.Len(t, summaries, 3)

	// Ties on total score are broken by login
	assert.Equal(t, "bob", summaries[0].DeveloperLogin)
	assert.Equal(t, "carol", summaries[1].DeveloperLogin)
	assert.Equal(t, "alice", summaries[2].DeveloperLogin)

	bob := summaries[0]
	assert.Equal(t, 2, bob.Days)
	assert.Equal(t, 80.0, bob.TotalScore)
	assert.Equal(t, 2, bob.PRCount)
	assert.Equal(t, map[string]float64{"UI": 30, "API": 50}, bob.ComponentScores)

	assert.Empty(t, Summarize(nil))
}
