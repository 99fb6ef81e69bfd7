package algo

import (
	"testing"
	"time"

	"github.com/huangsam/prscore/schema"
	"github.com/stretchr/testify/assert"
)

func summaries() []schema.DeveloperSummary {
	return []schema.DeveloperSummary{
		{DeveloperLogin: "carol", TotalScore: 40, PRCount: 5, ComponentScores: map[string]float64{"UI": 40}},
		{DeveloperLogin: "alice", TotalScore: 120, PRCount: 2, ComponentScores: map[string]float64{"AUTH": 120}},
		{DeveloperLogin: "bob", TotalScore: 40, PRCount: 1, ComponentScores: map[string]float64{"AUTH": 10, "UI": 30}},
	}
}

func logins(in []schema.DeveloperSummary) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.DeveloperLogin
	}
	return out
}

func TestRankDevelopers(t *testing.T) {
	tests := []struct {
		name  string
		by    string
		limit int
		want  []string
	}{
		{"score with login tie-break", ByScore, 0, []string{"alice", "bob", "carol"}},
		{"default key is score", "", 2, []string{"alice", "bob"}},
		{"pull request count", ByPRs, 0, []string{"carol", "alice", "bob"}},
		{"component score", "UI", 1, []string{"carol"}},
		{"limit larger than input", ByScore, 10, []string{"alice", "bob", "carol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logins(RankDevelopers(summaries(), tt.by, tt.limit)))
		})
	}
}

func TestRankEvaluations(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	evals := []schema.Evaluation{
		{ChangeID: 1, FinalScore: 20, EvaluatedAt: now},
		{ChangeID: 2, FinalScore: 75, EvaluatedAt: now},
		{ChangeID: 3, FinalScore: 20, EvaluatedAt: now.Add(time.Hour)},
		{ChangeID: 4, FinalScore: 0, EvaluatedAt: now},
	}

	ranked := RankEvaluations(evals, 3)
	assert.Len(t, ranked, 3)
	assert.Equal(t, int64(2), ranked[0].ChangeID)
	assert.Equal(t, int64(3), ranked[1].ChangeID, "newer first on equal score")
	assert.Equal(t, int64(1), ranked[2].ChangeID)

	assert.Empty(t, RankEvaluations(nil, 5))
}
