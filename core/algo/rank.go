// Package algo orders developer summaries and evaluations for reporting.
package algo

import (
	"sort"

	"github.com/huangsam/prscore/schema"
)

// Ranking keys accepted by RankDevelopers.
const (
	ByScore = "score"
	ByPRs   = "prs"
)

// RankDevelopers sorts summaries by the given key in descending order and returns
// the top 'limit' entries. Any key other than ByScore or ByPRs is treated as a
// component key and ranks by that component's score. Ties keep login order. A
// limit of 0 or less returns every summary.
func RankDevelopers(summaries []schema.DeveloperSummary, by string, limit int) []schema.DeveloperSummary {
	value := func(s schema.DeveloperSummary) float64 {
		switch by {
		case ByScore, "":
			return s.TotalScore
		case ByPRs:
			return float64(s.PRCount)
		default:
			return s.ComponentScores[by]
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		vi, vj := value(summaries[i]), value(summaries[j])
		if vi != vj {
			return vi > vj
		}
		return summaries[i].DeveloperLogin < summaries[j].DeveloperLogin
	})
	if limit > 0 && len(summaries) > limit {
		return summaries[:limit]
	}
	return summaries
}

// RankEvaluations sorts evaluations by final score in descending order, most
// recent first on ties, and returns the top 'limit' entries. A limit of 0 or
// less returns every evaluation.
func RankEvaluations(evals []schema.Evaluation, limit int) []schema.Evaluation {
	sort.SliceStable(evals, func(i, j int) bool {
		if evals[i].FinalScore != evals[j].FinalScore {
			return evals[i].FinalScore > evals[j].FinalScore
		}
		return evals[i].EvaluatedAt.After(evals[j].EvaluatedAt)
	})
	if limit > 0 && len(evals) > limit {
		return evals[:limit]
	}
	return evals
}
