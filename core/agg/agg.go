// Package agg has the developer daily aggregate fold.
package agg

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/huangsam/prscore/schema"
)

// scoreEpsilon absorbs float residue left behind when a contribution is reverted.
const scoreEpsilon = 1e-9

// ContributionFor derives the daily aggregate contribution of an evaluation of change.
// The stat date is the UTC calendar date of the merge.
func ContributionFor(eval *schema.Evaluation, change *schema.Change) schema.Contribution {
	return schema.Contribution{
		OrganizationID: change.OrganizationID,
		DeveloperLogin: change.AuthorLogin,
		StatDate:       schema.StatDate(change.MergedAt),
		IsEligible:     eval.IsEligible,
		Score:          eval.FinalScore,
		SeverityKey:    eval.SeverityKey,
		ComponentKey:   eval.ComponentKey,
	}
}

// NewDailyStat returns the empty aggregate row for the contribution's key.
func NewDailyStat(c schema.Contribution) *schema.DeveloperDailyStat {
	return &schema.DeveloperDailyStat{
		OrganizationID:  c.OrganizationID,
		DeveloperLogin:  c.DeveloperLogin,
		StatDate:        c.StatDate,
		ComponentScores: map[string]float64{},
	}
}

// Apply folds c into stat. Every contribution counts one PR; only eligible ones
// add score, a severity count and a component total.
func Apply(stat *schema.DeveloperDailyStat, c schema.Contribution, at time.Time) {
	fold(stat, c, 1)
	stat.UpdatedAt = at
}

// Revert removes a previously applied c from stat.
func Revert(stat *schema.DeveloperDailyStat, c schema.Contribution, at time.Time) {
	fold(stat, c, -1)
	stat.UpdatedAt = at
}

func fold(stat *schema.DeveloperDailyStat, c schema.Contribution, sign int) {
	if stat.ComponentScores == nil {
		stat.ComponentScores = map[string]float64{}
	}
	stat.PRCount = max(stat.PRCount+sign, 0)
	if !c.IsEligible {
		return
	}

	delta := float64(sign) * c.Score
	stat.TotalScore = settle(stat.TotalScore + delta)

	switch c.SeverityKey {
	case schema.SeverityP0:
		stat.P0Count = max(stat.P0Count+sign, 0)
	case schema.SeverityP1:
		stat.P1Count = max(stat.P1Count+sign, 0)
	case schema.SeverityP2:
		stat.P2Count = max(stat.P2Count+sign, 0)
	case schema.SeverityP3:
		stat.P3Count = max(stat.P3Count+sign, 0)
	}

	if c.ComponentKey == "" {
		return
	}
	total := settle(stat.ComponentScores[c.ComponentKey] + delta)
	if total == 0 && sign < 0 {
		delete(stat.ComponentScores, c.ComponentKey)
		return
	}
	stat.ComponentScores[c.ComponentKey] = total
}

// settle snaps values within epsilon of zero back to zero.
func settle(v float64) float64 {
	if math.Abs(v) < scoreEpsilon {
		return 0
	}
	return v
}

// Summarize rolls daily stats up per developer, ordered by total score descending
// and then by login.
func Summarize(stats []schema.DeveloperDailyStat) []schema.DeveloperSummary {
	byDeveloper := make(map[string]*schema.DeveloperSummary)
	for _, stat := range stats {
		summary, ok := byDeveloper[stat.DeveloperLogin]
		if !ok {
			summary = &schema.DeveloperSummary{
				DeveloperLogin:  stat.DeveloperLogin,
				ComponentScores: map[string]float64{},
			}
			byDeveloper[stat.DeveloperLogin] = summary
		}
		summary.Days++
		summary.TotalScore += stat.TotalScore
		summary.PRCount += stat.PRCount
		summary.P0Count += stat.P0Count
		summary.P1Count += stat.P1Count
		summary.P2Count += stat.P2Count
		summary.P3Count += stat.P3Count
		for key, score := range stat.ComponentScores {
			summary.ComponentScores[key] += score
		}
	}

	results := make([]schema.DeveloperSummary, 0, len(byDeveloper))
	for _, summary := range byDeveloper {
		results = append(results, *summary)
	}
	slices.SortFunc(results, func(a, b schema.DeveloperSummary) int {
		if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		return cmp.Compare(a.DeveloperLogin, b.DeveloperLogin)
	})
	return results
}
