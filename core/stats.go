package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/prscore/core/agg"
	"github.com/huangsam/prscore/core/algo"
	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
)

// StatsQuery selects developer aggregates over an inclusive date range.
type StatsQuery struct {
	OrganizationID int64
	Developer      string // Empty selects everyone
	StartDate      string // YYYY-MM-DD
	EndDate        string // YYYY-MM-DD
	RankBy         string
	Limit          int
}

// DeveloperStats ranks developer summaries and also returns the daily rows
// they were built from.
func DeveloperStats(ctx context.Context, store contract.StatsStore, q StatsQuery) ([]schema.DeveloperSummary, []schema.DeveloperDailyStat, error) {
	daily, err := store.ListDailyStats(ctx, q.OrganizationID, q.Developer, q.StartDate, q.EndDate)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list daily stats: %w", err)
	}
	return algo.RankDevelopers(agg.Summarize(daily), q.RankBy, q.Limit), daily, nil
}

// TopEvaluations returns the highest scored evaluations made within the date range.
func TopEvaluations(ctx context.Context, store contract.EvaluationStore, orgID int64, startDate, endDate string, limit int) ([]schema.Evaluation, error) {
	from, err := time.Parse(schema.StatDateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	to, err := time.Parse(schema.StatDateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}

	evals, err := store.ListEvaluations(ctx, orgID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return algo.RankEvaluations(evals, limit), nil
}
