package store

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/huangsam/prscore/schema"
)

var dailyStatColumns = []string{
	"organization_id", "developer_login", "stat_date", "total_score", "pr_count",
	"p0_count", "p1_count", "p2_count", "p3_count", "component_scores", "updated_at",
}

func scanDailyStat(row interface{ Scan(...any) error }) (*schema.DeveloperDailyStat, error) {
	var st schema.DeveloperDailyStat
	var scores string
	var updatedAt dbTime
	if err := row.Scan(&st.OrganizationID, &st.DeveloperLogin, &st.StatDate, &st.TotalScore, &st.PRCount,
		&st.P0Count, &st.P1Count, &st.P2Count, &st.P3Count, &scores, &updatedAt); err != nil {
		return nil, err
	}
	st.ComponentScores = map[string]float64{}
	if scores != "" {
		if err := json.Unmarshal([]byte(scores), &st.ComponentScores); err != nil {
			return nil, fmt.Errorf("failed to decode component scores: %w", err)
		}
	}
	st.UpdatedAt = updatedAt.Time
	return &st, nil
}

// GetDailyStat returns one developer's aggregate for a calendar date.
func (s *StoreImpl) GetDailyStat(ctx context.Context, orgID int64, developer, statDate string) (*schema.DeveloperDailyStat, error) {
	return s.getDailyStat(ctx, s.db, orgID, developer, statDate, false)
}

func (s *StoreImpl) getDailyStat(ctx context.Context, q queryer, orgID int64, developer, statDate string, lock bool) (*schema.DeveloperDailyStat, error) {
	query := s.sb.Select(dailyStatColumns...).
		From(dailyStatsTable).
		Where(sq.Eq{"organization_id": orgID, "developer_login": developer, "stat_date": statDate})
	if lock {
		query = query.Suffix(forUpdateSuffix(s.backend))
	}
	row, err := queryRowBuilder(ctx, q, query)
	if err != nil {
		return nil, err
	}
	st, err := scanDailyStat(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("daily stat for %s on %s", developer, statDate))
	}
	return st, nil
}

// ListDailyStats returns aggregates with stat dates in [fromDate, toDate], both
// inclusive. An empty developer matches everyone; empty dates are open bounds.
func (s *StoreImpl) ListDailyStats(ctx context.Context, orgID int64, developer, fromDate, toDate string) ([]schema.DeveloperDailyStat, error) {
	query := s.sb.Select(dailyStatColumns...).
		From(dailyStatsTable).
		Where(sq.Eq{"organization_id": orgID}).
		OrderBy("stat_date", "developer_login")
	if developer != "" {
		query = query.Where(sq.Eq{"developer_login": developer})
	}
	if fromDate != "" {
		query = query.Where(sq.GtOrEq{"stat_date": fromDate})
	}
	if toDate != "" {
		query = query.Where(sq.LtOrEq{"stat_date": toDate})
	}

	rows, err := queryBuilder(ctx, s.db, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []schema.DeveloperDailyStat
	for rows.Next() {
		st, err := scanDailyStat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		stats = append(stats, *st)
	}
	return stats, rows.Err()
}
