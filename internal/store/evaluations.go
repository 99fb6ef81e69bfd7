package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/huangsam/prscore/core/agg"
	"github.com/huangsam/prscore/schema"
)

var evaluationColumns = []string{
	"id", "change_id", "rule_set_id", "batch_id", "component_id", "component_key", "classified_component_id",
	"severity_id", "severity_key", "base_points", "multiplier",
	"eligibility_issue", "eligibility_fix", "eligibility_pr_linked", "eligibility_tests",
	"is_eligible", "final_score", "justification_component", "justification_severity", "impact_summary",
	"eligibility_notes", "review_notes", "raw_judgment", "model", "evaluated_at",
}

// evaluationWriteColumns are the columns written by an upsert, in value order.
var evaluationWriteColumns = []string{
	"change_id", "rule_set_id", "batch_id", "component_id", "component_key", "classified_component_id",
	"severity_id", "severity_key", "base_points", "multiplier",
	"eligibility_issue", "eligibility_fix", "eligibility_pr_linked", "eligibility_tests",
	"is_eligible", "final_score", "justification_component", "justification_severity", "impact_summary",
	"eligibility_notes", "review_notes", "raw_judgment", "model", "evaluated_at",
	"folded", "fold_organization_id", "fold_developer", "fold_date", "fold_eligible", "fold_score",
	"fold_severity_key", "fold_component_key",
}

func scanEvaluation(row interface{ Scan(...any) error }) (*schema.Evaluation, error) {
	var e schema.Evaluation
	var componentID, classifiedID, severityID sql.NullInt64
	var raw string
	var evaluatedAt dbTime
	if err := row.Scan(&e.ID, &e.ChangeID, &e.RuleSetID, &e.BatchID, &componentID, &e.ComponentKey, &classifiedID,
		&severityID, &e.SeverityKey, &e.BasePoints, &e.Multiplier,
		&e.Eligibility.Issue, &e.Eligibility.FixImplementation, &e.Eligibility.PRLinked, &e.Eligibility.Tests,
		&e.IsEligible, &e.FinalScore, &e.JustificationComp, &e.JustificationSeverity, &e.ImpactSummary,
		&e.EligibilityNotes, &e.ReviewNotes, &raw, &e.Model, &evaluatedAt); err != nil {
		return nil, err
	}
	e.ComponentID = scanNullInt64(componentID)
	e.ClassifiedComponentID = scanNullInt64(classifiedID)
	e.SeverityID = scanNullInt64(severityID)
	if raw != "" {
		e.RawJudgment = json.RawMessage(raw)
	}
	e.EvaluatedAt = evaluatedAt.Time
	return &e, nil
}

// foldState is the contribution last folded into the daily aggregates for an evaluation.
type foldState struct {
	folded       bool
	contribution schema.Contribution
}

// RecordEvaluation upserts the evaluation of a change under a rule set and folds its
// contribution into the developer's daily aggregate in the same transaction.
//
// The contribution already folded for the row is stored alongside it. Recording an
// identical contribution again leaves the aggregate untouched; a different one
// reverts the old contribution before applying the new one.
func (s *StoreImpl) RecordEvaluation(ctx context.Context, eval *schema.Evaluation, contribution schema.Contribution) (int64, error) {
	if eval.EvaluatedAt.IsZero() {
		eval.EvaluatedAt = s.now()
	}
	now := s.now()

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// An unfolded placeholder gives the row lock below a row to hold on the
		// first write, so concurrent writers of one evaluation fold in turn.
		if err := s.upsertEvaluation(ctx, tx, eval, contribution, false, nil); err != nil {
			return err
		}
		previous, err := s.lockFoldState(ctx, tx, eval.ChangeID, eval.RuleSetID)
		if err != nil {
			return err
		}

		if err := s.upsertEvaluation(ctx, tx, eval, contribution, true, evaluationWriteColumns[2:]); err != nil {
			return err
		}

		if !previous.folded || previous.contribution != contribution {
			if previous.folded {
				if err := s.foldStat(ctx, tx, previous.contribution, now, agg.Revert); err != nil {
					return err
				}
			}
			if err := s.foldStat(ctx, tx, contribution, now, agg.Apply); err != nil {
				return err
			}
		}

		row, err := queryRowBuilder(ctx, tx, s.sb.Select("id").
			From(evaluationsTable).
			Where(sq.Eq{"change_id": eval.ChangeID, "rule_set_id": eval.RuleSetID}))
		if err != nil {
			return err
		}
		return row.Scan(&id)
	})
	if err != nil {
		return 0, err
	}
	eval.ID = id
	return id, nil
}

// lockFoldState reads and locks the fold columns of an evaluation.
func (s *StoreImpl) lockFoldState(ctx context.Context, tx *sql.Tx, changeID, ruleSetID int64) (foldState, error) {
	row, err := queryRowBuilder(ctx, tx, s.sb.
		Select("folded", "fold_organization_id", "fold_developer", "fold_date", "fold_eligible",
			"fold_score", "fold_severity_key", "fold_component_key").
		From(evaluationsTable).
		Where(sq.Eq{"change_id": changeID, "rule_set_id": ruleSetID}).
		Suffix(forUpdateSuffix(s.backend)))
	if err != nil {
		return foldState{}, err
	}

	var state foldState
	c := &state.contribution
	err = row.Scan(&state.folded, &c.OrganizationID, &c.DeveloperLogin, &c.StatDate, &c.IsEligible,
		&c.Score, &c.SeverityKey, &c.ComponentKey)
	if errors.Is(err, sql.ErrNoRows) {
		return foldState{}, nil
	}
	if err != nil {
		return foldState{}, fmt.Errorf("failed to read evaluation fold state: %w", err)
	}
	return state, nil
}

// upsertEvaluation writes the evaluation row. With no updateCols an existing row
// is left as it is.
func (s *StoreImpl) upsertEvaluation(ctx context.Context, tx *sql.Tx, eval *schema.Evaluation, c schema.Contribution,
	folded bool, updateCols []string,
) error {
	raw := ""
	if len(eval.RawJudgment) > 0 {
		raw = string(eval.RawJudgment)
	}

	_, err := execBuilder(ctx, tx, s.sb.Insert(evaluationsTable).
		Columns(evaluationWriteColumns...).
		Values(eval.ChangeID, eval.RuleSetID, eval.BatchID, nullInt64(eval.ComponentID), eval.ComponentKey,
			nullInt64(eval.ClassifiedComponentID), nullInt64(eval.SeverityID), eval.SeverityKey,
			eval.BasePoints, eval.Multiplier,
			eval.Eligibility.Issue, eval.Eligibility.FixImplementation, eval.Eligibility.PRLinked, eval.Eligibility.Tests,
			eval.IsEligible, eval.FinalScore, eval.JustificationComp, eval.JustificationSeverity, eval.ImpactSummary,
			eval.EligibilityNotes, eval.ReviewNotes, raw, eval.Model, formatTime(eval.EvaluatedAt, s.backend),
			folded, c.OrganizationID, c.DeveloperLogin, c.StatDate, c.IsEligible, c.Score,
			c.SeverityKey, c.ComponentKey).
		Suffix(upsertSuffix(s.backend, []string{"change_id", "rule_set_id"}, updateCols)))
	if err != nil {
		return fmt.Errorf("failed to upsert evaluation for change %d: %w", eval.ChangeID, err)
	}
	return nil
}

// foldStat applies fn to the daily stat row of c under a row lock.
func (s *StoreImpl) foldStat(ctx context.Context, tx *sql.Tx, c schema.Contribution, at time.Time,
	fn func(*schema.DeveloperDailyStat, schema.Contribution, time.Time),
) error {
	_, err := execBuilder(ctx, tx, s.sb.Insert(dailyStatsTable).
		Columns("organization_id", "developer_login", "stat_date", "total_score", "pr_count",
			"p0_count", "p1_count", "p2_count", "p3_count", "component_scores", "updated_at").
		Values(c.OrganizationID, c.DeveloperLogin, c.StatDate, 0, 0, 0, 0, 0, 0, "{}", formatTime(at, s.backend)).
		Suffix(upsertSuffix(s.backend, []string{"organization_id", "developer_login", "stat_date"}, nil)))
	if err != nil {
		return fmt.Errorf("failed to create daily stat: %w", err)
	}

	stat, err := s.getDailyStat(ctx, tx, c.OrganizationID, c.DeveloperLogin, c.StatDate, true)
	if err != nil {
		return err
	}

	fn(stat, c, at)

	scores, err := json.Marshal(stat.ComponentScores)
	if err != nil {
		return fmt.Errorf("failed to encode component scores: %w", err)
	}
	_, err = execBuilder(ctx, tx, s.sb.Update(dailyStatsTable).
		SetMap(map[string]any{
			"total_score":      stat.TotalScore,
			"pr_count":         stat.PRCount,
			"p0_count":         stat.P0Count,
			"p1_count":         stat.P1Count,
			"p2_count":         stat.P2Count,
			"p3_count":         stat.P3Count,
			"component_scores": string(scores),
			"updated_at":       formatTime(stat.UpdatedAt, s.backend),
		}).
		Where(sq.Eq{"organization_id": c.OrganizationID, "developer_login": c.DeveloperLogin, "stat_date": c.StatDate}))
	if err != nil {
		return fmt.Errorf("failed to update daily stat: %w", err)
	}
	return nil
}

// GetEvaluation returns the evaluation of a change under a rule set.
func (s *StoreImpl) GetEvaluation(ctx context.Context, changeID, ruleSetID int64) (*schema.Evaluation, error) {
	row, err := queryRowBuilder(ctx, s.db, s.sb.Select(evaluationColumns...).
		From(evaluationsTable).
		Where(sq.Eq{"change_id": changeID, "rule_set_id": ruleSetID}))
	if err != nil {
		return nil, err
	}
	e, err := scanEvaluation(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("evaluation of change %d under rule set %d", changeID, ruleSetID))
	}
	return e, nil
}

// ListEvaluations returns the organization's evaluations of changes merged in
// [from, to), oldest merge first. A zero bound is open.
func (s *StoreImpl) ListEvaluations(ctx context.Context, orgID int64, from, to time.Time) ([]schema.Evaluation, error) {
	query := s.sb.Select(prefixed("e", evaluationColumns)...).
		From(evaluationsTable + " e").
		Join(changesTable + " c ON c.id = e.change_id").
		Where(sq.Eq{"c.organization_id": orgID}).
		OrderBy("c.merged_at", "e.id")
	if !from.IsZero() {
		query = query.Where(sq.GtOrEq{"c.merged_at": formatTime(from, s.backend)})
	}
	if !to.IsZero() {
		query = query.Where(sq.Lt{"c.merged_at": formatTime(to, s.backend)})
	}

	rows, err := queryBuilder(ctx, s.db, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var evaluations []schema.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		evaluations = append(evaluations, *e)
	}
	return evaluations, rows.Err()
}
