package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/internal/github"
	"github.com/huangsam/prscore/internal/judge"
	"github.com/huangsam/prscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func forChange(number int) any {
	return mock.MatchedBy(func(user string) bool {
		return strings.Contains(user, fmt.Sprintf("Title: Change %d\n", number))
	})
}

func defaultRun() RunRequest {
	return RunRequest{OrganizationID: testOrg, LookbackDays: 30}
}

// seedThree stores three pending changes merged on consecutive days.
func seedThree(t *testing.T, s contract.Store) []*schema.Change {
	base := time.Now().UTC().Add(-72 * time.Hour)
	return []*schema.Change{
		seedPendingChange(t, s, 1, "alice", base),
		seedPendingChange(t, s, 2, "alice", base.Add(24*time.Hour)),
		seedPendingChange(t, s, 3, "bob", base.Add(48*time.Hour)),
	}
}

func TestRunAbortsOnFirstFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rs := seedPipelineCatalog(t, s)
	changes := seedThree(t, s)

	j := &judge.MockJudge{}
	j.On("Judge", mock.Anything, mock.Anything, forChange(1)).Return(validJudgment("AUTH", "P1"), nil)
	j.On("Judge", mock.Anything, mock.Anything, forChange(2)).
		Return(nil, fmt.Errorf("%w: missing or blank fields severityKey", contract.ErrInvalidJudgment))

	o := NewOrchestrator(s, j, zap.NewNop(), DefaultOptions())
	report, err := o.Run(ctx, defaultRun())

	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrInvalidJudgment)
	require.NotNil(t, report)

	assert.Equal(t, schema.BatchFailed, report.Batch.Status)
	assert.Equal(t, 3, report.Batch.ItemsTotal)
	assert.Equal(t, 1, report.Batch.ItemsEvaluated)
	assert.Equal(t, 1, report.Batch.ItemsFailed)
	assert.Contains(t, report.Batch.ErrorMessage, "acme/api#2")
	assert.NotNil(t, report.Batch.CompletedAt)

	require.Len(t, report.Items, 3)
	assert.Equal(t, schema.ItemEvaluated, report.Items[0].Status)
	assert.Equal(t, 75.0, report.Items[0].FinalScore)
	assert.Equal(t, schema.ItemFailed, report.Items[1].Status)
	assert.Contains(t, report.Items[1].Error, "invalid judgment")
	assert.Equal(t, schema.ItemSkipped, report.Items[2].Status)
	j.AssertNumberOfCalls(t, "Judge", 2)

	// Item 1 stays persisted with its aggregate; item 3 was never touched.
	eval, err := s.GetEvaluation(ctx, changes[0].ID, rs.ID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, eval.FinalScore)
	assert.Equal(t, "AUTH", eval.ComponentKey)
	assert.Equal(t, "P1", eval.SeverityKey)
	assert.Equal(t, report.Batch.ID, eval.BatchID)
	require.NotNil(t, eval.ClassifiedComponentID)

	_, err = s.GetEvaluation(ctx, changes[1].ID, rs.ID)
	assert.ErrorIs(t, err, contract.ErrNotFound)
	_, err = s.GetEvaluation(ctx, changes[2].ID, rs.ID)
	assert.ErrorIs(t, err, contract.ErrNotFound)

	matches, err := s.ListChangeComponents(ctx, changes[2].ID, rs.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)

	stat, err := s.GetDailyStat(ctx, testOrg, "alice", schema.StatDate(changes[0].MergedAt))
	require.NoError(t, err)
	assert.Equal(t, 75.0, stat.TotalScore)
	assert.Equal(t, 1, stat.PRCount)
	assert.Equal(t, 1, stat.P1Count)
	assert.Equal(t, 75.0, stat.ComponentScores["AUTH"])
}

func TestRunCompletesAndRerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rs := seedPipelineCatalog(t, s)
	changes := seedThree(t, s)

	j := &judge.MockJudge{}
	j.On("Judge", mock.Anything, mock.Anything, forChange(1)).Return(validJudgment("AUTH", "P1"), nil)
	j.On("Judge", mock.Anything, mock.Anything, forChange(2)).Return(validJudgment("UI", "P2"), nil)
	j.On("Judge", mock.Anything, mock.Anything, forChange(3)).Return(validJudgment("NOT-A-COMPONENT", "P0"), nil)

	o := NewOrchestrator(s, j, zap.NewNop(), DefaultOptions())
	report, err := o.Run(ctx, defaultRun())
	require.NoError(t, err)

	assert.Equal(t, schema.BatchCompleted, report.Batch.Status)
	assert.Equal(t, 3, report.Batch.ItemsEvaluated)
	assert.Equal(t, 0, report.Batch.ItemsFailed)
	assert.Equal(t, rs.ID, report.Batch.RuleSetID)
	assert.Equal(t, schema.ManualRun, report.Batch.RunType)
	assert.NotEmpty(t, report.Batch.UID)

	third, err := s.GetEvaluation(ctx, changes[2].ID, rs.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.OtherComponentKey, third.ComponentKey, "unknown component falls back to OTHER")
	assert.Equal(t, 100.0, third.FinalScore)

	day := schema.StatDate(changes[0].MergedAt)
	before, err := s.GetDailyStat(ctx, testOrg, "alice", day)
	require.NoError(t, err)

	rerun, err := o.Run(ctx, defaultRun())
	require.NoError(t, err)
	assert.Equal(t, schema.BatchCompleted, rerun.Batch.Status)
	assert.Equal(t, 0, rerun.Batch.ItemsTotal)
	assert.Empty(t, rerun.Items)
	j.AssertNumberOfCalls(t, "Judge", 3)

	after, err := s.GetDailyStat(ctx, testOrg, "alice", day)
	require.NoError(t, err)
	assert.Equal(t, before.TotalScore, after.TotalScore)
	assert.Equal(t, before.PRCount, after.PRCount)

	batches, err := s.ListBatches(ctx, testOrg, 10)
	require.NoError(t, err)
	assert.Len(t, batches, 2)
}

func TestRunKeepsJudgedSeverityKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rs := seedPipelineCatalog(t, s)
	change := seedPendingChange(t, s, 1, "carol", time.Now().UTC().Add(-24*time.Hour))

	j := &judge.MockJudge{}
	j.On("Judge", mock.Anything, mock.Anything, mock.Anything).Return(validJudgment("NOPE", "SEV9"), nil)

	report, err := NewOrchestrator(s, j, zap.NewNop(), DefaultOptions()).Run(ctx, defaultRun())
	require.NoError(t, err)
	assert.Equal(t, schema.BatchCompleted, report.Batch.Status)

	eval, err := s.GetEvaluation(ctx, change.ID, rs.ID)
	require.NoError(t, err)
	assert.Equal(t, "SEV9", eval.SeverityKey)
	assert.Nil(t, eval.SeverityID)
	assert.Equal(t, schema.OtherComponentKey, eval.ComponentKey)
	assert.Equal(t, 0, eval.BasePoints)
	assert.Equal(t, 0.0, eval.FinalScore)

	stat, err := s.GetDailyStat(ctx, testOrg, "carol", schema.StatDate(change.MergedAt))
	require.NoError(t, err)
	assert.Equal(t, 1, stat.PRCount)
	assert.Equal(t, 0.0, stat.TotalScore)
	assert.Zero(t, stat.P0Count+stat.P1Count+stat.P2Count+stat.P3Count)
	assert.NotContains(t, stat.ComponentScores, "NOPE")
}

func TestRunFailureThreshold(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedPipelineCatalog(t, s)
	seedThree(t, s)

	j := &judge.MockJudge{}
	j.On("Judge", mock.Anything, mock.Anything, forChange(1)).Return(validJudgment("AUTH", "P1"), nil)
	j.On("Judge", mock.Anything, mock.Anything, forChange(2)).Return(nil, errors.New("upstream unavailable"))
	j.On("Judge", mock.Anything, mock.Anything, forChange(3)).Return(validJudgment("UI", "P3"), nil)

	opts := DefaultOptions()
	opts.MaxItemFailures = 1
	report, err := NewOrchestrator(s, j, zap.NewNop(), opts).Run(ctx, defaultRun())
	require.NoError(t, err)

	assert.Equal(t, schema.BatchCompleted, report.Batch.Status)
	assert.Equal(t, 2, report.Batch.ItemsEvaluated)
	assert.Equal(t, 1, report.Batch.ItemsFailed)
	assert.Equal(t, schema.ItemFailed, report.Items[1].Status)
	assert.Equal(t, schema.ItemEvaluated, report.Items[2].Status)
}

func TestRunConcurrentWorkers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedPipelineCatalog(t, s)
	base := time.Now().UTC().Add(-48 * time.Hour)
	for i := 1; i <= 6; i++ {
		seedPendingChange(t, s, i, "alice", base)
	}

	j := &judge.MockJudge{}
	j.On("Judge", mock.Anything, mock.Anything, mock.Anything).Return(validJudgment("AUTH", "P2"), nil)

	opts := DefaultOptions()
	opts.Workers = 4
	report, err := NewOrchestrator(s, j, zap.NewNop(), opts).Run(ctx, defaultRun())
	require.NoError(t, err)
	assert.Equal(t, 6, report.Batch.ItemsEvaluated)

	stat, err := s.GetDailyStat(ctx, testOrg, "alice", schema.StatDate(base))
	require.NoError(t, err)
	assert.Equal(t, 6, stat.PRCount)
	assert.Equal(t, 180.0, stat.TotalScore)
	assert.Equal(t, 6, stat.P2Count)
}

func TestRunConfigurationErrors(t *testing.T) {
	ctx := context.Background()
	j := &judge.MockJudge{}

	t.Run("no rule set", func(t *testing.T) {
		s := newTestStore(t)
		report, err := NewOrchestrator(s, j, zap.NewNop(), DefaultOptions()).Run(ctx, defaultRun())
		assert.ErrorIs(t, err, contract.ErrNoActiveRuleSet)
		assert.Nil(t, report)

		batches, err := s.ListBatches(ctx, testOrg, 10)
		require.NoError(t, err)
		assert.Empty(t, batches)
	})

	t.Run("invalid template override", func(t *testing.T) {
		s := newTestStore(t)
		seedPipelineCatalog(t, s)
		opts := DefaultOptions()
		opts.TemplateOverride = "Evaluate {{PR_TITLE}}"
		_, err := NewOrchestrator(s, j, zap.NewNop(), opts).Run(ctx, defaultRun())
		assert.ErrorIs(t, err, contract.ErrInvalidTemplate)

		batches, err := s.ListBatches(ctx, testOrg, 10)
		require.NoError(t, err)
		assert.Empty(t, batches)
	})

	t.Run("bad request", func(t *testing.T) {
		s := newTestStore(t)
		_, err := NewOrchestrator(s, j, nil, DefaultOptions()).Run(ctx, RunRequest{OrganizationID: testOrg})
		assert.ErrorContains(t, err, "lookback days must be positive")

		_, err = NewOrchestrator(s, j, nil, DefaultOptions()).Run(ctx, RunRequest{OrganizationID: testOrg, LookbackDays: 1, RunType: "hourly"})
		assert.ErrorContains(t, err, "invalid run type")
	})

	j.AssertNotCalled(t, "Judge", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunCancelledMarksBatchFailed(t *testing.T) {
	s := newTestStore(t)
	seedPipelineCatalog(t, s)
	seedThree(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := &judge.MockJudge{}
	j.On("Judge", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(validJudgment("AUTH", "P1"), nil)

	report, err := NewOrchestrator(s, j, zap.NewNop(), DefaultOptions()).Run(ctx, defaultRun())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, schema.BatchFailed, report.Batch.Status)
	assert.Contains(t, report.Batch.ErrorMessage, "acme/api#1", "the item failure is kept as the cause")
	assert.Equal(t, schema.ItemSkipped, report.Items[2].Status)
	j.AssertNumberOfCalls(t, "Judge", 1)
}

func TestRunCancelledBetweenItems(t *testing.T) {
	s := newTestStore(t)
	seedPipelineCatalog(t, s)
	seedThree(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := &judge.MockJudge{}
	j.On("Judge", mock.Anything, mock.Anything, mock.Anything).Return(validJudgment("AUTH", "P1"), nil)
	commenter := &github.MockChangeSource{}
	commenter.On("CreateComment", mock.Anything, "acme/api", 1, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil)

	opts := DefaultOptions()
	opts.Commenter = commenter
	opts.CommentOnPR = true
	report, err := NewOrchestrator(s, j, zap.NewNop(), opts).Run(ctx, defaultRun())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, schema.BatchFailed, report.Batch.Status)
	assert.Contains(t, report.Batch.ErrorMessage, "batch interrupted")
	assert.Equal(t, schema.ItemEvaluated, report.Items[0].Status)
	assert.Equal(t, schema.ItemSkipped, report.Items[1].Status)
	assert.Equal(t, schema.ItemSkipped, report.Items[2].Status)
}

func TestRunCancelledAfterLastItemCompletes(t *testing.T) {
	s := newTestStore(t)
	seedPipelineCatalog(t, s)
	seedPendingChange(t, s, 1, "alice", time.Now().UTC().Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := &judge.MockJudge{}
	j.On("Judge", mock.Anything, mock.Anything, mock.Anything).Return(validJudgment("AUTH", "P1"), nil)
	commenter := &github.MockChangeSource{}
	commenter.On("CreateComment", mock.Anything, "acme/api", 1, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil)

	opts := DefaultOptions()
	opts.Commenter = commenter
	opts.CommentOnPR = true
	report, err := NewOrchestrator(s, j, zap.NewNop(), opts).Run(ctx, defaultRun())
	require.NoError(t, err)
	assert.Equal(t, schema.BatchCompleted, report.Batch.Status)
	assert.Empty(t, report.Batch.ErrorMessage)
	assert.Equal(t, 1, report.Batch.ItemsEvaluated)
}

func TestRunCommentFailureDoesNotFailItem(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedPipelineCatalog(t, s)
	seedPendingChange(t, s, 1, "alice", time.Now().UTC().Add(-time.Hour))

	j := &judge.MockJudge{}
	j.On("Judge", mock.Anything, mock.Anything, mock.Anything).Return(validJudgment("AUTH", "P1"), nil)
	commenter := &github.MockChangeSource{}
	commenter.On("CreateComment", mock.Anything, "acme/api", 1, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "| AUTH | P1 | true | 75.00 |")
	})).Return(errors.New("forbidden"))

	opts := DefaultOptions()
	opts.Commenter = commenter
	opts.CommentOnPR = true
	report, err := NewOrchestrator(s, j, zap.NewNop(), opts).Run(ctx, defaultRun())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Batch.ItemsEvaluated)
	commenter.AssertExpectations(t)
}

func TestEvaluationComment(t *testing.T) {
	body := EvaluationComment(&schema.Evaluation{ComponentKey: "UI", FinalScore: 0, ImpactSummary: "Minor fix"})
	assert.Contains(t, body, "| UI | unknown | false | 0.00 |")
	assert.Contains(t, body, "Minor fix")
}
