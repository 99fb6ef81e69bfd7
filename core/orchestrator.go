// Package core runs the evaluation pipeline: it classifies merged changes, asks the
// judge for a verdict, scores it and keeps batch bookkeeping consistent.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/prscore/core/agg"
	"github.com/huangsam/prscore/internal/classify"
	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/internal/metrics"
	"github.com/huangsam/prscore/internal/prompt"
	"github.com/huangsam/prscore/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options tune a batch run.
type Options struct {
	Workers          int    // Items processed concurrently
	MaxItemFailures  int    // Failures tolerated before the batch aborts; 0 aborts on the first
	Model            string // Recorded when the judge does not report one
	MaxPromptTokens  int    // 0 disables truncation
	TemplateOverride string
	DefaultTemplate  string // Used when the organization stores no template
	TokenCounter     contract.TokenCounter
	Commenter        contract.Commenter
	CommentOnPR      bool
}

// DefaultOptions returns the options used by the CLI when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Workers:         1,
		MaxPromptTokens: 12000,
		DefaultTemplate: prompt.DefaultTemplate,
	}
}

// RunRequest selects what a batch evaluates.
type RunRequest struct {
	OrganizationID int64
	RuleSetID      int64 // 0 selects the active rule set
	LookbackDays   int
	RunType        schema.RunType
}

// Orchestrator drives evaluation batches through pending, running and a terminal state.
type Orchestrator struct {
	store  contract.Store
	judge  contract.Judge
	logger *zap.Logger
	opts   Options
	now    func() time.Time
}

// NewOrchestrator creates an orchestrator. A nil logger discards output.
func NewOrchestrator(store contract.Store, judge contract.Judge, logger *zap.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxItemFailures < 0 {
		opts.MaxItemFailures = 0
	}
	return &Orchestrator{store: store, judge: judge, logger: logger, opts: opts, now: time.Now}
}

// runState is the shared tally of one batch.
type runState struct {
	mu        sync.Mutex
	items     []schema.BatchItemResult
	evaluated int
	failed    int
	abortErr  error
}

// skipped counts the items that never ran.
func (r *runState) skipped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.items {
		if item.Status == schema.ItemSkipped {
			n++
		}
	}
	return n
}

// Run evaluates every pending change of the organization merged within the lookback
// window. Configuration problems are returned before any batch is created. Once a
// batch exists, the returned report reflects its persisted terminal state and the
// error is non-nil when the batch failed.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*schema.BatchReport, error) {
	start := o.now()
	if req.LookbackDays <= 0 {
		return nil, fmt.Errorf("lookback days must be positive, got %d", req.LookbackDays)
	}
	if req.RunType == "" {
		req.RunType = schema.ManualRun
	}
	if _, ok := schema.ValidRunTypes[req.RunType]; !ok {
		return nil, fmt.Errorf("invalid run type %q", req.RunType)
	}

	snapshot, err := LoadCatalog(ctx, o.store, req.OrganizationID, req.RuleSetID, o.opts.TemplateOverride, o.opts.DefaultTemplate)
	if err != nil {
		return nil, err
	}
	builder, err := prompt.NewBuilder(snapshot.Template, o.opts.TokenCounter, o.opts.MaxPromptTokens)
	if err != nil {
		return nil, err
	}
	classifier := classify.NewClassifier(snapshot.Components, snapshot.Rules, o.logger)

	batch := &schema.EvaluationBatch{
		UID:            uuid.NewString(),
		OrganizationID: req.OrganizationID,
		RuleSetID:      snapshot.RuleSet.ID,
		RunType:        req.RunType,
		CreatedAt:      start,
	}
	batchID, err := o.store.CreateBatch(ctx, batch)
	if err != nil {
		return nil, err
	}
	logger := o.logger.With(zap.Int64("batch_id", batchID), zap.String("batch_uid", batch.UID))

	since := start.AddDate(0, 0, -req.LookbackDays)
	changes, err := o.store.ListPendingChanges(ctx, req.OrganizationID, snapshot.RuleSet.ID, since)
	if err != nil {
		cause := fmt.Errorf("failed to select pending changes: %w", err)
		return o.finish(ctx, logger, batch, start, nil, 0, 0, cause)
	}
	if err := o.store.StartBatch(ctx, batchID, len(changes), o.now()); err != nil {
		return o.finish(ctx, logger, batch, start, nil, 0, 0, fmt.Errorf("failed to start batch: %w", err))
	}
	logger.Info("batch started",
		zap.Int("items", len(changes)),
		zap.Int64("rule_set_id", snapshot.RuleSet.ID),
		zap.Time("since", since))

	state := &runState{items: make([]schema.BatchItemResult, len(changes))}
	for i, c := range changes {
		state.items[i] = schema.BatchItemResult{
			ChangeID:   c.ID,
			Repository: c.Repository,
			Number:     c.Number,
			Status:     schema.ItemSkipped,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i := range changes {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			itemStart := o.now()
			score, err := o.processItem(ctx, logger, batchID, snapshot, classifier, builder, &changes[i])
			return o.settleItem(logger, state, i, score, err, o.now().Sub(itemStart))
		})
	}
	_ = g.Wait()

	cause := state.abortErr
	if ctxErr := ctx.Err(); ctxErr != nil && cause == nil && state.skipped() > 0 {
		cause = fmt.Errorf("batch interrupted: %w", ctxErr)
	}
	return o.finish(ctx, logger, batch, start, state.items, state.evaluated, state.failed, cause)
}

// settleItem records one item outcome and returns an error once the failure
// threshold is exceeded, which stops the remaining items.
func (o *Orchestrator) settleItem(logger *zap.Logger, state *runState, i int, score float64, err error, d time.Duration) error {
	state.mu.Lock()
	defer state.mu.Unlock()

	item := &state.items[i]
	if err != nil {
		item.Status = schema.ItemFailed
		item.Error = err.Error()
		state.failed++
		metrics.ObserveItem(string(schema.ItemFailed), d)
		logger.Warn("item failed",
			zap.Int64("change_id", item.ChangeID),
			zap.String("repository", item.Repository),
			zap.Int("number", item.Number),
			zap.Error(err))
		if state.failed > o.opts.MaxItemFailures {
			state.abortErr = fmt.Errorf("evaluation of %s#%d failed: %w", item.Repository, item.Number, err)
			return state.abortErr
		}
		return nil
	}

	item.Status = schema.ItemEvaluated
	item.FinalScore = score
	state.evaluated++
	metrics.ObserveItem(string(schema.ItemEvaluated), d)
	return nil
}

// processItem runs one change through the pipeline and returns its final score.
func (o *Orchestrator) processItem(ctx context.Context, logger *zap.Logger, batchID int64, snapshot *schema.CatalogSnapshot,
	classifier *classify.Classifier, builder *prompt.Builder, change *schema.Change,
) (float64, error) {
	ruleSetID := snapshot.RuleSet.ID

	files, err := o.store.ListChangedFiles(ctx, change.ID)
	if err != nil {
		return 0, err
	}
	classification := classifier.Classify(files)
	matches := classify.WithChange(classification.Matches, change.ID, ruleSetID)
	if err := o.store.ReplaceChangeComponents(ctx, change.ID, ruleSetID, matches); err != nil {
		return 0, err
	}

	issues, err := o.store.ListLinkedIssues(ctx, change.ID)
	if err != nil {
		return 0, err
	}
	rendered := builder.Build(prompt.Input{
		Change:         *change,
		Classification: classification,
		Components:     snapshot.Components,
		Severities:     snapshot.Severities,
		Issues:         issues,
		Files:          files,
	})
	metrics.ObservePromptTokens(rendered.Tokens)
	if rendered.Truncated {
		logger.Debug("prompt truncated", zap.Int64("change_id", change.ID), zap.Int("tokens", rendered.Tokens))
	}

	result, err := o.judge.Judge(ctx, rendered.System, rendered.User)
	if err != nil {
		if errors.Is(err, contract.ErrInvalidJudgment) {
			metrics.ObserveJudgment(metrics.JudgmentInvalid)
		} else {
			metrics.ObserveJudgment(metrics.JudgmentError)
		}
		return 0, err
	}
	if result.Cached {
		metrics.ObserveJudgment(metrics.JudgmentCached)
	} else {
		metrics.ObserveJudgment(metrics.JudgmentOK)
	}

	score := ScoreJudgment(result.Judgment, snapshot.Components, snapshot.Severities)
	eval := o.newEvaluation(batchID, ruleSetID, change, classification, result, score)
	if _, err := o.store.RecordEvaluation(ctx, eval, agg.ContributionFor(eval, change)); err != nil {
		return 0, err
	}
	metrics.ObserveScore(eval.ComponentKey, eval.FinalScore)
	logger.Debug("item evaluated",
		zap.Int64("change_id", change.ID),
		zap.String("component", eval.ComponentKey),
		zap.String("severity", eval.SeverityKey),
		zap.Float64("score", eval.FinalScore))

	if o.opts.CommentOnPR && o.opts.Commenter != nil {
		if err := o.opts.Commenter.CreateComment(ctx, change.Repository, change.Number, EvaluationComment(eval)); err != nil {
			logger.Warn("failed to post evaluation comment",
				zap.String("repository", change.Repository),
				zap.Int("number", change.Number),
				zap.Error(err))
		}
	}
	return eval.FinalScore, nil
}

func (o *Orchestrator) newEvaluation(batchID, ruleSetID int64, change *schema.Change, c schema.Classification,
	result *schema.JudgmentResult, score schema.ScoreResult,
) *schema.Evaluation {
	j := result.Judgment
	eval := &schema.Evaluation{
		ChangeID:              change.ID,
		RuleSetID:             ruleSetID,
		BatchID:               batchID,
		ComponentKey:          j.PrimaryComponentKey,
		SeverityKey:           j.SeverityKey,
		BasePoints:            score.BasePoints,
		Multiplier:            score.Multiplier,
		Eligibility:           j.Eligibility,
		IsEligible:            score.IsEligible,
		FinalScore:            score.FinalScore,
		JustificationComp:     j.JustificationComponent,
		JustificationSeverity: j.JustificationSeverity,
		ImpactSummary:         j.ImpactSummary,
		EligibilityNotes:      j.EligibilityNotes,
		ReviewNotes:           j.ReviewNotes,
		RawJudgment:           result.Raw,
		Model:                 result.Model,
		EvaluatedAt:           o.now(),
	}
	if eval.Model == "" {
		eval.Model = o.opts.Model
	}
	if score.Component != nil {
		id := score.Component.ID
		eval.ComponentID = &id
		eval.ComponentKey = score.Component.Key
	}
	if score.Severity != nil {
		id := score.Severity.ID
		eval.SeverityID = &id
		eval.SeverityKey = score.Severity.Key
	}
	if c.Primary != nil {
		id := c.Primary.ComponentID
		eval.ClassifiedComponentID = &id
	}
	return eval
}

// finish writes the terminal state. Status writes ignore cancellation so an
// interrupted run still ends up failed.
func (o *Orchestrator) finish(ctx context.Context, logger *zap.Logger, batch *schema.EvaluationBatch, start time.Time,
	items []schema.BatchItemResult, evaluated, failed int, cause error,
) (*schema.BatchReport, error) {
	writeCtx := context.WithoutCancel(ctx)
	at := o.now()

	status := schema.BatchCompleted
	var err error
	if cause != nil {
		status = schema.BatchFailed
		err = o.store.FailBatch(writeCtx, batch.ID, cause.Error(), evaluated, failed, at)
	} else {
		err = o.store.CompleteBatch(writeCtx, batch.ID, evaluated, failed, at)
	}
	if err != nil {
		logger.Error("failed to record batch state", zap.String("status", string(status)), zap.Error(err))
		if cause == nil {
			cause = err
		}
	}

	duration := at.Sub(start)
	metrics.ObserveBatch(string(status), string(batch.RunType), duration)

	report := &schema.BatchReport{Items: items, Duration: duration}
	if stored, getErr := o.store.GetBatch(writeCtx, batch.ID); getErr == nil {
		report.Batch = *stored
	} else {
		report.Batch = *batch
		report.Batch.Status = status
		report.Batch.ItemsEvaluated = evaluated
		report.Batch.ItemsFailed = failed
		if cause != nil {
			report.Batch.ErrorMessage = cause.Error()
		}
	}

	fields := []zap.Field{
		zap.String("status", string(status)),
		zap.Int("evaluated", evaluated),
		zap.Int("failed", failed),
		zap.Duration("duration", duration),
	}
	if cause != nil {
		logger.Error("batch failed", append(fields, zap.Error(cause))...)
		return report, fmt.Errorf("batch %d failed: %w", batch.ID, cause)
	}
	logger.Info("batch completed", fields...)
	return report, nil
}

// EvaluationComment renders the pull request comment for an evaluation.
func EvaluationComment(eval *schema.Evaluation) string {
	severity := eval.SeverityKey
	if severity == "" {
		severity = "unknown"
	}
	return fmt.Sprintf("### PR evaluation\n\n"+
		"| Component | Severity | Eligible | Score |\n|---|---|---|---|\n| %s | %s | %t | %.2f |\n\n%s\n",
		eval.ComponentKey, severity, eval.IsEligible, eval.FinalScore, eval.ImpactSummary)
}
