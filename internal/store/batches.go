package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
)

var batchColumns = []string{
	"id", "uid", "organization_id", "rule_set_id", "run_type", "status", "started_at", "completed_at",
	"error_message", "items_total", "items_evaluated", "items_failed", "created_at",
}

func scanBatch(row interface{ Scan(...any) error }) (*schema.EvaluationBatch, error) {
	var b schema.EvaluationBatch
	var runType, status string
	var startedAt, completedAt, createdAt dbTime
	if err := row.Scan(&b.ID, &b.UID, &b.OrganizationID, &b.RuleSetID, &runType, &status, &startedAt, &completedAt,
		&b.ErrorMessage, &b.ItemsTotal, &b.ItemsEvaluated, &b.ItemsFailed, &createdAt); err != nil {
		return nil, err
	}
	b.RunType = schema.RunType(runType)
	b.Status = schema.BatchStatus(status)
	b.StartedAt = startedAt.Ptr()
	b.CompletedAt = completedAt.Ptr()
	b.CreatedAt = createdAt.Time
	return &b, nil
}

// CreateBatch records a new batch in the pending state and sets batch.ID.
func (s *StoreImpl) CreateBatch(ctx context.Context, batch *schema.EvaluationBatch) (int64, error) {
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = s.now()
	}
	batch.Status = schema.BatchPending

	id, err := insertReturningID(ctx, s.db, s.backend, s.sb.Insert(batchesTable).
		Columns("uid", "organization_id", "rule_set_id", "run_type", "status", "error_message",
			"items_total", "items_evaluated", "items_failed", "created_at").
		Values(batch.UID, batch.OrganizationID, batch.RuleSetID, string(batch.RunType), string(batch.Status), "",
			0, 0, 0, formatTime(batch.CreatedAt, s.backend)))
	if err != nil {
		return 0, fmt.Errorf("failed to create batch: %w", err)
	}
	batch.ID = id
	return id, nil
}

// StartBatch moves a pending batch to running.
func (s *StoreImpl) StartBatch(ctx context.Context, batchID int64, total int, at time.Time) error {
	return s.transitionBatch(ctx, batchID, []schema.BatchStatus{schema.BatchPending}, map[string]any{
		"status":      string(schema.BatchRunning),
		"started_at":  formatTime(at, s.backend),
		"items_total": total,
	})
}

// CompleteBatch moves a running batch to completed.
func (s *StoreImpl) CompleteBatch(ctx context.Context, batchID int64, evaluated, failed int, at time.Time) error {
	return s.transitionBatch(ctx, batchID, []schema.BatchStatus{schema.BatchRunning}, map[string]any{
		"status":          string(schema.BatchCompleted),
		"completed_at":    formatTime(at, s.backend),
		"items_evaluated": evaluated,
		"items_failed":    failed,
	})
}

// FailBatch moves a pending or running batch to failed with a captured message.
func (s *StoreImpl) FailBatch(ctx context.Context, batchID int64, message string, evaluated, failed int, at time.Time) error {
	return s.transitionBatch(ctx, batchID, []schema.BatchStatus{schema.BatchPending, schema.BatchRunning}, map[string]any{
		"status":          string(schema.BatchFailed),
		"completed_at":    formatTime(at, s.backend),
		"error_message":   message,
		"items_evaluated": evaluated,
		"items_failed":    failed,
	})
}

// transitionBatch applies set only when the batch is in one of the from states.
// Terminal batches are never modified.
func (s *StoreImpl) transitionBatch(ctx context.Context, batchID int64, from []schema.BatchStatus, set map[string]any) error {
	fromValues := make([]string, len(from))
	for i, st := range from {
		fromValues[i] = string(st)
	}

	res, err := execBuilder(ctx, s.db, s.sb.Update(batchesTable).
		SetMap(set).
		Where(sq.Eq{"id": batchID, "status": fromValues}))
	if err != nil {
		return fmt.Errorf("failed to update batch %d: %w", batchID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	current, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if current.Status.IsTerminal() {
		return fmt.Errorf("batch %d is %s: %w", batchID, current.Status, contract.ErrBatchTerminal)
	}
	return fmt.Errorf("batch %d cannot move to %v from %s", batchID, set["status"], current.Status)
}

// GetBatch returns a batch by id.
func (s *StoreImpl) GetBatch(ctx context.Context, batchID int64) (*schema.EvaluationBatch, error) {
	row, err := queryRowBuilder(ctx, s.db, s.sb.Select(batchColumns...).
		From(batchesTable).
		Where(sq.Eq{"id": batchID}))
	if err != nil {
		return nil, err
	}
	b, err := scanBatch(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("batch %d", batchID))
	}
	return b, nil
}

// ListBatches returns the organization's most recent batches, newest first.
func (s *StoreImpl) ListBatches(ctx context.Context, orgID int64, limit int) ([]schema.EvaluationBatch, error) {
	query := s.sb.Select(batchColumns...).
		From(batchesTable).
		Where(sq.Eq{"organization_id": orgID}).
		OrderBy("id DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	rows, err := queryBuilder(ctx, s.db, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []schema.EvaluationBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}
