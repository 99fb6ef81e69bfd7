package store

import (
	"context"
	"time"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store for testing.
type MockStore struct {
	mock.Mock
}

var _ contract.Store = &MockStore{} // Compile-time check

// GetRuleSet implements the Store interface.
func (m *MockStore) GetRuleSet(ctx context.Context, orgID, ruleSetID int64) (*schema.RuleSet, error) {
	args := m.Called(ctx, orgID, ruleSetID)
	v, _ := args.Get(0).(*schema.RuleSet)
	return v, args.Error(1)
}

// GetActiveRuleSet implements the Store interface.
func (m *MockStore) GetActiveRuleSet(ctx context.Context, orgID int64) (*schema.RuleSet, error) {
	args := m.Called(ctx, orgID)
	v, _ := args.Get(0).(*schema.RuleSet)
	return v, args.Error(1)
}

// ListComponents implements the Store interface.
func (m *MockStore) ListComponents(ctx context.Context, orgID int64, activeOnly bool) ([]schema.Component, error) {
	args := m.Called(ctx, orgID, activeOnly)
	v, _ := args.Get(0).([]schema.Component)
	return v, args.Error(1)
}

// ListRules implements the Store interface.
func (m *MockStore) ListRules(ctx context.Context, ruleSetID int64) ([]schema.Rule, error) {
	args := m.Called(ctx, ruleSetID)
	v, _ := args.Get(0).([]schema.Rule)
	return v, args.Error(1)
}

// ListSeverities implements the Store interface.
func (m *MockStore) ListSeverities(ctx context.Context, orgID int64) ([]schema.Severity, error) {
	args := m.Called(ctx, orgID)
	v, _ := args.Get(0).([]schema.Severity)
	return v, args.Error(1)
}

// GetPromptTemplate implements the Store interface.
func (m *MockStore) GetPromptTemplate(ctx context.Context, orgID int64) (*schema.PromptTemplate, error) {
	args := m.Called(ctx, orgID)
	v, _ := args.Get(0).(*schema.PromptTemplate)
	return v, args.Error(1)
}

// ImportCatalog implements the Store interface.
func (m *MockStore) ImportCatalog(ctx context.Context, orgID int64, catalog schema.Catalog) (*schema.RuleSet, error) {
	args := m.Called(ctx, orgID, catalog)
	v, _ := args.Get(0).(*schema.RuleSet)
	return v, args.Error(1)
}

// UpsertChange implements the Store interface.
func (m *MockStore) UpsertChange(ctx context.Context, change *schema.Change) (int64, error) {
	args := m.Called(ctx, change)
	return args.Get(0).(int64), args.Error(1)
}

// GetChange implements the Store interface.
func (m *MockStore) GetChange(ctx context.Context, changeID int64) (*schema.Change, error) {
	args := m.Called(ctx, changeID)
	v, _ := args.Get(0).(*schema.Change)
	return v, args.Error(1)
}

// FindChange implements the Store interface.
func (m *MockStore) FindChange(ctx context.Context, orgID int64, repository string, number int) (*schema.Change, error) {
	args := m.Called(ctx, orgID, repository, number)
	v, _ := args.Get(0).(*schema.Change)
	return v, args.Error(1)
}

// ReplaceChangedFiles implements the Store interface.
func (m *MockStore) ReplaceChangedFiles(ctx context.Context, changeID int64, files []schema.ChangedFile) error {
	args := m.Called(ctx, changeID, files)
	return args.Error(0)
}

// ListChangedFiles implements the Store interface.
func (m *MockStore) ListChangedFiles(ctx context.Context, changeID int64) ([]schema.ChangedFile, error) {
	args := m.Called(ctx, changeID)
	v, _ := args.Get(0).([]schema.ChangedFile)
	return v, args.Error(1)
}

// UpsertIssue implements the Store interface.
func (m *MockStore) UpsertIssue(ctx context.Context, issue *schema.Issue) (int64, error) {
	args := m.Called(ctx, issue)
	return args.Get(0).(int64), args.Error(1)
}

// FindIssueIDs implements the Store interface.
func (m *MockStore) FindIssueIDs(ctx context.Context, orgID int64, repository string, numbers []int) (map[int]int64, error) {
	args := m.Called(ctx, orgID, repository, numbers)
	v, _ := args.Get(0).(map[int]int64)
	return v, args.Error(1)
}

// ReplaceIssueLinks implements the Store interface.
func (m *MockStore) ReplaceIssueLinks(ctx context.Context, changeID int64, issueIDs []int64) error {
	args := m.Called(ctx, changeID, issueIDs)
	return args.Error(0)
}

// ListLinkedIssues implements the Store interface.
func (m *MockStore) ListLinkedIssues(ctx context.Context, changeID int64) ([]schema.Issue, error) {
	args := m.Called(ctx, changeID)
	v, _ := args.Get(0).([]schema.Issue)
	return v, args.Error(1)
}

// ListPendingChanges implements the Store interface.
func (m *MockStore) ListPendingChanges(ctx context.Context, orgID, ruleSetID int64, since time.Time) ([]schema.Change, error) {
	args := m.Called(ctx, orgID, ruleSetID, since)
	v, _ := args.Get(0).([]schema.Change)
	return v, args.Error(1)
}

// ReplaceChangeComponents implements the Store interface.
func (m *MockStore) ReplaceChangeComponents(ctx context.Context, changeID, ruleSetID int64, matches []schema.ChangeComponent) error {
	args := m.Called(ctx, changeID, ruleSetID, matches)
	return args.Error(0)
}

// ListChangeComponents implements the Store interface.
func (m *MockStore) ListChangeComponents(ctx context.Context, changeID, ruleSetID int64) ([]schema.ChangeComponent, error) {
	args := m.Called(ctx, changeID, ruleSetID)
	v, _ := args.Get(0).([]schema.ChangeComponent)
	return v, args.Error(1)
}

// CreateBatch implements the Store interface.
func (m *MockStore) CreateBatch(ctx context.Context, batch *schema.EvaluationBatch) (int64, error) {
	args := m.Called(ctx, batch)
	return args.Get(0).(int64), args.Error(1)
}

// StartBatch implements the Store interface.
func (m *MockStore) StartBatch(ctx context.Context, batchID int64, total int, at time.Time) error {
	args := m.Called(ctx, batchID, total, at)
	return args.Error(0)
}

// CompleteBatch implements the Store interface.
func (m *MockStore) CompleteBatch(ctx context.Context, batchID int64, evaluated, failed int, at time.Time) error {
	args := m.Called(ctx, batchID, evaluated, failed, at)
	return args.Error(0)
}

// FailBatch implements the Store interface.
func (m *MockStore) FailBatch(ctx context.Context, batchID int64, message string, evaluated, failed int, at time.Time) error {
	args := m.Called(ctx, batchID, message, evaluated, failed, at)
	return args.Error(0)
}

// GetBatch implements the Store interface.
func (m *MockStore) GetBatch(ctx context.Context, batchID int64) (*schema.EvaluationBatch, error) {
	args := m.Called(ctx, batchID)
	v, _ := args.Get(0).(*schema.EvaluationBatch)
	return v, args.Error(1)
}

// ListBatches implements the Store interface.
func (m *MockStore) ListBatches(ctx context.Context, orgID int64, limit int) ([]schema.EvaluationBatch, error) {
	args := m.Called(ctx, orgID, limit)
	v, _ := args.Get(0).([]schema.EvaluationBatch)
	return v, args.Error(1)
}

// RecordEvaluation implements the Store interface.
func (m *MockStore) RecordEvaluation(ctx context.Context, eval *schema.Evaluation, contribution schema.Contribution) (int64, error) {
	args := m.Called(ctx, eval, contribution)
	return args.Get(0).(int64), args.Error(1)
}

// GetEvaluation implements the Store interface.
func (m *MockStore) GetEvaluation(ctx context.Context, changeID, ruleSetID int64) (*schema.Evaluation, error) {
	args := m.Called(ctx, changeID, ruleSetID)
	v, _ := args.Get(0).(*schema.Evaluation)
	return v, args.Error(1)
}

// ListEvaluations implements the Store interface.
func (m *MockStore) ListEvaluations(ctx context.Context, orgID int64, from, to time.Time) ([]schema.Evaluation, error) {
	args := m.Called(ctx, orgID, from, to)
	v, _ := args.Get(0).([]schema.Evaluation)
	return v, args.Error(1)
}

// GetDailyStat implements the Store interface.
func (m *MockStore) GetDailyStat(ctx context.Context, orgID int64, developer, statDate string) (*schema.DeveloperDailyStat, error) {
	args := m.Called(ctx, orgID, developer, statDate)
	v, _ := args.Get(0).(*schema.DeveloperDailyStat)
	return v, args.Error(1)
}

// ListDailyStats implements the Store interface.
func (m *MockStore) ListDailyStats(ctx context.Context, orgID int64, developer, fromDate, toDate string) ([]schema.DeveloperDailyStat, error) {
	args := m.Called(ctx, orgID, developer, fromDate, toDate)
	v, _ := args.Get(0).([]schema.DeveloperDailyStat)
	return v, args.Error(1)
}

// Backend implements the Store interface.
func (m *MockStore) Backend() schema.DatabaseBackend {
	args := m.Called()
	return args.Get(0).(schema.DatabaseBackend)
}

// GetStatus implements the Store interface.
func (m *MockStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the Store interface.
func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
