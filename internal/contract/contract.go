// Package contract holds the interfaces, configuration and shared helpers of prscore.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/prscore/schema"
)

// CacheStore defines the interface for a key/value judgment cache.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	Close() error
	GetStatus() (schema.CacheStatus, error)
}

// CatalogStore reads and imports the per-organization scoring catalog.
type CatalogStore interface {
	GetRuleSet(ctx context.Context, orgID, ruleSetID int64) (*schema.RuleSet, error)
	GetActiveRuleSet(ctx context.Context, orgID int64) (*schema.RuleSet, error)
	ListComponents(ctx context.Context, orgID int64, activeOnly bool) ([]schema.Component, error)
	ListRules(ctx context.Context, ruleSetID int64) ([]schema.Rule, error)
	ListSeverities(ctx context.Context, orgID int64) ([]schema.Severity, error)
	GetPromptTemplate(ctx context.Context, orgID int64) (*schema.PromptTemplate, error)
	ImportCatalog(ctx context.Context, orgID int64, catalog schema.Catalog) (*schema.RuleSet, error)
}

// ChangeStore persists synced changes, their files and their linked issues.
type ChangeStore interface {
	UpsertChange(ctx context.Context, change *schema.Change) (int64, error)
	GetChange(ctx context.Context, changeID int64) (*schema.Change, error)
	FindChange(ctx context.Context, orgID int64, repository string, number int) (*schema.Change, error)
	ReplaceChangedFiles(ctx context.Context, changeID int64, files []schema.ChangedFile) error
	ListChangedFiles(ctx context.Context, changeID int64) ([]schema.ChangedFile, error)
	UpsertIssue(ctx context.Context, issue *schema.Issue) (int64, error)
	FindIssueIDs(ctx context.Context, orgID int64, repository string, numbers []int) (map[int]int64, error)
	ReplaceIssueLinks(ctx context.Context, changeID int64, issueIDs []int64) error
	ListLinkedIssues(ctx context.Context, changeID int64) ([]schema.Issue, error)
	ListPendingChanges(ctx context.Context, orgID, ruleSetID int64, since time.Time) ([]schema.Change, error)
	ReplaceChangeComponents(ctx context.Context, changeID, ruleSetID int64, matches []schema.ChangeComponent) error
	ListChangeComponents(ctx context.Context, changeID, ruleSetID int64) ([]schema.ChangeComponent, error)
}

// BatchStore persists evaluation batches and guards their state machine.
type BatchStore interface {
	CreateBatch(ctx context.Context, batch *schema.EvaluationBatch) (int64, error)
	StartBatch(ctx context.Context, batchID int64, total int, at time.Time) error
	CompleteBatch(ctx context.Context, batchID int64, evaluated, failed int, at time.Time) error
	FailBatch(ctx context.Context, batchID int64, message string, evaluated, failed int, at time.Time) error
	GetBatch(ctx context.Context, batchID int64) (*schema.EvaluationBatch, error)
	ListBatches(ctx context.Context, orgID int64, limit int) ([]schema.EvaluationBatch, error)
}

// EvaluationStore persists evaluations together with the daily aggregate fold.
type EvaluationStore interface {
	RecordEvaluation(ctx context.Context, eval *schema.Evaluation, contribution schema.Contribution) (int64, error)
	GetEvaluation(ctx context.Context, changeID, ruleSetID int64) (*schema.Evaluation, error)
	ListEvaluations(ctx context.Context, orgID int64, from, to time.Time) ([]schema.Evaluation, error)
}

// StatsStore reads developer daily aggregates.
type StatsStore interface {
	GetDailyStat(ctx context.Context, orgID int64, developer, statDate string) (*schema.DeveloperDailyStat, error)
	ListDailyStats(ctx context.Context, orgID int64, developer, fromDate, toDate string) ([]schema.DeveloperDailyStat, error)
}

// Store is the full pipeline persistence surface.
type Store interface {
	CatalogStore
	ChangeStore
	BatchStore
	EvaluationStore
	StatsStore
	Backend() schema.DatabaseBackend
	GetStatus(ctx context.Context) (schema.StoreStatus, error)
	Close() error
}

// CompletionRequest is a single structured completion call.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
}

// CompletionService sends prompts to a language model that answers with JSON only.
type CompletionService interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Judge turns a rendered prompt into a validated judgment.
type Judge interface {
	Judge(ctx context.Context, systemPrompt, userPrompt string) (*schema.JudgmentResult, error)
}

// Commenter posts a comment on a pull request.
type Commenter interface {
	CreateComment(ctx context.Context, repository string, number int, body string) error
}

// ChangeSource lists repositories, merged pull requests, files and issues from a code host.
type ChangeSource interface {
	Commenter
	ListRepositories(ctx context.Context, owner string) ([]schema.Repository, error)
	ListMergedPullRequests(ctx context.Context, repository string, since time.Time) ([]schema.PullRequest, error)
	ListPullRequestFiles(ctx context.Context, repository string, number int) ([]schema.ChangedFile, error)
	ListIssues(ctx context.Context, repository string, since time.Time) ([]schema.Issue, error)
}

// TokenCounter measures prompt size against a model budget.
type TokenCounter interface {
	Count(text string) int
}
