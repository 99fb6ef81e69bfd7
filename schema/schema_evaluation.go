package schema

import (
	"encoding/json"
	"time"
)

// EvaluationBatch is one run of the pipeline over a set of changes.
type EvaluationBatch struct {
	ID             int64       `json:"id"`
	UID            string      `json:"uid"`
	OrganizationID int64       `json:"organization_id"`
	RuleSetID      int64       `json:"rule_set_id"`
	RunType        RunType     `json:"run_type"`
	Status         BatchStatus `json:"status"`
	StartedAt      *time.Time  `json:"started_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	ErrorMessage   string      `json:"error_message,omitempty"`
	ItemsTotal     int         `json:"items_total"`
	ItemsEvaluated int         `json:"items_evaluated"`
	ItemsFailed    int         `json:"items_failed"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Eligibility holds the four booleans judged for a change.
type Eligibility struct {
	Issue             bool `json:"issue"`             // Issue exists with reproducible steps
	FixImplementation bool `json:"fixImplementation"` // PR contains a working fix
	PRLinked          bool `json:"prLinked"`          // PR description links the issue
	Tests             bool `json:"tests"`             // Tests included or updated
}

// IsEligible is the logical AND of the four flags.
func (e Eligibility) IsEligible() bool {
	return e.Issue && e.FixImplementation && e.PRLinked && e.Tests
}

// Judgment is the validated structured verdict returned by the judgment client.
type Judgment struct {
	PrimaryComponentKey    string      `json:"primaryComponentKey"`
	SeverityKey            string      `json:"severityKey"`
	Eligibility            Eligibility `json:"eligibility"`
	JustificationComponent string      `json:"justificationComponent"`
	JustificationSeverity  string      `json:"justificationSeverity"`
	ImpactSummary          string      `json:"impactSummary"`
	EligibilityNotes       string      `json:"eligibilityNotes,omitempty"`
	ReviewNotes            string      `json:"reviewNotes,omitempty"`
}

// ScoreResult is the deterministic outcome of scoring one judgment.
type ScoreResult struct {
	Component  *Component `json:"component,omitempty"`
	Severity   *Severity  `json:"severity,omitempty"`
	BasePoints int        `json:"base_points"`
	Multiplier float64    `json:"multiplier"`
	IsEligible bool       `json:"is_eligible"`
	FinalScore float64    `json:"final_score"`
}

// Evaluation is the persisted scoring of one change under one rule set.
type Evaluation struct {
	ID                    int64           `json:"id"`
	ChangeID              int64           `json:"change_id"`
	RuleSetID             int64           `json:"rule_set_id"`
	BatchID               int64           `json:"batch_id"`
	ComponentID           *int64          `json:"component_id,omitempty"`
	ComponentKey          string          `json:"component_key"`
	ClassifiedComponentID *int64          `json:"classified_component_id,omitempty"`
	SeverityID            *int64          `json:"severity_id,omitempty"`
	SeverityKey           string          `json:"severity_key"`
	BasePoints            int             `json:"base_points"`
	Multiplier            float64         `json:"multiplier"`
	Eligibility           Eligibility     `json:"eligibility"`
	IsEligible            bool            `json:"is_eligible"`
	FinalScore            float64         `json:"final_score"`
	JustificationComp     string          `json:"justification_component"`
	JustificationSeverity string          `json:"justification_severity"`
	ImpactSummary         string          `json:"impact_summary"`
	EligibilityNotes      string          `json:"eligibility_notes,omitempty"`
	ReviewNotes           string          `json:"review_notes,omitempty"`
	RawJudgment           json.RawMessage `json:"raw_judgment,omitempty"`
	Model                 string          `json:"model"`
	EvaluatedAt           time.Time       `json:"evaluated_at"`
}

// Contribution is what one evaluation adds to a developer's daily aggregate.
type Contribution struct {
	OrganizationID int64   `json:"organization_id"`
	DeveloperLogin string  `json:"developer_login"`
	StatDate       string  `json:"stat_date"` // YYYY-MM-DD in UTC
	IsEligible     bool    `json:"is_eligible"`
	Score          float64 `json:"score"`
	SeverityKey    string  `json:"severity_key"`
	ComponentKey   string  `json:"component_key"`
}

// DeveloperDailyStat is the per developer per day aggregate of evaluations.
type DeveloperDailyStat struct {
	OrganizationID  int64              `json:"organization_id"`
	DeveloperLogin  string             `json:"developer_login"`
	StatDate        string             `json:"stat_date"`
	TotalScore      float64            `json:"total_score"`
	PRCount         int                `json:"pr_count"`
	P0Count         int                `json:"p0_count"`
	P1Count         int                `json:"p1_count"`
	P2Count         int                `json:"p2_count"`
	P3Count         int                `json:"p3_count"`
	ComponentScores map[string]float64 `json:"component_scores"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// DeveloperSummary is a developer's aggregate over a date range.
type DeveloperSummary struct {
	DeveloperLogin  string             `json:"developer_login"`
	Days            int                `json:"days"`
	TotalScore      float64            `json:"total_score"`
	PRCount         int                `json:"pr_count"`
	P0Count         int                `json:"p0_count"`
	P1Count         int                `json:"p1_count"`
	P2Count         int                `json:"p2_count"`
	P3Count         int                `json:"p3_count"`
	ComponentScores map[string]float64 `json:"component_scores"`
}

// BatchItemResult reports what happened to one change inside a batch.
type BatchItemResult struct {
	ChangeID   int64      `json:"change_id"`
	Repository string     `json:"repository"`
	Number     int        `json:"number"`
	Status     ItemStatus `json:"status"`
	FinalScore float64    `json:"final_score"`
	Error      string     `json:"error,omitempty"`
}

// BatchReport is the outcome of one orchestrator run.
type BatchReport struct {
	Batch    EvaluationBatch   `json:"batch"`
	Items    []BatchItemResult `json:"items"`
	Duration time.Duration     `json:"duration"`
}

// SyncReport counts what a sync run wrote.
type SyncReport struct {
	Repository   string `json:"repository"`
	Issues       int    `json:"issues"`
	Changes      int    `json:"changes"`
	ChangedFiles int    `json:"changed_files"`
	IssueLinks   int    `json:"issue_links"`
}

// JudgmentResult is a validated judgment plus the canonical payload kept for audit.
type JudgmentResult struct {
	Judgment Judgment        `json:"judgment"`
	Raw      json.RawMessage `json:"raw"`
	Model    string          `json:"model"`
	Cached   bool            `json:"cached"`
}
