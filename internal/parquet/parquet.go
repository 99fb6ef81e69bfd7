// Package parquet provides data structures and functions for exporting prscore
// pipeline data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/prscore/schema"
	"github.com/parquet-go/parquet-go"
)

// Batch represents a single evaluation batch.
// This struct maps to the evaluation_batches database table.
type Batch struct {
	BatchID        int64      `parquet:"batch_id,snappy"`
	UID            string     `parquet:"uid,snappy"`
	OrganizationID int64      `parquet:"organization_id,snappy"`
	RuleSetID      int64      `parquet:"rule_set_id,snappy"`
	RunType        string     `parquet:"run_type,snappy"`
	Status         string     `parquet:"status,snappy"`
	StartedAt      *time.Time `parquet:"started_at,optional,snappy"`
	CompletedAt    *time.Time `parquet:"completed_at,optional,snappy"`
	ErrorMessage   *string    `parquet:"error_message,optional,snappy"`
	ItemsTotal     int32      `parquet:"items_total,snappy"`
	ItemsEvaluated int32      `parquet:"items_evaluated,snappy"`
	ItemsFailed    int32      `parquet:"items_failed,snappy"`
	CreatedAt      time.Time  `parquet:"created_at,snappy"`
}

// Evaluation represents the scoring of one change under one rule set.
// This struct maps to the evaluations database table.
type Evaluation struct {
	EvaluationID int64 `parquet:"evaluation_id,snappy"`
	ChangeID     int64 `parquet:"change_id,snappy"`
	RuleSetID    int64 `parquet:"rule_set_id,snappy"`
	BatchID      int64 `parquet:"batch_id,snappy"`

	// ComponentKey is the resolved component; ClassifiedComponentID is the classifier's pick
	ComponentKey          string `parquet:"component_key,snappy"`
	ClassifiedComponentID *int64 `parquet:"classified_component_id,optional,snappy"`

	// SeverityKey is empty when the judged severity did not resolve
	SeverityKey *string `parquet:"severity_key,optional,snappy"`

	BasePoints          int32   `parquet:"base_points,snappy"`
	Multiplier          float64 `parquet:"multiplier,snappy"`
	EligibilityIssue    bool    `parquet:"eligibility_issue,snappy"`
	EligibilityFix      bool    `parquet:"eligibility_fix,snappy"`
	EligibilityPRLinked bool    `parquet:"eligibility_pr_linked,snappy"`
	EligibilityTests    bool    `parquet:"eligibility_tests,snappy"`
	IsEligible          bool    `parquet:"is_eligible,snappy"`
	FinalScore          float64 `parquet:"final_score,snappy"`
	ImpactSummary       string  `parquet:"impact_summary,snappy"`
	Model               string  `parquet:"model,snappy"`

	// RawJudgment is the canonical JSON judgment kept for audit (nullable)
	RawJudgment *string   `parquet:"raw_judgment,optional,snappy"`
	EvaluatedAt time.Time `parquet:"evaluated_at,snappy"`
}

// DailyStat represents one developer's aggregate for one calendar date.
// This struct maps to the developer_daily_stats database table.
type DailyStat struct {
	OrganizationID int64   `parquet:"organization_id,snappy"`
	DeveloperLogin string  `parquet:"developer_login,snappy"`
	StatDate       string  `parquet:"stat_date,snappy"`
	TotalScore     float64 `parquet:"total_score,snappy"`
	PRCount        int32   `parquet:"pr_count,snappy"`
	P0Count        int32   `parquet:"p0_count,snappy"`
	P1Count        int32   `parquet:"p1_count,snappy"`
	P2Count        int32   `parquet:"p2_count,snappy"`
	P3Count        int32   `parquet:"p3_count,snappy"`

	// ComponentScores is the JSON-encoded per-component score map
	ComponentScores string    `parquet:"component_scores,snappy"`
	UpdatedAt       time.Time `parquet:"updated_at,snappy"`
}

// WriteBatchesParquet writes a slice of Batch structs to a Parquet file.
func WriteBatchesParquet(data []Batch, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteEvaluationsParquet writes a slice of Evaluation structs to a Parquet file.
func WriteEvaluationsParquet(data []Evaluation, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteDailyStatsParquet writes a slice of DailyStat structs to a Parquet file.
func WriteDailyStatsParquet(data []DailyStat, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes records with a schema inferred from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertBatches converts schema.EvaluationBatch to Batch for Parquet export.
func ConvertBatches(batches []schema.EvaluationBatch) []Batch {
	result := make([]Batch, len(batches))
	for i, b := range batches {
		result[i] = Batch{
			BatchID:        b.ID,
			UID:            b.UID,
			OrganizationID: b.OrganizationID,
			RuleSetID:      b.RuleSetID,
			RunType:        string(b.RunType),
			Status:         string(b.Status),
			StartedAt:      b.StartedAt,
			CompletedAt:    b.CompletedAt,
			ErrorMessage:   optionalString(b.ErrorMessage),
			ItemsTotal:     int32(b.ItemsTotal),
			ItemsEvaluated: int32(b.ItemsEvaluated),
			ItemsFailed:    int32(b.ItemsFailed),
			CreatedAt:      b.CreatedAt,
		}
	}
	return result
}

// ConvertEvaluations converts schema.Evaluation to Evaluation for Parquet export.
func ConvertEvaluations(evaluations []schema.Evaluation) []Evaluation {
	result := make([]Evaluation, len(evaluations))
	for i, e := range evaluations {
		result[i] = Evaluation{
			EvaluationID:          e.ID,
			ChangeID:              e.ChangeID,
			RuleSetID:             e.RuleSetID,
			BatchID:               e.BatchID,
			ComponentKey:          e.ComponentKey,
			ClassifiedComponentID: e.ClassifiedComponentID,
			SeverityKey:           optionalString(e.SeverityKey),
			BasePoints:            int32(e.BasePoints),
			Multiplier:            e.Multiplier,
			EligibilityIssue:      e.Eligibility.Issue,
			EligibilityFix:        e.Eligibility.FixImplementation,
			EligibilityPRLinked:   e.Eligibility.PRLinked,
			EligibilityTests:      e.Eligibility.Tests,
			IsEligible:            e.IsEligible,
			FinalScore:            e.FinalScore,
			ImpactSummary:         e.ImpactSummary,
			Model:                 e.Model,
			RawJudgment:           optionalString(string(e.RawJudgment)),
			EvaluatedAt:           e.EvaluatedAt,
		}
	}
	return result
}

// ConvertDailyStats converts schema.DeveloperDailyStat to DailyStat for Parquet export.
func ConvertDailyStats(stats []schema.DeveloperDailyStat) []DailyStat {
	result := make([]DailyStat, len(stats))
	for i, st := range stats {
		scores := "{}"
		if len(st.ComponentScores) > 0 {
			if b, err := json.Marshal(st.ComponentScores); err == nil {
				scores = string(b)
			}
		}
		result[i] = DailyStat{
			OrganizationID:  st.OrganizationID,
			DeveloperLogin:  st.DeveloperLogin,
			StatDate:        st.StatDate,
			TotalScore:      st.TotalScore,
			PRCount:         int32(st.PRCount),
			P0Count:         int32(st.P0Count),
			P1Count:         int32(st.P1Count),
			P2Count:         int32(st.P2Count),
			P3Count:         int32(st.P3Count),
			ComponentScores: scores,
			UpdatedAt:       st.UpdatedAt,
		}
	}
	return result
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
