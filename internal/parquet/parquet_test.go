package parquet

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/prscore/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvaluations() []schema.Evaluation {
	classified := int64(7)
	return []schema.Evaluation{
		{
			ID: 1, ChangeID: 10, RuleSetID: 2, BatchID: 3,
			ComponentKey: "AUTH", ClassifiedComponentID: &classified, SeverityKey: "P1",
			BasePoints: 50, Multiplier: 1.5,
			Eligibility: schema.Eligibility{Issue: true, FixImplementation: true, PRLinked: true, Tests: true},
			IsEligible:  true, FinalScore: 75, ImpactSummary: "Fixes session expiry",
			RawJudgment: json.RawMessage(`{"severityKey":"P1"}`), Model: "gpt-4o-mini",
			EvaluatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID: 2, ChangeID: 11, RuleSetID: 2, BatchID: 3,
			ComponentKey: "OTHER", Multiplier: 1,
			EvaluatedAt: time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		schema  *parquet.Schema
		columns []string
	}{
		{"batch", parquet.SchemaOf(new(Batch)), []string{"batch_id", "uid", "status", "started_at", "completed_at", "error_message", "items_total"}},
		{"evaluation", parquet.SchemaOf(new(Evaluation)), []string{"evaluation_id", "change_id", "component_key", "severity_key", "is_eligible", "final_score", "raw_judgment"}},
		{"daily stat", parquet.SchemaOf(new(DailyStat)), []string{"developer_login", "stat_date", "total_score", "pr_count", "p0_count", "component_scores"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, colName := range tt.columns {
				_, ok := tt.schema.Lookup(colName)
				assert.True(t, ok, "Column %s should exist in schema", colName)
			}
		})
	}
}

func TestWriteEvaluationsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "evaluations.parquet")
	data := ConvertEvaluations(sampleEvaluations())
	require.NoError(t, WriteEvaluationsParquet(data, outputPath))

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[Evaluation](file)
	defer func() { _ = reader.Close() }()

	readData := make([]Evaluation, reader.NumRows())
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	require.Equal(t, len(data), n)

	assert.Equal(t, "AUTH", readData[0].ComponentKey)
	assert.InDelta(t, 75.0, readData[0].FinalScore, 0.001)
	require.NotNil(t, readData[0].SeverityKey)
	assert.Equal(t, "P1", *readData[0].SeverityKey)
	require.NotNil(t, readData[0].ClassifiedComponentID)
	assert.Equal(t, int64(7), *readData[0].ClassifiedComponentID)

	// Unresolved severity and missing raw payload stay null
	assert.Nil(t, readData[1].SeverityKey)
	assert.Nil(t, readData[1].RawJudgment)
	assert.Nil(t, readData[1].ClassifiedComponentID)
}

func TestWriteDailyStatsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "daily_stats.parquet")
	stats := []schema.DeveloperDailyStat{{
		OrganizationID: 1, DeveloperLogin: "octocat", StatDate: "2024-05-01",
		TotalScore: 75, PRCount: 2, P1Count: 1,
		ComponentScores: map[string]float64{"AUTH": 75},
		UpdatedAt:       time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC),
	}}
	data := ConvertDailyStats(stats)
	assert.JSONEq(t, `{"AUTH":75}`, data[0].ComponentScores)
	require.NoError(t, WriteDailyStatsParquet(data, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestConvertBatches(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	batches := []schema.EvaluationBatch{
		{ID: 1, UID: "a", Status: schema.BatchFailed, StartedAt: &started, ErrorMessage: "boom", ItemsTotal: 3, ItemsEvaluated: 1, ItemsFailed: 1},
		{ID: 2, UID: "b", Status: schema.BatchPending},
	}
	data := ConvertBatches(batches)
	require.Len(t, data, 2)
	require.NotNil(t, data[0].ErrorMessage)
	assert.Equal(t, "boom", *data[0].ErrorMessage)
	assert.Equal(t, "failed", data[0].Status)
	assert.Nil(t, data[1].ErrorMessage)
	assert.Nil(t, data[1].StartedAt)

	outputPath := filepath.Join(t.TempDir(), "batches.parquet")
	require.NoError(t, WriteBatchesParquet(data, outputPath))
}

func TestWriteParquet_EmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteDailyStatsParquet([]DailyStat{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "Output file should contain schema even if empty")
}

func TestWriteParquet_InvalidPath(t *testing.T) {
	err := WriteEvaluationsParquet(ConvertEvaluations(sampleEvaluations()), "/nonexistent/directory/output.parquet")
	require.Error(t, err)
}
