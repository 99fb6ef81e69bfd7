package outwriter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(mode schema.OutputMode) *contract.Config {
	return &contract.Config{
		Output:       mode,
		Precision:    1,
		Width:        120,
		StartDate:    "2024-05-01",
		EndDate:      "2024-05-31",
		StoreBackend: schema.SQLiteBackend,
	}
}

func sampleSummaries() []schema.DeveloperSummary {
	return []schema.DeveloperSummary{
		{DeveloperLogin: "alice", Days: 2, TotalScore: 225, PRCount: 3, P1Count: 3, ComponentScores: map[string]float64{"AUTH": 150, "UI": 75}},
		{DeveloperLogin: "bob", Days: 1, TotalScore: 20, PRCount: 1, P2Count: 1, ComponentScores: map[string]float64{"UI": 20}},
	}
}

func sampleReport() *schema.BatchReport {
	started := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
	return &schema.BatchReport{
		Batch: schema.EvaluationBatch{
			ID: 3, UID: "0f8e2a4c-1111-2222-3333-444455556666", OrganizationID: 1, RuleSetID: 7,
			RunType: schema.ManualRun, Status: schema.BatchFailed, StartedAt: &started,
			ErrorMessage: "evaluation of acme/api#6 failed: boom", ItemsTotal: 2, ItemsEvaluated: 1, ItemsFailed: 1,
		},
		Items: []schema.BatchItemResult{
			{ChangeID: 11, Repository: "acme/api", Number: 5, Status: schema.ItemEvaluated, FinalScore: 75},
			{ChangeID: 12, Repository: "acme/api", Number: 6, Status: schema.ItemFailed, Error: "boom"},
		},
		Duration: 2 * time.Second,
	}
}

func sampleEvaluations() []schema.Evaluation {
	return []schema.Evaluation{
		{ChangeID: 11, RuleSetID: 7, BatchID: 3, ComponentKey: "AUTH", SeverityKey: "P1", BasePoints: 50, Multiplier: 1.5,
			Eligibility: schema.Eligibility{Issue: true, FixImplementation: true, PRLinked: true, Tests: true},
			IsEligible:  true, FinalScore: 75, ImpactSummary: "Restores login", Model: "test-model",
			EvaluatedAt: time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)},
		{ChangeID: 12, RuleSetID: 7, BatchID: 3, ComponentKey: "UI", BasePoints: 0, Multiplier: 1,
			ImpactSummary: "Button color", Model: "test-model"},
	}
}

func TestWriteStats(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewOutWriterTo(&buf).WriteStats(sampleSummaries(), nil, testConfig(schema.TextOut), time.Second)
		require.NoError(t, err)
		out := buf.String()
		assert.Contains(t, out, "alice")
		assert.Contains(t, out, "AUTH=150.0 UI=75.0")
		assert.Contains(t, out, "Showing 2 developers from 2024-05-01 to 2024-05-31 (total score: 245.0, PRs: 4)")
		assert.Contains(t, out, "Store backend: sqlite")
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewOutWriterTo(&buf).WriteStats(sampleSummaries(), nil, testConfig(schema.CSVOut), time.Second)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "rank,developer,total_score,pr_count,p0_count,p1_count,p2_count,p3_count,days,component_scores", lines[0])
		assert.Equal(t, "1,alice,225.0,3,0,3,0,0,2,AUTH=150.00 UI=75.00", lines[1])
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewOutWriterTo(&buf).WriteStats(sampleSummaries(), nil, testConfig(schema.JSONOut), time.Second)
		require.NoError(t, err)
		var got []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, float64(1), got[0]["rank"])
		assert.Equal(t, "bob", got[1]["developer_login"])
	})

	t.Run("parquet requires file", func(t *testing.T) {
		err := NewOutWriterTo(&bytes.Buffer{}).WriteStats(sampleSummaries(), nil, testConfig(schema.ParquetOut), time.Second)
		assert.ErrorContains(t, err, "--output-file is required")
	})

	t.Run("parquet", func(t *testing.T) {
		cfg := testConfig(schema.ParquetOut)
		cfg.OutputFile = filepath.Join(t.TempDir(), "stats.parquet")
		daily := []schema.DeveloperDailyStat{{OrganizationID: 1, DeveloperLogin: "alice", StatDate: "2024-05-03", TotalScore: 75, PRCount: 1}}

		var buf bytes.Buffer
		require.NoError(t, NewOutWriterTo(&buf).WriteStats(sampleSummaries(), daily, cfg, time.Second))
		assert.Contains(t, buf.String(), "Exported 1 daily stats to:")
		info, err := os.Stat(cfg.OutputFile)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	})
}

func TestWriteBatchReport(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewOutWriterTo(&buf).WriteBatchReport(sampleReport(), testConfig(schema.TextOut)))
		out := buf.String()
		assert.Contains(t, out, "Batch 3 (0f8e2a4c-1111-2222-3333-444455556666) failed [manual]")
		assert.Contains(t, out, "Items: 2 total, 1 evaluated, 1 failed")
		assert.Contains(t, out, "Error: evaluation of acme/api#6 failed: boom")
		assert.Contains(t, out, "acme/api#5")
		assert.Contains(t, out, "Batch finished in 2s.")
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewOutWriterTo(&buf).WriteBatchReport(sampleReport(), testConfig(schema.CSVOut)))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "3,11,acme/api,5,evaluated,75.0,", lines[1])
		assert.Equal(t, "3,12,acme/api,6,failed,0.0,boom", lines[2])
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewOutWriterTo(&buf).WriteBatchReport(sampleReport(), testConfig(schema.JSONOut)))
		var got schema.BatchReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, schema.BatchFailed, got.Batch.Status)
		assert.Len(t, got.Items, 2)
	})
}

func TestWriteBatches(t *testing.T) {
	batches := []schema.EvaluationBatch{sampleReport().Batch}

	var buf bytes.Buffer
	require.NoError(t, NewOutWriterTo(&buf).WriteBatches(batches, testConfig(schema.TextOut)))
	assert.Contains(t, buf.String(), "0f8e2a4c")
	assert.NotContains(t, buf.String(), "0f8e2a4c-1111")
	assert.Contains(t, buf.String(), "Showing 1 batches")

	buf.Reset()
	require.NoError(t, NewOutWriterTo(&buf).WriteBatches(batches, testConfig(schema.CSVOut)))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "3,0f8e2a4c-1111-2222-3333-444455556666,1,7,manual,failed,2,1,1,2024-05-03 12:00:00,-,"))

	cfg := testConfig(schema.ParquetOut)
	cfg.OutputFile = filepath.Join(t.TempDir(), "batches.parquet")
	buf.Reset()
	require.NoError(t, NewOutWriterTo(&buf).WriteBatches(batches, cfg))
	assert.Contains(t, buf.String(), "Exported 1 batches to:")
}

func TestWriteEvaluations(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewOutWriterTo(&buf).WriteEvaluations(sampleEvaluations(), testConfig(schema.TextOut)))
	out := buf.String()
	assert.Contains(t, out, "Restores login")
	assert.Contains(t, out, contract.EligibleValue)
	assert.Contains(t, out, contract.IneligibleValue)
	assert.Contains(t, out, "Showing top 2 evaluations")

	buf.Reset()
	require.NoError(t, NewOutWriterTo(&buf).WriteEvaluations(sampleEvaluations(), testConfig(schema.CSVOut)))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "rank,change_id,rule_set_id"))
	assert.True(t, strings.HasPrefix(lines[1], "1,11,7,3,AUTH,P1,50,1.5,true,true,true,true,"))
	assert.True(t, strings.HasSuffix(lines[2], ",test-model,-"), "unset evaluation time")

	cfg := testConfig(schema.ParquetOut)
	assert.Error(t, NewOutWriterTo(&buf).WriteEvaluations(sampleEvaluations(), cfg))
}

func TestWriteSyncReports(t *testing.T) {
	reports := []schema.SyncReport{{Repository: "acme/api", Issues: 2, Changes: 3, ChangedFiles: 9, IssueLinks: 1}}

	var buf bytes.Buffer
	require.NoError(t, NewOutWriterTo(&buf).WriteSyncReports(reports, testConfig(schema.TextOut), time.Second))
	assert.Contains(t, buf.String(), "Synced 3 changes across 1 repositories in 1s")

	buf.Reset()
	require.NoError(t, NewOutWriterTo(&buf).WriteSyncReports(reports, testConfig(schema.CSVOut), time.Second))
	assert.Equal(t, "repository,issues,changes,changed_files,issue_links\nacme/api,2,3,9,1\n", buf.String())

	assert.Error(t, NewOutWriterTo(&buf).WriteSyncReports(reports, testConfig(schema.ParquetOut), time.Second))
}

func TestWriteClassification(t *testing.T) {
	primary := schema.ChangeComponent{ChangeID: 11, RuleSetID: 7, ComponentKey: "AUTH", LineDelta: 45, Priority: 10, IsPrimary: true}
	c := &schema.Classification{
		Matches: []schema.ChangeComponent{primary, {ChangeID: 11, RuleSetID: 7, ComponentKey: "UI", LineDelta: 3, Priority: 5}},
		Primary: &primary,
	}

	var buf bytes.Buffer
	require.NoError(t, NewOutWriterTo(&buf).WriteClassification(11, c, testConfig(schema.TextOut)))
	assert.Contains(t, buf.String(), "Change 11 is primarily AUTH")

	buf.Reset()
	require.NoError(t, NewOutWriterTo(&buf).WriteClassification(11, c, testConfig(schema.CSVOut)))
	assert.Equal(t, "change_id,component,line_delta,priority,primary\n11,AUTH,45,10,true\n11,UI,3,5,false\n", buf.String())

	buf.Reset()
	require.NoError(t, NewOutWriterTo(&buf).WriteClassification(12, &schema.Classification{}, testConfig(schema.TextOut)))
	assert.Contains(t, buf.String(), "Change 12 matched no component")
}
