package judge

import (
	"encoding/json"
	"testing"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validJudgment = `{
  "primaryComponentKey": "AUTH",
  "severityKey": "P1",
  "eligibility": {"issue": true, "fixImplementation": true, "prLinked": true, "tests": false},
  "justificationComponent": "Touches login",
  "justificationSeverity": "Users are locked out",
  "impactSummary": "Fixes session expiry",
  "reviewNotes": "Add a regression test"
}`

func TestParseJudgmentForms(t *testing.T) {
	encoded, err := json.Marshal(validJudgment)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{"object", validJudgment},
		{"json string", string(encoded)},
		{"fenced object", "```json\n" + validJudgment + "\n```"},
		{"fenced without language", "```\n" + validJudgment + "\n```"},
		{"string holding fenced object", mustJSONString(t, "```json\n"+validJudgment+"\n```")},
		{"surrounding whitespace", "\n\n  " + validJudgment + "  \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, raw, err := ParseJudgment([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, "AUTH", j.PrimaryComponentKey)
			assert.Equal(t, "P1", j.SeverityKey)
			assert.Equal(t, schema.Eligibility{Issue: true, FixImplementation: true, PRLinked: true, Tests: false}, j.Eligibility)
			assert.False(t, j.Eligibility.IsEligible())
			assert.Equal(t, "Add a regression test", j.ReviewNotes)
			assert.Empty(t, j.EligibilityNotes)

			var roundTrip schema.Judgment
			require.NoError(t, json.Unmarshal(raw, &roundTrip))
			assert.Equal(t, *j, roundTrip)
		})
	}
}

func TestParseJudgmentInvalid(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		contains string
	}{
		{"empty", "", "empty response"},
		{"not json", "I think this is P1", "not a JSON object"},
		{"array", `[1, 2]`, "not a JSON object"},
		{"string of prose", `"just text"`, "not a JSON object"},
		{"truncated", `{"primaryComponentKey": "AUTH"`, "invalid judgment"},
		{"missing eligibility", `{"primaryComponentKey":"AUTH","severityKey":"P1","justificationComponent":"","justificationSeverity":"","impactSummary":""}`, "eligibility"},
		{"missing eligibility flag", `{"primaryComponentKey":"AUTH","severityKey":"P1","eligibility":{"issue":true,"fixImplementation":true,"prLinked":true},"justificationComponent":"","justificationSeverity":"","impactSummary":""}`, "eligibility.tests"},
		{"wrong flag type", `{"primaryComponentKey":"AUTH","severityKey":"P1","eligibility":{"issue":"yes","fixImplementation":true,"prLinked":true,"tests":true},"justificationComponent":"","justificationSeverity":"","impactSummary":""}`, "invalid judgment"},
		{"blank severity", `{"primaryComponentKey":"AUTH","severityKey":"  ","eligibility":{"issue":true,"fixImplementation":true,"prLinked":true,"tests":true},"justificationComponent":"","justificationSeverity":"","impactSummary":""}`, "severityKey"},
		{"null summary", `{"primaryComponentKey":"AUTH","severityKey":"P1","eligibility":{"issue":true,"fixImplementation":true,"prLinked":true,"tests":true},"justificationComponent":"","justificationSeverity":"","impactSummary":null}`, "impactSummary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, raw, err := ParseJudgment([]byte(tt.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, contract.ErrInvalidJudgment)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Nil(t, j)
			assert.Nil(t, raw)
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(stripFences([]byte("```json\n{\"a\":1}\n```"))))
	assert.Equal(t, `{"a":1}`, string(stripFences([]byte("```json{\"a\":1}```"))))
	assert.Equal(t, `{"a":1}`, string(stripFences([]byte(`  {"a":1}  `))))
}

func mustJSONString(t *testing.T, s string) string {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	return string(b)
}
