package core

import (
	"testing"

	"github.com/huangsam/prscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoringComponents() []schema.Component {
	return []schema.Component{
		{ID: 1, Key: "AUTH", Multiplier: 1.5, IsActive: true},
		{ID: 2, Key: "UI", Multiplier: 1, IsActive: true},
		{ID: 3, Key: schema.OtherComponentKey, Multiplier: 0.5, IsActive: true},
	}
}

func scoringSeverities() []schema.Severity {
	return []schema.Severity{
		{ID: 10, Key: "P0", BasePoints: 100},
		{ID: 11, Key: "P1", BasePoints: 50},
		{ID: 12, Key: "P2", BasePoints: 20},
	}
}

func judgment(component, severity string, e schema.Eligibility) schema.Judgment {
	return schema.Judgment{PrimaryComponentKey: component, SeverityKey: severity, Eligibility: e}
}

var allEligible = schema.Eligibility{Issue: true, FixImplementation: true, PRLinked: true, Tests: true}

func TestScoreJudgmentScenarios(t *testing.T) {
	t.Run("tests missing scores zero", func(t *testing.T) {
		e := allEligible
		e.Tests = false
		r := ScoreJudgment(judgment("AUTH", "P1", e), scoringComponents(), scoringSeverities())
		assert.False(t, r.IsEligible)
		assert.Equal(t, 0.0, r.FinalScore)
		assert.Equal(t, 50, r.BasePoints, "base points are still resolved")
		assert.Equal(t, 1.5, r.Multiplier)
	})

	t.Run("all flags score base times multiplier", func(t *testing.T) {
		r := ScoreJudgment(judgment("AUTH", "P1", allEligible), scoringComponents(), scoringSeverities())
		assert.True(t, r.IsEligible)
		assert.Equal(t, 75.0, r.FinalScore)
		require.NotNil(t, r.Component)
		assert.Equal(t, "AUTH", r.Component.Key)
		require.NotNil(t, r.Severity)
		assert.Equal(t, int64(11), r.Severity.ID)
	})
}

func TestScoreJudgmentLaw(t *testing.T) {
	// Every combination of the four flags
	for mask := range 16 {
		e := schema.Eligibility{
			Issue:             mask&1 != 0,
			FixImplementation: mask&2 != 0,
			PRLinked:          mask&4 != 0,
			Tests:             mask&8 != 0,
		}
		r := ScoreJudgment(judgment("UI", "P0", e), scoringComponents(), scoringSeverities())
		if mask == 15 {
			assert.Equal(t, 100.0, r.FinalScore)
			assert.True(t, r.IsEligible)
		} else {
			assert.Equal(t, 0.0, r.FinalScore, "mask %04b", mask)
			assert.False(t, r.IsEligible, "mask %04b", mask)
		}
	}
}

func TestResolveComponentFallbacks(t *testing.T) {
	components := scoringComponents()

	assert.Equal(t, "UI", ResolveComponent("UI", components).Key)
	assert.Equal(t, schema.OtherComponentKey, ResolveComponent("DB", components).Key)

	withoutOther := components[:2]
	assert.Equal(t, "AUTH", ResolveComponent("DB", withoutOther).Key, "first configured component")

	assert.Nil(t, ResolveComponent("DB", nil))
}

func TestScoreJudgmentUnknownSeverity(t *testing.T) {
	r := ScoreJudgment(judgment("AUTH", "P9", allEligible), scoringComponents(), scoringSeverities())
	assert.Nil(t, r.Severity)
	assert.Equal(t, 0, r.BasePoints)
	assert.True(t, r.IsEligible)
	assert.Equal(t, 0.0, r.FinalScore)
}

func TestScoreJudgmentFallbackMultiplier(t *testing.T) {
	r := ScoreJudgment(judgment("NOPE", "P2", allEligible), scoringComponents(), scoringSeverities())
	require.NotNil(t, r.Component)
	assert.Equal(t, schema.OtherComponentKey, r.Component.Key)
	assert.Equal(t, 10.0, r.FinalScore)
}
