package core

import (
	"github.com/huangsam/prscore/schema"
)

// ResolveComponent finds the judged component by key, falling back to OTHER and
// then to the first configured component. It returns nil only when components
// is empty.
func ResolveComponent(key string, components []schema.Component) *schema.Component {
	var other *schema.Component
	for i := range components {
		if components[i].Key == key {
			return &components[i]
		}
		if other == nil && components[i].Key == schema.OtherComponentKey {
			other = &components[i]
		}
	}
	if other != nil {
		return other
	}
	if len(components) > 0 {
		return &components[0]
	}
	return nil
}

// ResolveSeverity finds the judged severity by key. There is no fallback.
func ResolveSeverity(key string, severities []schema.Severity) *schema.Severity {
	for i := range severities {
		if severities[i].Key == key {
			return &severities[i]
		}
	}
	return nil
}

// ScoreJudgment converts a judgment into a final score. The score is
// basePoints x multiplier when all four eligibility flags hold, else 0.
func ScoreJudgment(j schema.Judgment, components []schema.Component, severities []schema.Severity) schema.ScoreResult {
	result := schema.ScoreResult{
		Component:  ResolveComponent(j.PrimaryComponentKey, components),
		Severity:   ResolveSeverity(j.SeverityKey, severities),
		IsEligible: j.Eligibility.IsEligible(),
	}
	if result.Component != nil {
		result.Multiplier = result.Component.Multiplier
	}
	if result.Severity != nil {
		result.BasePoints = result.Severity.BasePoints
	}
	if result.IsEligible {
		result.FinalScore = float64(result.BasePoints) * result.Multiplier
	}
	return result
}
