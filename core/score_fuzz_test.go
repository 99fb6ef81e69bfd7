package core

import (
	"testing"

	"github.com/huangsam/prscore/schema"
)

// FuzzScoreJudgment fuzzes ScoreJudgment with arbitrary keys and eligibility flags.
func FuzzScoreJudgment(f *testing.F) {
	seeds := []struct {
		component, severity           string
		issue, fix, linked, withTests bool
	}{
		{"AUTH", "P1", true, true, true, true},
		{"UI", "P2", true, true, true, false},
		{"UNKNOWN", "P0", true, true, true, true},
		{"", "", false, false, false, false},
		{"AUTH", "P9", true, true, true, true},
	}
	for _, seed := range seeds {
		f.Add(seed.component, seed.severity, seed.issue, seed.fix, seed.linked, seed.withTests)
	}

	f.Fuzz(func(t *testing.T, component, severity string, issue, fix, linked, withTests bool) {
		e := schema.Eligibility{Issue: issue, FixImplementation: fix, PRLinked: linked, Tests: withTests}
		r := ScoreJudgment(judgment(component, severity, e), scoringComponents(), scoringSeverities())

		if r.Component == nil {
			t.Fatalf("component %q resolved to nil with a non-empty catalog", component)
		}
		if r.IsEligible != (issue && fix && linked && withTests) {
			t.Errorf("eligibility %v does not match the four flags", r.IsEligible)
		}
		if !r.IsEligible && r.FinalScore != 0 {
			t.Errorf("ineligible judgment scored %v", r.FinalScore)
		}
		if r.IsEligible && r.FinalScore != float64(r.BasePoints)*r.Multiplier {
			t.Errorf("score %v != %d x %v", r.FinalScore, r.BasePoints, r.Multiplier)
		}
		if r.Severity == nil && r.BasePoints != 0 {
			t.Errorf("unknown severity %q yielded %d base points", severity, r.BasePoints)
		}
	})
}
