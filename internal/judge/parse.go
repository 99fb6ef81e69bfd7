// Package judge obtains and validates structured judgments from a language model.
package judge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
)

// wireJudgment mirrors schema.Judgment with pointers so that missing fields
// can be told apart from zero values.
type wireJudgment struct {
	PrimaryComponentKey    *string          `json:"primaryComponentKey"`
	SeverityKey            *string          `json:"severityKey"`
	Eligibility            *wireEligibility `json:"eligibility"`
	JustificationComponent *string          `json:"justificationComponent"`
	JustificationSeverity  *string          `json:"justificationSeverity"`
	ImpactSummary          *string          `json:"impactSummary"`
	EligibilityNotes       *string          `json:"eligibilityNotes"`
	ReviewNotes            *string          `json:"reviewNotes"`
}

type wireEligibility struct {
	Issue             *bool `json:"issue"`
	FixImplementation *bool `json:"fixImplementation"`
	PRLinked          *bool `json:"prLinked"`
	Tests             *bool `json:"tests"`
}

// ParseJudgment decodes a model response into a validated judgment. The body may
// be a JSON object or a JSON string holding one, optionally inside a markdown
// fence. It returns the canonical JSON of the judgment for audit.
func ParseJudgment(raw []byte) (*schema.Judgment, json.RawMessage, error) {
	data := stripFences(raw)
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: empty response", contract.ErrInvalidJudgment)
	}

	// String first, then the already structured object
	var inner string
	if err := json.Unmarshal(data, &inner); err == nil {
		data = stripFences([]byte(inner))
	}
	if len(data) == 0 || data[0] != '{' {
		return nil, nil, fmt.Errorf("%w: response is not a JSON object", contract.ErrInvalidJudgment)
	}

	var w wireJudgment
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", contract.ErrInvalidJudgment, err)
	}

	j, err := w.validate()
	if err != nil {
		return nil, nil, err
	}

	canonical, err := json.Marshal(j)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode judgment: %w", err)
	}
	return j, canonical, nil
}

// validate checks that every required field is present.
func (w wireJudgment) validate() (*schema.Judgment, error) {
	var missing []string
	requireString := func(name string, v *string, nonBlank bool) string {
		if v == nil || (nonBlank && strings.TrimSpace(*v) == "") {
			missing = append(missing, name)
			return ""
		}
		return *v
	}
	requireBool := func(name string, v *bool) bool {
		if v == nil {
			missing = append(missing, name)
			return false
		}
		return *v
	}

	j := &schema.Judgment{
		PrimaryComponentKey:    strings.TrimSpace(requireString("primaryComponentKey", w.PrimaryComponentKey, true)),
		SeverityKey:            strings.TrimSpace(requireString("severityKey", w.SeverityKey, true)),
		JustificationComponent: requireString("justificationComponent", w.JustificationComponent, false),
		JustificationSeverity:  requireString("justificationSeverity", w.JustificationSeverity, false),
		ImpactSummary:          requireString("impactSummary", w.ImpactSummary, false),
	}
	if w.Eligibility == nil {
		missing = append(missing, "eligibility")
	} else {
		j.Eligibility = schema.Eligibility{
			Issue:             requireBool("eligibility.issue", w.Eligibility.Issue),
			FixImplementation: requireBool("eligibility.fixImplementation", w.Eligibility.FixImplementation),
			PRLinked:          requireBool("eligibility.prLinked", w.Eligibility.PRLinked),
			Tests:             requireBool("eligibility.tests", w.Eligibility.Tests),
		}
	}
	if w.EligibilityNotes != nil {
		j.EligibilityNotes = *w.EligibilityNotes
	}
	if w.ReviewNotes != nil {
		j.ReviewNotes = *w.ReviewNotes
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing or blank fields %s", contract.ErrInvalidJudgment, strings.Join(missing, ", "))
	}
	return j, nil
}

// stripFences removes surrounding whitespace and a ```json fence if present.
func stripFences(raw []byte) []byte {
	data := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(data, []byte("```")) {
		return data
	}
	data = data[3:]
	if nl := bytes.IndexByte(data, '\n'); nl >= 0 {
		data = data[nl+1:]
	} else {
		data = bytes.TrimPrefix(data, []byte("json"))
	}
	data = bytes.TrimSpace(data)
	data = bytes.TrimSuffix(data, []byte("```"))
	return bytes.TrimSpace(data)
}
