// Package prompt renders the bounded evaluation context sent to the judge.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/huangsam/prscore/internal/contract"
)

// Template placeholders.
const (
	PlaceholderComponents     = "{{COMPONENTS}}"
	PlaceholderSeverities     = "{{SEVERITIES}}"
	PlaceholderLinkedIssues   = "{{LINKED_ISSUES}}"
	PlaceholderTitle          = "{{PR_TITLE}}"
	PlaceholderBody           = "{{PR_BODY}}"
	PlaceholderURL            = "{{PR_URL}}"
	PlaceholderFiles          = "{{FILES}}"
	PlaceholderEligibility    = "{{ELIGIBILITY_CRITERIA}}"
	PlaceholderClassification = "{{CLASSIFICATION}}"
	PlaceholderRepository     = "{{REPOSITORY}}"
)

// RequiredPlaceholders must all appear in a usable template.
var RequiredPlaceholders = []string{
	PlaceholderComponents,
	PlaceholderSeverities,
	PlaceholderLinkedIssues,
	PlaceholderTitle,
	PlaceholderBody,
	PlaceholderURL,
	PlaceholderFiles,
	PlaceholderEligibility,
}

// DefaultTemplate is used when an organization has no stored template.
//
//go:embed default_template.md
var DefaultTemplate string

// SystemPrompt fixes the response contract of the judge.
const SystemPrompt = `You are a strict code review assistant that classifies and scores merged pull requests.
Respond with a single JSON object and nothing else. No markdown, no prose.
The object must have exactly these fields:
{
  "primaryComponentKey": string,
  "severityKey": string,
  "eligibility": {"issue": bool, "fixImplementation": bool, "prLinked": bool, "tests": bool},
  "justificationComponent": string,
  "justificationSeverity": string,
  "impactSummary": string,
  "eligibilityNotes": string (optional),
  "reviewNotes": string (optional)
}`

// Sentinels substituted for missing optional inputs.
const (
	NoLinkedIssue   = "No linked issue."
	NoDescription   = "(no description provided)"
	NoFiles         = "(no files)"
	NoURL           = "(no URL)"
	NoTitle         = "(untitled)"
	TruncatedMarker = "... (truncated)"
)

// EligibilityCriteria is the fixed checklist the judge answers.
var EligibilityCriteria = []struct {
	Field string
	Text  string
}{
	{"issue", "An issue exists with reproducible steps."},
	{"fixImplementation", "The PR contains a working fix."},
	{"prLinked", "The PR description links the issue."},
	{"tests", "Tests were included or updated."},
}

// ValidateTemplate reports every required placeholder missing from body.
func ValidateTemplate(body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: template is empty", contract.ErrInvalidTemplate)
	}
	var missing []string
	for _, p := range RequiredPlaceholders {
		if !strings.Contains(body, p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing placeholders %s", contract.ErrInvalidTemplate, strings.Join(missing, ", "))
	}
	return nil
}
