package prompt

import (
	"fmt"
	"strings"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
)

// minTextRunes is the shortest a truncated text gets before it is dropped.
const minTextRunes = 64

// Input is everything the caller already fetched for one change.
type Input struct {
	Change         schema.Change
	Classification schema.Classification
	Components     []schema.Component
	Severities     []schema.Severity
	Issues         []schema.Issue
	Files          []schema.ChangedFile
}

// Rendered is a prompt ready for the judge.
type Rendered struct {
	System    string
	User      string
	Tokens    int
	Truncated bool
}

// Builder renders prompts from a validated template.
type Builder struct {
	template  string
	counter   contract.TokenCounter
	maxTokens int
}

// NewBuilder validates the template. A maxTokens of 0 disables the budget.
func NewBuilder(template string, counter contract.TokenCounter, maxTokens int) (*Builder, error) {
	if err := ValidateTemplate(template); err != nil {
		return nil, err
	}
	if counter == nil {
		counter = CharCounter{}
	}
	return &Builder{template: template, counter: counter, maxTokens: maxTokens}, nil
}

// budget tracks how much of each shrinkable section is kept. -1 keeps all.
type budget struct {
	files     int
	body      int
	issueBody int
}

// Build renders the prompt, shrinking the file list, then the PR body, then
// the issue bodies until it fits the token budget.
func (b *Builder) Build(in Input) Rendered {
	st := budget{files: len(in.Files), body: -1, issueBody: -1}
	user := b.render(in, st)
	tokens := b.counter.Count(SystemPrompt) + b.counter.Count(user)
	truncated := false

	for b.maxTokens > 0 && tokens > b.maxTokens {
		if !st.shrink(in) {
			break
		}
		truncated = true
		user = b.render(in, st)
		tokens = b.counter.Count(SystemPrompt) + b.counter.Count(user)
	}

	return Rendered{System: SystemPrompt, User: user, Tokens: tokens, Truncated: truncated}
}

// shrink reduces the next section. It returns false when nothing is left to cut.
func (st *budget) shrink(in Input) bool {
	if st.files > 0 {
		st.files /= 2
		return true
	}
	if shrinkText(&st.body, len([]rune(in.Change.Body))) {
		return true
	}
	longest := 0
	for _, is := range in.Issues {
		longest = max(longest, len([]rune(is.Body)))
	}
	return shrinkText(&st.issueBody, longest)
}

func shrinkText(limit *int, length int) bool {
	if *limit == 0 || length == 0 {
		return false
	}
	if *limit < 0 {
		*limit = length
	}
	*limit /= 2
	if *limit < minTextRunes {
		*limit = 0
	}
	return true
}

func (b *Builder) render(in Input, st budget) string {
	r := strings.NewReplacer(
		PlaceholderComponents, componentTable(in.Components),
		PlaceholderSeverities, severityTable(in.Severities),
		PlaceholderLinkedIssues, linkedIssues(in.Issues, st.issueBody),
		PlaceholderTitle, orDefault(in.Change.Title, NoTitle),
		PlaceholderBody, orDefault(cut(in.Change.Body, st.body), NoDescription),
		PlaceholderURL, orDefault(in.Change.URL, NoURL),
		PlaceholderFiles, fileList(in.Files, st.files),
		PlaceholderEligibility, eligibilityChecklist(),
		PlaceholderClassification, classificationHint(in.Classification),
		PlaceholderRepository, orDefault(in.Change.Repository, "the repository"),
	)
	return r.Replace(b.template)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// cut keeps the first limit runes. A negative limit keeps everything.
func cut(s string, limit int) string {
	if limit < 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit == 0 {
		return TruncatedMarker
	}
	return string(runes[:limit]) + "\n" + TruncatedMarker
}

func cell(s string) string {
	return strings.ReplaceAll(strings.Join(strings.Fields(s), " "), "|", "\\|")
}

func componentTable(components []schema.Component) string {
	var sb strings.Builder
	sb.WriteString("| Key | Name | Multiplier | Description |\n|---|---|---|---|")
	for _, c := range components {
		fmt.Fprintf(&sb, "\n| %s | %s | %.2f | %s |", c.Key, cell(c.Name), c.Multiplier, cell(c.Description))
	}
	return sb.String()
}

func severityTable(severities []schema.Severity) string {
	var sb strings.Builder
	sb.WriteString("| Key | Name | Base points | Description |\n|---|---|---|---|")
	for _, s := range severities {
		fmt.Fprintf(&sb, "\n| %s | %s | %d | %s |", s.Key, cell(s.Name), s.BasePoints, cell(s.Description))
	}
	return sb.String()
}

func linkedIssues(issues []schema.Issue, bodyLimit int) string {
	if len(issues) == 0 {
		return NoLinkedIssue
	}
	blocks := make([]string, 0, len(issues))
	for _, is := range issues {
		var sb strings.Builder
		fmt.Fprintf(&sb, "#%d %s", is.Number, orDefault(is.Title, NoTitle))
		if is.State != "" {
			fmt.Fprintf(&sb, " (%s)", is.State)
		}
		if is.URL != "" {
			fmt.Fprintf(&sb, "\n%s", is.URL)
		}
		fmt.Fprintf(&sb, "\n%s", orDefault(cut(is.Body, bodyLimit), NoDescription))
		blocks = append(blocks, sb.String())
	}
	return strings.Join(blocks, "\n\n")
}

func fileList(files []schema.ChangedFile, keep int) string {
	if len(files) == 0 {
		return NoFiles
	}
	keep = min(keep, len(files))
	lines := make([]string, 0, keep+1)
	for _, f := range files[:keep] {
		lines = append(lines, fmt.Sprintf("- %s (%s, +%d/-%d)", f.Path, orDefault(f.Status, "modified"), f.Additions, f.Deletions))
	}
	if dropped := len(files) - keep; dropped > 0 {
		lines = append(lines, fmt.Sprintf("... (%d more files truncated)", dropped))
	}
	return strings.Join(lines, "\n")
}

func eligibilityChecklist() string {
	lines := make([]string, len(EligibilityCriteria))
	for i, c := range EligibilityCriteria {
		lines[i] = fmt.Sprintf("%d. %s: %s", i+1, c.Field, c.Text)
	}
	return strings.Join(lines, "\n")
}

func classificationHint(c schema.Classification) string {
	if c.Primary == nil {
		return "No component matched the classification rules."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Primary: %s (%d changed lines)", c.Primary.ComponentKey, c.Primary.LineDelta)
	for _, m := range c.Matches {
		if m.IsPrimary {
			continue
		}
		fmt.Fprintf(&sb, "\nAlso touched: %s (%d changed lines)", m.ComponentKey, m.LineDelta)
	}
	return sb.String()
}
