// Package classify maps a change's files to the configured components.
package classify

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/huangsam/prscore/schema"
	"go.uber.org/zap"
)

// compiledRule is a rule ready to be tested against paths.
type compiledRule struct {
	rule      schema.Rule
	component schema.Component
	re        *regexp.Regexp // Regex and glob rules only
	invalid   bool
}

// matches tests a single path. Invalid rules never match.
func (r compiledRule) matches(path string) bool {
	if r.invalid {
		return false
	}
	switch r.rule.MatchType {
	case schema.PrefixMatch:
		return strings.HasPrefix(path, r.rule.Pattern)
	case schema.SuffixMatch:
		return strings.HasSuffix(path, r.rule.Pattern)
	case schema.RegexMatch, schema.GlobMatch:
		return r.re.MatchString(path)
	}
	return false
}

// Classifier holds the compiled rules of one rule set.
type Classifier struct {
	rules []compiledRule
	other *schema.Component
}

// NewClassifier compiles rules against the given components. Rules pointing at
// unknown or inactive components are dropped.
func NewClassifier(components []schema.Component, rules []schema.Rule, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	byID := make(map[int64]schema.Component, len(components))
	c := &Classifier{}
	for _, comp := range components {
		if !comp.IsActive {
			continue
		}
		byID[comp.ID] = comp
		if comp.Key == schema.OtherComponentKey {
			other := comp
			c.other = &other
		}
	}

	ordered := slices.Clone(rules)
	slices.SortStableFunc(ordered, func(a, b schema.Rule) int {
		if a.Priority != b.Priority {
			return cmp.Compare(b.Priority, a.Priority)
		}
		return cmp.Compare(a.ID, b.ID)
	})

	for _, rule := range ordered {
		comp, ok := byID[rule.ComponentID]
		if !ok {
			logger.Debug("skipping rule for inactive component",
				zap.Int64("rule_id", rule.ID), zap.Int64("component_id", rule.ComponentID))
			continue
		}
		cr := compiledRule{rule: rule, component: comp}
		switch rule.MatchType {
		case schema.RegexMatch:
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				logger.Warn("invalid rule pattern, rule never matches",
					zap.Int64("rule_id", rule.ID), zap.String("pattern", rule.Pattern), zap.Error(err))
				cr.invalid = true
			}
			cr.re = re
		case schema.GlobMatch:
			cr.re = GlobToRegexp(rule.Pattern)
		case schema.PrefixMatch, schema.SuffixMatch:
		default:
			logger.Warn("unknown match type, rule never matches",
				zap.Int64("rule_id", rule.ID), zap.String("match_type", string(rule.MatchType)))
			cr.invalid = true
		}
		c.rules = append(c.rules, cr)
	}
	return c
}

// GlobToRegexp expands * to any characters and escapes everything else. The
// result is anchored at both ends.
func GlobToRegexp(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// Classify attributes files to components and selects exactly one primary.
// Matches are returned in first-encountered order. The result has no primary
// only when nothing matched and no OTHER component is configured.
func (c *Classifier) Classify(files []schema.ChangedFile) schema.Classification {
	var matches []schema.ChangeComponent
	index := map[int64]int{}

	for _, f := range files {
		seen := map[int64]bool{}
		for _, r := range c.rules {
			if !r.matches(f.Path) {
				continue
			}
			i, ok := index[r.component.ID]
			if !ok {
				i = len(matches)
				index[r.component.ID] = i
				matches = append(matches, schema.ChangeComponent{
					ComponentID:  r.component.ID,
					ComponentKey: r.component.Key,
					Priority:     r.rule.Priority,
				})
			}
			m := &matches[i]
			m.Priority = max(m.Priority, r.rule.Priority)
			if !seen[r.component.ID] {
				seen[r.component.ID] = true
				m.LineDelta += f.LineDelta()
			}
		}
	}

	if len(matches) == 0 {
		if c.other == nil {
			return schema.Classification{}
		}
		matches = append(matches, schema.ChangeComponent{
			ComponentID:  c.other.ID,
			ComponentKey: c.other.Key,
			IsPrimary:    true,
		})
		return schema.Classification{Matches: matches, Primary: &matches[0]}
	}

	primary := selectPrimary(matches)
	if primary < 0 {
		if c.other == nil {
			return schema.Classification{Matches: matches}
		}
		if i, ok := index[c.other.ID]; ok {
			primary = i
		} else {
			matches = append(matches, schema.ChangeComponent{ComponentID: c.other.ID, ComponentKey: c.other.Key})
			primary = len(matches) - 1
		}
	}
	matches[primary].IsPrimary = true
	return schema.Classification{Matches: matches, Primary: &matches[primary]}
}

// selectPrimary picks the highest priority, then the highest line delta, then
// the first encountered.
func selectPrimary(matches []schema.ChangeComponent) int {
	best := -1
	for i, m := range matches {
		if best < 0 {
			best = i
			continue
		}
		b := matches[best]
		if m.Priority > b.Priority || (m.Priority == b.Priority && m.LineDelta > b.LineDelta) {
			best = i
		}
	}
	return best
}

// WithChange stamps the change and rule set onto every association.
func WithChange(matches []schema.ChangeComponent, changeID, ruleSetID int64) []schema.ChangeComponent {
	out := make([]schema.ChangeComponent, len(matches))
	for i, m := range matches {
		m.ChangeID = changeID
		m.RuleSetID = ruleSetID
		out[i] = m
	}
	return out
}
