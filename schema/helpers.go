package schema

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// StatDateLayout is the calendar date format used for daily aggregates.
const StatDateLayout = "2006-01-02"

// StatDate returns the UTC calendar date of t.
func StatDate(t time.Time) string {
	return t.UTC().Format(StatDateLayout)
}

// ParseRepository splits an "owner/name" string.
func ParseRepository(fullName string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/name", fullName)
	}
	return owner, name, nil
}

// IsTrackedSeverity reports whether key increments one of the four severity counters.
func IsTrackedSeverity(key string) bool {
	switch key {
	case SeverityP0, SeverityP1, SeverityP2, SeverityP3:
		return true
	}
	return false
}

// SortedComponentKeys returns the keys of a component score map in a stable order.
func SortedComponentKeys(scores map[string]float64) []string {
	return slices.Sorted(maps.Keys(scores))
}

// FormatComponentScores renders a component score map as "KEY=score" pairs.
func FormatComponentScores(scores map[string]float64, precision int) string {
	if len(scores) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(scores))
	for _, k := range SortedComponentKeys(scores) {
		parts = append(parts, fmt.Sprintf("%s=%.*f", k, precision, scores[k]))
	}
	return strings.Join(parts, " ")
}
