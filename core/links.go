package core

import (
	"regexp"
	"strconv"
)

var closingReferencePattern = regexp.MustCompile(`(?i)\b(?:close[sd]?|fix(?:e[sd])?|resolve[sd]?)\s*:?\s+#(\d+)\b`)

// ParseClosingReferences returns the issue numbers a pull request body closes,
// such as "Fixes #12" or "resolved: #7", in first-mentioned order without duplicates.
func ParseClosingReferences(text string) []int {
	var numbers []int
	seen := map[int]bool{}
	for _, m := range closingReferencePattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		numbers = append(numbers, n)
	}
	return numbers
}
