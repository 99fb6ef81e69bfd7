package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/prscore/schema"
)

// Label constants for evaluation outcomes.
const (
	EligibleValue   = "Eligible"
	IneligibleValue = "Ineligible"
)

// Color variables for console output.
var (
	FailedColor    = color.New(color.FgRed, color.Bold)
	RunningColor   = color.New(color.FgYellow)
	CompletedColor = color.New(color.FgGreen)
	PendingColor   = color.New(color.FgCyan)
)

// GetEligibilityLabel returns a plain label for an evaluation's eligibility.
func GetEligibilityLabel(eligible bool) string {
	if eligible {
		return EligibleValue
	}
	return IneligibleValue
}

// GetColorEligibilityLabel returns a colored eligibility label for console output.
func GetColorEligibilityLabel(eligible bool) string {
	if eligible {
		return CompletedColor.Sprint(EligibleValue)
	}
	return FailedColor.Sprint(IneligibleValue)
}

// GetColorStatus returns a colored batch status for console output.
func GetColorStatus(status schema.BatchStatus) string {
	text := string(status)
	switch status {
	case schema.BatchFailed:
		return FailedColor.Sprint(text)
	case schema.BatchRunning:
		return RunningColor.Sprint(text)
	case schema.BatchCompleted:
		return CompletedColor.Sprint(text)
	default:
		return PendingColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetStoreDBFilePath returns the path to the SQLite DB file for pipeline storage.
func GetStoreDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".prscore.db"
	}
	return filepath.Join(homeDir, ".prscore.db")
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the judgment cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".prscore_cache.db"
	}
	return filepath.Join(homeDir, ".prscore_cache.db")
}

// TruncateText shortens text to maxWidth runes, marking the cut with "...".
func TruncateText(text string, maxWidth int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
