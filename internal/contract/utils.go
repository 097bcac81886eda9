package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/qualgate/schema"
)

// Verdict label constants.
const (
	PassedValue  = "PASSED"
	WarningValue = "WARNING"
	FailedValue  = "FAILED"
	SkippedValue = "NO GATE"
)

// DateTimeFormat is the timestamp layout used in tables and CSV.
const DateTimeFormat = "2006-01-02 15:04:05"

// Color variables for console output.
var (
	ExcellentColor = color.New(color.FgGreen, color.Bold) // A range
	GoodColor      = color.New(color.FgCyan)              // B range
	FairColor      = color.New(color.FgYellow)            // C range
	PoorColor      = color.New(color.FgMagenta, color.Bold)
	FailColor      = color.New(color.FgRed, color.Bold)
)

// GetColorGrade returns a colored grade for console output (table).
func GetColorGrade(grade schema.Grade) string {
	text := string(grade)
	switch {
	case strings.HasPrefix(text, "A"):
		return ExcellentColor.Sprint(text)
	case strings.HasPrefix(text, "B"):
		return GoodColor.Sprint(text)
	case strings.HasPrefix(text, "C"):
		return FairColor.Sprint(text)
	case strings.HasPrefix(text, "D"):
		return PoorColor.Sprint(text)
	default:
		return FailColor.Sprint(text)
	}
}

// GetPlainVerdict returns the plain verdict label of a gate.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainVerdict(gate schema.GateResult) string {
	switch {
	case !gate.Passed:
		return FailedValue
	case gate.Warning:
		return WarningValue
	case gate.Threshold == nil && gate.Type == schema.CategoryGate:
		return SkippedValue
	default:
		return PassedValue
	}
}

// GetColorVerdict returns a colored verdict label for console output.
func GetColorVerdict(gate schema.GateResult) string {
	text := GetPlainVerdict(gate)
	switch text {
	case FailedValue:
		return FailColor.Sprint(text)
	case WarningValue:
		return FairColor.Sprint(text)
	case SkippedValue:
		return GoodColor.Sprint(text)
	default:
		return ExcellentColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It returns os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// ShouldIgnore returns true if the given path matches any of the exclude patterns.
// It supports simple glob patterns (using filepath.Match) when the pattern
// contains wildcard characters (*, ?, [ ]). Patterns ending with '/' are treated
// as directory prefixes. Patterns starting with '.' are treated as suffix (extension) matches.
// A user can provide patterns like "vendor/", "node_modules/", "*.min.js".
func ShouldIgnore(path string, excludes []string) bool {
	for _, ex := range excludes {
		ex = strings.TrimSpace(ex)
		if ex == "" {
			continue
		}

		if strings.ContainsAny(ex, "*?[") {
			pat := strings.ReplaceAll(ex, "**", "*")
			if ok, err := filepath.Match(pat, path); err == nil && ok {
				return true
			}
			if ok, err := filepath.Match(pat, filepath.Base(path)); err == nil && ok {
				return true
			}
			continue
		}

		switch {
		case strings.HasSuffix(ex, "/"):
			if strings.HasPrefix(path, ex) || strings.Contains(path, "/"+ex) {
				return true
			}
		case strings.HasPrefix(ex, "."):
			if strings.HasSuffix(path, ex) {
				return true
			}
		case strings.Contains(path, ex):
			return true
		}
	}
	return false
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

// LogInfo logs an informational message to stderr when verbose is set.
func LogInfo(verbose bool, format string, args ...any) {
	if !verbose {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "Info "+format+"\n", args...)
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for score history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".qualgate_history.db"
	}
	return filepath.Join(homeDir, ".qualgate_history.db")
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and at least one character.
func TruncateText(text string, maxWidth int) string {
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
