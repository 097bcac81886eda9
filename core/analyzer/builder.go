package analyzer

import (
	"fmt"
	"math"
	"time"

	"github.com/huangsam/qualgate/schema"
)

// ResultBuilder accumulates deductions, issues and details for one category.
// The score starts at the max score and only goes down.
type ResultBuilder struct {
	category    schema.CategoryID
	maxScore    float64
	deducted    float64
	issues      []string
	suggestions []string
	details     map[string]any
	warnings    []schema.ErrorRecord
}

// NewResultBuilder creates a builder for a category worth maxScore points.
func NewResultBuilder(category schema.CategoryID, maxScore float64) *ResultBuilder {
	return &ResultBuilder{
		category:    category,
		maxScore:    maxScore,
		issues:      []string{},
		suggestions: []string{},
		details:     make(map[string]any),
	}
}

// Deduct removes points and records the issue when it is not empty.
func (b *ResultBuilder) Deduct(points float64, issue string) *ResultBuilder {
	if points > 0 {
		b.deducted += points
	}
	if issue != "" {
		b.issues = append(b.issues, issue)
	}
	return b
}

// DeductPer removes perItem points for each of count findings, never more than limit.
// Nothing is recorded when count is zero.
func (b *ResultBuilder) DeductPer(count int, perItem, limit float64, format string, args ...any) *ResultBuilder {
	if count <= 0 {
		return b
	}
	return b.Deduct(min(float64(count)*perItem, limit), fmt.Sprintf(format, args...))
}

// AddIssue records an issue without a deduction.
func (b *ResultBuilder) AddIssue(issue string) *ResultBuilder {
	b.issues = append(b.issues, issue)
	return b
}

// AddSuggestion records an improvement hint.
func (b *ResultBuilder) AddSuggestion(suggestion string) *ResultBuilder {
	b.suggestions = append(b.suggestions, suggestion)
	return b
}

// SetDetail stores a metric under key.
func (b *ResultBuilder) SetDetail(key string, value any) *ResultBuilder {
	b.details[key] = value
	return b
}

// Warn records a non-fatal problem, like a file that could not be read.
func (b *ResultBuilder) Warn(errType schema.ErrorType, severity schema.Severity, message string) *ResultBuilder {
	b.warnings = append(b.warnings, schema.ErrorRecord{
		Type:      errType,
		Severity:  severity,
		Message:   message,
		Category:  b.category,
		Timestamp: time.Now(),
	})
	return b
}

// Score is the current score clamped into [0, maxScore] and rounded to two decimals.
func (b *ResultBuilder) Score() float64 {
	score := min(max(b.maxScore-b.deducted, 0), b.maxScore)
	return math.Round(score*100) / 100
}

// Build returns the result. Grading is left to the caller.
func (b *ResultBuilder) Build() schema.CategoryResult {
	return schema.CategoryResult{
		Score:       b.Score(),
		MaxScore:    b.maxScore,
		Issues:      b.issues,
		Suggestions: b.suggestions,
		Details:     b.details,
		Warnings:    b.warnings,
	}
}
