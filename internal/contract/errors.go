package contract

import (
	"errors"
	"fmt"

	"github.com/huangsam/qualgate/schema"
)

// AnalysisError is an error carrying its place in the error taxonomy.
type AnalysisError struct {
	Type     schema.ErrorType
	Severity schema.Severity
	Op       string
	Err      error
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError wraps err with a classification.
func NewAnalysisError(errType schema.ErrorType, severity schema.Severity, op string, err error) *AnalysisError {
	return &AnalysisError{Type: errType, Severity: severity, Op: op, Err: err}
}

// NewConfigurationError reports caller misuse. These errors are raised, never contained.
func NewConfigurationError(op string, err error) error {
	return NewAnalysisError(schema.ConfigurationError, schema.SeverityHigh, op, err)
}

// IsConfigurationError reports whether err is classified as a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ae *AnalysisError
	return errors.As(err, &ae) && ae.Type == schema.ConfigurationError
}
