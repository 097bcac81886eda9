package core

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
)

// OutcomeStatus tags how a recovered operation ended.
type OutcomeStatus string

// Outcome statuses.
const (
	StatusSucceeded OutcomeStatus = "succeeded"
	StatusRecovered OutcomeStatus = "recovered"
	StatusDegraded  OutcomeStatus = "degraded"
)

// symlinkStrategy names the default fallback.
const symlinkStrategy = "resolve-symlinks"

// Operation is one attempt of the work being protected.
type Operation[T any] func(ctx context.Context) (T, error)

// Policy bounds how hard WithRecovery tries.
// Fallback runs once after the attempts are exhausted or a fatal error shows up.
type Policy[T any] struct {
	Category    schema.CategoryID
	MaxAttempts int
	Backoff     time.Duration
	Timeout     time.Duration
	Strategy    string
	Fallback    func(ctx context.Context, lastErr error) (T, error)
}

// Outcome is the tagged result of WithRecovery. Value is only meaningful
// when Status is not StatusDegraded.
type Outcome[T any] struct {
	Status     OutcomeStatus
	Value      T
	Err        error
	Attempts   int
	Errors     []schema.ErrorRecord
	Recoveries []schema.RecoveryRecord
}

// WithRecovery runs op under policy and never lets an error or panic escape.
func WithRecovery[T any](ctx context.Context, op Operation[T], policy Policy[T]) Outcome[T] {
	var out Outcome[T]
	attempts := max(policy.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out.Attempts = attempt
		value, err := runAttempt(ctx, op, policy.Timeout)
		if err == nil {
			out.Status = StatusSucceeded
			out.Value = value
			return out
		}

		lastErr = err
		record := NewErrorRecord(policy.Category, attempt, err)
		out.Errors = append(out.Errors, record)

		if !record.Retryable || attempt == attempts || ctx.Err() != nil {
			break
		}
		if !sleepContext(ctx, policy.Backoff) {
			break
		}
	}

	if policy.Fallback != nil && ctx.Err() == nil {
		fallback := func(ctx context.Context) (T, error) { return policy.Fallback(ctx, lastErr) }
		value, err := runAttempt(ctx, fallback, policy.Timeout)
		recovery := schema.RecoveryRecord{
			Category:  policy.Category,
			Strategy:  policy.Strategy,
			Success:   err == nil,
			Timestamp: time.Now(),
		}
		if err == nil {
			recovery.Message = fmt.Sprintf("recovered after: %v", lastErr)
			out.Recoveries = append(out.Recoveries, recovery)
			out.Status = StatusRecovered
			out.Value = value
			return out
		}
		recovery.Message = err.Error()
		out.Recoveries = append(out.Recoveries, recovery)
	}

	out.Status = StatusDegraded
	out.Err = lastErr
	return out
}

// runAttempt runs op in its own goroutine so that a stalled analyzer is
// abandoned once the attempt deadline passes.
func runAttempt[T any](ctx context.Context, op Operation[T], timeout time.Duration) (T, error) {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: &panicError{value: r}}
			}
		}()
		v, err := op(attemptCtx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-attemptCtx.Done():
		var zero T
		return zero, contract.NewAnalysisError(schema.TimeoutError, schema.SeverityMedium,
			"attempt", fmt.Errorf("operation exceeded %s: %w", timeout, attemptCtx.Err()))
	}
}

// sleepContext waits for d and reports false when ctx ends first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// ClassifyError places err in the error taxonomy.
// An explicit *contract.AnalysisError always wins over the heuristics below.
func ClassifyError(err error) (schema.ErrorType, schema.Severity) {
	var ae *contract.AnalysisError
	if errors.As(err, &ae) {
		return ae.Type, ae.Severity
	}

	var pe *panicError
	var pathErr *fs.PathError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var xmlErr *xml.SyntaxError
	var numErr *strconv.NumError

	switch {
	case errors.As(err, &pe):
		return schema.UnknownError, schema.SeverityHigh
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return schema.TimeoutError, schema.SeverityMedium
	case errors.Is(err, fs.ErrPermission):
		return schema.IOError, schema.SeverityHigh
	case errors.Is(err, fs.ErrNotExist), errors.As(err, &pathErr), errors.Is(err, io.ErrUnexpectedEOF):
		return schema.IOError, schema.SeverityMedium
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.As(err, &xmlErr), errors.As(err, &numErr):
		return schema.ParseError, schema.SeverityMedium
	default:
		return schema.UnknownError, schema.SeverityMedium
	}
}

// IsRetryable reports whether errors of the given type are worth another attempt.
func IsRetryable(errType schema.ErrorType) bool {
	return errType == schema.IOError || errType == schema.TimeoutError
}

// NewErrorRecord classifies err into a record for the given attempt.
func NewErrorRecord(category schema.CategoryID, attempt int, err error) schema.ErrorRecord {
	errType, severity := ClassifyError(err)
	return schema.ErrorRecord{
		Type:      errType,
		Severity:  severity,
		Message:   err.Error(),
		Category:  category,
		Attempt:   attempt,
		Retryable: IsRetryable(errType),
		Timestamp: time.Now(),
	}
}

// DegradedResult is what a category reports when its analyzer could not be run.
func DegradedResult(maxScore float64, message string) schema.CategoryResult {
	return schema.CategoryResult{
		Score:       0,
		MaxScore:    maxScore,
		Grade:       schema.GradeF,
		Issues:      []string{"Critical analysis error: " + message},
		Suggestions: []string{},
		Details:     map[string]any{},
		Error:       message,
	}
}

// RecoveryLayer runs analyzers through WithRecovery and keeps error statistics for the run.
type RecoveryLayer struct {
	mu    sync.Mutex
	stats schema.ErrorStats
}

// NewRecoveryLayer creates a layer with empty statistics.
func NewRecoveryLayer() *RecoveryLayer {
	l := &RecoveryLayer{}
	l.Reset()
	return l
}

// Reset clears the error statistics.
func (l *RecoveryLayer) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats = schema.ErrorStats{
		ByType:     make(map[schema.ErrorType]int),
		BySeverity: make(map[schema.Severity]int),
	}
}

// Stats returns a copy of the error statistics gathered so far.
func (l *RecoveryLayer) Stats() schema.ErrorStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := schema.ErrorStats{
		Total:      l.stats.Total,
		Recoveries: l.stats.Recoveries,
		ByType:     make(map[schema.ErrorType]int, len(l.stats.ByType)),
		BySeverity: make(map[schema.Severity]int, len(l.stats.BySeverity)),
	}
	for k, v := range l.stats.ByType {
		out.ByType[k] = v
	}
	for k, v := range l.stats.BySeverity {
		out.BySeverity[k] = v
	}
	return out
}

// Execute runs the analyzer for cfg and always returns a CategoryResult.
// Failures turn into a degraded result instead of an error.
func (l *RecoveryLayer) Execute(ctx context.Context, a contract.Analyzer, cfg schema.AnalyzerConfig) schema.CategoryResult {
	category := a.Category()
	op := func(ctx context.Context) (schema.CategoryResult, error) {
		return a.Analyze(ctx, cfg.ProjectRoot, cfg)
	}
	policy := Policy[schema.CategoryResult]{
		Category:    category,
		MaxAttempts: cfg.RetryPolicy.MaxAttempts,
		Backoff:     cfg.RetryPolicy.Backoff,
		Timeout:     cfg.RetryPolicy.Timeout,
		Strategy:    symlinkStrategy,
		Fallback:    symlinkFallback(a, cfg),
	}

	out := WithRecovery(ctx, op, policy)
	l.record(out.Errors, out.Recoveries)

	if out.Status == StatusDegraded {
		contract.LogInfo(cfg.Verbose, "%s degraded after %d attempt(s): %v", category, out.Attempts, out.Err)
		result := DegradedResult(cfg.MaxScore, out.Err.Error())
		result.Errors = out.Errors
		result.Recoveries = out.Recoveries
		return result
	}

	result := out.Value
	if result.MaxScore <= 0 {
		result.MaxScore = cfg.MaxScore
	}
	result.Score = min(max(result.Score, 0), result.MaxScore)
	result.Errors = append(out.Errors, result.Errors...)
	result.Recoveries = append(out.Recoveries, result.Recoveries...)
	if len(result.Warnings) > 0 {
		l.record(result.Warnings, nil)
	}
	return result
}

func (l *RecoveryLayer) record(errs []schema.ErrorRecord, recoveries []schema.RecoveryRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range errs {
		l.stats.Total++
		l.stats.ByType[e.Type]++
		l.stats.BySeverity[e.Severity]++
	}
	for _, r := range recoveries {
		if r.Success {
			l.stats.Recoveries++
		}
	}
}

// symlinkFallback reruns the analyzer once against the symlink-resolved root.
func symlinkFallback(a contract.Analyzer, cfg schema.AnalyzerConfig) func(context.Context, error) (schema.CategoryResult, error) {
	return func(ctx context.Context, lastErr error) (schema.CategoryResult, error) {
		resolved, err := filepath.EvalSymlinks(cfg.ProjectRoot)
		if err != nil {
			return schema.CategoryResult{}, fmt.Errorf("resolve %s: %w", cfg.ProjectRoot, err)
		}
		if filepath.Clean(resolved) == filepath.Clean(cfg.ProjectRoot) {
			return schema.CategoryResult{}, fmt.Errorf("no alternate path for %s: %w", cfg.ProjectRoot, lastErr)
		}
		alt := cfg
		alt.ProjectRoot = resolved
		return a.Analyze(ctx, resolved, alt)
	}
}

func formatPanic(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(v)
}
