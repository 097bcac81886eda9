package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/qualgate/internal/ciout"
	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
)

// maxFailuresShown caps the failed gates listed in the check summary.
const maxFailuresShown = 10

// ExecuteCheck runs the check command for CI/CD gating.
// It assesses the project, evaluates the gates, publishes CI output and
// returns ErrGatesBlocked when the blocking policy says the pipeline must stop.
func ExecuteCheck(ctx context.Context, cfg *contract.Config, opts ...Option) error {
	start := time.Now()
	env := ciout.OSEnvironment{}
	builder := NewCheckBuilder(ctx, cfg, env, ciout.NewOSEnvironmentSink(env), os.Stdout, opts...)

	result, err := RunCheck(builder)
	if err != nil {
		return err
	}
	if !isQuiet(ctx) {
		printCheckResult(os.Stderr, result, cfg.CI.Blocking, time.Since(start))
	}
	if result.Blocked {
		return fmt.Errorf("%w: %s", ErrGatesBlocked, result.Report.Message)
	}
	return nil
}

// RunCheck drives a CheckBuilder through every step.
func RunCheck(builder *CheckBuilder) (*schema.CheckResult, error) {
	if _, err := builder.ValidatePrerequisites(); err != nil {
		return nil, err
	}
	if _, err := builder.RunAnalysis(); err != nil {
		return nil, err
	}
	builder.EvaluateGates()
	if _, err := builder.Publish(); err != nil {
		return nil, err
	}
	return builder.BuildResult().GetResult(), nil
}

// printCheckResult prints the check result in a concise format suitable for CI/CD.
func printCheckResult(w io.Writer, result *schema.CheckResult, blocking schema.BlockingConfig, duration time.Duration) {
	printCheckHeader(w, result, blocking, duration)

	if result.Report.Passed {
		printCheckSuccess(w, result)
	} else {
		printCheckFailure(w, result)
	}

	switch {
	case result.Blocked:
		_, _ = fmt.Fprintln(w, "🚫 Pipeline blocked by the quality gate policy")
	case !result.Report.Passed:
		_, _ = fmt.Fprintf(w, "Not blocking (blocking=%t, on-failure=%s)\n", blocking.Enabled, blocking.OnFailure)
	}
	for _, f := range result.Files {
		_, _ = fmt.Fprintf(w, "💾 Wrote %s\n", f)
	}
}

// printCheckHeader prints the common header information for check results.
func printCheckHeader(w io.Writer, result *schema.CheckResult, blocking schema.BlockingConfig, duration time.Duration) {
	_, _ = fmt.Fprintln(w, "Quality Gate Check:")

	labels := []string{"Project:", "Score:", "Format:", "Strict:", "Blocking:"}
	o := result.Results.Overall
	values := []any{
		result.Results.ProjectRoot,
		fmt.Sprintf("%d%% (%s)", o.Percentage, o.Grade),
		result.Format,
		result.Report.Config.Strict,
		fmt.Sprintf("enabled=%t, on-failure=%s, on-warning=%s", blocking.Enabled, blocking.OnFailure, blocking.OnWarning),
	}

	maxLabelLen := 0
	for _, label := range labels {
		maxLabelLen = max(maxLabelLen, len(label))
	}
	for i, label := range labels {
		_, _ = fmt.Fprintf(w, "  %-*s %v\n", maxLabelLen+1, label, values[i])
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Evaluated %d gates in %v\n\n", result.Report.Summary.Total, duration)
}

// printCheckSuccess prints the success case output.
func printCheckSuccess(w io.Writer, result *schema.CheckResult) {
	_, _ = fmt.Fprintf(w, "✅ %s\n", result.Report.Message)
	for _, g := range result.Report.Gates {
		if g.Warning {
			_, _ = fmt.Fprintf(w, "  ⚠️  %s\n", g.Message)
		}
	}
	_, _ = fmt.Fprintln(w)
}

// printCheckFailure prints the failure case output.
func printCheckFailure(w io.Writer, result *schema.CheckResult) {
	_, _ = fmt.Fprintf(w, "❌ %s\n", result.Report.Message)

	failed := result.Report.FailedGates()
	for i, g := range failed {
		if i == maxFailuresShown {
			_, _ = fmt.Fprintf(w, "  ... and %d more\n", len(failed)-i)
			break
		}
		_, _ = fmt.Fprintf(w, "  - %s\n", g.Message)
	}
	_, _ = fmt.Fprintln(w)
}
