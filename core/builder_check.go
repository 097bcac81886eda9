package core

import (
	"context"
	"fmt"
	"io"

	"github.com/huangsam/qualgate/internal/ciout"
	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
)

// CheckBuilder builds the check result using a builder pattern.
type CheckBuilder struct {
	ctx  context.Context
	cfg  *contract.Config
	opts []Option
	env  contract.Environment
	sink contract.EnvironmentSink
	out  io.Writer

	format      schema.CIFormat
	evaluator   *GateEvaluator
	results     *schema.AnalysisResults
	report      *schema.GateReport
	publication *ciout.Publication
	result      *schema.CheckResult
}

// NewCheckBuilder creates a new builder for check results.
// CI output is written to out; env and sink are the environment to probe and export to.
func NewCheckBuilder(ctx context.Context, cfg *contract.Config, env contract.Environment, sink contract.EnvironmentSink, out io.Writer, opts ...Option) *CheckBuilder {
	return &CheckBuilder{
		ctx:  ctx,
		cfg:  cfg,
		opts: opts,
		env:  env,
		sink: sink,
		out:  out,
	}
}

// ValidatePrerequisites resolves the CI format so that an unsupported one fails before any analysis.
func (b *CheckBuilder) ValidatePrerequisites() (*CheckBuilder, error) {
	b.format = ciout.DetectCIFormat(b.env, b.cfg.CI.Format)
	if _, err := ciout.NewAdapter(b.format); err != nil {
		return nil, err
	}
	return b, nil
}

// RunAnalysis runs the assessment including its post-steps.
func (b *CheckBuilder) RunAnalysis() (*CheckBuilder, error) {
	o := NewOrchestrator(b.cfg, b.opts...)
	results, err := o.Run(b.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to assess %s: %w", b.cfg.ProjectRoot, err)
	}
	b.results = results
	b.evaluator = o.Gates()
	return b, nil
}

// EvaluateGates takes the gate report of the run. It evaluates again only
// when the gate post-step produced nothing.
func (b *CheckBuilder) EvaluateGates() *CheckBuilder {
	b.report = b.results.Gates
	if b.report == nil {
		b.report = b.evaluator.EvaluateResults(b.results, b.cfg.Strict)
		b.results.Gates = b.report
	}
	return b
}

// Publish renders the report for CI and writes the configured files and variables.
func (b *CheckBuilder) Publish() (*CheckBuilder, error) {
	cfg := b.cfg.CI
	cfg.Format = b.format
	pub, err := ciout.NewPublisher(b.env, b.sink, b.out).Publish(b.report, b.results.History, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to publish CI output: %w", err)
	}
	b.publication = pub
	return b, nil
}

// BuildResult applies the blocking policy and assembles the final result.
func (b *CheckBuilder) BuildResult() *CheckBuilder {
	b.result = &schema.CheckResult{
		Results: b.results,
		Report:  b.report,
		Format:  b.format,
		Blocked: ShouldBlock(b.report, b.cfg.CI.Blocking),
	}
	if b.publication != nil {
		b.result.Files = b.publication.Files
		b.result.Exported = b.publication.Exported
	}
	return b
}

// GetResult returns the final check result.
func (b *CheckBuilder) GetResult() *schema.CheckResult {
	return b.result
}
