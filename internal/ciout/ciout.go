// Package ciout renders gate reports in the conventions of CI systems and
// exports the verdict to files and environment variables.
package ciout

import (
	"fmt"
	"strconv"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
)

// Adapter renders a gate report for one CI system and can read its own output back.
type Adapter interface {
	// Format returns the CI format this adapter produces.
	Format() schema.CIFormat

	// Render produces the CI-native text for a report.
	Render(report *schema.GateReport, cfg schema.CIConfig) (string, error)

	// Parse recovers the verdict from text produced by Render.
	Parse(output string) (schema.CIVerdict, error)
}

// trendRenderer renders a report with a trend line expressed in the
// adapter's own syntax, so the output still parses.
type trendRenderer interface {
	renderWithTrend(report *schema.GateReport, cfg schema.CIConfig, trend string) (string, error)
}

// renderReport renders report and, when trend is set, embeds it.
func renderReport(adapter Adapter, report *schema.GateReport, cfg schema.CIConfig, trend string) (string, error) {
	if tr, ok := adapter.(trendRenderer); ok && trend != "" {
		return tr.renderWithTrend(report, cfg, trend)
	}
	return adapter.Render(report, cfg)
}

// DetectCIFormat picks the CI format from well-known environment signals.
// Environment signals win over the configured format.
func DetectCIFormat(env contract.Environment, configured schema.CIFormat) schema.CIFormat {
	if v, ok := env.Lookup("GITHUB_ACTIONS"); ok && v == "true" {
		return schema.GitHubActionsFormat
	}
	if _, ok := env.Lookup("GITLAB_CI"); ok {
		return schema.GitLabCIFormat
	}
	if _, ok := env.Lookup("JENKINS_URL"); ok {
		return schema.JenkinsFormat
	}
	if _, ok := env.Lookup("JENKINS_HOME"); ok {
		return schema.JenkinsFormat
	}
	if configured != "" && configured != schema.AutoFormat {
		return configured
	}
	return schema.GenericFormat
}

// NewAdapter returns the adapter for a concrete format.
func NewAdapter(format schema.CIFormat) (Adapter, error) {
	switch format {
	case schema.GitHubActionsFormat:
		return githubAdapter{}, nil
	case schema.GitLabCIFormat:
		return gitlabAdapter{}, nil
	case schema.JenkinsFormat:
		return jenkinsAdapter{}, nil
	case schema.GenericFormat:
		return genericAdapter{}, nil
	default:
		return nil, contract.NewConfigurationError("select CI adapter", fmt.Errorf("unsupported CI format %q", format))
	}
}

// envVar is one exported name and value, before the prefix is applied.
type envVar struct {
	suffix string
	value  string
}

// Variable suffixes exported for every report.
const (
	envPassed       = "PASSED"
	envScore        = "SCORE"
	envPassedGates  = "PASSED_GATES"
	envFailedGates  = "FAILED_GATES"
	envWarningGates = "WARNING_GATES"
	envTotalGates   = "TOTAL_GATES"
)

func reportVars(report *schema.GateReport) []envVar {
	return []envVar{
		{envPassed, strconv.FormatBool(report.Passed)},
		{envScore, strconv.FormatFloat(report.Results.Overall, 'f', -1, 64)},
		{envPassedGates, strconv.Itoa(report.Summary.Passed)},
		{envFailedGates, strconv.Itoa(report.Summary.Failed)},
		{envWarningGates, strconv.Itoa(report.Summary.Warnings)},
		{envTotalGates, strconv.Itoa(report.Summary.Total)},
	}
}

func envPrefix(cfg schema.CIConfig) string {
	if cfg.EnvironmentPrefix == "" {
		return contract.DefaultEnvPrefix
	}
	return cfg.EnvironmentPrefix
}

func statusLabel(passed bool) string {
	if passed {
		return "PASSED"
	}
	return "FAILED"
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatThreshold(t *float64) string {
	if t == nil {
		return "-"
	}
	return formatScore(*t)
}

func parseError(format schema.CIFormat, err error) error {
	return contract.NewAnalysisError(schema.ParseError, schema.SeverityMedium, fmt.Sprintf("parse %s output", format), err)
}
