package ciout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/qualgate/schema"
)

const githubSummaryHeading = "## Quality Gate Results"

// githubAdapter emits workflow commands followed by a markdown step summary.
type githubAdapter struct{}

func (githubAdapter) Format() schema.CIFormat { return schema.GitHubActionsFormat }

func (a githubAdapter) Render(report *schema.GateReport, cfg schema.CIConfig) (string, error) {
	return a.renderWithTrend(report, cfg, "")
}

func (a githubAdapter) renderWithTrend(report *schema.GateReport, _ schema.CIConfig, trend string) (string, error) {
	var b strings.Builder
	for _, g := range report.Gates {
		title := escapeProperty("Quality Gate " + g.Name)
		switch {
		case !g.Passed:
			fmt.Fprintf(&b, "::error title=%s::%s\n", title, escapeData(g.Message))
		case g.Warning:
			fmt.Fprintf(&b, "::warning title=%s::%s\n", title, escapeData(g.Message))
		}
	}
	fmt.Fprintf(&b, "::notice title=%s::%s\n", escapeProperty("Quality Gates"), escapeData(report.Message))
	if trend != "" {
		fmt.Fprintf(&b, "::notice title=%s::%s\n", escapeProperty("Quality Gate Trend"), escapeData(trend))
	}
	b.WriteString("\n")
	b.WriteString(a.StepSummary(report))
	return b.String(), nil
}

// StepSummary renders the markdown written to $GITHUB_STEP_SUMMARY.
func (githubAdapter) StepSummary(report *schema.GateReport) string {
	var b strings.Builder
	b.WriteString(githubSummaryHeading + "\n\n")
	icon := "✅"
	if !report.Passed {
		icon = "❌"
	}
	fmt.Fprintf(&b, "**Status:** %s %s\n\n", icon, statusLabel(report.Passed))
	fmt.Fprintf(&b, "%s\n\n", report.Message)

	if len(report.Gates) > 0 {
		b.WriteString("| Gate | Score | Threshold | Status |\n")
		b.WriteString("|------|-------|-----------|--------|\n")
		for _, g := range report.Gates {
			status := "✅ passed"
			switch {
			case !g.Passed:
				status = "❌ failed"
			case g.Warning:
				status = "⚠️ warning"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", g.Name, formatScore(g.Score), formatThreshold(g.Threshold), status)
		}
		b.WriteString("\n")
	}

	s := report.Summary
	fmt.Fprintf(&b, "**Summary:** %d passed, %d failed, %d warning(s), %d total\n", s.Passed, s.Failed, s.Warnings, s.Total)
	return b.String()
}

func (githubAdapter) Parse(output string) (schema.CIVerdict, error) {
	var v schema.CIVerdict
	var sawStatus, sawSummary bool
	for line := range strings.Lines(output) {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "**Status:**"):
			sawStatus = true
			v.Passed = strings.HasSuffix(line, "PASSED")
		case strings.HasPrefix(line, "**Summary:**"):
			s := &v.Summary
			if _, err := fmt.Sscanf(line, "**Summary:** %d passed, %d failed, %d warning(s), %d total", &s.Passed, &s.Failed, &s.Warnings, &s.Total); err != nil {
				return schema.CIVerdict{}, parseError(schema.GitHubActionsFormat, err)
			}
			sawSummary = true
		}
	}
	if !sawStatus || !sawSummary {
		return schema.CIVerdict{}, parseError(schema.GitHubActionsFormat, errors.New("step summary not found"))
	}
	return v, nil
}

// escapeData escapes the message part of a workflow command.
func escapeData(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(s)
}

// escapeProperty escapes a workflow command property value.
func escapeProperty(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C").Replace(s)
}
