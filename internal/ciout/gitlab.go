package ciout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/huangsam/qualgate/schema"
)

const gitlabSection = "quality_gates"

// gitlabAdapter emits a collapsible job log section followed by a dotenv block
// suitable for artifacts:reports:dotenv.
type gitlabAdapter struct{}

func (gitlabAdapter) Format() schema.CIFormat { return schema.GitLabCIFormat }

func (a gitlabAdapter) Render(report *schema.GateReport, cfg schema.CIConfig) (string, error) {
	return a.renderWithTrend(report, cfg, "")
}

// renderWithTrend logs the trend inside the section, leaving the dotenv block untouched.
func (gitlabAdapter) renderWithTrend(report *schema.GateReport, cfg schema.CIConfig, trend string) (string, error) {
	var b strings.Builder
	ts := report.Timestamp.Unix()

	fmt.Fprintf(&b, "\x1b[0Ksection_start:%d:%s[collapsed=true]\r\x1b[0KQuality Gate Results\n", ts, gitlabSection)
	for _, g := range report.Gates {
		label := "PASS"
		switch {
		case !g.Passed:
			label = "FAIL"
		case g.Warning:
			label = "WARN"
		}
		fmt.Fprintf(&b, "[%s] %s\n", label, g.Message)
	}
	fmt.Fprintf(&b, "%s\n", report.Message)
	if trend != "" {
		fmt.Fprintf(&b, "%s\n", trend)
	}
	fmt.Fprintf(&b, "\x1b[0Ksection_end:%d:%s\r\x1b[0K\n", ts, gitlabSection)

	prefix := envPrefix(cfg)
	for _, v := range reportVars(report) {
		fmt.Fprintf(&b, "%s%s=%s\n", prefix, v.suffix, v.value)
	}
	return b.String(), nil
}

// Parse reads the dotenv block. The prefix is not known here, so keys are
// matched on their suffix.
func (gitlabAdapter) Parse(output string) (schema.CIVerdict, error) {
	var v schema.CIVerdict
	found := map[string]bool{}
	for line := range strings.Lines(output) {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || strings.ContainsAny(key, " \x1b") {
			continue
		}
		var err error
		switch {
		case strings.HasSuffix(key, envPassedGates):
			v.Summary.Passed, err = strconv.Atoi(value)
			found[envPassedGates] = true
		case strings.HasSuffix(key, envFailedGates):
			v.Summary.Failed, err = strconv.Atoi(value)
			found[envFailedGates] = true
		case strings.HasSuffix(key, envWarningGates):
			v.Summary.Warnings, err = strconv.Atoi(value)
		case strings.HasSuffix(key, envTotalGates):
			v.Summary.Total, err = strconv.Atoi(value)
			found[envTotalGates] = true
		case strings.HasSuffix(key, envPassed):
			v.Passed, err = strconv.ParseBool(value)
			found[envPassed] = true
		}
		if err != nil {
			return schema.CIVerdict{}, parseError(schema.GitLabCIFormat, fmt.Errorf("%s: %w", key, err))
		}
	}
	for _, key := range []string{envPassed, envPassedGates, envFailedGates, envTotalGates} {
		if !found[key] {
			return schema.CIVerdict{}, parseError(schema.GitLabCIFormat, errors.New("missing "+key))
		}
	}
	return v, nil
}
