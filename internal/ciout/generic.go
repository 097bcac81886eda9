package ciout

import (
	"encoding/json"

	"github.com/huangsam/qualgate/schema"
)

// genericAdapter emits the gate report as indented JSON.
type genericAdapter struct{}

func (genericAdapter) Format() schema.CIFormat { return schema.GenericFormat }

// genericReport adds the optional trend line to the JSON document.
type genericReport struct {
	*schema.GateReport
	Trend string `json:"trend,omitempty"`
}

func (a genericAdapter) Render(report *schema.GateReport, cfg schema.CIConfig) (string, error) {
	return a.renderWithTrend(report, cfg, "")
}

func (genericAdapter) renderWithTrend(report *schema.GateReport, _ schema.CIConfig, trend string) (string, error) {
	data, err := json.MarshalIndent(genericReport{GateReport: report, Trend: trend}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

func (genericAdapter) Parse(output string) (schema.CIVerdict, error) {
	var report schema.GateReport
	if err := json.Unmarshal([]byte(output), &report); err != nil {
		return schema.CIVerdict{}, parseError(schema.GenericFormat, err)
	}
	s := report.Summary
	return schema.CIVerdict{
		Passed:  report.Passed,
		Summary: schema.GateSummary{Passed: s.Passed, Failed: s.Failed, Warnings: s.Warnings, Total: s.Total},
	}, nil
}
