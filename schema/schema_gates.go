package schema

import "time"

// Threshold is a gate bound. Nil fields mean "not set".
type Threshold struct {
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Warning *float64 `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// ThresholdConfig holds every configured gate.
// A category missing from Categories has no gate.
type ThresholdConfig struct {
	Enabled    bool                     `json:"enabled"`
	Overall    Threshold                `json:"overall"`
	Categories map[CategoryID]Threshold `json:"categories"`
}

// GateResult is the verdict of one gate.
type GateResult struct {
	Name      string         `json:"name"`
	Type      GateType       `json:"type"`
	Passed    bool           `json:"passed"`
	Warning   bool           `json:"warning"`
	Score     float64        `json:"score"`
	Threshold *float64       `json:"threshold"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// GateSummary counts gate verdicts.
type GateSummary struct {
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Warnings int     `json:"warnings"`
	Total    int     `json:"total"`
	PassRate float64 `json:"pass_rate"`
}

// GateReportConfig records how a report was evaluated.
type GateReportConfig struct {
	Strict     bool            `json:"strict"`
	Thresholds ThresholdConfig `json:"thresholds"`
}

// GateScores are the scores the gates were evaluated against.
type GateScores struct {
	Overall    float64                `json:"overall"`
	Categories map[CategoryID]float64 `json:"categories"`
}

// GateReport is produced once per evaluation call.
type GateReport struct {
	Passed    bool             `json:"passed"`
	Message   string           `json:"message"`
	Gates     []GateResult     `json:"gates"`
	Summary   GateSummary      `json:"summary"`
	Timestamp time.Time        `json:"timestamp"`
	Config    GateReportConfig `json:"config"`
	Results   GateScores       `json:"results"`
}

// FailedGates returns the gates that did not pass.
func (r *GateReport) FailedGates() []GateResult {
	var failed []GateResult
	for _, g := range r.Gates {
		if !g.Passed {
			failed = append(failed, g)
		}
	}
	return failed
}
