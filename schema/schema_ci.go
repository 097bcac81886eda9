package schema

// CIOutputConfig names the files produced for CI.
type CIOutputConfig struct {
	Summary  string `json:"summary"`
	Detailed string `json:"detailed"`
	Trend    bool   `json:"trend"`
}

// BlockingConfig decides when a gate report fails the pipeline.
type BlockingConfig struct {
	Enabled   bool        `json:"enabled"`
	OnFailure BlockAction `json:"on_failure"`
	OnWarning BlockAction `json:"on_warning"`
}

// CIConfig controls CI rendering and side effects.
type CIConfig struct {
	Format            CIFormat       `json:"format"`
	Output            CIOutputConfig `json:"output"`
	Blocking          BlockingConfig `json:"blocking"`
	SetEnvironment    bool           `json:"set_environment"`
	EnvironmentPrefix string         `json:"environment_prefix"`
}

// CIVerdict is what a CI adapter's output can be parsed back into.
type CIVerdict struct {
	Passed  bool        `json:"passed"`
	Summary GateSummary `json:"summary"`
}

// CheckResult is the outcome of a check run.
type CheckResult struct {
	Results  *AnalysisResults `json:"results"`
	Report   *GateReport      `json:"report"`
	Format   CIFormat         `json:"format"`
	Files    []string         `json:"files,omitempty"`
	Exported []string         `json:"exported,omitempty"`
	Blocked  bool             `json:"blocked"`
}
