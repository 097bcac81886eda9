package ciout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
)

// publishMu serializes renders and exports within the process.
var publishMu sync.Mutex

// Publication describes what one Publish call produced.
type Publication struct {
	Format   schema.CIFormat
	Output   string
	Files    []string
	Exported []string
}

// Publisher renders a gate report for the detected CI system and performs the
// configured side effects.
type Publisher struct {
	env  contract.Environment
	sink contract.EnvironmentSink
	out  io.Writer
}

// NewPublisher creates a publisher. out receives the rendered text and may be nil.
func NewPublisher(env contract.Environment, sink contract.EnvironmentSink, out io.Writer) *Publisher {
	return &Publisher{env: env, sink: sink, out: out}
}

// Publish renders report and writes the summary, detailed and environment
// outputs that cfg asks for. history feeds the optional trend line.
func (p *Publisher) Publish(report *schema.GateReport, history *schema.HistoryEntry, cfg schema.CIConfig) (*Publication, error) {
	publishMu.Lock()
	defer publishMu.Unlock()

	format := DetectCIFormat(p.env, cfg.Format)
	adapter, err := NewAdapter(format)
	if err != nil {
		return nil, err
	}
	var trend string
	if cfg.Output.Trend && history != nil {
		trend = TrendLine(history)
	}
	output, err := renderReport(adapter, report, cfg, trend)
	if err != nil {
		return nil, fmt.Errorf("render %s output: %w", format, err)
	}

	pub := &Publication{Format: format, Output: output}
	if p.out != nil {
		if _, err := io.WriteString(p.out, output); err != nil {
			return nil, err
		}
	}

	if gh, ok := adapter.(githubAdapter); ok {
		if path, ok := p.env.Lookup("GITHUB_STEP_SUMMARY"); ok && path != "" {
			if err := appendFile(path, gh.StepSummary(report)); err != nil {
				return nil, err
			}
		}
	}

	if cfg.Output.Summary != "" {
		if err := WriteOutput(output, cfg.Output.Summary); err != nil {
			return nil, err
		}
		pub.Files = append(pub.Files, cfg.Output.Summary)
	}
	if cfg.Output.Detailed != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, err
		}
		if err := WriteOutput(string(data)+"\n", cfg.Output.Detailed); err != nil {
			return nil, err
		}
		pub.Files = append(pub.Files, cfg.Output.Detailed)
	}

	if cfg.SetEnvironment && p.sink != nil {
		prefix := envPrefix(cfg)
		if err := SetEnvironmentVariables(report, prefix, p.sink); err != nil {
			return nil, fmt.Errorf("export environment: %w", err)
		}
		for _, v := range reportVars(report) {
			pub.Exported = append(pub.Exported, prefix+v.suffix)
		}
	}
	return pub, nil
}

// TrendLine describes the score movement recorded in history.
func TrendLine(h *schema.HistoryEntry) string {
	if h.PreviousPercentage == nil || h.Delta == nil {
		return fmt.Sprintf("Trend: %s (%d%%, first recorded run)", h.Trend, h.Percentage)
	}
	return fmt.Sprintf("Trend: %s (%d%% -> %d%%, %+d)", h.Trend, *h.PreviousPercentage, h.Percentage, *h.Delta)
}

// WriteOutput writes output to path, creating parent directories as needed.
func WriteOutput(output, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(output), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	_, err = io.WriteString(f, content)
	return err
}
