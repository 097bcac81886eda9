package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func ptr(v float64) *float64 { return &v }

func outCfg(t *testing.T, mode schema.OutputMode, name string) *contract.Config {
	return &contract.Config{
		Output:     mode,
		OutputFile: filepath.Join(t.TempDir(), name),
		Precision:  1,
		Width:      120,
		Workers:    4,
	}
}

func readOutput(t *testing.T, cfg *contract.Config) string {
	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	return string(data)
}

func sampleResults() *schema.AnalysisResults {
	prev, delta := 70, 2
	return &schema.AnalysisResults{
		ProjectRoot: "/work/project",
		Overall:     schema.OverallResult{Score: 28.5, MaxScore: 40, Percentage: 71, Grade: schema.GradeCMinus, HasErrors: true},
		Categories: map[schema.CategoryID]schema.CategoryResult{
			schema.StyleCategory: {
				Score: 16.5, MaxScore: 20, Grade: schema.GradeB,
				Issues:         []string{"1 line over 120 characters", "3 lines with trailing whitespace"},
				AnalysisTimeMs: 12,
			},
			schema.SecurityCategory: {
				Score: 0, MaxScore: 20, Grade: schema.GradeF,
				Issues: []string{"Critical analysis error: boom"},
				Error:  "boom",
			},
		},
		Recommendations: []schema.Recommendation{
			{Category: schema.SecurityCategory, Priority: schema.PriorityHigh, Title: "Fix the security analysis failure"},
		},
		History: &schema.HistoryEntry{Percentage: 71, PreviousPercentage: &prev, Delta: &delta, Trend: schema.TrendImproving},
	}
}

func TestPrintAnalysisResults(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		cfg := outCfg(t, schema.TextOut, "report.txt")
		require.NoError(t, PrintAnalysisResults(sampleResults(), cfg, time.Second))
		out := readOutput(t, cfg)

		assert.Contains(t, out, "Quality assessment of /work/project")
		assert.Contains(t, out, "Overall: 28.5/40.0 (71%) grade C-")
		assert.Contains(t, out, "Some categories could not be analyzed")
		assert.Contains(t, out, "  - 3 lines with trailing whitespace")
		assert.Contains(t, out, "1. [high] Fix the security analysis failure (security)")
		assert.Contains(t, out, "Trend: improving (70% -> 71%, +2)")
		assert.Less(t, strings.Index(out, "🔎 security"), strings.Index(out, "🔎 style"))
	})

	t.Run("json", func(t *testing.T) {
		cfg := outCfg(t, schema.JSONOut, "report.json")
		require.NoError(t, PrintAnalysisResults(sampleResults(), cfg, time.Second))

		var decoded schema.AnalysisResults
		require.NoError(t, json.Unmarshal([]byte(readOutput(t, cfg)), &decoded))
		assert.Equal(t, 71, decoded.Overall.Percentage)
		assert.Equal(t, "boom", decoded.Categories[schema.SecurityCategory].Error)
	})

	t.Run("csv", func(t *testing.T) {
		cfg := outCfg(t, schema.CSVOut, "report.csv")
		require.NoError(t, PrintAnalysisResults(sampleResults(), cfg, time.Second))

		records, err := csv.NewReader(strings.NewReader(readOutput(t, cfg))).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{"category", "score", "max_score", "percentage", "grade", "issues", "error"},
			{"security", "0.0", "20.0", "0.0", "F", "1", "boom"},
			{"style", "16.5", "20.0", "82.5", "B", "2", ""},
			{"overall", "28.5", "40.0", "71", "C-", "", ""},
		}, records)
	})
}

func sampleReport() *schema.GateReport {
	return &schema.GateReport{
		Passed:  false,
		Message: "Quality gates FAILED: 1/2 gates failed",
		Gates: []schema.GateResult{
			{Name: "overall", Type: schema.OverallGate, Passed: true, Score: 71, Threshold: ptr(70), Message: "overall: 71 >= 70 PASSED"},
			{Name: "security", Type: schema.CategoryGate, Passed: false, Score: 0, Message: "security: FAILED (analysis error: boom)"},
		},
		Summary: schema.GateSummary{Passed: 1, Failed: 1, Total: 2, PassRate: 50},
	}
}

func TestPrintGateReport(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		cfg := outCfg(t, schema.TextOut, "gates.txt")
		require.NoError(t, PrintGateReport(sampleReport(), cfg))
		out := readOutput(t, cfg)
		assert.Contains(t, out, "security: FAILED (analysis error: boom)")
		assert.Contains(t, out, contract.FailedValue)
		assert.True(t, strings.HasSuffix(out, "❌ Quality gates FAILED: 1/2 gates failed\n"))
	})

	t.Run("csv", func(t *testing.T) {
		cfg := outCfg(t, schema.CSVOut, "gates.csv")
		require.NoError(t, PrintGateReport(sampleReport(), cfg))
		records, err := csv.NewReader(strings.NewReader(readOutput(t, cfg))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, []string{"overall", "overall", "71.0", "70.0", "PASSED", "overall: 71 >= 70 PASSED"}, records[1])
		assert.Equal(t, []string{"security", "category", "0.0", "", "FAILED", "security: FAILED (analysis error: boom)"}, records[2])
	})

	t.Run("disabled gates", func(t *testing.T) {
		cfg := outCfg(t, schema.TextOut, "gates.txt")
		require.NoError(t, PrintGateReport(&schema.GateReport{Passed: true, Message: "Quality gates disabled"}, cfg))
		assert.Equal(t, "✅ Quality gates disabled\n", readOutput(t, cfg))
	})
}

func TestPrintGrades(t *testing.T) {
	curve := []schema.GradeStep{{Grade: schema.GradeA, MinRatio: 0.95}, {Grade: schema.GradeB, MinRatio: 0.84}}
	weights := map[schema.CategoryID]float64{schema.StyleCategory: 20, schema.StructureCategory: 25}

	cfg := outCfg(t, schema.TextOut, "grades.txt")
	require.NoError(t, PrintGrades(curve, weights, cfg))
	out := readOutput(t, cfg)
	assert.Contains(t, out, "A   >= 95%")
	assert.Contains(t, out, "F   otherwise")
	assert.Contains(t, out, "total         45")
	assert.Less(t, strings.Index(out, "structure"), strings.Index(out, "style"))

	cfg = outCfg(t, schema.JSONOut, "grades.json")
	require.NoError(t, PrintGrades(curve, weights, cfg))
	var model gradesRenderModel
	require.NoError(t, json.Unmarshal([]byte(readOutput(t, cfg)), &model))
	assert.Equal(t, 45.0, model.Total)
	assert.Equal(t, curve, model.Curve)
}

func TestPrintHistoryRuns(t *testing.T) {
	runs := []schema.HistoryRunRecord{
		{RunID: 2, ProjectRoot: "/p", RunTime: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), Score: 80, MaxScore: 100, Percentage: 80, Grade: "B-"},
		{RunID: 1, ProjectRoot: "/p", RunTime: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC), Score: 70, MaxScore: 100, Percentage: 70, Grade: "C-", HasErrors: true},
	}

	cfg := outCfg(t, schema.CSVOut, "runs.csv")
	require.NoError(t, PrintHistoryRuns(runs, cfg))
	records, err := csv.NewReader(strings.NewReader(readOutput(t, cfg))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"2", "/p", "2026-05-01 10:00:00", "80.0", "100.0", "80", "B-", "false"}, records[1])

	cfg = outCfg(t, schema.TextOut, "runs.txt")
	require.NoError(t, PrintHistoryRuns(nil, cfg))
	assert.Equal(t, "No runs recorded yet\n", readOutput(t, cfg))

	cfg = outCfg(t, schema.TextOut, "runs.txt")
	require.NoError(t, NewOutWriter().WriteHistory(runs, cfg))
	assert.Contains(t, readOutput(t, cfg), "2026-04-01 10:00:00")
}

func TestGetMaxTableTextWidth(t *testing.T) {
	tests := []struct {
		width, expected int
		detailed        bool
	}{
		{60, 20, false},
		{120, 70, false},
		{120, 58, true},
		{400, 90, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, getMaxTableTextWidth(&contract.Config{Width: tt.width, Detailed: tt.detailed}))
	}
}
