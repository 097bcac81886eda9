package analyzer

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/huangsam/qualgate/schema"
)

const maxLineLength = 120

// lintConfigs are files that show a formatter or linter is configured.
var lintConfigs = []string{
	".editorconfig", ".golangci.yml", ".golangci.yaml", ".eslintrc", ".eslintrc.js", ".eslintrc.json",
	".eslintrc.yml", "eslint.config.js", "eslint.config.mjs", ".prettierrc", ".prettierrc.json",
	"biome.json", ".flake8", "ruff.toml", ".rubocop.yml", "rustfmt.toml", ".clang-format",
}

// StyleAnalyzer scores formatting hygiene with line-level scans.
type StyleAnalyzer struct {
	weight float64
}

// NewStyleAnalyzer creates a style analyzer worth weight points.
func NewStyleAnalyzer(weight float64) *StyleAnalyzer {
	return &StyleAnalyzer{weight: weight}
}

// Category implements contract.Analyzer.
func (a *StyleAnalyzer) Category() schema.CategoryID { return schema.StyleCategory }

// MaxScore implements contract.Analyzer.
func (a *StyleAnalyzer) MaxScore() float64 { return a.weight }

// Analyze implements contract.Analyzer.
func (a *StyleAnalyzer) Analyze(ctx context.Context, root string, cfg schema.AnalyzerConfig) (schema.CategoryResult, error) {
	files, err := NewWalker(root, cfg.Excludes).Files(ctx)
	if err != nil {
		return schema.CategoryResult{}, err
	}
	b := NewResultBuilder(a.Category(), a.weight)

	var lines, longLines, trailing, todos, mixedFiles int
	err = fileScan(ctx, b, files, func(f SourceFile) bool { return f.IsSource() }, func(_ SourceFile, data []byte) {
		var tabs, spaces bool
		ScanLines(data, func(_ int, line string) {
			lines++
			if utf8.RuneCountInString(line) > maxLineLength {
				longLines++
			}
			if strings.TrimRight(line, " \t") != line {
				trailing++
			}
			if strings.Contains(line, "TODO") || strings.Contains(line, "FIXME") || strings.Contains(line, "XXX") {
				todos++
			}
			switch {
			case strings.HasPrefix(line, "\t"):
				tabs = true
			case strings.HasPrefix(line, "  "):
				spaces = true
			}
		})
		if tabs && spaces {
			mixedFiles++
		}
	})
	if err != nil {
		return schema.CategoryResult{}, err
	}

	b.DeductPer(longLines, 0.05, 6, "%d lines longer than %d characters", longLines, maxLineLength)
	b.DeductPer(trailing, 0.02, 3, "%d lines with trailing whitespace", trailing)
	b.DeductPer(mixedFiles, 0.5, 3, "%d files mix tab and space indentation", mixedFiles)
	b.DeductPer(todos, 0.1, 3, "%d TODO/FIXME markers", todos)
	if longLines+trailing+mixedFiles > 0 {
		b.AddSuggestion("Run a formatter over the codebase and enforce it in CI")
	}
	if todos > 0 {
		b.AddSuggestion("Turn TODO/FIXME markers into tracked issues")
	}
	if !hasFile(files, lintConfigs...) {
		b.Deduct(2, "No formatter or linter configuration found")
		b.AddSuggestion("Add an .editorconfig or linter configuration to the repository")
	}

	b.SetDetail("lines_scanned", lines).
		SetDetail("long_lines", longLines).
		SetDetail("trailing_whitespace", trailing).
		SetDetail("mixed_indentation_files", mixedFiles).
		SetDetail("todo_markers", todos)
	return b.Build(), nil
}
