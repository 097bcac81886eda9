package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/huangsam/qualgate/schema"
)

// Structure thresholds.
const (
	largeFileLines  = 500
	maxNestingDepth = 6
	rootFileLimit   = 25
	minTestRatio    = 0.1
)

// StructureAnalyzer scores project layout: docs, tests, file sizes and nesting.
type StructureAnalyzer struct {
	weight float64
}

// NewStructureAnalyzer creates a structure analyzer worth weight points.
func NewStructureAnalyzer(weight float64) *StructureAnalyzer {
	return &StructureAnalyzer{weight: weight}
}

// Category implements contract.Analyzer.
func (a *StructureAnalyzer) Category() schema.CategoryID { return schema.StructureCategory }

// MaxScore implements contract.Analyzer.
func (a *StructureAnalyzer) MaxScore() float64 { return a.weight }

// Analyze implements contract.Analyzer.
func (a *StructureAnalyzer) Analyze(ctx context.Context, root string, cfg schema.AnalyzerConfig) (schema.CategoryResult, error) {
	files, err := NewWalker(root, cfg.Excludes).Files(ctx)
	if err != nil {
		return schema.CategoryResult{}, err
	}
	b := NewResultBuilder(a.Category(), a.weight)

	var sources, tests, rootFiles, deepFiles, maxDepth int
	for _, f := range files {
		if !strings.Contains(f.Path, "/") {
			rootFiles++
		}
		if !f.IsSource() {
			continue
		}
		sources++
		if f.IsTest() {
			tests++
		}
		depth := f.Depth()
		maxDepth = max(maxDepth, depth)
		if depth > maxNestingDepth {
			deepFiles++
		}
	}

	var largeFiles []string
	err = fileScan(ctx, b, files, func(f SourceFile) bool { return f.IsSource() }, func(f SourceFile, data []byte) {
		lines := 0
		ScanLines(data, func(int, string) { lines++ })
		if lines > largeFileLines {
			largeFiles = append(largeFiles, f.Path)
		}
	})
	if err != nil {
		return schema.CategoryResult{}, err
	}

	if sources == 0 {
		b.Deduct(a.weight*0.2, "No source files found")
	}
	if !hasReadme(files) {
		b.Deduct(3, "Missing README")
		b.AddSuggestion("Add a README describing the project, setup and usage")
	}
	if sources > 0 && tests == 0 {
		b.Deduct(5, "No test files found")
		b.AddSuggestion("Add automated tests next to the code they cover")
	} else if sources > 0 && float64(tests)/float64(sources) < minTestRatio {
		b.Deduct(2, fmt.Sprintf("Low test ratio: %d test files for %d source files", tests, sources))
		b.AddSuggestion("Raise test coverage for the least tested packages")
	}
	b.DeductPer(len(largeFiles), 0.5, 6, "%d files exceed %d lines", len(largeFiles), largeFileLines)
	if len(largeFiles) > 0 {
		b.AddSuggestion("Split large files into smaller, focused units")
	}
	b.DeductPer(deepFiles, 0.5, 4, "%d files are nested deeper than %d directories", deepFiles, maxNestingDepth)
	if rootFiles > rootFileLimit {
		b.Deduct(2, fmt.Sprintf("%d files at the project root", rootFiles))
		b.AddSuggestion("Move loose root files into dedicated directories")
	}

	b.SetDetail("total_files", len(files)).
		SetDetail("source_files", sources).
		SetDetail("test_files", tests).
		SetDetail("large_files", len(largeFiles)).
		SetDetail("max_depth", maxDepth).
		SetDetail("root_files", rootFiles)
	return b.Build(), nil
}

func hasReadme(files []SourceFile) bool {
	for _, f := range files {
		if !strings.Contains(f.Path, "/") && strings.HasPrefix(strings.ToLower(f.Path), "readme") {
			return true
		}
	}
	return false
}
