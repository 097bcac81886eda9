package analyzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/huangsam/qualgate/schema"
)

const heavyAssetBytes = 512 * 1024

var (
	loopPattern      = regexp.MustCompile(`^\s*(for\b|while\b|\w+\.forEach\(|\w+\.map\()`)
	blockingIOPattern = regexp.MustCompile(`\b(readFileSync|writeFileSync|execSync|existsSync)\b`)
	selectAllPattern = regexp.MustCompile(`(?i)\bselect\s+\*\s+from\b`)
	sleepPattern     = regexp.MustCompile(`\b(time\.Sleep|Thread\.sleep|time\.sleep|usleep)\s*\(`)
	regexInLoopHint  = regexp.MustCompile(`\b(regexp\.MustCompile|regexp\.Compile|re\.compile|new RegExp)\s*\(`)
)

// PerformanceAnalyzer scores common performance smells found by line scans.
type PerformanceAnalyzer struct {
	weight float64
}

// NewPerformanceAnalyzer creates a performance analyzer worth weight points.
func NewPerformanceAnalyzer(weight float64) *PerformanceAnalyzer {
	return &PerformanceAnalyzer{weight: weight}
}

// Category implements contract.Analyzer.
func (a *PerformanceAnalyzer) Category() schema.CategoryID { return schema.PerformanceCategory }

// MaxScore implements contract.Analyzer.
func (a *PerformanceAnalyzer) MaxScore() float64 { return a.weight }

// Analyze implements contract.Analyzer.
func (a *PerformanceAnalyzer) Analyze(ctx context.Context, root string, cfg schema.AnalyzerConfig) (schema.CategoryResult, error) {
	files, err := NewWalker(root, cfg.Excludes).Files(ctx)
	if err != nil {
		return schema.CategoryResult{}, err
	}
	b := NewResultBuilder(a.Category(), a.weight)

	heavyAssets := 0
	for _, f := range files {
		if !f.IsSource() && f.Size > heavyAssetBytes {
			heavyAssets++
		}
	}

	var nested, blocking, selectAll, sleeps, compileInLoop int
	keep := func(f SourceFile) bool { return f.IsSource() && !f.IsTest() }
	err = fileScan(ctx, b, files, keep, func(_ SourceFile, data []byte) {
		var loops []int // indentation of enclosing loops
		ScanLines(data, func(_ int, line string) {
			if strings.TrimSpace(line) == "" {
				return
			}
			indent := indentWidth(line)
			for len(loops) > 0 && loops[len(loops)-1] >= indent {
				loops = loops[:len(loops)-1]
			}
			if regexInLoopHint.MatchString(line) && len(loops) > 0 {
				compileInLoop++
			}
			if loopPattern.MatchString(line) {
				if len(loops) > 0 {
					nested++
				}
				loops = append(loops, indent)
			}
			if blockingIOPattern.MatchString(line) {
				blocking++
			}
			if selectAllPattern.MatchString(line) {
				selectAll++
			}
			if sleepPattern.MatchString(line) {
				sleeps++
			}
		})
	})
	if err != nil {
		return schema.CategoryResult{}, err
	}

	b.DeductPer(nested, 0.3, 6, "%d nested loops", nested)
	if nested > 0 {
		b.AddSuggestion("Review nested loops for quadratic work; index lookups with maps instead")
	}
	b.DeductPer(compileInLoop, 0.5, 3, "%d regular expressions compiled inside loops", compileInLoop)
	b.DeductPer(blocking, 0.5, 4, "%d synchronous file or process calls", blocking)
	if blocking > 0 {
		b.AddSuggestion("Use asynchronous I/O on hot paths")
	}
	b.DeductPer(selectAll, 0.5, 3, "%d SELECT * queries", selectAll)
	b.DeductPer(sleeps, 0.5, 3, "%d sleeps in non-test code", sleeps)
	b.DeductPer(heavyAssets, 1, 4, "%d committed assets larger than 512 KiB", heavyAssets)
	if heavyAssets > 0 {
		b.AddSuggestion("Compress large assets or serve them from a CDN")
	}

	b.SetDetail("nested_loops", nested).
		SetDetail("regex_compile_in_loop", compileInLoop).
		SetDetail("blocking_calls", blocking).
		SetDetail("select_star", selectAll).
		SetDetail("sleeps", sleeps).
		SetDetail("heavy_assets", heavyAssets)
	return b.Build(), nil
}

// indentWidth counts leading whitespace with tabs as four columns.
func indentWidth(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}
