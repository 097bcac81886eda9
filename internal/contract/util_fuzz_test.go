package contract

import (
	"strings"
	"testing"
)

// FuzzShouldIgnore checks that ShouldIgnore never panics on arbitrary paths and patterns.
func FuzzShouldIgnore(f *testing.F) {
	seeds := []struct {
		path     string
		excludes string // comma-separated
	}{
		{"src/index.ts", "*.log"},
		{"web/node_modules/lodash/index.js", "node_modules/"},
		{"bundle.min.js", "*.min.js"},
		{"app.js.map", ".map"},
		{"", ""},
		{"packages/a/coverage/lcov.info", "**/coverage/**"},
	}
	for _, seed := range seeds {
		f.Add(seed.path, seed.excludes)
	}

	f.Fuzz(func(_ *testing.T, path string, excludesStr string) {
		excludes := []string{}
		if excludesStr != "" {
			for ex := range strings.SplitSeq(excludesStr, ",") {
				if trimmed := strings.TrimSpace(ex); trimmed != "" {
					excludes = append(excludes, trimmed)
				}
			}
		}
		_ = ShouldIgnore(path, excludes)
	})
}
