package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
	"gopkg.in/yaml.v3"
)

const heavyDependencyCount = 100

// manifestLocks pairs each manifest with the lockfiles that pin it.
var manifestLocks = []struct {
	manifest string
	locks    []string
}{
	{"go.mod", []string{"go.sum"}},
	{"package.json", []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "bun.lockb", "bun.lock"}},
	{"pyproject.toml", []string{"poetry.lock", "uv.lock", "pdm.lock"}},
	{"requirements.txt", nil},
	{"Cargo.toml", []string{"Cargo.lock"}},
	{"Gemfile", []string{"Gemfile.lock"}},
	{"composer.json", []string{"composer.lock"}},
	{"pom.xml", nil},
	{"build.gradle", nil},
}

var (
	goRequireLine    = regexp.MustCompile(`^\s*([\w.\-/~]+)\s+v\d`)
	goLocalReplace   = regexp.MustCompile(`=>\s*\.{1,2}/`)
	pinnedRequirement = regexp.MustCompile(`^[A-Za-z0-9_.\-\[\],]+\s*==`)
)

// packageManifest is the slice of package.json the analyzer reads.
type packageManifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// updateBotConfig is the slice of .github/dependabot.yml the analyzer reads.
type updateBotConfig struct {
	Version int `yaml:"version"`
	Updates []struct {
		Ecosystem string `yaml:"package-ecosystem"`
		Directory string `yaml:"directory"`
	} `yaml:"updates"`
}

// DependenciesAnalyzer scores manifest hygiene: lockfiles, pinning and update automation.
type DependenciesAnalyzer struct {
	weight float64
}

// NewDependenciesAnalyzer creates a dependencies analyzer worth weight points.
func NewDependenciesAnalyzer(weight float64) *DependenciesAnalyzer {
	return &DependenciesAnalyzer{weight: weight}
}

// Category implements contract.Analyzer.
func (a *DependenciesAnalyzer) Category() schema.CategoryID { return schema.DependenciesCategory }

// MaxScore implements contract.Analyzer.
func (a *DependenciesAnalyzer) MaxScore() float64 { return a.weight }

// Analyze implements contract.Analyzer.
func (a *DependenciesAnalyzer) Analyze(ctx context.Context, root string, _ schema.AnalyzerConfig) (schema.CategoryResult, error) {
	if err := ctx.Err(); err != nil {
		return schema.CategoryResult{}, contract.NewAnalysisError(schema.TimeoutError, schema.SeverityMedium, "dependencies", err)
	}
	if _, err := os.Stat(root); err != nil {
		return schema.CategoryResult{}, contract.NewAnalysisError(schema.IOError, schema.SeverityHigh, "stat project root", err)
	}
	b := NewResultBuilder(a.Category(), a.weight)

	var manifests []string
	for _, m := range manifestLocks {
		manifest, locks := m.manifest, m.locks
		if !exists(root, manifest) {
			continue
		}
		manifests = append(manifests, manifest)
		if len(locks) > 0 && !anyExists(root, locks...) {
			if manifest == "go.mod" && a.goRequires(root) == 0 {
				continue
			}
			b.Deduct(3, fmt.Sprintf("%s has no lockfile (%s)", manifest, strings.Join(locks, ", ")))
			b.AddSuggestion("Commit the lockfile so builds are reproducible")
		}
	}
	b.SetDetail("manifests", len(manifests))

	if len(manifests) == 0 {
		b.Deduct(2, "No dependency manifest found")
		b.AddSuggestion("Declare dependencies in a manifest such as go.mod or package.json")
	}

	total := 0
	if exists(root, "package.json") {
		total += a.checkPackageJSON(b, root)
	}
	if exists(root, "go.mod") {
		total += a.checkGoMod(b, root)
	}
	if exists(root, "requirements.txt") {
		total += a.checkRequirements(b, root)
	}
	b.SetDetail("dependency_count", total)
	if total > heavyDependencyCount {
		b.Deduct(2, fmt.Sprintf("%d direct dependencies", total))
		b.AddSuggestion("Audit dependencies and drop the ones that are no longer needed")
	}

	a.checkUpdateBot(b, root, len(manifests) > 0)
	return b.Build(), nil
}

func (a *DependenciesAnalyzer) checkPackageJSON(b *ResultBuilder, root string) int {
	data, _, err := ReadBounded(filepath.Join(root, "package.json"))
	if err != nil {
		b.Warn(schema.IOError, schema.SeverityLow, "package.json: "+err.Error())
		return 0
	}
	var manifest packageManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		b.Warn(schema.ParseError, schema.SeverityMedium, "package.json: "+err.Error())
		b.Deduct(2, "package.json is not valid JSON")
		return 0
	}

	unpinned := 0
	for _, deps := range []map[string]string{manifest.Dependencies, manifest.DevDependencies} {
		for _, version := range deps {
			v := strings.TrimSpace(version)
			if v == "*" || v == "latest" || v == "" || strings.HasPrefix(v, ">") {
				unpinned++
			}
		}
	}
	b.DeductPer(unpinned, 1, 5, "%d npm dependencies use unbounded versions", unpinned)
	if unpinned > 0 {
		b.AddSuggestion("Replace '*', 'latest' and '>=' ranges with bounded versions")
	}
	return len(manifest.Dependencies) + len(manifest.DevDependencies)
}

func (a *DependenciesAnalyzer) goRequires(root string) int {
	data, _, err := ReadBounded(filepath.Join(root, "go.mod"))
	if err != nil {
		return 0
	}
	count := 0
	inBlock := false
	ScanLines(data, func(_ int, line string) {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "require ("):
			inBlock = true
		case inBlock && trimmed == ")":
			inBlock = false
		case inBlock && goRequireLine.MatchString(trimmed):
			count++
		case strings.HasPrefix(trimmed, "require ") && goRequireLine.MatchString(strings.TrimPrefix(trimmed, "require ")):
			count++
		}
	})
	return count
}

func (a *DependenciesAnalyzer) checkGoMod(b *ResultBuilder, root string) int {
	data, _, err := ReadBounded(filepath.Join(root, "go.mod"))
	if err != nil {
		b.Warn(schema.IOError, schema.SeverityLow, "go.mod: "+err.Error())
		return 0
	}
	localReplaces := 0
	ScanLines(data, func(_ int, line string) {
		if strings.Contains(line, "=>") && goLocalReplace.MatchString(line) {
			localReplaces++
		}
	})
	b.DeductPer(localReplaces, 1, 2, "go.mod has %d local replace directives", localReplaces)
	return a.goRequires(root)
}

func (a *DependenciesAnalyzer) checkRequirements(b *ResultBuilder, root string) int {
	data, _, err := ReadBounded(filepath.Join(root, "requirements.txt"))
	if err != nil {
		b.Warn(schema.IOError, schema.SeverityLow, "requirements.txt: "+err.Error())
		return 0
	}
	total, unpinned := 0, 0
	ScanLines(data, func(_ int, line string) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			return
		}
		total++
		if !pinnedRequirement.MatchString(line) {
			unpinned++
		}
	})
	b.DeductPer(unpinned, 0.5, 4, "%d Python requirements are not pinned with ==", unpinned)
	if unpinned > 0 {
		b.AddSuggestion("Pin Python requirements or use a lockfile tool")
	}
	return total
}

func (a *DependenciesAnalyzer) checkUpdateBot(b *ResultBuilder, root string, hasManifest bool) {
	if exists(root, "renovate.json") || exists(root, ".github/renovate.json") {
		b.SetDetail("update_automation", "renovate")
		return
	}
	for _, name := range []string{".github/dependabot.yml", ".github/dependabot.yaml"} {
		if !exists(root, name) {
			continue
		}
		data, _, err := ReadBounded(filepath.Join(root, name))
		if err != nil {
			b.Warn(schema.IOError, schema.SeverityLow, name+": "+err.Error())
			return
		}
		var bot updateBotConfig
		if err := yaml.Unmarshal(data, &bot); err != nil {
			b.Warn(schema.ParseError, schema.SeverityMedium, name+": "+err.Error())
			b.Deduct(1, "Dependabot configuration is not valid YAML")
			return
		}
		if len(bot.Updates) == 0 {
			b.Deduct(1, "Dependabot configuration has no update entries")
			return
		}
		b.SetDetail("update_automation", "dependabot")
		return
	}
	if hasManifest {
		b.Deduct(1, "")
		b.AddSuggestion("Enable Dependabot or Renovate to keep dependencies current")
	}
}

func exists(root, rel string) bool {
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil
}

func anyExists(root string, rels ...string) bool {
	for _, rel := range rels {
		if exists(root, rel) {
			return true
		}
	}
	return false
}
