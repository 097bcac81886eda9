package analyzer

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/huangsam/qualgate/schema"
)

// secretPatterns catch credentials committed in plain text.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
	regexp.MustCompile(`(?i)\b(password|passwd|secret|api[_-]?key|access[_-]?token|auth[_-]?token)\b\s*[:=]\s*["'][^"'\s]{8,}["']`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{10,}`),
}

// riskyCallPatterns catch dynamic code execution and injection sinks.
var riskyCallPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\beval\s*\(`),
	regexp.MustCompile(`\bnew Function\s*\(`),
	regexp.MustCompile(`\bos\.system\s*\(`),
	regexp.MustCompile(`\bsubprocess\.\w+\(.*shell\s*=\s*True`),
	regexp.MustCompile(`\bpickle\.loads?\s*\(`),
	regexp.MustCompile(`dangerouslySetInnerHTML`),
	regexp.MustCompile(`\.innerHTML\s*=`),
	regexp.MustCompile(`\bchild_process\b`),
	regexp.MustCompile(`InsecureSkipVerify:\s*true`),
}

var (
	weakHashPattern    = regexp.MustCompile(`(?i)\b(md5|sha1)\s*[.(]|crypto/(md5|sha1)"`)
	insecureURLPattern = regexp.MustCompile(`http://[^\s"'<>]+`)
	localURLPattern    = regexp.MustCompile(`http://(localhost|127\.0\.0\.1|0\.0\.0\.0|\[::1\]|example\.|www\.w3\.org|schemas\.)`)
)

// SecurityAnalyzer scores leaked secrets and risky code patterns.
type SecurityAnalyzer struct {
	weight float64
}

// NewSecurityAnalyzer creates a security analyzer worth weight points.
func NewSecurityAnalyzer(weight float64) *SecurityAnalyzer {
	return &SecurityAnalyzer{weight: weight}
}

// Category implements contract.Analyzer.
func (a *SecurityAnalyzer) Category() schema.CategoryID { return schema.SecurityCategory }

// MaxScore implements contract.Analyzer.
func (a *SecurityAnalyzer) MaxScore() float64 { return a.weight }

// Analyze implements contract.Analyzer.
func (a *SecurityAnalyzer) Analyze(ctx context.Context, root string, cfg schema.AnalyzerConfig) (schema.CategoryResult, error) {
	files, err := NewWalker(root, cfg.Excludes).Files(ctx)
	if err != nil {
		return schema.CategoryResult{}, err
	}
	b := NewResultBuilder(a.Category(), a.weight)

	var secrets, risky, weakHash, insecureURLs int
	var secretFiles []string
	err = fileScan(ctx, b, files, scannableForSecrets, func(f SourceFile, data []byte) {
		found := 0
		test := f.IsTest()
		ScanLines(data, func(_ int, line string) {
			for _, p := range secretPatterns {
				if p.MatchString(line) {
					found++
					break
				}
			}
			if !f.IsSource() || test {
				return
			}
			for _, p := range riskyCallPatterns {
				if p.MatchString(line) {
					risky++
					break
				}
			}
			if weakHashPattern.MatchString(line) {
				weakHash++
			}
			for _, u := range insecureURLPattern.FindAllString(line, -1) {
				if !localURLPattern.MatchString(u) {
					insecureURLs++
				}
			}
		})
		if found > 0 {
			secrets += found
			secretFiles = append(secretFiles, f.Path)
		}
	})
	if err != nil {
		return schema.CategoryResult{}, err
	}

	b.DeductPer(secrets, 3, 12, "%d possible hardcoded secrets in %d files", secrets, len(secretFiles))
	if secrets > 0 {
		b.AddSuggestion("Move secrets to environment variables or a secret manager and rotate the exposed ones")
	}
	b.DeductPer(risky, 1, 6, "%d uses of dynamic execution or injection-prone APIs", risky)
	if risky > 0 {
		b.AddSuggestion("Replace eval/exec style calls and raw HTML sinks with safe alternatives")
	}
	b.DeductPer(weakHash, 0.5, 3, "%d uses of MD5 or SHA-1", weakHash)
	if weakHash > 0 {
		b.AddSuggestion("Use SHA-256 or stronger for anything security related")
	}
	b.DeductPer(insecureURLs, 0.2, 2, "%d plain HTTP URLs", insecureURLs)

	if hasFile(files, ".env") {
		b.Deduct(3, ".env file is committed")
		b.AddSuggestion("Remove .env from version control and add it to .gitignore")
	}
	if !hasFile(files, ".gitignore") {
		b.Deduct(1, "No .gitignore found")
	}

	b.SetDetail("secrets", secrets).
		SetDetail("secret_files", secretFiles).
		SetDetail("risky_calls", risky).
		SetDetail("weak_hashes", weakHash).
		SetDetail("insecure_urls", insecureURLs)
	return b.Build(), nil
}

// scannableForSecrets keeps source files plus config files where secrets tend to leak.
func scannableForSecrets(f SourceFile) bool {
	if f.IsSource() {
		return true
	}
	base := strings.ToLower(filepath.Base(f.Path))
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".yml", ".yaml", ".json", ".toml", ".ini", ".cfg", ".conf", ".properties", ".xml", ".pem", ".key":
		return !strings.HasSuffix(base, "lock.json")
	}
	return base == ".env" || strings.HasPrefix(base, ".env.")
}
