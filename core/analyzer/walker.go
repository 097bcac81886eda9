package analyzer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
	ignore "github.com/sabhiram/go-gitignore"
)

// MaxFileBytes bounds how much of a single file an analyzer reads.
const MaxFileBytes = 1 << 20

// skippedDirs are never descended into.
var skippedDirs = map[string]struct{}{
	".git": {}, ".hg": {}, ".svn": {}, ".idea": {}, ".vscode": {},
	"node_modules": {}, "vendor": {}, "__pycache__": {}, ".venv": {}, "venv": {},
	".tox": {}, ".next": {}, ".cache": {},
}

// sourceExts are the file extensions treated as source code.
var sourceExts = map[string]struct{}{
	".go": {}, ".js": {}, ".jsx": {}, ".mjs": {}, ".cjs": {}, ".ts": {}, ".tsx": {},
	".py": {}, ".rb": {}, ".java": {}, ".kt": {}, ".scala": {}, ".rs": {},
	".c": {}, ".h": {}, ".cc": {}, ".cpp": {}, ".hpp": {}, ".cs": {},
	".php": {}, ".swift": {}, ".sh": {},
}

// SourceFile is one file found under the project root.
type SourceFile struct {
	Path string // slash-separated, relative to the root
	Abs  string
	Size int64
}

// IsSource reports whether the file has a source code extension.
func (f SourceFile) IsSource() bool {
	_, ok := sourceExts[strings.ToLower(filepath.Ext(f.Path))]
	return ok
}

// IsTest reports whether the file looks like a test by its name or folder.
func (f SourceFile) IsTest() bool {
	base := strings.ToLower(filepath.Base(f.Path))
	switch {
	case strings.HasSuffix(base, "_test.go"),
		strings.Contains(base, ".test."), strings.Contains(base, ".spec."),
		strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py"),
		strings.HasSuffix(base, "_test.py"), strings.HasSuffix(base, "_spec.rb"):
		return true
	}
	for part := range strings.SplitSeq(f.Path, "/") {
		if part == "test" || part == "tests" || part == "__tests__" || part == "spec" {
			return true
		}
	}
	return false
}

// Depth is the number of directories between the root and the file.
func (f SourceFile) Depth() int {
	return strings.Count(f.Path, "/")
}

// Walker lists project files while honoring .gitignore and exclude patterns.
type Walker struct {
	root      string
	excludes  []string
	gitignore *ignore.GitIgnore
}

// NewWalker creates a walker for root. A missing or unreadable .gitignore is not an error.
func NewWalker(root string, excludes []string) *Walker {
	w := &Walker{root: root, excludes: excludes}
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		w.gitignore = gi
	}
	return w
}

// Files walks the root and returns every regular file that is not ignored.
func (w *Walker) Files(ctx context.Context) ([]SourceFile, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, contract.NewAnalysisError(schema.IOError, schema.SeverityHigh, "stat project root", err)
	}
	if !info.IsDir() {
		return nil, contract.NewAnalysisError(schema.ConfigurationError, schema.SeverityHigh, "walk",
			errors.New(w.root+" is not a directory"))
	}

	var files []SourceFile
	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == w.root {
				return err
			}
			return nil // unreadable entries are skipped
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if _, skip := skippedDirs[d.Name()]; skip || w.ignored(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || w.ignored(rel) {
			return nil
		}
		fi, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		files = append(files, SourceFile{Path: rel, Abs: path, Size: fi.Size()})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, contract.NewAnalysisError(schema.TimeoutError, schema.SeverityMedium, "walk", err)
		}
		return nil, contract.NewAnalysisError(schema.IOError, schema.SeverityMedium, "walk", err)
	}
	return files, nil
}

func (w *Walker) ignored(rel string) bool {
	if w.gitignore != nil && w.gitignore.MatchesPath(rel) {
		return true
	}
	return contract.ShouldIgnore(rel, w.excludes)
}

// ReadBounded reads at most MaxFileBytes of a file and reports whether it was cut short.
func ReadBounded(path string) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileBytes+1))
	if err != nil {
		return nil, false, err
	}
	if len(data) > MaxFileBytes {
		return data[:MaxFileBytes], true, nil
	}
	return data, false, nil
}

// ScanLines calls fn for each line of data with a 1-based line number.
// Line endings are stripped. Lines of any length are delivered whole.
func ScanLines(data []byte, fn func(lineNo int, line string)) {
	lineNo := 0
	for line := range bytes.Lines(data) {
		lineNo++
		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		fn(lineNo, string(line))
	}
}

// IsBinary reports whether data looks like a binary file.
func IsBinary(data []byte) bool {
	head := data[:min(len(data), 8000)]
	return bytes.IndexByte(head, 0) >= 0
}

// fileScan is the shared loop of the text-scanning analyzers: it reads each
// file under the bound and hands its content to fn. Unreadable files become warnings.
func fileScan(ctx context.Context, b *ResultBuilder, files []SourceFile, keep func(SourceFile) bool, fn func(f SourceFile, data []byte)) error {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return contract.NewAnalysisError(schema.TimeoutError, schema.SeverityMedium, "scan", err)
		}
		if !keep(f) {
			continue
		}
		data, truncated, err := ReadBounded(f.Abs)
		if err != nil {
			b.Warn(schema.IOError, schema.SeverityLow, "skipped "+f.Path+": "+err.Error())
			continue
		}
		if IsBinary(data) {
			continue
		}
		if truncated {
			b.Warn(schema.IOError, schema.SeverityLow, "read only the first 1 MiB of "+f.Path)
		}
		fn(f, data)
	}
	return nil
}

// hasFile reports whether any file matches one of the given base names at the root.
func hasFile(files []SourceFile, names ...string) bool {
	for _, f := range files {
		if strings.Contains(f.Path, "/") {
			continue
		}
		for _, n := range names {
			if strings.EqualFold(f.Path, n) {
				return true
			}
		}
	}
	return false
}
