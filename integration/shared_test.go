//go:build integration || database

package integration

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

var (
	// sharedQualgatePath holds the path to a shared qualgate binary built once for all tests.
	sharedQualgatePath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getQualgateBinary returns the path to the qualgate binary, building it once if needed.
func getQualgateBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "qualgate-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		qualgatePath := filepath.Join(tempDir, "qualgate")
		buildCmd := exec.Command("go", "build", "-o", qualgatePath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if err := buildCmd.Run(); err != nil {
			panic(fmt.Sprintf("failed to build qualgate: %v", err))
		}

		sharedQualgatePath = qualgatePath
	})

	return sharedQualgatePath
}

// runQualgate runs the binary from the project root and returns its combined output and exit code.
func runQualgate(t *testing.T, env []string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(getQualgateBinary(), args...)
	cmd.Dir = "../"
	cmd.Env = append(os.Environ(), env...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Logf("Command failed: %s\nOutput: %s", cmd.String(), string(output))
	}
	return string(output), cmd.ProcessState.ExitCode()
}

// writeProject creates a small project with a README, a Go module and a test.
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"README.md":     "# demo\n",
		"go.mod":        "module example.com/demo\n\ngo 1.25\n",
		"main.go":       "package main\n\nfunc main() {}\n",
		"main_test.go":  "package main\n\nimport \"testing\"\n\nfunc TestMain(t *testing.T) {}\n",
		".gitignore":    "bin/\n",
		".editorconfig": "root = true\n",
		".golangci.yml": "linters:\n  enable:\n    - govet\n",
		"SECURITY.md":   "Report issues privately.\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}
