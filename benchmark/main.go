// Package main provides a performance benchmarking tool for the qualgate CLI.
// It measures execution times across different project sizes and command types,
// running each test multiple times, treating the first successful run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - qualgate binary installed and available in PATH
// - Test projects cloned to the specified base directory
// - Projects: csv-parser, fd, git, kubernetes
//
// Usage: go run benchmark/main.go [project-base-dir]
//
//	project-base-dir: Directory containing test projects
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-history average, cold run and average of warm runs).
type BenchmarkResult struct {
	Project       string
	Command       string
	NoHistoryTime string
	ColdTime      string
	WarmTime      string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	ProjectBase   string
	Timeout       time.Duration
	Workers       int
	NoHistoryRuns int
	HistoryRuns   int
	TestProjects  []string
	Thresholds    map[string]string
}

// benchmarkDB keeps benchmark history away from the user's default store.
var benchmarkDB = filepath.Join(os.TempDir(), "qualgate_benchmark.db")

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [project-base-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		ProjectBase:   os.Args[1],
		Timeout:       5 * time.Minute,
		Workers:       5,
		NoHistoryRuns: 3,
		HistoryRuns:   4,
		TestProjects:  []string{"csv-parser", "fd", "git", "kubernetes"},
		Thresholds: map[string]string{
			"csv-parser": "overall:60",
			"fd":         "overall:70,style:10",
			"git":        "overall:50",
			"kubernetes": "overall:70,security:10",
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Clearing benchmark history...\n")
	clearCmd := exec.Command("qualgate", "history", "clear", "--history-backend", "sqlite", "--history-db-connect", benchmarkDB)
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear history: %v\nOutput: %s\n", err, string(output))
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that qualgate binary and test projects exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("qualgate"); err != nil {
		return fmt.Errorf("qualgate binary not found in PATH")
	}
	for _, project := range config.TestProjects {
		projectPath := filepath.Join(config.ProjectBase, project)
		if _, err := os.Stat(projectPath); os.IsNotExist(err) {
			return fmt.Errorf("project %s not found at %s", project, projectPath)
		}
	}
	return nil
}

// runBenchmarks executes all benchmark tests across configured projects
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d projects, %v timeout, %d workers, no-history: %d runs, history: %d runs\n",
		len(config.TestProjects), config.Timeout, config.Workers, config.NoHistoryRuns, config.HistoryRuns)

	for _, project := range config.TestProjects {
		fmt.Printf("Benchmarking %s\n", project)
		projectPath := filepath.Join(config.ProjectBase, project)

		results = append(results, runBenchmarkSuite(config, project, projectPath, "analyze", "full analysis", nil))

		if thresholds, ok := config.Thresholds[project]; ok {
			desc := fmt.Sprintf("quality gate check (%s)", thresholds)
			results = append(results, runBenchmarkSuite(config, project, projectPath, "check", desc,
				[]string{"--thresholds-override", thresholds, "--ci-format", "generic"}))
		}
	}

	return results
}

// runBenchmarkSuite runs both no-history and history benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, project, projectPath, command, description string, extraArgs []string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", description, project)

	runPhase := func(historyArgs []string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, projectPath, command, append(historyArgs, extraArgs...), numRuns)
		if len(times) == 0 {
			return cold, "TIMEOUT"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	_, noHistoryAvg := runPhase([]string{"--history-backend", "none"}, config.NoHistoryRuns, "No-history")
	coldTime, warmAvg := runPhase([]string{"--history-backend", "sqlite", "--history-db-connect", benchmarkDB}, config.HistoryRuns, "History")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-history average: %s, Cold time: %s, Warm average: %s\n", noHistoryAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Project:       project,
		Command:       command,
		NoHistoryTime: noHistoryAvg,
		ColdTime:      coldTimeStr,
		WarmTime:      warmAvg,
	}
}

// runBenchmark executes a qualgate command multiple times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, projectPath, command string, extraArgs []string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{command, projectPath, "--workers", fmt.Sprint(config.Workers), "--progress", "no", "--color", "no"}
	args = append(args, extraArgs...)

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "qualgate", args...).CombinedOutput()
		elapsed := time.Since(start).Seconds()
		cancel()

		if isSuccess(output, command, err) {
			times = append(times, elapsed)
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if a run completed. A blocked check still completed.
func isSuccess(output []byte, command string, err error) bool {
	if command == "check" {
		var exitErr *exec.ExitError
		if err == nil || (errors.As(err, &exitErr) && exitErr.ExitCode() == 1) {
			return strings.Contains(string(output), "Quality Gate Check:")
		}
		return false
	}
	return err == nil && strings.Contains(string(output), "Analysis completed in")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("qualgate_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"project", "cmd", "no_history_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Project, result.Command, result.NoHistoryTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	printCommandSummary(results, "analyze", "Analyze:")
	printCommandSummary(results, "check", "Check:")
}

// printCommandSummary displays results for a specific command type
func printCommandSummary(results []BenchmarkResult, command, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Command == command {
			fmt.Printf("  %-12s: No-history: %s, Cold: %s, Warm: %s\n", result.Project, result.NoHistoryTime, result.ColdTime, result.WarmTime)
		}
	}
}
