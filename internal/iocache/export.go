package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/internal/parquet"
)

// ExportFiles names the Parquet files written for an export prefix.
func ExportFiles(outputFile string) (runsFile, scoresFile string) {
	return outputFile + ".runs.parquet", outputFile + ".category_scores.parquet"
}

// ExecuteHistoryExport exports every stored run and category score to Parquet files
// named after outputFile. Progress is reported to w.
func ExecuteHistoryExport(w io.Writer, store contract.HistoryStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history is disabled. Set --history-backend to export")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no history data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total category scores: %d\n", status.TableSizes[categoryScoresTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	scores, err := store.GetAllCategoryScores()
	if err != nil {
		return fmt.Errorf("failed to retrieve category scores: %w", err)
	}

	runsFile, scoresFile := ExportFiles(outputFile)

	parquetRuns := parquet.ConvertHistoryRunRecords(runs)
	if err := parquet.WriteHistoryRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(parquetRuns), runsFile)

	parquetScores := parquet.ConvertCategoryScoreRecords(scores)
	if err := parquet.WriteCategoryScoresParquet(parquetScores, scoresFile); err != nil {
		return fmt.Errorf("failed to write category scores: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d category scores to: %s\n", len(parquetScores), scoresFile)

	_, _ = fmt.Fprintln(w, "\nExport complete! The Parquet files can be used with:")
	_, _ = fmt.Fprintln(w, "  - DuckDB")
	_, _ = fmt.Fprintln(w, "  - Pandas (via pyarrow)")
	_, _ = fmt.Fprintln(w, "  - Apache Spark")

	return nil
}
