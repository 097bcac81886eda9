package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
)

// gradesRenderModel is the data shown by the grades command.
type gradesRenderModel struct {
	Curve   []schema.GradeStep            `json:"curve"`
	Weights map[schema.CategoryID]float64 `json:"weights"`
	Total   float64                       `json:"total"`
}

// PrintGrades displays the grading curve and the weight of each category.
// This is a static display that does not require analysis.
func PrintGrades(curve []schema.GradeStep, weights map[schema.CategoryID]float64, cfg *contract.Config) error {
	model := gradesRenderModel{Curve: curve, Weights: weights}
	for _, w := range weights {
		model.Total += w
	}

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, model)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeGradesCSV(w, model)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeGradesText(w, model)
		}, "Wrote text")
	}
}

func writeGradesText(w io.Writer, model gradesRenderModel) error {
	if _, err := fmt.Fprintf(w, "🎓 Grading Curve\n===============\n\n"); err != nil {
		return err
	}
	for _, step := range model.Curve {
		if _, err := fmt.Fprintf(w, "  %-3s >= %.0f%%\n", contract.GetColorGrade(step.Grade), step.MinRatio*100); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "  %-3s otherwise\n\n", contract.GetColorGrade(schema.GradeF)); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "⚖️  Category Weights\n"); err != nil {
		return err
	}
	for _, id := range slices.Sorted(maps.Keys(model.Weights)) {
		if _, err := fmt.Fprintf(w, "  %-13s %.0f\n", id, model.Weights[id]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  %-13s %.0f\n", "total", model.Total)
	return err
}

func writeGradesCSV(w io.Writer, model gradesRenderModel) error {
	return writeCSVWithHeader(w, []string{"kind", "name", "value"}, func(cw *csv.Writer) error {
		for _, step := range model.Curve {
			if err := cw.Write([]string{"grade", string(step.Grade), fmt.Sprintf("%.2f", step.MinRatio)}); err != nil {
				return err
			}
		}
		for _, id := range slices.Sorted(maps.Keys(model.Weights)) {
			if err := cw.Write([]string{"weight", string(id), fmt.Sprintf("%.0f", model.Weights[id])}); err != nil {
				return err
			}
		}
		return nil
	})
}
