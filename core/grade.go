package core

import (
	"slices"

	"github.com/huangsam/qualgate/schema"
)

// gradingCurve is ordered from the best grade to the worst passing one.
// Anything below the last rung is an F.
var gradingCurve = []schema.GradeStep{
	{Grade: schema.GradeAPlus, MinRatio: 0.98},
	{Grade: schema.GradeA, MinRatio: 0.95},
	{Grade: schema.GradeAMinus, MinRatio: 0.92},
	{Grade: schema.GradeBPlus, MinRatio: 0.88},
	{Grade: schema.GradeB, MinRatio: 0.84},
	{Grade: schema.GradeBMinus, MinRatio: 0.80},
	{Grade: schema.GradeCPlus, MinRatio: 0.76},
	{Grade: schema.GradeC, MinRatio: 0.72},
	{Grade: schema.GradeCMinus, MinRatio: 0.68},
	{Grade: schema.GradeDPlus, MinRatio: 0.64},
	{Grade: schema.GradeD, MinRatio: 0.60},
	{Grade: schema.GradeDMinus, MinRatio: 0.55},
}

// GradingCurve returns a copy of the grading curve.
func GradingCurve() []schema.GradeStep {
	return slices.Clone(gradingCurve)
}

// CalculateGrade maps a score ratio in [0, 1] to a letter grade.
func CalculateGrade(ratio float64) schema.Grade {
	for _, step := range gradingCurve {
		if ratio >= step.MinRatio {
			return step.Grade
		}
	}
	return schema.GradeF
}

// GradeFor grades score out of maxScore. A zero maxScore is an F.
func GradeFor(score, maxScore float64) schema.Grade {
	if maxScore <= 0 {
		return schema.GradeF
	}
	return CalculateGrade(score / maxScore)
}
